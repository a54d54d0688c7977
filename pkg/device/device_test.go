package device

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/thermo.go/pkg/l0/comm"
	"github.com/robotalks/thermo.go/pkg/thermistor"
)

type fakeADC struct {
	codes    []uint16
	err      error
	enabled  bool
	enables  int
	disables int
	channels []int
}

func (a *fakeADC) Enable() error {
	a.enabled = true
	a.enables++
	return nil
}

func (a *fakeADC) Disable() error {
	a.enabled = false
	a.disables++
	return nil
}

func (a *fakeADC) Sample(channel int) (uint16, error) {
	if !a.enabled {
		return 0, errors.New("disabled")
	}
	a.channels = append(a.channels, channel)
	if a.err != nil {
		return 0, a.err
	}
	code := a.codes[0]
	if len(a.codes) > 1 {
		a.codes = a.codes[1:]
	}
	return code, nil
}

func (a *fakeADC) MaxCode() uint16 {
	return 0x0fff
}

func decodeAll(t *testing.T, data []byte) []*thermistor.Thermistor {
	var recs []*thermistor.Thermistor
	dec := comm.NewStreamDecoder(thermistor.NewPayload)
	dec.Handler = comm.HandleFrameFunc(func(p comm.Payload) {
		recs = append(recs, p.(*thermistor.Thermistor))
	})
	dec.Feed(data)
	require.Zero(t, dec.Buffered())
	return recs
}

func newTestLoop(adc ADC, out *bytes.Buffer, wake <-chan struct{}) *Loop {
	rec := &thermistor.Thermistor{
		Name:       "radiator_in",
		Parameters: thermistor.Parameters{Beta: 3950, T0: 25, R0: 10000},
	}
	return NewLoop(adc, rec, out, wake)
}

func TestCycle(t *testing.T) {
	adc := &fakeADC{codes: []uint16{2048, 1024}}
	var out bytes.Buffer
	l := newTestLoop(adc, &out, nil)
	l.Channel = 3
	require.NoError(t, l.Cycle())
	require.NoError(t, l.Cycle())
	require.Equal(t, 2, adc.enables)
	require.Equal(t, 2, adc.disables)
	require.Equal(t, []int{3, 3}, adc.channels)

	recs := decodeAll(t, out.Bytes())
	require.Len(t, recs, 2)
	require.Equal(t, uint32(4702), recs[0].Resistance)
	require.Equal(t, uint32(1567), recs[1].Resistance)
	require.Equal(t, "radiator_in", recs[1].Name)
}

func TestCycleSkipsInvalidCode(t *testing.T) {
	var out bytes.Buffer
	for _, code := range []uint16{0, 0x0fff} {
		l := newTestLoop(&fakeADC{codes: []uint16{code}}, &out, nil)
		err := l.Cycle()
		require.Error(t, err)
	}
	require.Zero(t, out.Len())

	adc := &fakeADC{err: errors.New("timeout")}
	l := newTestLoop(adc, &out, nil)
	require.Error(t, l.Cycle())
	require.Equal(t, 1, adc.disables)
	require.Zero(t, out.Len())
}

type notifyWriter struct {
	bytes.Buffer
	written chan struct{}
}

func (w *notifyWriter) Write(p []byte) (int, error) {
	n, err := w.Buffer.Write(p)
	w.written <- struct{}{}
	return n, err
}

func TestRun(t *testing.T) {
	wake := NewWakeSignal()
	out := &notifyWriter{written: make(chan struct{}, 4)}
	adc := &fakeADC{codes: []uint16{0, 2048}}
	rec := &thermistor.Thermistor{
		Name:       "radiator_in",
		Parameters: thermistor.Parameters{Beta: 3950, T0: 25, R0: 10000},
	}
	l := NewLoop(adc, rec, out, wake.C())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx)
	}()
	wake.Signal()
	select {
	case <-out.written:
	case <-time.After(5 * time.Second):
		t.Fatal("no frame written")
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	recs := decodeAll(t, out.Bytes())
	require.Len(t, recs, 1)
	require.Equal(t, uint32(4702), recs[0].Resistance)
	require.Equal(t, 2, adc.enables)
}

func TestWakeSignalCoalesces(t *testing.T) {
	wake := NewWakeSignal()
	wake.Signal()
	wake.Signal()
	wake.Signal()
	<-wake.C()
	select {
	case <-wake.C():
		t.Fatal("wakes not coalesced")
	default:
	}
}

func TestGuarded(t *testing.T) {
	var g Guarded[int]
	require.Equal(t, 0, g.Replace(5))
	g.With(func(v *int) { *v++ })
	require.Equal(t, 6, g.Replace(0))
}

func TestTicker(t *testing.T) {
	wake := NewWakeSignal()
	ticker := NewTicker(0, wake)
	require.Equal(t, DefaultInterval, ticker.Interval)
	ticker.Fire()
	ticker.Fire()
	require.Equal(t, uint64(2), ticker.State().Wakes)
	<-wake.C()

	ticker.Interval = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ticker.Run(ctx)
	}()
	<-wake.C()
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.True(t, ticker.State().Wakes > 2)
}

func TestConfigNewLoop(t *testing.T) {
	conf := NewConfig()
	var out bytes.Buffer
	l, err := conf.NewLoop(&fakeADC{codes: []uint16{2048}}, &out, nil)
	require.NoError(t, err)
	require.Equal(t, thermistor.DividerLowSide, l.Divider)
	require.Equal(t, uint32(4700), l.Pull)
	require.Equal(t, "radiator_in", l.Record.Name)

	conf.Divider = "sideways"
	_, err = conf.NewLoop(&fakeADC{}, &out, nil)
	require.Error(t, err)

	conf = NewConfig()
	conf.Parameters.Beta = 0
	_, err = conf.NewLoop(&fakeADC{}, &out, nil)
	require.Error(t, err)
}

func TestConfigLoadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "device.yaml")
	doc := "name: radiator_out\nparameters:\n  beta: 3435\n  t0: 25\n  r0: 10000\ndivider: high\ninterval: 5s\nadc: sim\n"
	require.NoError(t, os.WriteFile(fn, []byte(doc), 0644))
	conf := NewConfig()
	require.NoError(t, conf.LoadFile(fn))
	require.Equal(t, "radiator_out", conf.Name)
	require.Equal(t, uint16(3435), conf.Parameters.Beta)
	require.Equal(t, 5*time.Second, conf.Interval)
	require.Equal(t, uint32(4700), conf.Pull)
	l, err := conf.NewLoop(&fakeADC{}, &bytes.Buffer{}, nil)
	require.NoError(t, err)
	require.Equal(t, thermistor.DividerHighSide, l.Divider)
}
