package host

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/thermo.go/pkg/curve"
	"github.com/robotalks/thermo.go/pkg/l0/comm"
	"github.com/robotalks/thermo.go/pkg/thermistor"
	"github.com/robotalks/thermo.go/pkg/watchdog"
)

var ntc3950 = thermistor.Parameters{Beta: 3950, T0: 25, R0: 10000}

func frameOf(t *testing.T, resistance uint32) []byte {
	frame, err := comm.AppendFrame(nil, &thermistor.Thermistor{
		Name:       "radiator",
		Parameters: ntc3950,
		Resistance: resistance,
	})
	require.NoError(t, err)
	return frame
}

// fakeTransport returns one scripted chunk per Read, nil chunks are timeouts.
type fakeTransport struct {
	script [][]byte
	closed bool
}

func (t *fakeTransport) Read(buf []byte) (int, error) {
	if len(t.script) == 0 {
		return 0, nil
	}
	chunk := t.script[0]
	t.script = t.script[1:]
	return copy(buf, chunk), nil
}

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

type fakeDialer struct {
	transports []*fakeTransport
	errs       []error
	opens      int
	onOpen     func(int)
}

func (d *fakeDialer) Open() (Transport, error) {
	n := d.opens
	d.opens++
	if d.onOpen != nil {
		d.onOpen(d.opens)
	}
	if n < len(d.errs) && d.errs[n] != nil {
		return nil, d.errs[n]
	}
	if len(d.transports) == 0 {
		return &fakeTransport{}, nil
	}
	t := d.transports[0]
	d.transports = d.transports[1:]
	return t, nil
}

type fakeResetter struct {
	resets int
}

func (r *fakeResetter) Reset() error {
	r.resets++
	return nil
}

type fakeOutput struct {
	inits   int
	duties  []uint8
	initErr error
}

func (o *fakeOutput) Init() error {
	o.inits++
	return o.initErr
}

func (o *fakeOutput) SetDuty(duty uint8) error {
	o.duties = append(o.duties, duty)
	return nil
}

type recordingObserver struct {
	NopObserver
	faults   []comm.FeedStatus
	readings []float64
	invalid  int
	phases   []watchdog.Phase
	resets   int
}

func (o *recordingObserver) FrameFault(r comm.FeedResult) {
	o.faults = append(o.faults, r.Status)
}

func (o *recordingObserver) ReadingDecoded(rec *thermistor.Thermistor, temp float64, valid bool) {
	o.readings = append(o.readings, temp)
	if !valid {
		o.invalid++
	}
}

func (o *recordingObserver) LinkChanged(from, to watchdog.Phase) {
	o.phases = append(o.phases, to)
}

func (o *recordingObserver) LinkReset(error) {
	o.resets++
}

type controllerTestCtx struct {
	t        *testing.T
	ctx      context.Context
	cancel   context.CancelFunc
	dialer   *fakeDialer
	resetter *fakeResetter
	output   *fakeOutput
	observer *recordingObserver
	ctl      *Controller
	sleeps   []time.Duration
	// stopAfter cancels after the number of sleeps.
	stopAfter int
}

func newControllerTestCtx(t *testing.T, threshold int, transports ...*fakeTransport) *controllerTestCtx {
	tc := &controllerTestCtx{
		t:        t,
		dialer:   &fakeDialer{transports: transports},
		resetter: &fakeResetter{},
		output:   &fakeOutput{},
		observer: &recordingObserver{},
	}
	tc.ctx, tc.cancel = context.WithCancel(context.Background())
	tc.ctl = NewController(tc.dialer, tc.resetter, tc.output, curve.MustParse("0:100,20:150,50:200,100:200"))
	tc.ctl.Watchdog = watchdog.New(threshold)
	tc.ctl.Observer = tc.observer
	tc.ctl.Sleep = tc.sleep
	return tc
}

func (tc *controllerTestCtx) sleep(ctx context.Context, d time.Duration) error {
	tc.sleeps = append(tc.sleeps, d)
	if tc.stopAfter > 0 && len(tc.sleeps) >= tc.stopAfter {
		tc.cancel()
	}
	return ctx.Err()
}

func (tc *controllerTestCtx) run() {
	err := tc.ctl.Run(tc.ctx)
	require.ErrorIs(tc.t, err, context.Canceled)
}

func TestControllerAppliesCurve(t *testing.T) {
	f25, f60, fCold := frameOf(t, 10000), frameOf(t, 2472), frameOf(t, 100000)
	transport := &fakeTransport{script: [][]byte{
		f25[:3], f25[3:], nil,
		append(append([]byte{}, f60...), fCold...), nil,
	}}
	tc := newControllerTestCtx(t, 5, transport)
	tc.stopAfter = 2
	tc.run()

	require.Equal(t, 1, tc.output.inits)
	require.Equal(t, []uint8{158, 200}, tc.output.duties)
	require.Len(t, tc.observer.readings, 3)
	require.Equal(t, 1, tc.observer.invalid)
	require.Equal(t, watchdog.State{Phase: watchdog.PhaseConnected}, tc.ctl.State())
	require.True(t, transport.closed)
	require.Zero(t, tc.resetter.resets)
}

func TestControllerResetsOnceAtThreshold(t *testing.T) {
	tc := newControllerTestCtx(t, 3)
	var phasesAtOpen []watchdog.Phase
	tc.dialer.onOpen = func(n int) {
		phasesAtOpen = append(phasesAtOpen, tc.ctl.State().Phase)
		if n == 2 {
			tc.cancel()
		}
	}
	tc.run()

	// Connected is only reported once the new transport is open.
	require.Equal(t, []watchdog.Phase{watchdog.PhaseConnected, watchdog.PhaseResetting}, phasesAtOpen)
	require.Equal(t, 1, tc.resetter.resets)
	require.Equal(t, 1, tc.observer.resets)
	require.Equal(t, 2, tc.dialer.opens)
	require.Equal(t, 2, tc.output.inits)
	require.Equal(t, []time.Duration{
		DefaultPollInterval,
		DefaultPollInterval,
		DefaultSettleDelay,
		DefaultPollInterval,
	}, tc.sleeps)
	require.Equal(t, []watchdog.Phase{
		watchdog.PhaseStalled,
		watchdog.PhaseResetting,
		watchdog.PhaseConnected,
		watchdog.PhaseStalled,
	}, tc.observer.phases)
}

func TestControllerSuccessResetsCounter(t *testing.T) {
	frame := frameOf(t, 10000)
	transport := &fakeTransport{script: [][]byte{
		nil,
		nil,
		frame, nil,
		nil,
		nil,
	}}
	tc := newControllerTestCtx(t, 3, transport)
	tc.stopAfter = 5
	tc.run()

	require.Zero(t, tc.resetter.resets)
	require.Equal(t, 1, tc.dialer.opens)
	require.Equal(t, []uint8{158}, tc.output.duties)
	require.Equal(t, watchdog.State{Phase: watchdog.PhaseStalled, Failures: 2}, tc.ctl.State())
}

func TestControllerRetriesOpen(t *testing.T) {
	frame := frameOf(t, 10000)
	tc := newControllerTestCtx(t, 20, &fakeTransport{script: [][]byte{frame}})
	tc.dialer.errs = []error{errors.New("no device"), errors.New("no device")}
	tc.stopAfter = 3
	tc.run()

	require.Equal(t, 3, tc.dialer.opens)
	require.Equal(t, 3, tc.output.inits)
	require.Equal(t, []uint8{158}, tc.output.duties)
	require.Zero(t, tc.resetter.resets)
}

func TestControllerOpenFailuresTriggerReset(t *testing.T) {
	tc := newControllerTestCtx(t, 2)
	tc.dialer.errs = []error{errors.New("no device"), errors.New("no device")}
	tc.stopAfter = 2
	tc.run()

	require.Equal(t, 1, tc.resetter.resets)
	require.Equal(t, []time.Duration{DefaultPollInterval, DefaultSettleDelay}, tc.sleeps)
}

func TestControllerResetsAgainWhenReopenFails(t *testing.T) {
	tc := newControllerTestCtx(t, 2)
	errNoDevice := errors.New("no device")
	tc.dialer.errs = []error{errNoDevice, errNoDevice, errNoDevice, errNoDevice}
	tc.stopAfter = 4
	tc.run()

	require.Equal(t, 2, tc.resetter.resets)
	require.Equal(t, 4, tc.dialer.opens)
	require.Equal(t, []time.Duration{
		DefaultPollInterval,
		DefaultSettleDelay,
		DefaultPollInterval,
		DefaultSettleDelay,
	}, tc.sleeps)
	require.Equal(t, []watchdog.Phase{
		watchdog.PhaseStalled,
		watchdog.PhaseResetting,
	}, tc.observer.phases)
	require.Equal(t, watchdog.PhaseResetting, tc.ctl.State().Phase)
}

func TestControllerReportsFrameFaults(t *testing.T) {
	frame := frameOf(t, 10000)
	garbage := []byte{0x05, 0x01, 0x00}
	transport := &fakeTransport{script: [][]byte{append(garbage, frame...), nil}}
	tc := newControllerTestCtx(t, 5, transport)
	tc.stopAfter = 1
	tc.run()

	require.Equal(t, []comm.FeedStatus{comm.FeedDeserError}, tc.observer.faults)
	require.Equal(t, []uint8{158}, tc.output.duties)
}

func TestControllerInitError(t *testing.T) {
	tc := newControllerTestCtx(t, 5)
	tc.output.initErr = errors.New("permission denied")
	err := tc.ctl.Run(tc.ctx)
	require.Error(t, err)
	require.Zero(t, tc.dialer.opens)
}

func TestControllerRequiresCurve(t *testing.T) {
	tc := newControllerTestCtx(t, 5)
	tc.ctl.Curve = nil
	require.Error(t, tc.ctl.Run(tc.ctx))
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
