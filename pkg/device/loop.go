package device

import (
	"context"
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/l0/comm"
	"github.com/robotalks/thermo.go/pkg/thermistor"
)

// Loop is the acquisition loop.
type Loop struct {
	ADC       ADC
	Channel   int
	Pull      uint32
	Divider   thermistor.Divider
	VRefMilli uint16
	// Record is owned by the loop and rewritten every cycle.
	Record *thermistor.Thermistor
	Wake   <-chan struct{}

	writer *comm.FrameWriter
}

// NewLoop creates a Loop writing frames to out.
func NewLoop(adc ADC, record *thermistor.Thermistor, out io.Writer, wake <-chan struct{}) *Loop {
	return &Loop{
		ADC:       adc,
		Pull:      4700,
		VRefMilli: 3300,
		Record:    record,
		Wake:      wake,
		writer:    comm.NewFrameWriter(out),
	}
}

// Name implements framework.Named.
func (l *Loop) Name() string {
	return "acquisition"
}

// Cycle samples once and transmits the reading.
// Nothing is transmitted when the code can't be converted.
func (l *Loop) Cycle() error {
	code, err := l.sample()
	if err != nil {
		return err
	}
	maxCode := l.ADC.MaxCode()
	res, err := l.Divider.Resistance(code, maxCode, l.Pull)
	if err != nil {
		return fmt.Errorf("convert code %d error: %w", code, err)
	}
	l.Record.Resistance = res
	glog.V(1).Infof("Reading: %d, Voltage: %dmV, Res: %d",
		code, thermistor.VoltageFromCode(code, maxCode, l.VRefMilli), res)
	n, err := l.writer.WriteFrame(l.Record)
	if err != nil {
		return fmt.Errorf("write frame error: %w", err)
	}
	glog.V(2).Infof("Data length: %d", n)
	return nil
}

func (l *Loop) sample() (uint16, error) {
	if err := l.ADC.Enable(); err != nil {
		return 0, fmt.Errorf("enable adc error: %w", err)
	}
	code, err := l.ADC.Sample(l.Channel)
	if derr := l.ADC.Disable(); derr != nil && err == nil {
		err = derr
	}
	if err != nil {
		return 0, fmt.Errorf("sample channel %d error: %w", l.Channel, err)
	}
	return code, nil
}

// Run implements framework.Runnable. It runs a cycle, then sleeps until
// woken. Cycle errors are logged and the loop continues.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := l.Cycle(); err != nil {
			glog.Warningf("acquisition: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.Wake:
		}
	}
}
