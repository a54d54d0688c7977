package host

import (
	"io"

	"github.com/robotalks/thermo.go/pkg/l0/comm"
	"github.com/robotalks/thermo.go/pkg/thermistor"
	"github.com/robotalks/thermo.go/pkg/watchdog"
)

// Transport is the byte stream from the device.
// Read must return within a bounded timeout, (0, nil) when no data arrived.
type Transport interface {
	io.ReadCloser
}

// Dialer opens a fresh Transport.
type Dialer interface {
	Open() (Transport, error)
}

// Resetter power-cycles the physical transport device.
type Resetter interface {
	Reset() error
}

// Output is the physical actuator driven by the duty cycle.
type Output interface {
	// Init takes control of the output and sets it to the safe default.
	Init() error
	// SetDuty applies a duty cycle.
	SetDuty(uint8) error
}

// Observer receives events from the Controller, e.g. for telemetry.
// Observers are called from the control loop and must not block.
type Observer interface {
	comm.FaultNotifier
	ReadingDecoded(rec *thermistor.Thermistor, temp float64, valid bool)
	DutyApplied(duty uint8, temp float64)
	ReadFailed(err error)
	LinkChanged(from, to watchdog.Phase)
	LinkReset(err error)
}

// NopObserver implements Observer with no-ops, to be embedded.
type NopObserver struct{}

// FrameFault implements Observer.
func (NopObserver) FrameFault(comm.FeedResult) {}

// ReadingDecoded implements Observer.
func (NopObserver) ReadingDecoded(*thermistor.Thermistor, float64, bool) {}

// DutyApplied implements Observer.
func (NopObserver) DutyApplied(uint8, float64) {}

// ReadFailed implements Observer.
func (NopObserver) ReadFailed(error) {}

// LinkChanged implements Observer.
func (NopObserver) LinkChanged(from, to watchdog.Phase) {}

// LinkReset implements Observer.
func (NopObserver) LinkReset(error) {}

// Observers dispatches events to multiple Observers.
type Observers []Observer

// FrameFault implements Observer.
func (o Observers) FrameFault(r comm.FeedResult) {
	for _, ob := range o {
		ob.FrameFault(r)
	}
}

// ReadingDecoded implements Observer.
func (o Observers) ReadingDecoded(rec *thermistor.Thermistor, temp float64, valid bool) {
	for _, ob := range o {
		ob.ReadingDecoded(rec, temp, valid)
	}
}

// DutyApplied implements Observer.
func (o Observers) DutyApplied(duty uint8, temp float64) {
	for _, ob := range o {
		ob.DutyApplied(duty, temp)
	}
}

// ReadFailed implements Observer.
func (o Observers) ReadFailed(err error) {
	for _, ob := range o {
		ob.ReadFailed(err)
	}
}

// LinkChanged implements Observer.
func (o Observers) LinkChanged(from, to watchdog.Phase) {
	for _, ob := range o {
		ob.LinkChanged(from, to)
	}
}

// LinkReset implements Observer.
func (o Observers) LinkReset(err error) {
	for _, ob := range o {
		ob.LinkReset(err)
	}
}
