// Package sim simulates a thermistor divider sampled by an ADC.
package sim

import (
	"errors"
	"sync"

	"github.com/robotalks/thermo.go/pkg/thermistor"
)

// DefaultMaxCode is the full scale of a 12-bit converter.
const DefaultMaxCode = 0x0fff

// ErrDisabled indicates sampling a disabled converter.
var ErrDisabled = errors.New("adc disabled")

// ADC produces codes for a simulated temperature.
type ADC struct {
	Parameters thermistor.Parameters
	Pull       uint32
	Divider    thermistor.Divider
	Max        uint16

	lock    sync.Mutex
	temp    float64
	step    float64
	min     float64
	max     float64
	enabled bool
}

// New creates an ADC at a constant temperature.
func New(params thermistor.Parameters, pull uint32, divider thermistor.Divider, temp float64) *ADC {
	return &ADC{
		Parameters: params,
		Pull:       pull,
		Divider:    divider,
		Max:        DefaultMaxCode,
		temp:       temp,
		min:        temp,
		max:        temp,
	}
}

// SetTemperature sets the simulated temperature.
func (a *ADC) SetTemperature(temp float64) {
	a.lock.Lock()
	a.temp, a.min, a.max, a.step = temp, temp, temp, 0
	a.lock.Unlock()
}

// Sweep moves the temperature by step every sample, bouncing within [min, max].
func (a *ADC) Sweep(min, max, step float64) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.min, a.max, a.step = min, max, step
	if a.temp < min || a.temp > max {
		a.temp = min
	}
}

// Temperature returns the current simulated temperature.
func (a *ADC) Temperature() float64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.temp
}

// Enable implements device.ADC.
func (a *ADC) Enable() error {
	a.lock.Lock()
	a.enabled = true
	a.lock.Unlock()
	return nil
}

// Disable implements device.ADC.
func (a *ADC) Disable() error {
	a.lock.Lock()
	a.enabled = false
	a.lock.Unlock()
	return nil
}

// MaxCode implements device.ADC.
func (a *ADC) MaxCode() uint16 {
	return a.Max
}

// Sample implements device.ADC. The channel is ignored.
func (a *ADC) Sample(channel int) (uint16, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if !a.enabled {
		return 0, ErrDisabled
	}
	r := thermistor.ResistanceFromTemperature(a.temp, a.Parameters)
	code := a.Divider.Code(r, a.Max, a.Pull)
	a.advance()
	return code, nil
}

func (a *ADC) advance() {
	if a.step == 0 {
		return
	}
	a.temp += a.step
	if a.temp > a.max {
		a.temp, a.step = a.max, -a.step
	} else if a.temp < a.min {
		a.temp, a.step = a.min, -a.step
	}
}
