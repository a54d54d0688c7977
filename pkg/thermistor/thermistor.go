// Package thermistor models an NTC thermistor read through a resistor divider.
package thermistor

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/robotalks/thermo.go/pkg/l0/comm"
)

// MaxNameLen is the capacity of Thermistor.Name in bytes.
const MaxNameLen = 64

// zeroCelsius is 0°C in Kelvin.
const zeroCelsius = 273.15

var (
	// ErrZeroCode indicates a raw code of 0, no resistance can be derived.
	ErrZeroCode = errors.New("adc code is zero")
	// ErrSaturated indicates a raw code at or above full scale.
	ErrSaturated = errors.New("adc code saturated")
)

// Parameters are the coefficients of the Beta equation.
type Parameters struct {
	// Beta is the Beta coefficient.
	Beta uint16 `json:"b" yaml:"beta"`
	// T0 is the reference temperature in °C.
	T0 int16 `json:"tn" yaml:"t0"`
	// R0 is the resistance in Ω at T0.
	R0 uint32 `json:"r_tn" yaml:"r0"`
}

// Validate checks the parameters are usable.
func (p Parameters) Validate() error {
	if p.Beta == 0 {
		return errors.New("beta must be positive")
	}
	if p.R0 == 0 {
		return errors.New("reference resistance must be positive")
	}
	return nil
}

// Thermistor is the reading record transferred from the device.
type Thermistor struct {
	Name       string     `json:"name"`
	Parameters Parameters `json:"parameters"`
	// Resistance is the last measured resistance in Ω.
	Resistance uint32 `json:"resistance"`
}

// Validate checks the record can be encoded.
func (t *Thermistor) Validate() error {
	if len(t.Name) > MaxNameLen {
		return fmt.Errorf("name exceeds %d bytes", MaxNameLen)
	}
	if !utf8.ValidString(t.Name) {
		return errors.New("name is not valid utf-8")
	}
	return t.Parameters.Validate()
}

// Temperature returns the temperature in °C of the last measured resistance.
func (t *Thermistor) Temperature() float64 {
	return TemperatureFromResistance(float64(t.Resistance), t.Parameters)
}

// TemperatureFromResistance solves the Beta equation
//
//	1/T = 1/T0 + 1/B * ln(R/R0)
//
// and returns T in °C. It returns NaN when r <= 0.
func TemperatureFromResistance(r float64, p Parameters) float64 {
	if r <= 0 || p.Beta == 0 || p.R0 == 0 {
		return math.NaN()
	}
	invT := 1/(float64(p.T0)+zeroCelsius) + math.Log(r/float64(p.R0))/float64(p.Beta)
	return 1/invT - zeroCelsius
}

// ResistanceFromTemperature is the inverse of TemperatureFromResistance.
// It returns NaN for temperatures at or below absolute zero.
func ResistanceFromTemperature(t float64, p Parameters) float64 {
	if t <= -zeroCelsius || p.Beta == 0 {
		return math.NaN()
	}
	invT := 1/(t+zeroCelsius) - 1/(float64(p.T0)+zeroCelsius)
	return float64(p.R0) * math.Exp(float64(p.Beta)*invT)
}

// ResistanceFromCode computes the thermistor resistance from the ADC code of
// a divider with the thermistor on the low side and a pull-up resistor:
//
//	R = pull / (maxCode/code - 1)
//
// The result is truncated to whole ohms.
func ResistanceFromCode(code, maxCode uint16, pull uint32) (uint32, error) {
	return DividerLowSide.Resistance(code, maxCode, pull)
}

// VoltageFromCode converts an ADC code to millivolts.
func VoltageFromCode(code, maxCode uint16, vrefMilli uint16) uint16 {
	if maxCode == 0 {
		return 0
	}
	return uint16(uint32(vrefMilli) * uint32(code) / uint32(maxCode))
}

// EncodePayload implements comm.Payload.
func (t *Thermistor) EncodePayload(e *comm.Encoder) error {
	if len(t.Name) > MaxNameLen {
		return fmt.Errorf("name exceeds %d bytes", MaxNameLen)
	}
	e.String(t.Name).
		Uvarint(uint64(t.Parameters.Beta)).
		Varint(int64(t.Parameters.T0)).
		Uvarint(uint64(t.Parameters.R0)).
		Uvarint(uint64(t.Resistance))
	return nil
}

// DecodePayload implements comm.Payload.
func (t *Thermistor) DecodePayload(d *comm.Decoder) (err error) {
	if t.Name, err = d.String(MaxNameLen); err != nil {
		return
	}
	if t.Parameters.Beta, err = d.Uint16(); err != nil {
		return
	}
	if t.Parameters.T0, err = d.Int16(); err != nil {
		return
	}
	if t.Parameters.R0, err = d.Uint32(); err != nil {
		return
	}
	t.Resistance, err = d.Uint32()
	return
}

// NewPayload creates an empty Thermistor as comm.Payload.
func NewPayload() comm.Payload {
	return &Thermistor{}
}
