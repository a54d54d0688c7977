package thermistor

import (
	"fmt"
	"math"
)

// Divider is the topology of the resistor divider.
type Divider int

const (
	// DividerLowSide has the thermistor between ADC input and ground,
	// the pull resistor to the reference. Higher codes mean higher resistance.
	DividerLowSide Divider = iota
	// DividerHighSide has the thermistor between reference and ADC input,
	// the pull resistor to ground. Higher codes mean lower resistance.
	DividerHighSide
)

// ParseDivider parses "low" or "high".
func ParseDivider(s string) (Divider, error) {
	switch s {
	case "", "low", "low-side", "pullup":
		return DividerLowSide, nil
	case "high", "high-side", "pulldown":
		return DividerHighSide, nil
	}
	return DividerLowSide, fmt.Errorf("unknown divider %q", s)
}

func (d Divider) String() string {
	if d == DividerHighSide {
		return "high"
	}
	return "low"
}

// Resistance computes the thermistor resistance from code.
// Codes 0 and >= maxCode are rejected as the divider equation has no
// finite positive solution there.
func (d Divider) Resistance(code, maxCode uint16, pull uint32) (uint32, error) {
	if code == 0 {
		return 0, ErrZeroCode
	}
	if code >= maxCode {
		return 0, ErrSaturated
	}
	c, rest := uint64(code), uint64(maxCode-code)
	var r uint64
	if d == DividerHighSide {
		r = uint64(pull) * rest / c
	} else {
		r = uint64(pull) * c / rest
	}
	if r > 0xffffffff {
		return 0, ErrSaturated
	}
	return uint32(r), nil
}

// Code returns the ADC code the divider produces for resistance r,
// clamped to [0, maxCode].
func (d Divider) Code(r float64, maxCode uint16, pull uint32) uint16 {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	if math.IsInf(r, 1) {
		if d == DividerHighSide {
			return 0
		}
		return maxCode
	}
	frac := r / (r + float64(pull))
	if d == DividerHighSide {
		frac = float64(pull) / (r + float64(pull))
	}
	return uint16(math.Round(frac * float64(maxCode)))
}
