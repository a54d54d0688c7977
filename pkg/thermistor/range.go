package thermistor

import (
	"fmt"
	"math"
)

// Range is a window of plausible temperatures, (Min, Max].
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DefaultRange accepts readings above 0°C up to 100°C.
var DefaultRange = Range{Min: 0, Max: 100}

// Contains reports whether t is a finite temperature within the range.
func (r Range) Contains(t float64) bool {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return false
	}
	return t > r.Min && t <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("(%g, %g]", r.Min, r.Max)
}
