// Package curve maps temperatures to fan duty cycles with a piecewise-linear curve.
package curve

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxDuty is the duty cycle used whenever the curve doesn't apply.
const MaxDuty uint8 = 255

var (
	// ErrTooFewPoints indicates less than two points.
	ErrTooFewPoints = errors.New("at least two control points required")
	// ErrUnsorted indicates the temperatures are not ascending.
	ErrUnsorted = errors.New("control points not sorted by temperature")
	// ErrDuplicate indicates the same temperature appears twice.
	ErrDuplicate = errors.New("duplicate control point temperature")
)

// ParseError indicates a malformed control point.
type ParseError struct {
	Input string
	Err   error
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid control point %q: %v", e.Input, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Point is a temperature threshold in °C and the duty cycle at it.
type Point struct {
	Temp int   `yaml:"temp"`
	Duty uint8 `yaml:"duty"`
}

func (p Point) String() string {
	return strconv.Itoa(p.Temp) + ":" + strconv.Itoa(int(p.Duty))
}

// Curve is a validated, immutable list of control points.
type Curve struct {
	points []Point
}

// New creates a Curve. Points must be sorted ascending by temperature
// without duplicates.
func New(points ...Point) (*Curve, error) {
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}
	for i := 1; i < len(points); i++ {
		switch {
		case points[i].Temp == points[i-1].Temp:
			return nil, fmt.Errorf("%w: %d", ErrDuplicate, points[i].Temp)
		case points[i].Temp < points[i-1].Temp:
			return nil, fmt.Errorf("%w: %d after %d", ErrUnsorted, points[i].Temp, points[i-1].Temp)
		}
	}
	return &Curve{points: append([]Point(nil), points...)}, nil
}

// Parse parses comma-separated "temperature:duty" pairs, e.g. "20:100, 30:150".
func Parse(s string) (*Curve, error) {
	var points []Point
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		p, err := parsePoint(item)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return New(points...)
}

// MustParse is Parse which panics on error.
func MustParse(s string) *Curve {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parsePoint(s string) (Point, error) {
	pair := strings.Split(s, ":")
	if len(pair) != 2 {
		return Point{}, &ParseError{Input: s, Err: errors.New("expect temperature:duty")}
	}
	temp, err := strconv.Atoi(strings.TrimSpace(pair[0]))
	if err != nil {
		return Point{}, &ParseError{Input: s, Err: err}
	}
	duty, err := strconv.ParseUint(strings.TrimSpace(pair[1]), 10, 8)
	if err != nil {
		return Point{}, &ParseError{Input: s, Err: err}
	}
	return Point{Temp: temp, Duty: uint8(duty)}, nil
}

// Points returns a copy of the control points.
func (c *Curve) Points() []Point {
	return append([]Point(nil), c.points...)
}

// DutyCycle interpolates the duty cycle at temperature t within the interval
// [t_i, t_i+1) containing t. The fractional part is truncated.
// Below the first point, at or above the last point, or for NaN, it returns MaxDuty.
func (c *Curve) DutyCycle(t float64) uint8 {
	for i := 0; i+1 < len(c.points); i++ {
		p1, p2 := c.points[i], c.points[i+1]
		t1, t2 := float64(p1.Temp), float64(p2.Temp)
		if t < t1 || t >= t2 {
			continue
		}
		a := (float64(p1.Duty) - float64(p2.Duty)) / (t1 - t2)
		duty := float64(p1.Duty) + a*(t-t1)
		if duty <= 0 {
			return 0
		}
		if duty >= float64(MaxDuty) {
			return MaxDuty
		}
		return uint8(math.Trunc(duty))
	}
	return MaxDuty
}

// String returns the curve in the form accepted by Parse.
func (c *Curve) String() string {
	if c == nil {
		return ""
	}
	items := make([]string, len(c.points))
	for n, p := range c.points {
		items[n] = p.String()
	}
	return strings.Join(items, ",")
}

// Set implements flag.Value.
func (c *Curve) Set(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

// UnmarshalYAML accepts either the string form or a list of points.
func (c *Curve) UnmarshalYAML(node *yaml.Node) error {
	var parsed *Curve
	var err error
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err = Parse(node.Value)
	case yaml.SequenceNode:
		var points []Point
		if err = node.Decode(&points); err == nil {
			parsed, err = New(points...)
		}
	default:
		err = fmt.Errorf("line %d: control curve must be a string or a list", node.Line)
	}
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c *Curve) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}
