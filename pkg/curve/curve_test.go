package curve

import (
	"flag"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDutyCycle(t *testing.T) {
	c, err := New(Point{0, 100}, Point{20, 150}, Point{50, 200}, Point{100, 200})
	require.NoError(t, err)
	cases := []struct {
		temp float64
		duty uint8
	}{
		{0, 100},
		{20, 150},
		{50, 200},
		{30, 166},
		{10, 125},
		{99.9, 200},
		{-5, MaxDuty},
		{-0.001, MaxDuty},
		{100, MaxDuty},
		{150, MaxDuty},
		{math.NaN(), MaxDuty},
		{math.Inf(1), MaxDuty},
		{math.Inf(-1), MaxDuty},
	}
	for _, tc := range cases {
		require.Equal(t, tc.duty, c.DutyCycle(tc.temp), "temp %v", tc.temp)
	}
}

func TestDutyCycleDescending(t *testing.T) {
	c := MustParse("0:255,10:0,20:0")
	require.Equal(t, uint8(255), c.DutyCycle(0))
	require.Equal(t, uint8(127), c.DutyCycle(5))
	require.Equal(t, uint8(0), c.DutyCycle(15))
}

func TestParse(t *testing.T) {
	c, err := Parse(" 20:100, 30:150 ,60:255")
	require.NoError(t, err)
	require.Equal(t, []Point{{20, 100}, {30, 150}, {60, 255}}, c.Points())
	require.Equal(t, "20:100,30:150,60:255", c.String())

	c, err = Parse("-10:50,0:80")
	require.NoError(t, err)
	require.Equal(t, uint8(65), c.DutyCycle(-5))
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		input string
		err   error
	}{
		{"", ErrTooFewPoints},
		{"20:100", ErrTooFewPoints},
		{"30:100,20:150", ErrUnsorted},
		{"20:100,20:150", ErrDuplicate},
	}
	for _, tc := range cases {
		_, err := Parse(tc.input)
		require.ErrorIs(t, err, tc.err, tc.input)
	}
	for _, input := range []string{"20", "20:100:1,30:150", "x:100,30:150", "20:256,30:150", "20:-1,30:150"} {
		_, err := Parse(input)
		var perr *ParseError
		require.ErrorAs(t, err, &perr, input)
	}
}

func TestPointsCopy(t *testing.T) {
	c := MustParse("0:10,10:20")
	points := c.Points()
	points[0].Duty = 99
	require.Equal(t, uint8(10), c.DutyCycle(0))
}

func TestFlagValue(t *testing.T) {
	var c Curve
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&c, "curve", "control curve")
	require.NoError(t, fs.Parse([]string{"-curve", "0:100,50:200"}))
	require.Equal(t, uint8(150), c.DutyCycle(25))
	require.Error(t, fs.Parse([]string{"-curve", "50:100,0:200"}))
}

func TestYAML(t *testing.T) {
	var conf struct {
		Curve *Curve `yaml:"curve"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("curve: \"0:100, 50:200\"\n"), &conf))
	require.Equal(t, "0:100,50:200", conf.Curve.String())

	conf.Curve = nil
	doc := "curve:\n  - temp: 10\n    duty: 60\n  - temp: 40\n    duty: 240\n"
	require.NoError(t, yaml.Unmarshal([]byte(doc), &conf))
	require.Equal(t, []Point{{10, 60}, {40, 240}}, conf.Curve.Points())

	out, err := yaml.Marshal(&conf)
	require.NoError(t, err)
	conf.Curve = nil
	require.NoError(t, yaml.Unmarshal(out, &conf))
	require.Equal(t, "10:60,40:240", conf.Curve.String())

	require.Error(t, yaml.Unmarshal([]byte("curve: \"40:100,10:200\"\n"), &conf))
	require.Error(t, yaml.Unmarshal([]byte("curve:\n  a: b\n"), &conf))
}
