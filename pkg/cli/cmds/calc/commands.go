// Package calc provides thermistor and curve calculation commands.
package calc

import (
	"fmt"
	"math"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/thermo.go/pkg/cli/sh"
	"github.com/robotalks/thermo.go/pkg/curve"
	"github.com/robotalks/thermo.go/pkg/thermistor"
)

// Temperature is the result of a resistance to temperature conversion.
type Temperature struct {
	Resistance  float64 `json:"resistance"`
	Temperature float64 `json:"temperature"`
	Valid       bool    `json:"valid"`
	// Duty is applied only for valid temperatures.
	Duty *uint8 `json:"duty,omitempty"`
}

// ComputeTemperature converts resistance with the configured parameters.
func ComputeTemperature(conf *sh.Config, r float64) Temperature {
	t := thermistor.TemperatureFromResistance(r, conf.Parameters)
	res := Temperature{Resistance: r, Temperature: t, Valid: conf.Range.Contains(t)}
	if res.Valid {
		duty := conf.Curve.DutyCycle(t)
		res.Duty = &duty
	}
	return res
}

func (t Temperature) String() string {
	if t.Duty == nil {
		return fmt.Sprintf("%.0fΩ => %.2f°C (out of range, skipped)", t.Resistance, t.Temperature)
	}
	return fmt.Sprintf("%.0fΩ => %.2f°C, duty %d", t.Resistance, t.Temperature, *t.Duty)
}

// Code is the ADC code expected for a resistance.
type Code struct {
	Resistance float64 `json:"resistance"`
	Code       uint16  `json:"code"`
	MaxCode    uint16  `json:"max_code"`
}

// ComputeCode converts resistance to the ADC code of the configured divider.
func ComputeCode(conf *sh.Config, r float64) Code {
	return Code{
		Resistance: r,
		Code:       conf.Divider.Code(r, conf.MaxCode, conf.Pull),
		MaxCode:    conf.MaxCode,
	}
}

// ComputeFromCode converts an ADC code to resistance and temperature.
func ComputeFromCode(conf *sh.Config, code uint16) (Temperature, error) {
	r, err := conf.Divider.Resistance(code, conf.MaxCode, conf.Pull)
	if err != nil {
		return Temperature{}, err
	}
	return ComputeTemperature(conf, float64(r)), nil
}

var (
	// CurveCmd shows or replaces the fan curve.
	CurveCmd = ishell.Cmd{
		Name: "curve",
		Help: "[TEMP:DUTY,...]",
		Func: func(c *ishell.Context) {
			conf := sh.ShellFrom(c).Config
			if len(c.Args) > 0 {
				cv, err := curve.Parse(strings.Join(c.Args, ","))
				if err != nil {
					c.Err(err)
					return
				}
				conf.Curve = cv
			}
			sh.Print(c, conf.Curve.String(), conf.Curve.Points())
		},
	}

	// DutyCmd evaluates the curve.
	DutyCmd = ishell.Cmd{
		Name: "duty",
		Help: "TEMP(°C)",
		Func: func(c *ishell.Context) {
			t, err := sh.ParseFloatArg(c.Args, 0, "TEMP")
			if err != nil {
				c.Err(err)
				return
			}
			duty := sh.ShellFrom(c).Config.Curve.DutyCycle(t)
			sh.Print(c, fmt.Sprintf("%d", duty), duty)
		},
	}

	// TempCmd converts resistance to temperature.
	TempCmd = ishell.Cmd{
		Name:    "temp",
		Aliases: []string{"t"},
		Help:    "RESISTANCE(Ω)",
		Func: func(c *ishell.Context) {
			r, err := sh.ParseFloatArg(c.Args, 0, "RESISTANCE")
			if err != nil {
				c.Err(err)
				return
			}
			res := ComputeTemperature(sh.ShellFrom(c).Config, r)
			sh.Print(c, res.String(), res)
		},
	}

	// ResistanceCmd converts temperature to resistance.
	ResistanceCmd = ishell.Cmd{
		Name:    "resistance",
		Aliases: []string{"r"},
		Help:    "TEMP(°C)",
		Func: func(c *ishell.Context) {
			t, err := sh.ParseFloatArg(c.Args, 0, "TEMP")
			if err != nil {
				c.Err(err)
				return
			}
			r := thermistor.ResistanceFromTemperature(t, sh.ShellFrom(c).Config.Parameters)
			sh.Print(c, fmt.Sprintf("%.0fΩ", r), r)
		},
	}

	// CodeCmd converts resistance to the ADC code.
	CodeCmd = ishell.Cmd{
		Name: "code",
		Help: "RESISTANCE(Ω)",
		Func: func(c *ishell.Context) {
			r, err := sh.ParseFloatArg(c.Args, 0, "RESISTANCE")
			if err != nil {
				c.Err(err)
				return
			}
			res := ComputeCode(sh.ShellFrom(c).Config, r)
			sh.Print(c, fmt.Sprintf("%d/%d", res.Code, res.MaxCode), res)
		},
	}

	// ADCCmd converts an ADC code to temperature.
	ADCCmd = ishell.Cmd{
		Name: "adc",
		Help: "CODE",
		Func: func(c *ishell.Context) {
			v, err := sh.ParseFloatArg(c.Args, 0, "CODE")
			if err != nil {
				c.Err(err)
				return
			}
			if v < 0 || v > math.MaxUint16 {
				c.Err(fmt.Errorf("CODE out of range"))
				return
			}
			res, err := ComputeFromCode(sh.ShellFrom(c).Config, uint16(v))
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, res.String(), res)
		},
	}
)

func init() {
	sh.AddCmds(
		&CurveCmd,
		&DutyCmd,
		&TempCmd,
		&ResistanceCmd,
		&CodeCmd,
		&ADCCmd,
	)
}
