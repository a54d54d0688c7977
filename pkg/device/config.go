package device

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/thermo.go/pkg/thermistor"
)

// Config is the configuration of the sensing device.
type Config struct {
	// Name identifies the thermistor in readings.
	Name       string                `yaml:"name"`
	Parameters thermistor.Parameters `yaml:"parameters"`
	// Pull is the resistance of the divider's fixed resistor in ohms.
	Pull uint32 `yaml:"pull"`
	// Divider is "low" (thermistor to ground) or "high".
	Divider   string        `yaml:"divider"`
	VRefMilli uint16        `yaml:"vref_mv"`
	Channel   int           `yaml:"channel"`
	Interval  time.Duration `yaml:"interval"`

	Serial string `yaml:"serial"`
	Baud   int    `yaml:"baud"`

	// ADC selects the converter: "ads1115" or "sim".
	ADC        string `yaml:"adc"`
	I2CBus     string `yaml:"i2c_bus"`
	I2CAddress uint16 `yaml:"i2c_address"`
	// SimTemp is the temperature produced by the simulated ADC.
	SimTemp float64 `yaml:"sim_temp"`
}

var defaultConfig = Config{
	Name:       "radiator_in",
	Parameters: thermistor.Parameters{Beta: 3950, T0: 25, R0: 10000},
	Pull:       4700,
	VRefMilli:  3300,
	Interval:   DefaultInterval,
	Baud:       115200,
	ADC:        "ads1115",
	I2CAddress: 0x48,
	SimTemp:    25,
}

func init() {
	if val := os.Getenv("THERMO_DEVICE_SERIAL"); val != "" {
		defaultConfig.Serial = val
	}
	if val := os.Getenv("THERMO_DEVICE_NAME"); val != "" {
		defaultConfig.Name = val
	}
	if val := os.Getenv("THERMO_DEVICE_ADC"); val != "" {
		defaultConfig.ADC = val
	}
	if val := os.Getenv("THERMO_DEVICE_I2C_BUS"); val != "" {
		defaultConfig.I2CBus = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Name, "name", defaultConfig.Name, "Thermistor name")
	flag.Var(uintFlag{16, func(v uint64) { defaultConfig.Parameters.Beta = uint16(v) }, strconv.Itoa(int(defaultConfig.Parameters.Beta))}, "beta", "Beta coefficient")
	flag.Var(intFlag{16, func(v int64) { defaultConfig.Parameters.T0 = int16(v) }, strconv.Itoa(int(defaultConfig.Parameters.T0))}, "t0", "Reference temperature in °C")
	flag.Var(uintFlag{32, func(v uint64) { defaultConfig.Parameters.R0 = uint32(v) }, strconv.Itoa(int(defaultConfig.Parameters.R0))}, "r0", "Resistance at reference temperature in ohms")
	flag.Var(uintFlag{32, func(v uint64) { defaultConfig.Pull = uint32(v) }, strconv.Itoa(int(defaultConfig.Pull))}, "pull", "Divider resistor in ohms")
	flag.StringVar(&defaultConfig.Divider, "divider", defaultConfig.Divider, "Divider topology: low or high")
	flag.IntVar(&defaultConfig.Channel, "channel", defaultConfig.Channel, "ADC channel")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Sampling interval")
	flag.StringVar(&defaultConfig.Serial, "serial", defaultConfig.Serial, "Path of serial port")
	flag.IntVar(&defaultConfig.Baud, "serial-baud", defaultConfig.Baud, "Baud rate of serial port")
	flag.StringVar(&defaultConfig.ADC, "adc", defaultConfig.ADC, "ADC: ads1115 or sim")
	flag.StringVar(&defaultConfig.I2CBus, "i2c-bus", defaultConfig.I2CBus, "I2C bus of ADS1115")
	flag.Float64Var(&defaultConfig.SimTemp, "sim-temp", defaultConfig.SimTemp, "Temperature of simulated ADC")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile merges a YAML config file.
func (c *Config) LoadFile(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s error: %w", fn, err)
	}
	return nil
}

// LoadDefaults merges the YAML file named by THERMO_DEVICE_CONFIG into the
// default config. It must be called before SetupFlags.
func LoadDefaults() error {
	if fn := os.Getenv("THERMO_DEVICE_CONFIG"); fn != "" {
		return defaultConfig.LoadFile(fn)
	}
	return nil
}

// Record creates the reading record.
func (c *Config) Record() (*thermistor.Thermistor, error) {
	rec := &thermistor.Thermistor{Name: c.Name, Parameters: c.Parameters}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// NewLoop creates the acquisition loop from the config.
func (c *Config) NewLoop(adc ADC, out io.Writer, wake <-chan struct{}) (*Loop, error) {
	rec, err := c.Record()
	if err != nil {
		return nil, err
	}
	divider, err := thermistor.ParseDivider(c.Divider)
	if err != nil {
		return nil, err
	}
	if c.Pull == 0 {
		return nil, fmt.Errorf("pull resistance must be positive")
	}
	l := NewLoop(adc, rec, out, wake)
	l.Channel = c.Channel
	l.Pull = c.Pull
	l.Divider = divider
	l.VRefMilli = c.VRefMilli
	return l, nil
}

type uintFlag struct {
	bits uint
	set  func(uint64)
	def  string
}

func (f uintFlag) String() string {
	return f.def
}

func (f uintFlag) Set(s string) error {
	v, err := strconv.ParseUint(s, 10, int(f.bits))
	if err == nil {
		f.set(v)
	}
	return err
}

type intFlag struct {
	bits uint
	set  func(int64)
	def  string
}

func (f intFlag) String() string {
	return f.def
}

func (f intFlag) Set(s string) error {
	v, err := strconv.ParseInt(s, 10, int(f.bits))
	if err == nil {
		f.set(v)
	}
	return err
}
