package host

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/thermo.go/pkg/curve"
	"github.com/robotalks/thermo.go/pkg/thermistor"
	"github.com/robotalks/thermo.go/pkg/watchdog"
)

// Config is the configuration of the host daemon.
type Config struct {
	// Serial is the path of the serial port.
	Serial string `yaml:"serial"`
	// Baud is the baud rate of the serial port.
	Baud int `yaml:"baud"`
	// ReadTimeout bounds a single read from the serial port.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// HwmonRoot is where hwmon sensor directories are searched.
	HwmonRoot string `yaml:"hwmon_root"`
	// SensorName is matched against the name file of hwmon directories.
	SensorName string `yaml:"sensor_name"`
	// ControlFile is the file selecting the control mode, relative to the sensor directory.
	ControlFile string `yaml:"control_file"`
	// ControlValue is written to ControlFile to select manual control.
	ControlValue string `yaml:"control_value"`
	// PWMFile is the duty cycle file, relative to the sensor directory.
	PWMFile string `yaml:"pwm_file"`

	Curve curve.Curve      `yaml:"curve"`
	Range thermistor.Range `yaml:"range"`

	// USBVendor and USBProduct are hex ids of the serial adapter to reset.
	USBVendor  string `yaml:"usb_vid"`
	USBProduct string `yaml:"usb_pid"`
	// USBSerial selects the adapter when multiple ones match.
	USBSerial string `yaml:"usb_serial"`
	// USBRoot is the sysfs directory of USB devices.
	USBRoot string `yaml:"usb_root"`

	Threshold    int           `yaml:"threshold"`
	PollInterval time.Duration `yaml:"poll_interval"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	LogEvery     int           `yaml:"log_every"`

	// MetricsAddr is the listen address of the metrics server, empty to disable.
	MetricsAddr string `yaml:"metrics_addr"`
	// MQTTBrokerURL specifies the MQTT broker for telemetry, empty to disable.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `yaml:"mqtt_url"`
	// ID identifies this host in telemetry topics.
	ID string `yaml:"id"`
}

var defaultConfig = Config{
	Baud:         115200,
	ReadTimeout:  10 * time.Millisecond,
	HwmonRoot:    "/sys/class/hwmon",
	ControlValue: "1",
	Range:        thermistor.DefaultRange,
	USBRoot:      "/sys/bus/usb/devices",
	Threshold:    watchdog.DefaultThreshold,
	PollInterval: DefaultPollInterval,
	SettleDelay:  DefaultSettleDelay,
	LogEvery:     DefaultLogEvery,
}

// ApplyEnv overrides fields from THERMO_* environment variables.
// LoadDefaults applies it to the defaults.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"THERMO_SERIAL":        &c.Serial,
		"THERMO_HWMON_ROOT":    &c.HwmonRoot,
		"THERMO_SENSOR":        &c.SensorName,
		"THERMO_CONTROL_FILE":  &c.ControlFile,
		"THERMO_CONTROL_VALUE": &c.ControlValue,
		"THERMO_PWM_FILE":      &c.PWMFile,
		"THERMO_USB_VID":       &c.USBVendor,
		"THERMO_USB_PID":       &c.USBProduct,
		"THERMO_USB_SERIAL":    &c.USBSerial,
		"THERMO_USB_ROOT":      &c.USBRoot,
		"THERMO_METRICS_ADDR":  &c.MetricsAddr,
		"THERMO_MQTT_URL":      &c.MQTTBrokerURL,
		"THERMO_ID":            &c.ID,
	}
	for name, ptr := range strs {
		if val := os.Getenv(name); val != "" {
			*ptr = val
		}
	}
	if val := os.Getenv("THERMO_BAUD"); val != "" {
		baud, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("THERMO_BAUD: %w", err)
		}
		c.Baud = baud
	}
	if val := os.Getenv("THERMO_CURVE"); val != "" {
		if err := c.Curve.Set(val); err != nil {
			return fmt.Errorf("THERMO_CURVE: %w", err)
		}
	}
	return nil
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

// LoadDefaults loads .env files (missing ones are ignored), the environment
// and the YAML file named by THERMO_CONFIG into the default config.
// It must be called before SetupFlags.
func LoadDefaults(dotenvFiles ...string) error {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, fn := range dotenvFiles {
		if err := godotenv.Load(fn); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s error: %w", fn, err)
		}
	}
	if fn := os.Getenv("THERMO_CONFIG"); fn != "" {
		if err := defaultConfig.LoadFile(fn); err != nil {
			return err
		}
	}
	return defaultConfig.ApplyEnv()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Serial, "serial", defaultConfig.Serial, "Path of serial port")
	flag.IntVar(&defaultConfig.Baud, "serial-baud", defaultConfig.Baud, "Baud rate of serial port")
	flag.DurationVar(&defaultConfig.ReadTimeout, "serial-timeout", defaultConfig.ReadTimeout, "Read timeout of serial port")
	flag.StringVar(&defaultConfig.HwmonRoot, "hwmon-root", defaultConfig.HwmonRoot, "Directory of hwmon sensors")
	flag.StringVar(&defaultConfig.SensorName, "sensor-name", defaultConfig.SensorName, "Name of hwmon sensor")
	flag.StringVar(&defaultConfig.ControlFile, "channel-control", defaultConfig.ControlFile, "Name of control mode file")
	flag.StringVar(&defaultConfig.ControlValue, "channel-control-value", defaultConfig.ControlValue, "Value to be written to control mode file")
	flag.StringVar(&defaultConfig.PWMFile, "channel-pwm", defaultConfig.PWMFile, "Name of pwm file")
	flag.Var(&defaultConfig.Curve, "control-points", `Comma-separated pairs of temperature and PWM values, i.e. "20:100, 30:150"`)
	flag.StringVar(&defaultConfig.USBVendor, "usb-vid", defaultConfig.USBVendor, "USB VID (hex) for resetting")
	flag.StringVar(&defaultConfig.USBProduct, "usb-pid", defaultConfig.USBProduct, "USB PID (hex) for resetting")
	flag.StringVar(&defaultConfig.USBSerial, "usb-serial", defaultConfig.USBSerial, "USB serial number for resetting")
	flag.IntVar(&defaultConfig.Threshold, "reset-threshold", defaultConfig.Threshold, "Failed polls before resetting the serial adapter")
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics-addr", defaultConfig.MetricsAddr, "Listen address of metrics server")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for telemetry")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Host ID in telemetry")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks required fields.
func (c *Config) Validate() error {
	switch {
	case c.Serial == "":
		return fmt.Errorf("serial port not specified")
	case c.Baud <= 0:
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	case c.SensorName == "":
		return fmt.Errorf("sensor name not specified")
	case c.ControlFile == "" || c.PWMFile == "":
		return fmt.Errorf("control and pwm files must be specified")
	case len(c.Curve.Points()) == 0:
		return fmt.Errorf("control points not specified")
	case c.USBVendor == "" || c.USBProduct == "":
		return fmt.Errorf("usb vid and pid must be specified")
	case !(c.Range.Min < c.Range.Max):
		return fmt.Errorf("invalid temperature range %s", c.Range)
	}
	return nil
}

// NewController creates a Controller from the config.
func (c *Config) NewController(dialer Dialer, resetter Resetter, output Output) *Controller {
	ctl := NewController(dialer, resetter, output, &c.Curve)
	ctl.Range = c.Range
	ctl.Watchdog = watchdog.New(c.Threshold)
	ctl.PollInterval = c.PollInterval
	ctl.SettleDelay = c.SettleDelay
	ctl.LogEvery = c.LogEvery
	return ctl
}
