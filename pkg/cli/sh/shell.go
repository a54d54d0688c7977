// Package sh provides the interactive diagnostics shell.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/thermo.go/pkg/curve"
	"github.com/robotalks/thermo.go/pkg/serial"
	"github.com/robotalks/thermo.go/pkg/thermistor"
)

// Config is the thermistor and link setup the commands compute with.
type Config struct {
	Serial     serial.Config
	Parameters thermistor.Parameters
	Pull       uint32
	Divider    thermistor.Divider
	MaxCode    uint16
	Curve      *curve.Curve
	Range      thermistor.Range
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *Config
	Port   serial.Port
}

const (
	shellKey     = "$shell"
	closedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	defaultConfig = Config{
		Serial:     serial.Config{Baud: 115200, ReadTimeout: serial.DefaultReadTimeout},
		Parameters: thermistor.Parameters{Beta: 3950, T0: 25, R0: 10000},
		Pull:       4700,
		MaxCode:    0x0fff,
		Curve:      curve.MustParse("0:100,20:150,50:200"),
		Range:      thermistor.DefaultRange,
	}

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&OpenCmd,
		&CloseCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// SetupFlags registers flags for the default Config.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Serial.Name, "serial", defaultConfig.Serial.Name, "Serial port opened by default")
	flag.IntVar(&defaultConfig.Serial.Baud, "serial-baud", defaultConfig.Serial.Baud, "Serial port baud rate")
	flag.Var(defaultConfig.Curve, "control-points", "Curve points TEMP:DUTY,...")
	flag.Func("beta", "Beta coefficient", func(s string) error {
		return parseUint(s, 16, func(v uint64) { defaultConfig.Parameters.Beta = uint16(v) })
	})
	flag.Func("t0", "Reference temperature in °C", func(s string) error {
		v, err := parseInt(s, 16)
		defaultConfig.Parameters.T0 = int16(v)
		return err
	})
	flag.Func("r0", "Resistance at the reference temperature in ohms", func(s string) error {
		return parseUint(s, 32, func(v uint64) { defaultConfig.Parameters.R0 = uint32(v) })
	})
	flag.Func("pull", "Divider fixed resistor in ohms", func(s string) error {
		return parseUint(s, 32, func(v uint64) { defaultConfig.Pull = uint32(v) })
	})
	flag.Func("max-code", "ADC full scale code", func(s string) error {
		return parseUint(s, 16, func(v uint64) { defaultConfig.MaxCode = uint16(v) })
	})
	flag.Func("divider", "Divider topology: low or high", func(s string) (err error) {
		defaultConfig.Divider, err = thermistor.ParseDivider(s)
		return
	})
}

// NewConfig returns a copy of the default Config.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requires an opened port.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Port == nil {
			c.Err(fmt.Errorf("no serial port opened"))
			return
		}
		fn(c)
	}
}

// Print prints v as JSON when requested, otherwise the text form.
func Print(c *ishell.Context, text string, v interface{}) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Open opens the serial port, closing the current one.
func (s *Shell) Open(name string) error {
	conf := s.Config.Serial
	conf.Name = name
	port, err := serial.Open(&conf)
	if err != nil {
		return err
	}
	s.Close()
	s.Port = port
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
	return nil
}

// Close closes the current port.
func (s *Shell) Close() {
	if s.Port != nil {
		s.Port.Close()
		s.Port = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Close()
	if name := s.Config.Serial.Name; name != "" {
		if err := s.Open(name); err != nil {
			log.Fatalf("open %q failed: %v", name, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ports, err := serial.Ports()
			if err != nil {
				c.Err(err)
				return
			}
			if ports == nil {
				ports = []string{}
			}
			text := strings.Join(ports, "\n")
			if len(ports) == 0 {
				text = "No serial ports found"
			}
			Print(c, text, ports)
		},
	}

	// OpenCmd opens a serial port.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "PORT",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var name string
			if len(c.Args) > 0 {
				name = c.Args[0]
			} else {
				ports, err := serial.Ports()
				if err != nil {
					c.Err(err)
					return
				}
				switch {
				case len(ports) == 0:
					c.Err(fmt.Errorf("no serial ports found"))
					return
				case len(ports) == 1 || !s.Interactive:
					name = ports[0]
				default:
					name = ports[s.Shell.MultiChoice(ports, "Which one to open?")]
				}
			}
			if err := s.Open(name); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the current port.
	CloseCmd = ishell.Cmd{
		Name:    "close",
		Aliases: []string{"c"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewConfig()).Run(flag.Args()...)
}
