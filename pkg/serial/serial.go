// Package serial opens serial ports for the frame link.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	bugst "go.bug.st/serial"

	"github.com/robotalks/thermo.go/pkg/host"
)

// DefaultReadTimeout bounds a single read.
const DefaultReadTimeout = 10 * time.Millisecond

// Port is an opened serial port.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(time.Duration) error
}

// Config configures a serial port, 8N1.
type Config struct {
	Name        string        `yaml:"name"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// Mode returns the port mode.
func (c *Config) Mode() *bugst.Mode {
	return &bugst.Mode{
		BaudRate: c.Baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
}

// Open opens the port with the read timeout applied.
func Open(conf *Config) (Port, error) {
	if conf.Name == "" {
		return nil, errors.New("serial port not specified")
	}
	port, err := bugst.Open(conf.Name, conf.Mode())
	if err != nil {
		return nil, fmt.Errorf("open %s error: %w", conf.Name, err)
	}
	timeout := conf.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// Ports lists available serial ports.
func Ports() ([]string, error) {
	return bugst.GetPortsList()
}

// Dialer implements host.Dialer.
type Dialer struct {
	Config Config
	// OpenFunc defaults to Open.
	OpenFunc func(*Config) (Port, error)
}

// NewDialer creates a Dialer.
func NewDialer(name string, baud int, readTimeout time.Duration) *Dialer {
	return &Dialer{Config: Config{Name: name, Baud: baud, ReadTimeout: readTimeout}}
}

// Open implements host.Dialer.
func (d *Dialer) Open() (host.Transport, error) {
	open := d.OpenFunc
	if open == nil {
		open = Open
	}
	return open(&d.Config)
}
