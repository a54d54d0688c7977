// Package frames provides commands to build, parse and watch wire frames.
package frames

import (
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/thermo.go/pkg/cli/cmds/calc"
	"github.com/robotalks/thermo.go/pkg/cli/sh"
	"github.com/robotalks/thermo.go/pkg/l0/comm"
	"github.com/robotalks/thermo.go/pkg/thermistor"
)

// DefaultWatchDuration is used by watch without an argument.
const DefaultWatchDuration = 10 * time.Second

// Record is a decoded reading with its derived values.
type Record struct {
	Name       string                `json:"name"`
	Parameters thermistor.Parameters `json:"parameters"`
	calc.Temperature
}

func (r Record) String() string {
	return fmt.Sprintf("%s: %s", r.Name, r.Temperature.String())
}

// Fault is a dropped frame.
type Fault struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (f Fault) String() string {
	if f.Error != "" {
		return fmt.Sprintf("dropped (%s): %s", f.Status, f.Error)
	}
	return fmt.Sprintf("dropped (%s)", f.Status)
}

func faultOf(r comm.FeedResult) Fault {
	f := Fault{Status: r.Status.String()}
	if r.Err != nil {
		f.Error = r.Err.Error()
	}
	return f
}

// Encode builds the frame of a reading.
func Encode(conf *sh.Config, name string, resistance uint32) ([]byte, error) {
	rec := &thermistor.Thermistor{Name: name, Parameters: conf.Parameters, Resistance: resistance}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return comm.AppendFrame(nil, rec)
}

// ParseHex parses hex bytes, ignoring whitespace and colons.
func ParseHex(args ...string) ([]byte, error) {
	s := strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(strings.Join(args, ""))
	return hex.DecodeString(s)
}

// Decoder turns a byte stream into Records and Faults.
type Decoder struct {
	Config   *sh.Config
	OnRecord func(Record)
	OnFault  func(Fault)

	stream *comm.StreamDecoder
}

// NewDecoder creates a Decoder.
func NewDecoder(conf *sh.Config, onRecord func(Record), onFault func(Fault)) *Decoder {
	d := &Decoder{Config: conf, OnRecord: onRecord, OnFault: onFault}
	d.stream = comm.NewStreamDecoder(thermistor.NewPayload)
	d.stream.Handler = comm.HandleFrameFunc(func(p comm.Payload) {
		rec := p.(*thermistor.Thermistor)
		// the reading carries its own parameters
		conf := *d.Config
		conf.Parameters = rec.Parameters
		if d.OnRecord != nil {
			d.OnRecord(Record{
				Name:        rec.Name,
				Parameters:  rec.Parameters,
				Temperature: calc.ComputeTemperature(&conf, float64(rec.Resistance)),
			})
		}
	})
	d.stream.Notifier = comm.FrameFaultFunc(func(r comm.FeedResult) {
		if d.OnFault != nil {
			d.OnFault(faultOf(r))
		}
	})
	return d
}

// Feed decodes a chunk.
func (d *Decoder) Feed(chunk []byte) int {
	return d.stream.Feed(chunk)
}

// Watch reads from r and decodes until the duration elapses or r fails.
// Reads returning no data are retried.
func (d *Decoder) Watch(r io.Reader, duration time.Duration) (int, error) {
	var buf [64]byte
	decoded := 0
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		n, err := r.Read(buf[:])
		if n > 0 {
			decoded += d.Feed(buf[:n])
		}
		if err != nil {
			return decoded, err
		}
	}
	return decoded, nil
}

func printer(c *ishell.Context) (func(Record), func(Fault)) {
	onRecord := func(r Record) {
		sh.Print(c, r.String(), r)
	}
	onFault := func(f Fault) {
		sh.Print(c, f.String(), f)
	}
	return onRecord, onFault
}

var (
	// EncodeCmd prints the frame of a reading.
	EncodeCmd = ishell.Cmd{
		Name: "encode",
		Help: "NAME RESISTANCE(Ω)",
		Func: func(c *ishell.Context) {
			frame, err := encodeArgs(c)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, hex.EncodeToString(frame), hex.EncodeToString(frame))
		},
	}

	// SendCmd writes the frame of a reading to the opened port.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "NAME RESISTANCE(Ω)",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			frame, err := encodeArgs(c)
			if err != nil {
				c.Err(err)
				return
			}
			if _, err := sh.ShellFrom(c).Port.Write(frame); err != nil {
				c.Err(err)
			}
		}),
	}

	// DecodeCmd decodes hex bytes into readings.
	DecodeCmd = ishell.Cmd{
		Name: "decode",
		Help: "HEX...",
		Func: func(c *ishell.Context) {
			data, err := ParseHex(c.Args...)
			if err != nil {
				c.Err(err)
				return
			}
			onRecord, onFault := printer(c)
			d := NewDecoder(sh.ShellFrom(c).Config, onRecord, onFault)
			if d.Feed(data) == 0 && d.stream.Buffered() > 0 {
				c.Err(fmt.Errorf("incomplete frame, %d bytes pending", d.stream.Buffered()))
			}
		},
	}

	// WatchCmd prints readings from the opened port.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[DURATION]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			duration := DefaultWatchDuration
			if len(c.Args) > 0 {
				var err error
				if duration, err = time.ParseDuration(c.Args[0]); err != nil {
					c.Err(&sh.ArgError{Name: "DURATION", Err: err})
					return
				}
			}
			s := sh.ShellFrom(c)
			onRecord, onFault := printer(c)
			n, err := NewDecoder(s.Config, onRecord, onFault).Watch(s.Port, duration)
			if err != nil {
				c.Err(err)
				return
			}
			if n == 0 {
				c.Err(fmt.Errorf("no readings in %s", duration))
			}
		}),
	}
)

func encodeArgs(c *ishell.Context) ([]byte, error) {
	if len(c.Args) < 1 {
		return nil, &sh.ArgError{Name: "NAME"}
	}
	r, err := sh.ParseFloatArg(c.Args, 1, "RESISTANCE")
	if err != nil {
		return nil, err
	}
	if r < 0 || r > math.MaxUint32 {
		return nil, &sh.ArgError{Name: "RESISTANCE", Err: fmt.Errorf("out of range")}
	}
	return Encode(sh.ShellFrom(c).Config, c.Args[0], uint32(r))
}

func init() {
	sh.AddCmds(
		&EncodeCmd,
		&SendCmd,
		&DecodeCmd,
		&WatchCmd,
	)
}
