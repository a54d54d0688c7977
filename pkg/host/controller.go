// Package host implements the host side control loop: it decodes readings
// from the device, drives the fan output through the control curve and
// recovers the link when data stops flowing.
package host

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/curve"
	"github.com/robotalks/thermo.go/pkg/l0/comm"
	"github.com/robotalks/thermo.go/pkg/thermistor"
	"github.com/robotalks/thermo.go/pkg/watchdog"
)

// Defaults of Controller.
const (
	DefaultReadBufferSize = 64
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultSettleDelay    = 2 * time.Second
	DefaultLogEvery       = 30
)

// SleepFunc waits for the duration or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Controller is the host control loop.
type Controller struct {
	Dialer   Dialer
	Resetter Resetter
	Output   Output
	Curve    *curve.Curve
	Range    thermistor.Range
	Watchdog *watchdog.Watchdog
	Observer Observer

	ReadBufferSize int
	PollInterval   time.Duration
	SettleDelay    time.Duration
	// LogEvery logs the temperature every LogEvery output updates.
	LogEvery int
	Sleep    SleepFunc

	decoder *comm.StreamDecoder
	decoded int
	updates int
	// reopens counts failed opens after a reset.
	reopens int
}

// NewController creates a Controller with defaults.
func NewController(dialer Dialer, resetter Resetter, output Output, c *curve.Curve) *Controller {
	return &Controller{
		Dialer:   dialer,
		Resetter: resetter,
		Output:   output,
		Curve:    c,
		Range:    thermistor.DefaultRange,
		Watchdog: watchdog.New(watchdog.DefaultThreshold),
	}
}

// Name implements framework.Named.
func (c *Controller) Name() string {
	return "controller"
}

// Run implements framework.Runnable. It returns only when the output can't
// be initialized or ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	if c.Curve == nil {
		return fmt.Errorf("control curve not specified")
	}
	c.setup()
	for {
		if err := c.Output.Init(); err != nil {
			return fmt.Errorf("init output error: %w", err)
		}
		if err := c.connect(ctx); err != nil {
			return err
		}
	}
}

func (c *Controller) setup() {
	if c.Observer == nil {
		c.Observer = NopObserver{}
	}
	if c.Watchdog == nil {
		c.Watchdog = watchdog.New(watchdog.DefaultThreshold)
	}
	c.Watchdog.Notifier = watchdog.PhaseChangedFunc(c.Observer.LinkChanged)
	if c.Range == (thermistor.Range{}) {
		c.Range = thermistor.DefaultRange
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.LogEvery <= 0 {
		c.LogEvery = DefaultLogEvery
	}
	if c.Sleep == nil {
		c.Sleep = Sleep
	}
	c.decoder = comm.NewStreamDecoder(thermistor.NewPayload)
	c.decoder.Handler = c
	c.decoder.Notifier = c.Observer
}

// connect opens the transport and serves it until the watchdog fires.
func (c *Controller) connect(ctx context.Context) error {
	t, err := c.Dialer.Open()
	if err != nil {
		glog.Errorf("open transport error: %v", err)
		c.Observer.ReadFailed(err)
		if c.openFailed() {
			return c.reset(ctx)
		}
		return c.Sleep(ctx, c.PollInterval)
	}
	if c.Watchdog.State().Phase == watchdog.PhaseResetting {
		c.Watchdog.Reconnected()
	}
	c.decoder.Reset()
	err = c.serve(ctx, t)
	t.Close()
	if err != nil {
		return err
	}
	return c.reset(ctx)
}

func (c *Controller) serve(ctx context.Context, t Transport) error {
	buf := make([]byte, c.ReadBufferSize)
	for {
		c.decoded = 0
		c.drain(ctx, t, buf)
		if c.decoded == 0 && c.Watchdog.Failure() {
			glog.Warning("no data from transport, reconnect")
			return nil
		}
		if err := c.Sleep(ctx, c.PollInterval); err != nil {
			return err
		}
	}
}

// drain reads until the transport has no more data.
func (c *Controller) drain(ctx context.Context, t Transport, buf []byte) {
	for ctx.Err() == nil {
		n, err := t.Read(buf)
		if n > 0 {
			c.decoder.Feed(buf[:n])
		}
		if err != nil {
			if err != io.EOF {
				glog.V(1).Infof("read transport error: %v", err)
			}
			c.Observer.ReadFailed(err)
			return
		}
		if n == 0 {
			return
		}
	}
}

// openFailed counts a failed open and reports whether to reset.
// The watchdog stays Resetting until an open succeeds, so failed opens
// after a reset are counted here against the same threshold.
func (c *Controller) openFailed() bool {
	if c.Watchdog.State().Phase != watchdog.PhaseResetting {
		return c.Watchdog.Failure()
	}
	c.reopens++
	threshold := c.Watchdog.Threshold
	if threshold <= 0 {
		threshold = watchdog.DefaultThreshold
	}
	return c.reopens >= threshold
}

func (c *Controller) reset(ctx context.Context) error {
	c.reopens = 0
	var err error
	if c.Resetter != nil {
		if err = c.Resetter.Reset(); err != nil {
			glog.Errorf("reset transport error: %v", err)
		}
	}
	c.Observer.LinkReset(err)
	return c.Sleep(ctx, c.SettleDelay)
}

// HandleFrame implements comm.FrameHandler.
func (c *Controller) HandleFrame(p comm.Payload) {
	rec, ok := p.(*thermistor.Thermistor)
	if !ok {
		return
	}
	c.decoded++
	c.Watchdog.Success()
	temp := rec.Temperature()
	valid := c.Range.Contains(temp)
	c.Observer.ReadingDecoded(rec, temp, valid)
	if !valid {
		glog.V(1).Infof("%s: temperature %.1f°C out of range %s, skipped", rec.Name, temp, c.Range)
		return
	}
	duty := c.Curve.DutyCycle(temp)
	if err := c.Output.SetDuty(duty); err != nil {
		glog.Errorf("set duty %d error: %v", duty, err)
		return
	}
	c.Observer.DutyApplied(duty, temp)
	if c.updates++; c.updates >= c.LogEvery {
		c.updates = 0
		glog.Infof("Current temperature: %.1f°C -> set duty to %d", temp, duty)
	}
}

// State returns the watchdog state.
func (c *Controller) State() watchdog.State {
	return c.Watchdog.State()
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
