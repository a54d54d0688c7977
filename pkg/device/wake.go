package device

import (
	"context"
	"sync"
	"time"
)

// WakeSignal is a single slot wake event. Pending wakes coalesce.
type WakeSignal struct {
	ch chan struct{}
}

// NewWakeSignal creates a WakeSignal.
func NewWakeSignal() *WakeSignal {
	return &WakeSignal{ch: make(chan struct{}, 1)}
}

// Signal wakes the waiter. It never blocks.
func (w *WakeSignal) Signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// C returns the channel to wait on.
func (w *WakeSignal) C() <-chan struct{} {
	return w.ch
}

// Guarded holds a value shared between the main flow and wake handlers.
// The value is only accessed inside the critical section.
type Guarded[T any] struct {
	lock  sync.Mutex
	value T
}

// With runs fn with exclusive access to the value.
func (g *Guarded[T]) With(fn func(*T)) {
	g.lock.Lock()
	defer g.lock.Unlock()
	fn(&g.value)
}

// Replace stores v and returns the previous value.
func (g *Guarded[T]) Replace(v T) (old T) {
	g.With(func(cur *T) {
		old, *cur = *cur, v
	})
	return
}

// TimerState is the state of a wake timer.
type TimerState struct {
	// Wakes counts handled wakes.
	Wakes uint64
	// Last is when the timer fired last.
	Last time.Time
}

// Ticker wakes periodically.
type Ticker struct {
	Interval time.Duration
	Wake     *WakeSignal

	state Guarded[TimerState]
}

// DefaultInterval is the default wake interval.
const DefaultInterval = 2 * time.Second

// NewTicker creates a Ticker signaling wake.
func NewTicker(interval time.Duration, wake *WakeSignal) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Ticker{Interval: interval, Wake: wake}
}

// Name implements framework.Named.
func (t *Ticker) Name() string {
	return "ticker"
}

// Run implements framework.Runnable.
func (t *Ticker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Fire()
		}
	}
}

// Fire is the wake handler. It only updates the timer state and signals.
func (t *Ticker) Fire() {
	now := time.Now()
	t.state.With(func(s *TimerState) {
		s.Wakes++
		s.Last = now
	})
	t.Wake.Signal()
}

// State returns a snapshot of the timer state.
func (t *Ticker) State() (s TimerState) {
	t.state.With(func(cur *TimerState) {
		s = *cur
	})
	return
}
