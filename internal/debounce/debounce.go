// Package debounce coalesces bursts of UI input into single calls.
package debounce

import (
	"sync"
	"time"
)

// Timer is the subset of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks and reports the current time.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
func (realClock) Now() time.Time                            { return time.Now() }

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

// Debouncer calls fn with the most recent value once no new value has
// arrived for the configured delay. Used for autocomplete and folder
// lookups typed into filter chips.
type Debouncer[T any] struct {
	delay time.Duration
	clock Clock
	fn    func(T)

	mu      sync.Mutex
	timer   Timer
	latest  T
	gen     uint64
	running int
	stopped bool
}

// New returns a Debouncer. A nil clock uses real time; delay defaults to
// 250ms when non-positive.
func New[T any](delay time.Duration, clock Clock, fn func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}
	if clock == nil {
		clock = RealClock()
	}
	return &Debouncer[T]{delay: delay, clock: clock, fn: fn}
}

// Notify records v and restarts the quiet period.
func (d *Debouncer[T]) Notify(v T) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.latest = v
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A later Notify superseded this timer, or Stop ran.
	if d.stopped || gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	v := d.latest
	d.running++
	d.mu.Unlock()

	d.run(v)
}

func (d *Debouncer[T]) run(v T) {
	defer func() {
		d.mu.Lock()
		d.running--
		d.mu.Unlock()
	}()
	d.fn(v)
}

// Flush runs the pending call immediately, if any.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.stopped || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer.Stop()
	d.timer = nil
	v := d.latest
	d.running++
	d.mu.Unlock()

	d.run(v)
}

// Pending reports whether a call is scheduled or still running.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil || d.running > 0
}

// Stop cancels any pending call. Later Notify calls are ignored.
func (d *Debouncer[T]) Stop() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// MinInterval lets an action run at most once per interval. List targets
// use it to avoid refetching on every drop.
type MinInterval struct {
	interval time.Duration
	clock    Clock

	mu   sync.Mutex
	last time.Time
}

// NewMinInterval returns a throttle. A nil clock uses real time.
func NewMinInterval(interval time.Duration, clock Clock) *MinInterval {
	if clock == nil {
		clock = RealClock()
	}
	return &MinInterval{interval: interval, clock: clock}
}

// Allow reports whether the action may run now and, if so, records it.
func (m *MinInterval) Allow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	if !m.last.IsZero() && now.Sub(m.last) < m.interval {
		return false
	}
	m.last = now
	return true
}

// Reset forgets the last run so the next Allow succeeds.
func (m *MinInterval) Reset() {
	m.mu.Lock()
	m.last = time.Time{}
	m.mu.Unlock()
}
