// Package typing estimates typing speed from editor change events.
package typing

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// ErrRunning is returned by Run when a sampler is already active.
var ErrRunning = errors.New("typing: sampler already running")

// Tracker records keystrokes and derives a words-per-minute estimate.
//
// The estimate is a point sample: the keystroke count divided by five,
// over the minutes since the most recent keystroke. The count is never
// reset.
type Tracker struct {
	clock func() time.Time

	mu      sync.Mutex
	last    time.Time
	count   int
	wpm     int
	running bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// NewTracker returns a tracker whose last-keystroke time starts at now.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{clock: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.last = t.clock()
	return t
}

// Keystroke records one change event.
func (t *Tracker) Keystroke() {
	now := t.clock()
	t.mu.Lock()
	t.last = now
	t.count++
	t.mu.Unlock()
}

// Count returns the number of recorded change events.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// WPM computes the estimate at the current time without storing it.
func (t *Tracker) WPM() int {
	now := t.clock()
	t.mu.Lock()
	defer t.mu.Unlock()
	return compute(t.count, now.Sub(t.last))
}

// Sample computes the estimate and stores it as the current value.
func (t *Tracker) Sample() int {
	now := t.clock()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.wpm = compute(t.count, now.Sub(t.last))
	return t.wpm
}

// Current returns the last sampled value.
func (t *Tracker) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wpm
}

// Run samples every interval until ctx is done, passing each value to
// onSample when it is non-nil. Only one Run may be active per tracker.
func (t *Tracker) Run(ctx context.Context, interval time.Duration, onSample func(int)) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return ErrRunning
	}
	t.running = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			wpm := t.Sample()
			if onSample != nil {
				onSample(wpm)
			}
		}
	}
}

func compute(count int, elapsed time.Duration) int {
	minutes := elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	words := float64(count) / 5
	return int(math.Round(words / minutes))
}
