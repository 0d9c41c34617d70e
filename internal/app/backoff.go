package app

import (
	"math/rand"
	"time"
)

// Default backoff configuration values.
const (
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 30 * time.Second
)

// backoff implements exponential backoff with jitter for work retried from
// the controller thread. It never sleeps; callers ask whether the next
// attempt is due.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	next    time.Time
}

// newBackoff creates a new backoff with the given initial and max durations.
func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Ready reports whether an attempt is allowed at now.
func (b *backoff) Ready(now time.Time) bool {
	return !now.Before(b.next)
}

// Fail schedules the next attempt and increases the delay.
func (b *backoff) Fail(now time.Time) time.Duration {
	// Add jitter: ±20%
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	wait := time.Duration(float64(b.current) + jitter)
	b.next = now.Add(wait)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return wait
}

// Reset resets the backoff to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
	b.next = time.Time{}
}

// Current returns the current backoff duration.
func (b *backoff) Current() time.Duration {
	return b.current
}
