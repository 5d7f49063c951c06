package engine

import "time"

// backoff is a simple capped exponential delay. Not safe for concurrent
// use; each retry loop owns its own instance.
type backoff struct {
	initial time.Duration
	max     time.Duration
	next    time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{initial: initial, max: max, next: initial}
}

// Next returns the delay to sleep now and doubles the following one,
// capped at max.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Reset restores the initial delay after a success.
func (b *backoff) Reset() {
	b.next = b.initial
}
