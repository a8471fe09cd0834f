package helpers

import (
	"sync/atomic"
	"time"

	"github.com/temoto/atomic_clock"
)

// Backoff computes retry delays, capped exponential. With K=1 the delay is
// fixed, which is what bounded hardware re-init uses. First delay is zero.
type Backoff struct {
	next  int64 // atomic, time.Duration
	fails int32 // atomic
	last  atomic_clock.Clock

	Min time.Duration
	Max time.Duration
	K   float32
	Res time.Duration // rounding resolution for readable logs, default 1ms
}

// DelayBefore returns how long to sleep before the next attempt.
func (b *Backoff) DelayBefore() time.Duration {
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next == 0 {
		return 0
	}
	delay := b.limit(next)
	since := atomic_clock.Since(&b.last)
	if since >= delay {
		return 0
	}
	return b.round(delay - since)
}

// Update records attempt outcome and adjusts the next delay.
func (b *Backoff) Update(success bool) {
	if success {
		b.Reset()
		return
	}
	b.Failure()
}

func (b *Backoff) Failure() {
	atomic.AddInt32(&b.fails, 1)
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next == 0 {
		next = b.Min
	} else {
		next = time.Duration(float32(next) * b.K)
	}
	b.last.SetNow()
	atomic.StoreInt64(&b.next, int64(b.limit(next)))
}

func (b *Backoff) Reset() {
	atomic.StoreInt32(&b.fails, 0)
	b.last.SetNow()
	atomic.StoreInt64(&b.next, int64(b.Min))
}

// Failures returns consecutive failure count since last Reset.
func (b *Backoff) Failures() int { return int(atomic.LoadInt32(&b.fails)) }

func (b *Backoff) limit(d time.Duration) time.Duration {
	if d < b.Min {
		d = b.Min
	}
	if d > b.Max {
		d = b.Max
	}
	return b.round(d)
}

func (b *Backoff) round(d time.Duration) time.Duration {
	res := b.Res
	if res == 0 {
		res = 1 * time.Millisecond
	}
	return d / res * res
}
