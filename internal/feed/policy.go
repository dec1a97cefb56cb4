package feed

import (
	"math/rand/v2"
	"time"
)

// ReconnectPolicy controls the backoff schedule between reconnect attempts.
type ReconnectPolicy struct {
	Base        time.Duration // Delay for attempt 0
	Max         time.Duration // Cap on the exponential component
	Jitter      time.Duration // Random addition in [0, Jitter)
	MaxAttempts int           // Consecutive failures before giving up
}

// DefaultReconnectPolicy returns sensible defaults.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Base:        1 * time.Second,
		Max:         30 * time.Second,
		Jitter:      1 * time.Second,
		MaxAttempts: 10,
	}
}

// Delay returns the wait before the given attempt:
// min(Base * 2^attempt, Max) + rand[0, Jitter).
// The exponential component is non-decreasing in attempt and saturates at Max,
// so Delay never exceeds Max + Jitter.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.Max {
			d = p.Max
			break
		}
	}
	if d > p.Max {
		d = p.Max
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Int64N(int64(p.Jitter)))
	}
	return d
}
