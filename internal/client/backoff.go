package client

import "time"

// BackoffPolicy bounds the reconnect schedule of the push channel.
// The policy is explicit configuration rather than a transport-library
// default: min delay, max delay, and a hard attempt cap.
type BackoffPolicy struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultBackoff matches the server's documented reconnect defaults.
var DefaultBackoff = BackoffPolicy{
	MinDelay:    time.Second,
	MaxDelay:    30 * time.Second,
	MaxAttempts: 10,
}

// Delay returns the wait before the given attempt (1-indexed): the
// minimum delay doubled per attempt, clamped to the maximum.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.MinDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Exhausted reports whether the attempt count has passed the cap.
func (p BackoffPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}
