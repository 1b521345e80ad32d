package ratelimiter

import (
	"golang.org/x/time/rate"

	"github.com/jobpulse/notify/internal/domain"
)

// TypeLimiters holds one token bucket limiter per notification type.
// Each limiter enforces a steady-state rate (e.g. 50 tokens/sec).
// Burst is set equal to the rate so no extra burst capacity is allowed
// beyond the configured per-second maximum.
type TypeLimiters struct {
	limiters map[domain.Type]*rate.Limiter
}

// New creates a TypeLimiters with ratePerSec tokens per second per type.
func New(ratePerSec int) *TypeLimiters {
	r := rate.Limit(ratePerSec)
	burst := ratePerSec // burst == rate: prevents any "saved up" burst above the limit

	return &TypeLimiters{
		limiters: map[domain.Type]*rate.Limiter{
			domain.TypeApplication: rate.NewLimiter(r, burst),
			domain.TypeJob:         rate.NewLimiter(r, burst),
			domain.TypeSystem:      rate.NewLimiter(r, burst),
			domain.TypeTest:        rate.NewLimiter(r, burst),
		},
	}
}

// Allow reports whether a token is available for the type right now.
// Non-blocking: producer-facing HTTP handlers must never stall on the
// push path, so an exhausted bucket surfaces as ErrRateLimited upstream.
func (tl *TypeLimiters) Allow(t domain.Type) bool {
	return tl.limiters[t.OrDefault()].Allow()
}
