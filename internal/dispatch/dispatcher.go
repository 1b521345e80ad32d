// Package dispatch forwards freshly persisted notifications to the
// recipient's live connections. Delivery here is at-most-once and
// best-effort: durability lives entirely in the store, which is written
// before Dispatch is ever called.
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jobpulse/notify/internal/domain"
	"github.com/jobpulse/notify/internal/registry"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the dispatcher constructor signature clean.
type MetricHooks struct {
	OnDelivered func(t domain.Type, latency time.Duration)
	OnFailed    func(t domain.Type)
}

// Dispatcher fans a notification out to every live connection registered
// for its recipient. It holds no state of its own.
type Dispatcher struct {
	reg         registry.Registry
	sendTimeout time.Duration
	logger      *zap.Logger
	hooks       MetricHooks
}

// New constructs a Dispatcher. Hook fields are optional (nil = no-op).
func New(reg registry.Registry, sendTimeout time.Duration, logger *zap.Logger, hooks MetricHooks) *Dispatcher {
	if hooks.OnDelivered == nil {
		hooks.OnDelivered = func(domain.Type, time.Duration) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func(domain.Type) {}
	}
	return &Dispatcher{reg: reg, sendTimeout: sendTimeout, logger: logger, hooks: hooks}
}

// Dispatch pushes n to all live connections for userID.
//
// No connections is a silent no-op: the store already holds the record and
// the client discovers it on its next history fetch. A failure on one
// handle never blocks the others and never reaches the caller; the stale
// handle is logged, closed, and proactively deregistered.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, n *domain.Notification) {
	conns := d.reg.Lookup(userID)
	if len(conns) == 0 {
		return
	}

	for _, conn := range conns {
		start := time.Now()

		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		err := conn.Send(sendCtx, n)
		cancel()

		if err != nil {
			d.logger.Warn("push to stale connection failed",
				zap.String("notification_id", n.ID),
				zap.String("user_id", userID),
				zap.Error(err),
			)
			d.reg.Deregister(conn)
			_ = conn.Close()
			d.hooks.OnFailed(n.Type)
			continue
		}

		d.hooks.OnDelivered(n.Type, time.Since(start))
	}
}
