// Package ws hosts the server side of the push channel: the upgrade
// endpoint, per-connection sessions, and the registration handshake that
// binds a transport session to a logical user identity.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jobpulse/notify/internal/registry"
)

// Options tunes the transport behaviour of every session.
type Options struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

// Handler upgrades HTTP requests to push sessions and tracks them for
// graceful shutdown.
type Handler struct {
	reg      registry.Registry
	opts     Options
	logger   *zap.Logger
	upgrader websocket.Upgrader

	// onStats, when set, receives a registry snapshot after every
	// registration or teardown (wired to the prometheus gauges).
	onStats func(users, conns int)

	mu       sync.Mutex
	sessions map[*session]struct{}
	wg       sync.WaitGroup
}

func NewHandler(reg registry.Registry, opts Options, logger *zap.Logger, onStats func(users, conns int)) *Handler {
	return &Handler{
		reg:    reg,
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the application origin; the
			// surrounding deployment fronts this with its own origin policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		onStats:  onStats,
		sessions: make(map[*session]struct{}),
	}
}

// ServeHTTP handles GET /ws. The upgraded session stays
// connected-but-unregistered until the client announces its identity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	s := newSession(conn, h.opts.SendBuffer, h.opts.WriteTimeout, h.opts.PingInterval, h.logger)

	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		s.writePump()
	}()
	go func() {
		defer h.wg.Done()
		s.readPump(h.reg, func(userID string) {
			h.logger.Info("client registered",
				zap.String("user_id", userID),
				zap.String("remote_addr", r.RemoteAddr),
			)
			h.publishStats()
		})
		h.mu.Lock()
		delete(h.sessions, s)
		h.mu.Unlock()
		h.publishStats()
	}()
}

func (h *Handler) publishStats() {
	if h.onStats != nil {
		h.onStats(h.reg.Stats())
	}
}

// Shutdown closes every live session and blocks until their goroutines
// exit. http.Server.Shutdown leaves hijacked connections alone, so push
// sessions must be torn down explicitly. Clients reconnect and
// re-register against the next instance; the registry is disposable.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	for s := range h.sessions {
		_ = s.Close()
	}
	h.mu.Unlock()
	h.wg.Wait()
}
