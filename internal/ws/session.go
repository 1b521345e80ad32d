package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jobpulse/notify/internal/domain"
	"github.com/jobpulse/notify/internal/registry"
)

var errSessionClosed = errors.New("push session closed")

// session is one live push connection. It implements registry.Conn:
// the dispatcher sees it only as an opaque handle with Send and Close.
//
// All writes to the underlying websocket happen on the writePump
// goroutine; Send enqueues onto a buffered channel so a slow or stuck
// socket never stalls the dispatcher beyond its per-handle timeout.
type session struct {
	conn         *websocket.Conn
	out          chan []byte
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(conn *websocket.Conn, sendBuffer int, writeTimeout, pingInterval time.Duration, logger *zap.Logger) *session {
	return &session{
		conn:         conn,
		out:          make(chan []byte, sendBuffer),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Send frames the notification and enqueues it for the write pump.
// Returns an error when the session is closed, the buffer stays full past
// ctx, or encoding fails; the dispatcher treats any of these as a stale
// handle.
func (s *session) Send(ctx context.Context, n *domain.Notification) error {
	payload, err := EncodeNotification(n)
	if err != nil {
		return err
	}

	select {
	case s.out <- payload:
		return nil
	case <-s.done:
		return errSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the session down. Safe to call from any goroutine and more
// than once: the dispatcher closes stale handles, the read pump closes on
// client disconnect, and shutdown closes everything.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
	return nil
}

// writePump owns all writes on the socket: queued pushes and keepalive
// pings. Exits when the session closes.
func (s *session) writePump() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Debug("push write failed", zap.Error(err))
				_ = s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// readPump consumes inbound frames. The only meaningful client→server
// event is the register announcement; registration is idempotent, so a
// client re-sending its identity after a wobble costs nothing.
// Returning deregisters the session, which covers voluntary disconnects,
// network failures, and server shutdown alike.
func (s *session) readPump(reg registry.Registry, onRegistered func(userID string)) {
	defer func() {
		reg.Deregister(s)
		_ = s.Close()
	}()

	// Missed pongs eventually trip the read deadline and end the session.
	readDeadline := 2 * s.pingInterval
	_ = s.conn.SetReadDeadline(time.Now().Add(readDeadline))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(readDeadline))

		env, err := DecodeEnvelope(raw)
		if err != nil {
			s.logger.Debug("ignoring malformed frame", zap.Error(err))
			continue
		}

		if env.Event == EventRegister && env.UserID != "" {
			reg.Register(env.UserID, s)
			if onRegistered != nil {
				onRegistered(env.UserID)
			}
		}
	}
}

// compile-time check that session implements registry.Conn
var _ registry.Conn = (*session)(nil)
