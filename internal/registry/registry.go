// Package registry maintains the live mapping from user identity to push
// connections. It is the only shared mutable state in the delivery core:
// in-memory, non-durable, owned by a single server process. Clients
// re-register on reconnect, so losing the map on restart is safe.
package registry

import (
	"context"
	"sync"

	"github.com/jobpulse/notify/internal/domain"
)

// Conn is an opaque handle to a live push transport session.
// Send must not block indefinitely; the dispatcher bounds it with a context.
type Conn interface {
	Send(ctx context.Context, n *domain.Notification) error
	Close() error
}

// Registry tracks which users currently have live push connections.
// A single user may hold several connections at once (multiple tabs or
// devices); dispatch fans out to all of them.
//
// Implementations must be safe for concurrent use: register, deregister
// and lookup race freely under transport connect/disconnect events.
type Registry interface {
	// Register adds conn to the user's connection set. Registering the
	// same handle twice is idempotent.
	Register(userID string, conn Conn)
	// Deregister removes the handle from whichever set contains it.
	// Disconnect events only know the handle, not the user.
	Deregister(conn Conn)
	// Lookup returns the live handles for a user; empty when none.
	Lookup(userID string) []Conn
	// Stats reports the number of registered users and total connections.
	Stats() (users, conns int)
}

type memoryRegistry struct {
	mu    sync.RWMutex
	conns map[string]map[Conn]struct{}
}

// NewMemory returns the single-instance in-memory Registry.
func NewMemory() Registry {
	return &memoryRegistry{conns: make(map[string]map[Conn]struct{})}
}

func (r *memoryRegistry) Register(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[Conn]struct{})
		r.conns[userID] = set
	}
	set[conn] = struct{}{}
}

func (r *memoryRegistry) Deregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, set := range r.conns {
		if _, ok := set[conn]; ok {
			delete(set, conn)
			// Drop empty sets so the map stays bounded by live users.
			if len(set) == 0 {
				delete(r.conns, userID)
			}
			return
		}
	}
}

func (r *memoryRegistry) Lookup(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (r *memoryRegistry) Stats() (users, conns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, set := range r.conns {
		conns += len(set)
	}
	return len(r.conns), conns
}
