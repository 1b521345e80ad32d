package store

import (
	"context"

	"github.com/jobpulse/notify/internal/domain"
)

// Store is the durable, authoritative notification history.
// The push path is an optimization layered on top of it: every notification
// observable via push must also be retrievable through List, and Create is
// always sequenced before any dispatch attempt.
//
// The Postgres implementation is in postgres.go; tests use the in-memory
// Memory implementation (memory.go).
type Store interface {
	Create(ctx context.Context, n *domain.Notification) error
	// List returns one page of the user's history, newest first.
	// page is 1-indexed; total is the full match count for pagination metadata.
	List(ctx context.Context, userID string, page, size int) ([]*domain.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
}
