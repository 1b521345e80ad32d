package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jobpulse/notify/internal/domain"
)

// Memory is a hand-written, in-memory Store used in unit tests.
// It mirrors the Postgres ordering contract: newest first, ties broken
// by descending ID so pagination is stable.
type Memory struct {
	mu            sync.RWMutex
	notifications []*domain.Notification

	// Optional error overrides — set in tests to simulate failure paths.
	CreateErr error
	ListErr   error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Create(_ context.Context, n *domain.Notification) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *n
	m.notifications = append(m.notifications, &clone)
	return nil
}

func (m *Memory) List(_ context.Context, userID string, page, size int) ([]*domain.Notification, int, error) {
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.Notification
	for _, n := range m.notifications {
		if n.RecipientUserID == userID {
			clone := *n
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := (page - 1) * size
	if start >= total {
		return nil, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *Memory) UnreadCount(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, n := range m.notifications {
		if n.RecipientUserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *Memory) MarkRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id && n.RecipientUserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *Memory) MarkAllRead(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.RecipientUserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

// compile-time check that Memory implements Store
var _ Store = (*Memory)(nil)
