package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobpulse/notify/internal/dispatch"
	"github.com/jobpulse/notify/internal/domain"
	"github.com/jobpulse/notify/internal/ratelimiter"
	"github.com/jobpulse/notify/internal/store"
)

// NotificationService coordinates the store and the push dispatcher.
// The ordering invariant lives here: the store write completes before any
// push is attempted, so the push path stays a pure latency optimization.
type NotificationService struct {
	store      store.Store
	dispatcher *dispatch.Dispatcher
	limiter    *ratelimiter.TypeLimiters
	logger     *zap.Logger
}

func NewNotificationService(
	st store.Store,
	dispatcher *dispatch.Dispatcher,
	limiter *ratelimiter.TypeLimiters,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{store: st, dispatcher: dispatcher, limiter: limiter, logger: logger}
}

// Create validates and persists a notification, then pushes it to the
// recipient's live connections. Dispatch failures never propagate: the
// producer action that triggered the notification must not be failed or
// blocked by the push path.
func (s *NotificationService) Create(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !s.limiter.Allow(req.Type) {
		return nil, domain.ErrRateLimited
	}

	n := &domain.Notification{
		ID:              uuid.New().String(),
		RecipientUserID: req.RecipientUserID,
		Title:           req.Title,
		Message:         req.Message,
		Type:            req.Type.OrDefault(),
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	s.dispatcher.Dispatch(ctx, n.RecipientUserID, n)
	return n, nil
}

// TriggerTest creates a canned test notification for the given user.
// Convenience producer for demonstrating the push path end to end.
func (s *NotificationService) TriggerTest(ctx context.Context, userID string) (*domain.Notification, error) {
	return s.Create(ctx, domain.CreateNotificationRequest{
		RecipientUserID: userID,
		Title:           "Test notification",
		Message:         "This is a test notification delivered in real time.",
		Type:            domain.TypeTest,
	})
}

// List returns one page of the user's history together with the
// authoritative unread count.
func (s *NotificationService) List(ctx context.Context, userID string, page, size int) (*domain.Page, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	items, total, err := s.store.List(ctx, userID, page, size)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	unread, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + size - 1) / size
	}
	if items == nil {
		items = []*domain.Notification{}
	}

	return &domain.Page{
		Items:      items,
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: totalPages,
		Unread:     unread,
	}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.store.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.store.MarkAllRead(ctx, userID)
}
