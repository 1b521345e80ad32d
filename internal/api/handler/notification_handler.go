package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/jobpulse/notify/internal/api/middleware"
	"github.com/jobpulse/notify/internal/domain"
	"github.com/jobpulse/notify/internal/service"
)

// NotificationHandler handles the notification REST surface: producer
// creates, the paginated history, and read-state mutations.
//
// Identity arrives on the X-User-ID header; session issuance itself is
// owned by the surrounding application's auth layer.
type NotificationHandler struct {
	svc             *service.NotificationService
	defaultPageSize int
	maxPageSize     int
	logger          *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, defaultPageSize, maxPageSize int, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		svc:             svc,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger,
	}
}

// Create handles POST /api/v1/notifications
//
// Producer-facing: persists the notification, then pushes it to the
// recipient's live connections. A recipient with no live connection is
// not an error — the history is the delivery backstop.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	n, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.logger.Warn("create notification failed",
			zap.String("correlation_id", apimw.CorrelationIDFrom(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, n)
}

// TriggerTest handles POST /api/v1/notifications/test
//
// Creates a canned test notification for the authenticated identity and
// dispatches it, demonstrating the push path without a real producer.
func (h *NotificationHandler) TriggerTest(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	n, err := h.svc.TriggerTest(r.Context(), userID)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, n)
}

// List handles GET /api/v1/notifications?page=&size=
//
// Authoritative paginated history, newest first. The response carries the
// pagination metadata and unread count the client reconciles against.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	page, size := h.parsePagination(r)
	result, err := h.svc.List(r.Context(), userID, page, size)
	if err != nil {
		h.logger.Error("list notifications failed",
			zap.String("correlation_id", apimw.CorrelationIDFrom(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// MarkRead handles POST /api/v1/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.svc.MarkRead(r.Context(), userID, id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	if err := h.svc.MarkAllRead(r.Context(), userID); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) parsePagination(r *http.Request) (page, size int) {
	q := r.URL.Query()
	page, size = 1, h.defaultPageSize

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(q.Get("size")); err == nil && s > 0 && s <= h.maxPageSize {
		size = s
	}
	return page, size
}

func identity(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}
