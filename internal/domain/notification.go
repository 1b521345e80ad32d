package domain

import "time"

// Type is the presentation category of a notification.
// It only drives client-side grouping; delivery treats it as opaque.
type Type string

const (
	TypeApplication Type = "application"
	TypeJob         Type = "job"
	TypeSystem      Type = "system"
	TypeTest        Type = "test"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeApplication, TypeJob, TypeSystem, TypeTest:
		return true
	}
	return false
}

// OrDefault coerces unrecognized categories to the default visual
// treatment instead of rejecting them.
func (t Type) OrDefault() Type {
	if t.IsValid() {
		return t
	}
	return TypeSystem
}

// Notification is the core domain entity. The store owns the canonical
// record; the push path carries the same shape as a latency optimization.
type Notification struct {
	ID              string    `json:"id"`
	RecipientUserID string    `json:"recipientUserId"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Type            Type      `json:"type"`
	IsRead          bool      `json:"isRead"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CreateNotificationRequest is the inbound payload for a producer action.
type CreateNotificationRequest struct {
	RecipientUserID string `json:"recipientUserId"`
	Title           string `json:"title"`
	Message         string `json:"message"`
	Type            Type   `json:"type"`
}

func (r *CreateNotificationRequest) Validate() error {
	if r.RecipientUserID == "" {
		return ErrInvalidRecipient
	}
	if r.Title == "" || len(r.Title) > 200 {
		return ErrInvalidTitle
	}
	if r.Message == "" || len(r.Message) > 2000 {
		return ErrInvalidMessage
	}
	// Type is deliberately not validated: unknown categories degrade to
	// the default treatment at build time, they are never an error.
	return nil
}

// Page wraps one page of the authoritative notification history.
type Page struct {
	Items      []*Notification `json:"items"`
	Page       int             `json:"page"`
	Size       int             `json:"size"`
	Total      int             `json:"total"`
	TotalPages int             `json:"totalPages"`
	Unread     int             `json:"unread"`
}
