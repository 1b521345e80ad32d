package client

import (
	"context"
	"testing"
	"time"

	"github.com/jobpulse/notify/internal/domain"
)

func pushNotif(id string) *domain.Notification {
	return &domain.Notification{
		ID:              id,
		RecipientUserID: "u1",
		Title:           "t",
		Message:         "m",
		Type:            domain.TypeApplication,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestApplyPush_PrependsOnPageOne(t *testing.T) {
	c := New(Config{UserID: "u1"})

	c.applyPush(pushNotif("n1"))
	c.applyPush(pushNotif("n2"))

	items := c.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "n2" || items[1].ID != "n1" {
		t.Fatalf("expected newest first [n2 n1], got [%s %s]", items[0].ID, items[1].ID)
	}
}

// The same notification arriving via push and via a concurrent refresh
// must end up in the list exactly once.
func TestApplyPush_DeduplicatesByID(t *testing.T) {
	c := New(Config{UserID: "u1"})

	c.applyPush(pushNotif("n1"))
	c.applyPush(pushNotif("n1"))

	if got := len(c.Items()); got != 1 {
		t.Fatalf("expected exactly one copy, got %d", got)
	}
	if c.Unread() != 1 {
		t.Fatalf("expected unread=1, got %d", c.Unread())
	}
}

func TestApplyPush_ProvisionalUnread(t *testing.T) {
	c := New(Config{UserID: "u1"})

	c.applyPush(pushNotif("n1"))
	read := pushNotif("n2")
	read.IsRead = true
	c.applyPush(read)

	if c.Unread() != 1 {
		t.Fatalf("expected unread=1, got %d", c.Unread())
	}
	if c.Total() != 2 {
		t.Fatalf("expected total=2, got %d", c.Total())
	}
}

// Pushes arriving while a later page is displayed must not disturb the
// visible page; they only raise the pending-newer affordance.
func TestApplyPush_PendingNewerOnLaterPages(t *testing.T) {
	c := New(Config{UserID: "u1"})
	c.mu.Lock()
	c.page = 2
	c.items = []*domain.Notification{pushNotif("old")}
	c.seen["old"] = struct{}{}
	c.mu.Unlock()

	c.applyPush(pushNotif("n1"))

	items := c.Items()
	if len(items) != 1 || items[0].ID != "old" {
		t.Fatal("displayed page must not change while viewing page > 1")
	}
	if c.PendingNewer() != 1 {
		t.Fatalf("expected pendingNewer=1, got %d", c.PendingNewer())
	}
}

func TestApplyPush_EmitsAlertOnce(t *testing.T) {
	c := New(Config{UserID: "u1"})

	c.applyPush(pushNotif("n1"))
	c.applyPush(pushNotif("n1")) // duplicate: merged away, no second alert

	select {
	case n := <-c.Alerts():
		if n.ID != "n1" {
			t.Fatalf("expected alert for n1, got %s", n.ID)
		}
	default:
		t.Fatal("expected one alert")
	}
	select {
	case n := <-c.Alerts():
		t.Fatalf("unexpected second alert for %s", n.ID)
	default:
	}
}

// A full alert buffer must never block the merge path.
func TestApplyPush_AlertOverflowDropped(t *testing.T) {
	c := New(Config{UserID: "u1"})

	for i := 0; i < cap(c.alerts)+5; i++ {
		c.applyPush(pushNotif(string(rune('a' + i))))
	}

	if got := len(c.Items()); got != cap(c.alerts)+5 {
		t.Fatalf("expected all %d notifications merged, got %d", cap(c.alerts)+5, got)
	}
}

func TestBackoffPolicy_Delay(t *testing.T) {
	p := BackoffPolicy{MinDelay: time.Second, MaxDelay: 10 * time.Second, MaxAttempts: 5}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // clamped
		{9, 10 * time.Second},
	}
	for _, tc := range tests {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Fatalf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

// Every retry in the maintenance loop funnels through waitRetry, so the
// attempt cap and cancellation apply to dial failures, registration
// write failures, and dropped sessions alike.
func TestWaitRetry(t *testing.T) {
	c := New(Config{UserID: "u1", Backoff: BackoffPolicy{
		MinDelay:    time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		MaxAttempts: 2,
	}})

	if !c.waitRetry(context.Background(), 1, nil) {
		t.Fatal("attempt 1 of 2 must continue the loop")
	}
	if c.waitRetry(context.Background(), 3, nil) {
		t.Fatal("attempt beyond the cap must end the loop")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if c.waitRetry(ctx, 1, nil) {
		t.Fatal("canceled context must end the loop")
	}
}

func TestBackoffPolicy_Exhausted(t *testing.T) {
	p := BackoffPolicy{MinDelay: time.Second, MaxDelay: time.Second, MaxAttempts: 3}
	if p.Exhausted(3) {
		t.Fatal("attempt 3 of 3 is not exhausted")
	}
	if !p.Exhausted(4) {
		t.Fatal("attempt 4 of 3 is exhausted")
	}
}
