package registry_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jobpulse/notify/internal/domain"
	"github.com/jobpulse/notify/internal/registry"
)

// fakeConn is a no-op Conn for registry tests.
type fakeConn struct {
	name string
}

func (f *fakeConn) Send(context.Context, *domain.Notification) error { return nil }
func (f *fakeConn) Close() error                                     { return nil }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := registry.NewMemory()
	c := &fakeConn{name: "c1"}

	r.Register("u1", c)

	conns := r.Lookup("u1")
	if len(conns) != 1 || conns[0] != c {
		t.Fatalf("expected [c1], got %v", conns)
	}
}

func TestRegistry_Lookup_UnknownUserIsEmpty(t *testing.T) {
	r := registry.NewMemory()
	if conns := r.Lookup("nobody"); len(conns) != 0 {
		t.Fatalf("expected empty lookup, got %d conns", len(conns))
	}
}

func TestRegistry_Register_Idempotent(t *testing.T) {
	r := registry.NewMemory()
	c := &fakeConn{name: "c1"}

	r.Register("u1", c)
	r.Register("u1", c)

	if conns := r.Lookup("u1"); len(conns) != 1 {
		t.Fatalf("expected 1 conn after duplicate register, got %d", len(conns))
	}
}

func TestRegistry_MultiDeviceFanOutSet(t *testing.T) {
	r := registry.NewMemory()
	c1 := &fakeConn{name: "tab"}
	c2 := &fakeConn{name: "phone"}

	r.Register("u1", c1)
	r.Register("u1", c2)

	conns := r.Lookup("u1")
	if len(conns) != 2 {
		t.Fatalf("expected 2 conns, got %d", len(conns))
	}
}

func TestRegistry_Deregister(t *testing.T) {
	r := registry.NewMemory()
	c1 := &fakeConn{name: "tab"}
	c2 := &fakeConn{name: "phone"}
	r.Register("u1", c1)
	r.Register("u1", c2)

	r.Deregister(c1)
	if conns := r.Lookup("u1"); len(conns) != 1 || conns[0] != c2 {
		t.Fatalf("expected only c2 to remain, got %v", conns)
	}

	// Removing the last handle must leave the user observably absent.
	r.Deregister(c2)
	if conns := r.Lookup("u1"); len(conns) != 0 {
		t.Fatalf("expected empty lookup after last deregister, got %v", conns)
	}
	if users, _ := r.Stats(); users != 0 {
		t.Fatalf("expected 0 registered users, got %d", users)
	}
}

func TestRegistry_Deregister_UnknownHandleIsNoop(t *testing.T) {
	r := registry.NewMemory()
	r.Register("u1", &fakeConn{name: "kept"})

	r.Deregister(&fakeConn{name: "stranger"})

	if conns := r.Lookup("u1"); len(conns) != 1 {
		t.Fatalf("expected u1's conn untouched, got %d", len(conns))
	}
}

func TestRegistry_Stats(t *testing.T) {
	r := registry.NewMemory()
	r.Register("u1", &fakeConn{name: "a"})
	r.Register("u1", &fakeConn{name: "b"})
	r.Register("u2", &fakeConn{name: "c"})

	users, conns := r.Stats()
	if users != 2 || conns != 3 {
		t.Fatalf("expected users=2 conns=3, got users=%d conns=%d", users, conns)
	}
}

// Register/Deregister/Lookup race freely under transport events; this
// exercises the lock under -race.
func TestRegistry_Concurrency(t *testing.T) {
	r := registry.NewMemory()

	const users = 8
	const connsPerUser = 20

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		userID := fmt.Sprintf("u%d", u)
		for i := 0; i < connsPerUser; i++ {
			wg.Add(1)
			go func(c *fakeConn) {
				defer wg.Done()
				r.Register(userID, c)
				r.Lookup(userID)
				r.Deregister(c)
			}(&fakeConn{name: fmt.Sprintf("%s-%d", userID, i)})
		}
	}
	wg.Wait()

	if users, conns := r.Stats(); users != 0 || conns != 0 {
		t.Fatalf("expected empty registry after churn, got users=%d conns=%d", users, conns)
	}
}
