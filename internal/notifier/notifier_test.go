package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

// mockNotifier records sent notifications for testing.
type mockNotifier struct {
	mu     sync.Mutex
	name   string
	sent   []*Notification
	err    error
	closed bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Send(ctx context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockNotifier) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testNotification() *Notification {
	event := models.NewEvent("Main Hall", 100, 200)
	event.ID = "evt-1"
	return &Notification{
		Event: event,
		Alert: &models.Alert{
			ID:        "alert-1",
			EventID:   event.ID,
			Type:      models.AlertCapacity,
			Message:   "headcount 250 reached capacity 200",
			CreatedAt: time.Now(),
		},
		Headcount: 250,
		Status:    models.StatusRed,
	}
}

func TestDispatchAll_SendsToAllChannels(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{Enabled: false})
	a := &mockNotifier{name: "a"}
	b := &mockNotifier{name: "b"}
	d.Register(a)
	d.Register(b)

	if err := d.DispatchAll(context.Background(), testNotification()); err != nil {
		t.Fatalf("DispatchAll: %v", err)
	}

	if a.sentCount() != 1 || b.sentCount() != 1 {
		t.Errorf("sent counts = %d, %d; want 1, 1", a.sentCount(), b.sentCount())
	}
}

func TestDispatchAll_CollectsChannelErrors(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{Enabled: false})
	d.Register(&mockNotifier{name: "ok"})
	d.Register(&mockNotifier{name: "bad", err: errors.New("boom")})

	err := d.DispatchAll(context.Background(), testNotification())
	if err == nil {
		t.Fatal("expected error from failing channel")
	}
}

func TestDispatchAll_RateLimited(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{
		MaxPerWindow: 2,
		Window:       time.Minute,
		Enabled:      true,
	})
	m := &mockNotifier{name: "m"}
	d.Register(m)

	n := testNotification()
	for i := 0; i < 2; i++ {
		if err := d.DispatchAll(context.Background(), n); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}

	if err := d.DispatchAll(context.Background(), n); err != ErrRateLimited {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if m.sentCount() != 2 {
		t.Errorf("sent = %d, want 2", m.sentCount())
	}
	if d.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", d.Dropped())
	}
}

func TestUnregister(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{Enabled: false})
	m := &mockNotifier{name: "m"}
	d.Register(m)
	d.Unregister("m")

	if _, ok := d.Get("m"); ok {
		t.Error("notifier should be unregistered")
	}

	if err := d.DispatchAll(context.Background(), testNotification()); err != nil {
		t.Fatalf("DispatchAll: %v", err)
	}
	if m.sentCount() != 0 {
		t.Errorf("sent = %d, want 0", m.sentCount())
	}
}

func TestAlertRaised_DoesNotPropagateErrors(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{Enabled: false})
	d.Register(&mockNotifier{name: "bad", err: errors.New("boom")})

	n := testNotification()
	// Must not panic or block
	d.AlertRaised(n.Event, n.Alert, n.Headcount, n.Status)
}

func TestClose_ClosesAllNotifiers(t *testing.T) {
	d := NewDispatcher()
	m := &mockNotifier{name: "m"}
	d.Register(m)

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !m.closed {
		t.Error("notifier should be closed")
	}
	if _, ok := d.Get("m"); ok {
		t.Error("notifiers should be cleared after Close")
	}
}
