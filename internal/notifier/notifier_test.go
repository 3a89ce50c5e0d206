package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// fakeChannel records sends and optionally fails them.
type fakeChannel struct {
	name string
	fail bool

	mu     sync.Mutex
	sent   int
	closed bool
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(ctx context.Context, e *models.Escalation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return fmt.Errorf("delivery failed")
	}
	c.sent++
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) Sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

func testEscalation() *models.Escalation {
	return &models.Escalation{
		ID:                "esc-1",
		SubjectID:         "patient-1",
		TriggerRule:       "vitals_critical",
		Title:             "Critical Vitals Alert",
		Level:             models.LevelNurse,
		Urgency:           models.UrgencyImmediate,
		Status:            models.StatusPending,
		RecommendedAction: "Bedside assessment now",
		Reason:            "vitals_instability at 0.95, threshold 0.90",
		CreatedAt:         time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_FansOut(t *testing.T) {
	d := NewDispatcher()
	a := &fakeChannel{name: "a"}
	b := &fakeChannel{name: "b"}
	d.Register(a)
	d.Register(b)

	if err := d.Dispatch(context.Background(), testEscalation()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if a.Sent() != 1 || b.Sent() != 1 {
		t.Errorf("sent = %d/%d, want 1/1", a.Sent(), b.Sent())
	}
}

func TestDispatcher_CollectsChannelErrors(t *testing.T) {
	d := NewDispatcher()
	good := &fakeChannel{name: "good"}
	bad := &fakeChannel{name: "bad", fail: true}
	d.Register(good)
	d.Register(bad)

	err := d.Dispatch(context.Background(), testEscalation())
	if err == nil {
		t.Fatal("expected error from failing channel")
	}
	// A failing channel never blocks the healthy one.
	if good.Sent() != 1 {
		t.Errorf("good channel sent = %d, want 1", good.Sent())
	}
}

func TestDispatcher_RateLimitsBursts(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{
		MaxPerWindow: 2,
		Window:       time.Minute,
		Enabled:      true,
	})
	c := &fakeChannel{name: "c"}
	d.Register(c)

	ctx := context.Background()
	e := testEscalation()
	if err := d.Dispatch(ctx, e); err != nil {
		t.Fatalf("dispatch 1: %v", err)
	}
	if err := d.Dispatch(ctx, e); err != nil {
		t.Fatalf("dispatch 2: %v", err)
	}
	if err := d.Dispatch(ctx, e); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("dispatch 3 error = %v, want ErrRateLimited", err)
	}
	if c.Sent() != 2 {
		t.Errorf("sent = %d, want 2", c.Sent())
	}

	stats := d.RateLimitStats()
	if stats.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", stats.Dropped)
	}
}

func TestDispatcher_NotifyNeverPanics(t *testing.T) {
	d := NewDispatcher()
	d.Register(&fakeChannel{name: "bad", fail: true})

	// Notify is best-effort: failures are logged, not returned.
	d.Notify(context.Background(), testEscalation())
}

func TestDispatcher_RegisterUnregister(t *testing.T) {
	d := NewDispatcher()
	c := &fakeChannel{name: "c"}
	d.Register(c)

	if _, ok := d.Get("c"); !ok {
		t.Fatal("registered channel not found")
	}

	d.Unregister("c")
	if _, ok := d.Get("c"); ok {
		t.Fatal("unregistered channel still present")
	}

	if err := d.Dispatch(context.Background(), testEscalation()); err != nil {
		t.Fatalf("dispatch with no channels: %v", err)
	}
	if c.Sent() != 0 {
		t.Errorf("sent = %d, want 0 after unregister", c.Sent())
	}
}

func TestDispatcher_Close(t *testing.T) {
	d := NewDispatcher()
	a := &fakeChannel{name: "a"}
	b := &fakeChannel{name: "b"}
	d.Register(a)
	d.Register(b)

	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("close must reach every channel")
	}
	if _, ok := d.Get("a"); ok {
		t.Error("channels must be cleared after close")
	}
}
