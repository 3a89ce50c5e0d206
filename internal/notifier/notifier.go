// Package notifier delivers escalation notifications to clinical staff
// channels.
package notifier

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/good-yellow-bee/pulsewatch/internal/metrics"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// Channel is one delivery mechanism for escalation notifications.
type Channel interface {
	// Name returns the channel name (e.g., "slack", "email").
	Name() string
	// Send delivers a notification for a newly created escalation.
	Send(ctx context.Context, e *models.Escalation) error
	// Close releases any resources.
	Close() error
}

// ErrRateLimited is returned when a notification is dropped by the rate
// limiter.
var ErrRateLimited = fmt.Errorf("notification rate limited")

// Dispatcher fans an escalation out to the registered channels, behind a
// shared rate limiter so a trigger storm cannot flood staff channels.
type Dispatcher struct {
	mu          sync.RWMutex
	channels    map[string]Channel
	rateLimiter *RateLimiter
}

// NewDispatcher creates a dispatcher with default rate limiting.
func NewDispatcher() *Dispatcher {
	return NewDispatcherWithRateLimit(DefaultRateLimitConfig())
}

// NewDispatcherWithRateLimit creates a dispatcher with a custom rate limit.
func NewDispatcherWithRateLimit(config RateLimitConfig) *Dispatcher {
	return &Dispatcher{
		channels:    make(map[string]Channel),
		rateLimiter: NewRateLimiter(config),
	}
}

// Register adds a channel to the dispatcher.
func (d *Dispatcher) Register(c Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[c.Name()] = c
}

// Unregister removes a channel.
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.channels, name)
}

// Get returns a channel by name.
func (d *Dispatcher) Get(name string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.channels[name]
	return c, ok
}

// Dispatch sends an escalation to every registered channel. Returns
// ErrRateLimited if the notification was dropped, otherwise the combined
// per-channel errors.
func (d *Dispatcher) Dispatch(ctx context.Context, e *models.Escalation) error {
	if d.rateLimiter != nil && !d.rateLimiter.Allow() {
		metrics.NotificationsRateLimitedTotal.Inc()
		return ErrRateLimited
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var errs []error
	for name, c := range d.channels {
		if err := c.Send(ctx, e); err != nil {
			metrics.NotificationErrorsTotal.WithLabelValues(name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		metrics.NotificationsSentTotal.WithLabelValues(name).Inc()
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %v", errs)
	}
	return nil
}

// Notify delivers an escalation notification best-effort. Failures are
// logged, never propagated; an undeliverable notification must not fail the
// escalation that triggered it.
func (d *Dispatcher) Notify(ctx context.Context, e *models.Escalation) {
	if err := d.Dispatch(ctx, e); err != nil {
		log.Printf("Notification for escalation %s failed: %v", e.ID, err)
	}
}

// RateLimitStats returns the rate limiter statistics.
func (d *Dispatcher) RateLimitStats() RateLimitStats {
	if d.rateLimiter == nil {
		return RateLimitStats{}
	}
	return d.rateLimiter.Stats()
}

// Close closes all registered channels.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for name, c := range d.channels {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	d.channels = make(map[string]Channel)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
