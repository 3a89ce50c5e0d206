package notifier

import (
	"context"
	"log"
	"strings"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// LogChannel writes escalation notifications to the process log. It is the
// default channel when no external channel is configured, so escalations are
// always visible somewhere.
type LogChannel struct{}

// NewLogChannel creates a log channel.
func NewLogChannel() *LogChannel {
	return &LogChannel{}
}

// Name returns "log".
func (l *LogChannel) Name() string {
	return "log"
}

// Send logs the escalation.
func (l *LogChannel) Send(ctx context.Context, e *models.Escalation) error {
	log.Printf("[%s] %s: subject=%s routed_to=%s action=%q reason=%q",
		strings.ToUpper(string(e.Urgency)), e.Title, e.SubjectID, e.Level, e.RecommendedAction, e.Reason)
	return nil
}

// Close is a no-op for the log channel.
func (l *LogChannel) Close() error {
	return nil
}
