// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// ErrVersionConflict is returned when an update loses an optimistic
// concurrency check: the record changed since it was read.
var ErrVersionConflict = errors.New("escalation modified concurrently")

// ErrDuplicateActive is returned when creating an escalation that would
// violate the one-active-per-(subject, trigger) rule.
var ErrDuplicateActive = errors.New("active escalation already exists for subject and trigger")

// Storage is the root storage interface.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate creates or updates the schema.
	Migrate() error
	// Ping checks connection health.
	Ping(ctx context.Context) error

	// Escalations returns the escalation repository.
	Escalations() EscalationRepository
}

// DailyCount is one day of escalation creation counts for trend reporting.
type DailyCount struct {
	Day   string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// EscalationRepository defines escalation persistence. Escalations are
// append-only: they are created and transitioned, never deleted.
type EscalationRepository interface {
	// Create inserts a new escalation. Returns ErrDuplicateActive if an
	// unresolved escalation already exists for the same
	// (subject_id, trigger_rule) pair; the uniqueness check is atomic.
	Create(ctx context.Context, e *models.Escalation) error

	// GetByID returns an escalation, or (nil, nil) if unknown.
	GetByID(ctx context.Context, id string) (*models.Escalation, error)

	// UpdateTransition persists a state transition. The update only applies
	// if the stored version still matches e.Version; otherwise
	// ErrVersionConflict is returned and nothing is written. On success
	// e.Version is advanced.
	UpdateTransition(ctx context.Context, e *models.Escalation) error

	// FindActiveByTrigger returns the unresolved escalation for a
	// (subject, trigger) pair, or (nil, nil) if none exists.
	FindActiveByTrigger(ctx context.Context, subjectID, triggerRule string) (*models.Escalation, error)

	// ListActive returns unresolved escalations, optionally filtered by
	// escalation level, ordered by urgency rank then creation time.
	ListActive(ctx context.Context, level models.EscalationLevel) ([]*models.Escalation, error)

	// ListBySubject returns a subject's escalations newest first,
	// optionally filtered by status.
	ListBySubject(ctx context.Context, subjectID string, status models.EscalationStatus) ([]*models.Escalation, error)

	// ListBetween returns escalations created in [from, to), optionally
	// filtered by subject, newest first.
	ListBetween(ctx context.Context, subjectID string, from, to time.Time) ([]*models.Escalation, error)

	// CountCreatedByDay returns per-day creation counts for created_at in
	// [from, to).
	CountCreatedByDay(ctx context.Context, from, to time.Time) ([]DailyCount, error)
}
