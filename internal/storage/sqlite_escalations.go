package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

const escalationColumns = `id, subject_id, trigger_rule, title, message,
	escalation_level, urgency, status, recommended_action, reason,
	created_at, acknowledged_at, acknowledged_by, acknowledgment_notes,
	resolved_at, resolved_by, resolution_notes, follow_up_required, version`

type sqliteEscalationRepo struct {
	db *sql.DB
}

func (r *sqliteEscalationRepo) Create(ctx context.Context, e *models.Escalation) error {
	query := `
		INSERT INTO escalations (` + escalationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.SubjectID, e.TriggerRule, e.Title, e.Message,
		e.Level, e.Urgency, e.Status, e.RecommendedAction, e.Reason,
		e.CreatedAt, nullTime(e.AcknowledgedAt), nullString(e.AcknowledgedBy), nullString(e.AckNotes),
		nullTime(e.ResolvedAt), nullString(e.ResolvedBy), nullString(e.ResolutionNotes),
		boolToInt(e.FollowUpRequired), e.Version,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateActive
		}
		return fmt.Errorf("insert escalation: %w", err)
	}
	return nil
}

func (r *sqliteEscalationRepo) GetByID(ctx context.Context, id string) (*models.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalations WHERE id = ?`
	e, err := scanEscalationRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get escalation: %w", err)
	}
	return e, nil
}

func (r *sqliteEscalationRepo) UpdateTransition(ctx context.Context, e *models.Escalation) error {
	query := `
		UPDATE escalations SET status = ?,
			acknowledged_at = ?, acknowledged_by = ?, acknowledgment_notes = ?,
			resolved_at = ?, resolved_by = ?, resolution_notes = ?,
			follow_up_required = ?, version = version + 1
		WHERE id = ? AND version = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		e.Status,
		nullTime(e.AcknowledgedAt), nullString(e.AcknowledgedBy), nullString(e.AckNotes),
		nullTime(e.ResolvedAt), nullString(e.ResolvedBy), nullString(e.ResolutionNotes),
		boolToInt(e.FollowUpRequired),
		e.ID, e.Version,
	)
	if err != nil {
		return fmt.Errorf("update escalation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrVersionConflict
	}
	e.Version++
	return nil
}

func (r *sqliteEscalationRepo) FindActiveByTrigger(ctx context.Context, subjectID, triggerRule string) (*models.Escalation, error) {
	query := `
		SELECT ` + escalationColumns + ` FROM escalations
		WHERE subject_id = ? AND trigger_rule = ? AND status != 'resolved'
	`
	e, err := scanEscalationRow(r.db.QueryRowContext(ctx, query, subjectID, triggerRule))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active escalation: %w", err)
	}
	return e, nil
}

func (r *sqliteEscalationRepo) ListActive(ctx context.Context, level models.EscalationLevel) ([]*models.Escalation, error) {
	query := `
		SELECT ` + escalationColumns + ` FROM escalations
		WHERE status != 'resolved'
	`
	args := []any{}
	if level != "" {
		query += " AND escalation_level = ?"
		args = append(args, level)
	}
	query += `
		ORDER BY CASE urgency
			WHEN 'immediate' THEN 0
			WHEN 'urgent' THEN 1
			ELSE 2
		END, created_at
	`
	return r.queryEscalations(ctx, query, args...)
}

func (r *sqliteEscalationRepo) ListBySubject(ctx context.Context, subjectID string, status models.EscalationStatus) ([]*models.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalations WHERE subject_id = ?`
	args := []any{subjectID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"
	return r.queryEscalations(ctx, query, args...)
}

func (r *sqliteEscalationRepo) ListBetween(ctx context.Context, subjectID string, from, to time.Time) ([]*models.Escalation, error) {
	query := `
		SELECT ` + escalationColumns + ` FROM escalations
		WHERE created_at >= ? AND created_at < ?
	`
	args := []any{from, to}
	if subjectID != "" {
		query += " AND subject_id = ?"
		args = append(args, subjectID)
	}
	query += " ORDER BY created_at DESC"
	return r.queryEscalations(ctx, query, args...)
}

func (r *sqliteEscalationRepo) CountCreatedByDay(ctx context.Context, from, to time.Time) ([]DailyCount, error) {
	query := `
		SELECT date(created_at), COUNT(*)
		FROM escalations
		WHERE created_at >= ? AND created_at < ?
		GROUP BY date(created_at)
		ORDER BY date(created_at)
	`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("count escalations by day: %w", err)
	}
	defer rows.Close()

	var counts []DailyCount
	for rows.Next() {
		var c DailyCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *sqliteEscalationRepo) queryEscalations(ctx context.Context, query string, args ...any) ([]*models.Escalation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query escalations: %w", err)
	}
	defer rows.Close()

	var escalations []*models.Escalation
	for rows.Next() {
		e, err := scanEscalationRow(rows)
		if err != nil {
			return nil, err
		}
		escalations = append(escalations, e)
	}
	return escalations, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEscalationRow(row scanner) (*models.Escalation, error) {
	e := &models.Escalation{}
	var ackAt, resolvedAt sql.NullTime
	var ackBy, ackNotes, resolvedBy, notes sql.NullString
	var followUp int

	err := row.Scan(
		&e.ID, &e.SubjectID, &e.TriggerRule, &e.Title, &e.Message,
		&e.Level, &e.Urgency, &e.Status, &e.RecommendedAction, &e.Reason,
		&e.CreatedAt, &ackAt, &ackBy, &ackNotes,
		&resolvedAt, &resolvedBy, &notes, &followUp, &e.Version,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan escalation: %w", err)
	}

	if ackAt.Valid {
		t := ackAt.Time
		e.AcknowledgedAt = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		e.ResolvedAt = &t
	}
	e.AcknowledgedBy = ackBy.String
	e.AckNotes = ackNotes.String
	e.ResolvedBy = resolvedBy.String
	e.ResolutionNotes = notes.String
	e.FollowUpRequired = followUp != 0

	return e, nil
}

// Helper functions

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
