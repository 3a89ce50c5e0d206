package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "escalations",
		Up: `
			CREATE TABLE IF NOT EXISTS escalations (
				id TEXT PRIMARY KEY,
				subject_id TEXT NOT NULL,
				trigger_rule TEXT NOT NULL,
				title TEXT NOT NULL,
				message TEXT NOT NULL,
				escalation_level TEXT NOT NULL,
				urgency TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				recommended_action TEXT NOT NULL DEFAULT '',
				reason TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				acknowledged_at DATETIME,
				acknowledged_by TEXT,
				acknowledgment_notes TEXT,
				resolved_at DATETIME,
				resolved_by TEXT,
				resolution_notes TEXT,
				follow_up_required INTEGER NOT NULL DEFAULT 0,
				version INTEGER NOT NULL DEFAULT 1
			);

			-- At most one unresolved escalation per (subject, trigger):
			-- first-fired wins until resolved.
			CREATE UNIQUE INDEX IF NOT EXISTS idx_escalations_active_trigger
				ON escalations(subject_id, trigger_rule)
				WHERE status != 'resolved';

			CREATE INDEX IF NOT EXISTS idx_escalations_status ON escalations(status);
			CREATE INDEX IF NOT EXISTS idx_escalations_subject ON escalations(subject_id);
			CREATE INDEX IF NOT EXISTS idx_escalations_created ON escalations(created_at);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
