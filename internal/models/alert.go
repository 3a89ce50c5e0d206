package models

import "time"

// AlertSeverity represents alert severity level.
type AlertSeverity string

const (
	AlertInfo     AlertSeverity = "info"
	AlertCaution  AlertSeverity = "caution"
	AlertCritical AlertSeverity = "critical"
)

// ParseAlertSeverity converts a string to AlertSeverity.
func ParseAlertSeverity(s string) (AlertSeverity, bool) {
	switch sev := AlertSeverity(s); sev {
	case AlertInfo, AlertCaution, AlertCritical:
		return sev, true
	}
	return "", false
}

// Alert is a time-windowed warning derived from a classified signal.
// Alerts are recomputed every cycle and never mutated: a fresher
// classification for the same condition replaces the previous alert.
type Alert struct {
	ID        string        `json:"id"`
	SubjectID string        `json:"subject_id,omitempty"` // empty for facility-wide
	Condition string        `json:"condition"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	// Window describes how far ahead the condition is expected to
	// materialize (forecast horizon label, e.g. "~48h"), not the alert's
	// own lifetime.
	Window      string    `json:"window"`
	GeneratedAt time.Time `json:"generated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the alert's window has elapsed.
func (a *Alert) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
