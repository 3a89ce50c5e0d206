// Package alerting turns classified risk signals into time-windowed alerts.
// Alerts are a stateless recompute per evaluation cycle: the generator only
// tracks which alert is currently active per (subject, condition) so a fresh
// classification replaces the previous alert instead of appending to it.
package alerting

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// ClassifiedSignal is one classified condition to be turned into an alert.
type ClassifiedSignal struct {
	// SubjectID is empty for facility-wide conditions.
	SubjectID string
	// Condition names the underlying condition (e.g. "er_surge",
	// "deterioration"); deduplication is per (subject, condition).
	Condition string
	Level     models.RiskLevel
	Message   string
	// Horizon is the forecast horizon that produced the signal. It becomes
	// the alert's window label and expiry.
	Horizon time.Duration
}

// severityRank orders alert severities for output sorting.
var severityRank = map[models.AlertSeverity]int{
	models.AlertCritical: 0,
	models.AlertCaution:  1,
	models.AlertInfo:     2,
}

// Generator produces deduplicated, expiring alerts from classified signals.
type Generator struct {
	mu     sync.Mutex
	active map[string]*models.Alert
}

// NewGenerator creates an alert generator.
func NewGenerator() *Generator {
	return &Generator{active: make(map[string]*models.Alert)}
}

// Generate updates the active alert set from the given signals and returns
// it. Low/stable signals never generate alerts; they retract any active
// alert for the same condition. Expired alerts are dropped, so callers must
// re-evaluate each cycle rather than caching the list.
func (g *Generator) Generate(signals []ClassifiedSignal, now time.Time) []*models.Alert {
	g.mu.Lock()
	defer g.mu.Unlock()

	for key, alert := range g.active {
		if alert.Expired(now) {
			delete(g.active, key)
		}
	}

	for _, sig := range signals {
		key := sig.SubjectID + "\x00" + sig.Condition
		if !sig.Level.AtLeast(models.RiskMedium) {
			// Condition back to stable: retract rather than keep a stale alert.
			delete(g.active, key)
			continue
		}
		g.active[key] = &models.Alert{
			ID:          uuid.New().String(),
			SubjectID:   sig.SubjectID,
			Condition:   sig.Condition,
			Severity:    severityFor(sig.Level),
			Message:     sig.Message,
			Window:      windowLabel(sig.Horizon),
			GeneratedAt: now,
			ExpiresAt:   now.Add(sig.Horizon),
		}
	}

	alerts := make([]*models.Alert, 0, len(g.active))
	for _, alert := range g.active {
		alerts = append(alerts, alert)
	}
	sort.Slice(alerts, func(i, j int) bool {
		if severityRank[alerts[i].Severity] != severityRank[alerts[j].Severity] {
			return severityRank[alerts[i].Severity] < severityRank[alerts[j].Severity]
		}
		if alerts[i].SubjectID != alerts[j].SubjectID {
			return alerts[i].SubjectID < alerts[j].SubjectID
		}
		return alerts[i].Condition < alerts[j].Condition
	})
	return alerts
}

// Active returns the current alert list at a point in time without
// consuming new signals.
func (g *Generator) Active(now time.Time) []*models.Alert {
	return g.Generate(nil, now)
}

// Summarize builds a deterministic one-line summary of an alert list for
// the {items, summary} response shape.
func Summarize(alerts []*models.Alert) string {
	if len(alerts) == 0 {
		return "No active alerts"
	}
	counts := map[models.AlertSeverity]int{}
	for _, a := range alerts {
		counts[a.Severity]++
	}
	return fmt.Sprintf("%d active alerts: %d critical, %d caution, %d info",
		len(alerts), counts[models.AlertCritical], counts[models.AlertCaution], counts[models.AlertInfo])
}

// severityFor maps a classified risk level to an alert severity. Only
// Medium and above reach this point.
func severityFor(level models.RiskLevel) models.AlertSeverity {
	if level.AtLeast(models.RiskHigh) {
		return models.AlertCritical
	}
	return models.AlertCaution
}

// windowLabel formats a forecast horizon as a short window tag like "~48h".
func windowLabel(horizon time.Duration) string {
	hours := int(horizon.Round(time.Hour).Hours())
	if hours < 1 {
		return fmt.Sprintf("~%dm", int(horizon.Round(time.Minute).Minutes()))
	}
	return fmt.Sprintf("~%dh", hours)
}
