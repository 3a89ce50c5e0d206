package alerting

import (
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestGenerator_SeverityMapping(t *testing.T) {
	g := NewGenerator()

	alerts := g.Generate([]ClassifiedSignal{
		{Condition: "er_surge", Level: models.RiskMedium, Message: "rising", Horizon: 48 * time.Hour},
		{Condition: "icu_peak", Level: models.RiskHigh, Message: "peak", Horizon: 48 * time.Hour},
		{Condition: "staff_stress", Level: models.RiskLow, Message: "stable", Horizon: 48 * time.Hour},
	}, testNow)

	// The Low signal produces no alert.
	if len(alerts) != 2 {
		t.Fatalf("alert count = %d, want 2", len(alerts))
	}

	// Critical sorts first.
	if alerts[0].Condition != "icu_peak" || alerts[0].Severity != models.AlertCritical {
		t.Errorf("alerts[0] = %s/%s, want icu_peak/critical", alerts[0].Condition, alerts[0].Severity)
	}
	if alerts[1].Condition != "er_surge" || alerts[1].Severity != models.AlertCaution {
		t.Errorf("alerts[1] = %s/%s, want er_surge/caution", alerts[1].Condition, alerts[1].Severity)
	}

	if alerts[0].Window != "~48h" {
		t.Errorf("window = %q, want ~48h", alerts[0].Window)
	}
	if !alerts[0].ExpiresAt.Equal(testNow.Add(48 * time.Hour)) {
		t.Errorf("expires_at = %v, want now+48h", alerts[0].ExpiresAt)
	}
	if alerts[0].ID == "" {
		t.Error("alert must carry an id")
	}
}

func TestGenerator_ReplacesOnReclassify(t *testing.T) {
	g := NewGenerator()

	first := g.Generate([]ClassifiedSignal{
		{Condition: "er_surge", Level: models.RiskMedium, Horizon: 48 * time.Hour},
	}, testNow)
	if len(first) != 1 {
		t.Fatalf("alert count = %d, want 1", len(first))
	}

	// The same condition reclassified replaces the alert, never appends.
	second := g.Generate([]ClassifiedSignal{
		{Condition: "er_surge", Level: models.RiskHigh, Horizon: 48 * time.Hour},
	}, testNow.Add(time.Hour))
	if len(second) != 1 {
		t.Fatalf("alert count after reclassify = %d, want 1", len(second))
	}
	if second[0].Severity != models.AlertCritical {
		t.Errorf("severity = %s, want critical after upgrade", second[0].Severity)
	}
	if second[0].ID == first[0].ID {
		t.Error("replacement alert must have a fresh id")
	}
}

func TestGenerator_RetractsOnLow(t *testing.T) {
	g := NewGenerator()

	g.Generate([]ClassifiedSignal{
		{Condition: "er_surge", Level: models.RiskHigh, Horizon: 48 * time.Hour},
	}, testNow)

	alerts := g.Generate([]ClassifiedSignal{
		{Condition: "er_surge", Level: models.RiskLow, Horizon: 48 * time.Hour},
	}, testNow.Add(time.Hour))
	if len(alerts) != 0 {
		t.Fatalf("alert count = %d, want 0 after retraction", len(alerts))
	}
}

func TestGenerator_ExpiresAlerts(t *testing.T) {
	g := NewGenerator()

	g.Generate([]ClassifiedSignal{
		{Condition: "er_surge", Level: models.RiskHigh, Horizon: 2 * time.Hour},
	}, testNow)

	if got := g.Active(testNow.Add(time.Hour)); len(got) != 1 {
		t.Fatalf("active before expiry = %d, want 1", len(got))
	}
	if got := g.Active(testNow.Add(3 * time.Hour)); len(got) != 0 {
		t.Fatalf("active after expiry = %d, want 0", len(got))
	}
}

func TestGenerator_DedupPerSubject(t *testing.T) {
	g := NewGenerator()

	alerts := g.Generate([]ClassifiedSignal{
		{SubjectID: "p1", Condition: "deterioration", Level: models.RiskHigh, Horizon: 48 * time.Hour},
		{SubjectID: "p2", Condition: "deterioration", Level: models.RiskHigh, Horizon: 48 * time.Hour},
	}, testNow)

	// Same condition for different subjects is two alerts, sorted by subject.
	if len(alerts) != 2 {
		t.Fatalf("alert count = %d, want 2", len(alerts))
	}
	if alerts[0].SubjectID != "p1" || alerts[1].SubjectID != "p2" {
		t.Errorf("subject order = %s, %s, want p1, p2", alerts[0].SubjectID, alerts[1].SubjectID)
	}
}

func TestWindowLabel(t *testing.T) {
	tests := []struct {
		horizon time.Duration
		want    string
	}{
		{48 * time.Hour, "~48h"},
		{24 * time.Hour, "~24h"},
		{100 * time.Minute, "~2h"},
		{20 * time.Minute, "~20m"},
	}
	for _, tt := range tests {
		if got := windowLabel(tt.horizon); got != tt.want {
			t.Errorf("windowLabel(%v) = %q, want %q", tt.horizon, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	if got := Summarize(nil); got != "No active alerts" {
		t.Errorf("empty summary = %q", got)
	}

	alerts := []*models.Alert{
		{Severity: models.AlertCritical},
		{Severity: models.AlertCaution},
		{Severity: models.AlertCaution},
	}
	got := Summarize(alerts)
	if !strings.HasPrefix(got, "3 active alerts") {
		t.Errorf("summary = %q, want prefix %q", got, "3 active alerts")
	}
	if !strings.Contains(got, "1 critical") || !strings.Contains(got, "2 caution") {
		t.Errorf("summary = %q, missing severity counts", got)
	}
}
