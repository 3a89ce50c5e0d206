package escalation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/risk"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

// countingNotifier records how many notifications were delivered.
type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Notify(ctx context.Context, e *models.Escalation) {
	n.mu.Lock()
	n.count++
	n.mu.Unlock()
}

func (n *countingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

func setupEngine(t *testing.T) (*Engine, *countingNotifier) {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate database: %v", err)
	}

	notifier := &countingNotifier{}
	engine := NewEngine(store.Escalations(), risk.DefaultConfig().Escalation, notifier)
	return engine, notifier
}

func urgentAssessment(subjectID string) *Assessment {
	// Fires vitals_critical (immediate) and deterioration_high (urgent).
	return &Assessment{
		Snapshot: snapshot(subjectID, map[models.ComponentName]float64{
			models.ComponentVitalsInstability: 0.95,
		}),
		Composite: &models.CompositeScore{SubjectID: subjectID, Value: 75},
	}
}

func TestEngine_CheckTriggersCreates(t *testing.T) {
	engine, notifier := setupEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	result := engine.CheckTriggersAt(ctx, []*Assessment{urgentAssessment("p1")}, now)

	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v, want none", result.Errors)
	}
	if len(result.Created) != 2 {
		t.Fatalf("created = %d, want 2", len(result.Created))
	}
	if result.Deduped != 0 {
		t.Errorf("deduped = %d, want 0", result.Deduped)
	}

	// Results sort by urgency: immediate before urgent.
	if result.Created[0].TriggerRule != "vitals_critical" {
		t.Errorf("created[0] = %s, want vitals_critical", result.Created[0].TriggerRule)
	}
	if result.Created[1].TriggerRule != "deterioration_high" {
		t.Errorf("created[1] = %s, want deterioration_high", result.Created[1].TriggerRule)
	}

	e := result.Created[0]
	if e.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", e.Status)
	}
	if e.Level != models.LevelNurse || e.Urgency != models.UrgencyImmediate {
		t.Errorf("routing = %s/%s, want nurse/immediate", e.Level, e.Urgency)
	}
	if e.ID == "" || e.Reason == "" || e.RecommendedAction == "" {
		t.Error("created escalation missing id, reason, or action")
	}
	if !e.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", e.CreatedAt, now)
	}

	if notifier.Count() != 2 {
		t.Errorf("notifications = %d, want 2", notifier.Count())
	}
}

func TestEngine_CheckTriggersIdempotent(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	first := engine.CheckTriggersAt(ctx, []*Assessment{urgentAssessment("p1")}, now)
	if len(first.Created) != 2 {
		t.Fatalf("first run created = %d, want 2", len(first.Created))
	}

	// The same conditions on the next cycle dedupe against the open
	// escalations instead of creating duplicates.
	second := engine.CheckTriggersAt(ctx, []*Assessment{urgentAssessment("p1")}, now.Add(time.Hour))
	if len(second.Created) != 0 {
		t.Errorf("second run created = %d, want 0", len(second.Created))
	}
	if second.Deduped != 2 {
		t.Errorf("second run deduped = %d, want 2", second.Deduped)
	}

	// After resolution the rule may fire again.
	if _, err := engine.ResolveAt(ctx, first.Created[0].ID, "dr-lee", "stabilized", false, now.Add(2*time.Hour)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	third := engine.CheckTriggersAt(ctx, []*Assessment{urgentAssessment("p1")}, now.Add(3*time.Hour))
	if len(third.Created) != 1 {
		t.Errorf("post-resolve run created = %d, want 1", len(third.Created))
	}
	if third.Deduped != 1 {
		t.Errorf("post-resolve run deduped = %d, want 1", third.Deduped)
	}
}

func TestEngine_CheckTriggersSubjectIsolation(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	bad := &Assessment{
		Snapshot: snapshot("bad-subject", map[models.ComponentName]float64{
			models.ComponentName("bogus"): 1.0,
		}),
	}

	result := engine.CheckTriggersAt(ctx, []*Assessment{bad, urgentAssessment("p1")}, now)

	// The invalid snapshot fails alone; the healthy subject still escalates.
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(result.Errors))
	}
	if result.Errors[0].SubjectID != "bad-subject" {
		t.Errorf("error subject = %s, want bad-subject", result.Errors[0].SubjectID)
	}
	if len(result.Created) != 2 {
		t.Errorf("created = %d, want 2 for the healthy subject", len(result.Created))
	}
}

func TestEngine_Lifecycle(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	result := engine.CheckTriggersAt(ctx, []*Assessment{urgentAssessment("p1")}, now)
	id := result.Created[0].ID

	ackAt := now.Add(5 * time.Minute)
	e, err := engine.AcknowledgeAt(ctx, id, "nurse-kim", "heading over", ackAt)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if e.Status != models.StatusAcknowledged {
		t.Errorf("status = %s, want acknowledged", e.Status)
	}
	if e.AcknowledgedBy != "nurse-kim" || e.AckNotes != "heading over" {
		t.Errorf("ack fields = %q/%q", e.AcknowledgedBy, e.AckNotes)
	}
	if e.AcknowledgedAt == nil || !e.AcknowledgedAt.Equal(ackAt) {
		t.Errorf("acknowledged_at = %v, want %v", e.AcknowledgedAt, ackAt)
	}

	e, err = engine.BeginWork(ctx, id)
	if err != nil {
		t.Fatalf("begin work: %v", err)
	}
	if e.Status != models.StatusInProgress {
		t.Errorf("status = %s, want in_progress", e.Status)
	}

	resolveAt := now.Add(time.Hour)
	e, err = engine.ResolveAt(ctx, id, "dr-lee", "vitals stabilized", true, resolveAt)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if e.Status != models.StatusResolved {
		t.Errorf("status = %s, want resolved", e.Status)
	}
	if e.ResolvedBy != "dr-lee" || e.ResolutionNotes != "vitals stabilized" || !e.FollowUpRequired {
		t.Error("resolution fields not recorded")
	}

	// The stored record reflects the full trail.
	got, err := engine.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusResolved || got.AcknowledgedBy != "nurse-kim" {
		t.Error("stored escalation lost transition history")
	}
}

func TestEngine_InvalidTransitions(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	result := engine.CheckTriggersAt(ctx, []*Assessment{urgentAssessment("p1")}, now)
	id := result.Created[0].ID

	// pending -> in_progress skips acknowledgment.
	var invalid *InvalidTransitionError
	if _, err := engine.BeginWork(ctx, id); !errors.As(err, &invalid) {
		t.Fatalf("begin from pending error = %v, want InvalidTransitionError", err)
	}

	if _, err := engine.ResolveAt(ctx, id, "dr-lee", "", false, now.Add(time.Hour)); err != nil {
		t.Fatalf("resolve from pending: %v", err)
	}

	// Resolved is terminal.
	if _, err := engine.AcknowledgeAt(ctx, id, "nurse-kim", "", now.Add(2*time.Hour)); !errors.As(err, &invalid) {
		t.Fatalf("acknowledge after resolve error = %v, want InvalidTransitionError", err)
	}
	if _, err := engine.ResolveAt(ctx, id, "dr-lee", "", false, now.Add(2*time.Hour)); !errors.As(err, &invalid) {
		t.Fatalf("double resolve error = %v, want InvalidTransitionError", err)
	}
}

func TestEngine_NotFound(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()

	var notFound *NotFoundError
	if _, err := engine.Get(ctx, "no-such-id"); !errors.As(err, &notFound) {
		t.Errorf("get error = %v, want NotFoundError", err)
	}
	if _, err := engine.Acknowledge(ctx, "no-such-id", "nurse-kim", ""); !errors.As(err, &notFound) {
		t.Errorf("acknowledge error = %v, want NotFoundError", err)
	}
}

func TestEngine_ListActiveOverdue(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// deterioration_high only: urgent, 2h SLA.
	a := &Assessment{
		Snapshot:  snapshot("p1", map[models.ComponentName]float64{models.ComponentVitalsInstability: 0.5}),
		Composite: &models.CompositeScore{SubjectID: "p1", Value: 75},
	}
	result := engine.CheckTriggersAt(ctx, []*Assessment{a}, now)
	if len(result.Created) != 1 {
		t.Fatalf("created = %d, want 1", len(result.Created))
	}

	within, err := engine.ListActiveAt(ctx, "", now.Add(119*time.Minute))
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(within) != 1 || within[0].Overdue {
		t.Error("escalation inside the SLA must not be overdue")
	}

	past, err := engine.ListActiveAt(ctx, "", now.Add(121*time.Minute))
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(past) != 1 || !past[0].Overdue {
		t.Error("escalation past the SLA must be overdue")
	}

	// Level filter.
	none, err := engine.ListActiveAt(ctx, models.LevelEmergency, now)
	if err != nil {
		t.Fatalf("list active by level: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("emergency-level count = %d, want 0", len(none))
	}
}

func TestEngine_DashboardSummary(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	result := engine.CheckTriggersAt(ctx, []*Assessment{
		urgentAssessment("p1"),
		urgentAssessment("p2"),
	}, now)
	if len(result.Created) != 4 {
		t.Fatalf("created = %d, want 4", len(result.Created))
	}
	if _, err := engine.AcknowledgeAt(ctx, result.Created[0].ID, "nurse-kim", "", now.Add(time.Minute)); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	d, err := engine.DashboardSummaryAt(ctx, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	if d.TotalActive != 4 {
		t.Errorf("total active = %d, want 4", d.TotalActive)
	}
	if d.ByStatus[models.StatusPending] != 3 || d.ByStatus[models.StatusAcknowledged] != 1 {
		t.Errorf("by_status = %v", d.ByStatus)
	}
	if d.ByUrgency[models.UrgencyImmediate] != 2 || d.ByUrgency[models.UrgencyUrgent] != 2 {
		t.Errorf("by_urgency = %v", d.ByUrgency)
	}
	// 30 minutes in, the two immediate escalations (15m SLA) are overdue.
	if d.Overdue != 2 {
		t.Errorf("overdue = %d, want 2", d.Overdue)
	}

	if len(d.Trend) != 7 {
		t.Fatalf("trend length = %d, want 7 days", len(d.Trend))
	}
	last := d.Trend[len(d.Trend)-1]
	if last.Day != "2026-03-10" || last.Count != 4 {
		t.Errorf("trend[last] = %+v, want 2026-03-10 x4", last)
	}
	for _, day := range d.Trend[:len(d.Trend)-1] {
		if day.Count != 0 {
			t.Errorf("day %s count = %d, want zero-filled", day.Day, day.Count)
		}
	}
}

func TestEngine_GenerateReport(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	result := engine.CheckTriggersAt(ctx, []*Assessment{urgentAssessment("p1")}, now)
	if len(result.Created) != 2 {
		t.Fatalf("created = %d, want 2", len(result.Created))
	}

	// Resolve one of the two, four hours after creation.
	var urgentID string
	for _, e := range result.Created {
		if e.TriggerRule == "deterioration_high" {
			urgentID = e.ID
		}
	}
	if _, err := engine.ResolveAt(ctx, urgentID, "dr-lee", "stabilized", false, now.Add(4*time.Hour)); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	report, err := engine.GenerateReport(ctx, "", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	if report.Total != 2 || report.Resolved != 1 || report.Active != 1 {
		t.Errorf("totals = %d/%d/%d, want 2/1/1", report.Total, report.Resolved, report.Active)
	}
	if report.ResolutionRate != 0.5 {
		t.Errorf("resolution rate = %v, want 0.5", report.ResolutionRate)
	}
	if report.AvgResolutionHours != 4 {
		t.Errorf("avg resolution hours = %v, want 4", report.AvgResolutionHours)
	}
	if report.ByTriggerRule["vitals_critical"] != 1 || report.ByTriggerRule["deterioration_high"] != 1 {
		t.Errorf("by_trigger_rule = %v", report.ByTriggerRule)
	}

	// Scoped to an unknown subject the report is empty.
	empty, err := engine.GenerateReport(ctx, "p2", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if empty.Total != 0 || empty.ResolutionRate != 0 {
		t.Errorf("empty report totals = %d, rate = %v", empty.Total, empty.ResolutionRate)
	}
}

func TestEngine_SetConfig(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// Drop every rule except a single strict composite trigger.
	engine.SetConfig(risk.EscalationConfig{
		SLA:       risk.SLAConfig{Immediate: 15 * time.Minute, Urgent: 2 * time.Hour, Routine: 24 * time.Hour},
		TrendDays: 7,
		Triggers: []risk.TriggerRule{
			{
				Name: "only_rule", Kind: risk.TriggerComposite, MinScore: 99,
				Level: models.LevelEmergency, Urgency: models.UrgencyImmediate,
				Title: "Extreme Risk", Action: "Emergency response",
			},
		},
	})

	result := engine.CheckTriggersAt(ctx, []*Assessment{urgentAssessment("p1")}, now)
	if len(result.Created) != 0 {
		t.Errorf("created = %d, want 0 under the replaced rule set", len(result.Created))
	}
}
