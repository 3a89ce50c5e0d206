// Package escalation implements the stateful escalation workflow: trigger
// evaluation, idempotent creation, the acknowledge/resolve lifecycle, SLA
// overdue detection, and dashboard aggregation.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/pulsewatch/internal/metrics"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/risk"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

// maxConcurrentSubjects bounds parallel trigger evaluation in a batch.
const maxConcurrentSubjects = 8

// lockStripes sizes the striped lock table used to serialize transitions on
// the same escalation id.
const lockStripes = 64

// Notifier delivers a notification for a newly created escalation. Delivery
// is best-effort: a failed notification never fails the escalation.
type Notifier interface {
	Notify(ctx context.Context, e *models.Escalation)
}

// SubjectError records one subject's evaluation failure. A bad snapshot in a
// batch never blocks the other subjects.
type SubjectError struct {
	SubjectID string `json:"subject_id"`
	Err       string `json:"error"`
}

// CheckResult is the outcome of one trigger evaluation batch.
type CheckResult struct {
	Created []*models.Escalation `json:"created"`
	Deduped int                  `json:"deduped"`
	Errors  []SubjectError       `json:"errors,omitempty"`
}

// Engine coordinates escalation creation and lifecycle transitions against
// the repository. Config is swappable at runtime for hot reload.
type Engine struct {
	repo     storage.EscalationRepository
	notifier Notifier

	cfgMu sync.RWMutex
	cfg   risk.EscalationConfig

	locks [lockStripes]sync.Mutex
}

// NewEngine creates an escalation engine. notifier may be nil.
func NewEngine(repo storage.EscalationRepository, cfg risk.EscalationConfig, notifier Notifier) *Engine {
	return &Engine{
		repo:     repo,
		cfg:      cfg,
		notifier: notifier,
	}
}

// SetConfig replaces the engine configuration. In-flight batches finish with
// the config they started with.
func (g *Engine) SetConfig(cfg risk.EscalationConfig) {
	g.cfgMu.Lock()
	g.cfg = cfg
	g.cfgMu.Unlock()
}

func (g *Engine) config() risk.EscalationConfig {
	g.cfgMu.RLock()
	defer g.cfgMu.RUnlock()
	return g.cfg
}

func (g *Engine) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &g.locks[h.Sum32()%lockStripes]
}

// CheckTriggers evaluates every assessment against the trigger rules and
// creates escalations for the rules that fire, deduplicating against
// unresolved escalations for the same (subject, trigger).
func (g *Engine) CheckTriggers(ctx context.Context, assessments []*Assessment) *CheckResult {
	return g.CheckTriggersAt(ctx, assessments, time.Now().UTC())
}

// CheckTriggersAt is CheckTriggers with an injectable clock.
func (g *Engine) CheckTriggersAt(ctx context.Context, assessments []*Assessment, now time.Time) *CheckResult {
	cfg := g.config()

	var (
		mu     sync.Mutex
		result CheckResult
	)
	result.Created = []*models.Escalation{}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentSubjects)

	for _, a := range assessments {
		a := a
		eg.Go(func() error {
			created, deduped, err := g.checkSubject(ctx, cfg.Triggers, a, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				subjectID := ""
				if a.Snapshot != nil {
					subjectID = a.Snapshot.SubjectID
				}
				result.Errors = append(result.Errors, SubjectError{SubjectID: subjectID, Err: err.Error()})
				metrics.EscalationSubjectErrorsTotal.Inc()
				log.Printf("Trigger evaluation failed for subject %s: %v", subjectID, err)
				return nil
			}
			result.Created = append(result.Created, created...)
			result.Deduped += deduped
			return nil
		})
	}
	eg.Wait()

	sort.Slice(result.Created, func(i, j int) bool {
		a, b := result.Created[i], result.Created[j]
		if a.Urgency.Rank() != b.Urgency.Rank() {
			return a.Urgency.Rank() < b.Urgency.Rank()
		}
		if a.SubjectID != b.SubjectID {
			return a.SubjectID < b.SubjectID
		}
		return a.TriggerRule < b.TriggerRule
	})
	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].SubjectID < result.Errors[j].SubjectID
	})
	return &result
}

func (g *Engine) checkSubject(ctx context.Context, rules []risk.TriggerRule, a *Assessment, now time.Time) ([]*models.Escalation, int, error) {
	fired, err := evaluateTriggers(rules, a)
	if err != nil {
		return nil, 0, err
	}

	var (
		created []*models.Escalation
		deduped int
	)
	for _, f := range fired {
		existing, err := g.repo.FindActiveByTrigger(ctx, a.Snapshot.SubjectID, f.rule.Name)
		if err != nil {
			return created, deduped, fmt.Errorf("dedup lookup for rule %s: %w", f.rule.Name, err)
		}
		if existing != nil {
			deduped++
			metrics.EscalationsDedupedTotal.Inc()
			continue
		}

		e := newEscalation(f, a.Snapshot.SubjectID, now)
		if err := g.repo.Create(ctx, e); err != nil {
			// A concurrent batch won the insert race. The unique index
			// makes this a dedup, not a failure.
			if errors.Is(err, storage.ErrDuplicateActive) {
				deduped++
				metrics.EscalationsDedupedTotal.Inc()
				continue
			}
			return created, deduped, fmt.Errorf("create escalation for rule %s: %w", f.rule.Name, err)
		}

		metrics.EscalationsCreatedTotal.WithLabelValues(
			e.TriggerRule, string(e.Level), string(e.Urgency),
		).Inc()
		log.Printf("Escalation created: subject=%s rule=%s level=%s urgency=%s",
			e.SubjectID, e.TriggerRule, e.Level, e.Urgency)

		if g.notifier != nil {
			g.notifier.Notify(ctx, e)
		}
		created = append(created, e)
	}
	return created, deduped, nil
}

func newEscalation(f firing, subjectID string, now time.Time) *models.Escalation {
	return &models.Escalation{
		ID:                uuid.New().String(),
		SubjectID:         subjectID,
		TriggerRule:       f.rule.Name,
		Title:             f.rule.Title,
		Message:           fmt.Sprintf("%s: %s", f.rule.Title, f.reason),
		Level:             f.rule.Level,
		Urgency:           f.rule.Urgency,
		Status:            models.StatusPending,
		RecommendedAction: f.rule.Action,
		Reason:            f.reason,
		CreatedAt:         now,
		Version:           1,
	}
}

// Get returns an escalation by id.
func (g *Engine) Get(ctx context.Context, id string) (*models.Escalation, error) {
	e, err := g.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &NotFoundError{ID: id}
	}
	return e, nil
}

// Acknowledge moves a pending escalation to acknowledged, recording who
// acknowledged it and when.
func (g *Engine) Acknowledge(ctx context.Context, id, by, notes string) (*models.Escalation, error) {
	return g.AcknowledgeAt(ctx, id, by, notes, time.Now().UTC())
}

// AcknowledgeAt is Acknowledge with an injectable clock.
func (g *Engine) AcknowledgeAt(ctx context.Context, id, by, notes string, now time.Time) (*models.Escalation, error) {
	return g.transition(ctx, id, models.StatusAcknowledged, func(e *models.Escalation) {
		t := now
		e.AcknowledgedAt = &t
		e.AcknowledgedBy = by
		e.AckNotes = notes
	})
}

// BeginWork moves an acknowledged escalation to in_progress.
func (g *Engine) BeginWork(ctx context.Context, id string) (*models.Escalation, error) {
	return g.transition(ctx, id, models.StatusInProgress, func(e *models.Escalation) {})
}

// Resolve closes an escalation from any non-terminal state, recording the
// resolution outcome. Resolved is terminal.
func (g *Engine) Resolve(ctx context.Context, id, by, notes string, followUp bool) (*models.Escalation, error) {
	return g.ResolveAt(ctx, id, by, notes, followUp, time.Now().UTC())
}

// ResolveAt is Resolve with an injectable clock.
func (g *Engine) ResolveAt(ctx context.Context, id, by, notes string, followUp bool, now time.Time) (*models.Escalation, error) {
	return g.transition(ctx, id, models.StatusResolved, func(e *models.Escalation) {
		t := now
		e.ResolvedAt = &t
		e.ResolvedBy = by
		e.ResolutionNotes = notes
		e.FollowUpRequired = followUp
	})
}

// transition applies a state change through the state machine. The record is
// mutated on a copy and persisted with a version check, so a rejected or
// conflicting transition leaves the stored record untouched.
func (g *Engine) transition(ctx context.Context, id string, to models.EscalationStatus, mutate func(*models.Escalation)) (*models.Escalation, error) {
	lock := g.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	e, err := g.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &NotFoundError{ID: id}
	}
	if !models.CanTransition(e.Status, to) {
		return nil, &InvalidTransitionError{ID: id, From: e.Status, To: to}
	}

	updated := *e
	updated.Status = to
	mutate(&updated)

	if err := g.repo.UpdateTransition(ctx, &updated); err != nil {
		return nil, err
	}
	metrics.EscalationTransitionsTotal.WithLabelValues(string(to)).Inc()
	log.Printf("Escalation %s: %s -> %s", id, e.Status, to)
	return &updated, nil
}

// ActiveEscalation is an unresolved escalation annotated with its SLA state.
type ActiveEscalation struct {
	*models.Escalation
	Overdue bool `json:"overdue"`
}

// ListActive returns unresolved escalations ordered by urgency then age,
// optionally filtered by escalation level, each annotated with overdue state
// against the configured SLAs.
func (g *Engine) ListActive(ctx context.Context, level models.EscalationLevel) ([]*ActiveEscalation, error) {
	return g.ListActiveAt(ctx, level, time.Now().UTC())
}

// ListActiveAt is ListActive with an injectable clock.
func (g *Engine) ListActiveAt(ctx context.Context, level models.EscalationLevel, now time.Time) ([]*ActiveEscalation, error) {
	cfg := g.config()
	escalations, err := g.repo.ListActive(ctx, level)
	if err != nil {
		return nil, err
	}
	annotated := make([]*ActiveEscalation, 0, len(escalations))
	for _, e := range escalations {
		annotated = append(annotated, &ActiveEscalation{
			Escalation: e,
			Overdue:    e.Overdue(now, cfg.SLA.For(e.Urgency)),
		})
	}
	return annotated, nil
}

// ListBySubject returns a subject's escalation history newest first,
// optionally filtered by status.
func (g *Engine) ListBySubject(ctx context.Context, subjectID string, status models.EscalationStatus) ([]*models.Escalation, error) {
	return g.repo.ListBySubject(ctx, subjectID, status)
}

// Dashboard is an operational summary of the escalation workload.
type Dashboard struct {
	TotalActive   int                              `json:"total_active"`
	Overdue       int                              `json:"overdue"`
	ByStatus      map[models.EscalationStatus]int  `json:"by_status"`
	ByLevel       map[models.EscalationLevel]int   `json:"by_level"`
	ByUrgency     map[models.Urgency]int           `json:"by_urgency"`
	Trend         []storage.DailyCount             `json:"trend"`
	AveragePerDay float64                          `json:"average_per_day"`
}

// DashboardSummary aggregates the active escalation set and the recent
// creation trend.
func (g *Engine) DashboardSummary(ctx context.Context) (*Dashboard, error) {
	return g.DashboardSummaryAt(ctx, time.Now().UTC())
}

// DashboardSummaryAt is DashboardSummary with an injectable clock. The trend
// covers the configured number of trailing days ending today, zero-filled for
// days with no escalations.
func (g *Engine) DashboardSummaryAt(ctx context.Context, now time.Time) (*Dashboard, error) {
	cfg := g.config()

	active, err := g.repo.ListActive(ctx, "")
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		TotalActive: len(active),
		ByStatus:    map[models.EscalationStatus]int{},
		ByLevel:     map[models.EscalationLevel]int{},
		ByUrgency:   map[models.Urgency]int{},
	}
	for _, e := range active {
		d.ByStatus[e.Status]++
		d.ByLevel[e.Level]++
		d.ByUrgency[e.Urgency]++
		if e.Overdue(now, cfg.SLA.For(e.Urgency)) {
			d.Overdue++
		}
	}

	days := cfg.TrendDays
	if days <= 0 {
		days = 1
	}
	today := now.Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(days - 1))
	to := today.AddDate(0, 0, 1)

	counts, err := g.repo.CountCreatedByDay(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]int, len(counts))
	total := 0
	for _, c := range counts {
		byDay[c.Day] = c.Count
		total += c.Count
	}

	d.Trend = make([]storage.DailyCount, 0, days)
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i).Format("2006-01-02")
		d.Trend = append(d.Trend, storage.DailyCount{Day: day, Count: byDay[day]})
	}
	d.AveragePerDay = float64(total) / float64(days)
	return d, nil
}

// Report summarizes escalation outcomes over a time window.
type Report struct {
	SubjectID string    `json:"subject_id,omitempty"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`

	Total    int `json:"total"`
	Resolved int `json:"resolved"`
	Active   int `json:"active"`

	ResolutionRate       float64        `json:"resolution_rate"`
	AvgResolutionHours   float64        `json:"avg_resolution_hours"`
	ByTriggerRule        map[string]int `json:"by_trigger_rule"`
}

// GenerateReport computes outcome statistics for escalations created in
// [from, to), optionally scoped to one subject.
func (g *Engine) GenerateReport(ctx context.Context, subjectID string, from, to time.Time) (*Report, error) {
	escalations, err := g.repo.ListBetween(ctx, subjectID, from, to)
	if err != nil {
		return nil, err
	}

	r := &Report{
		SubjectID:     subjectID,
		From:          from,
		To:            to,
		Total:         len(escalations),
		ByTriggerRule: map[string]int{},
	}

	var resolutionHours float64
	timedResolutions := 0
	for _, e := range escalations {
		r.ByTriggerRule[e.TriggerRule]++
		if e.Status == models.StatusResolved {
			r.Resolved++
			if e.ResolvedAt != nil {
				resolutionHours += e.ResolvedAt.Sub(e.CreatedAt).Hours()
				timedResolutions++
			}
		} else {
			r.Active++
		}
	}
	if r.Total > 0 {
		r.ResolutionRate = float64(r.Resolved) / float64(r.Total)
	}
	if timedResolutions > 0 {
		r.AvgResolutionHours = resolutionHours / float64(timedResolutions)
	}
	return r, nil
}
