package escalations

import (
	"fmt"
	"math"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/escalation"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/risk"
)

// CheckTriggersRequest is a batch of per-subject assessments.
type CheckTriggersRequest struct {
	Assessments []AssessmentRequest `json:"assessments"`
}

// AssessmentRequest is one subject's snapshot, with the previous cycle's
// composite score when the caller has one (enables the rapid-increase rule).
type AssessmentRequest struct {
	SubjectID     string             `json:"subject_id"`
	Components    map[string]float64 `json:"components"`
	PreviousScore *float64           `json:"previous_score,omitempty"`
}

// AcknowledgeRequest is the acknowledge transition body.
type AcknowledgeRequest struct {
	AcknowledgedBy string `json:"acknowledged_by"`
	Notes          string `json:"notes,omitempty"`
}

// ResolveRequest is the resolve transition body.
type ResolveRequest struct {
	ResolvedBy       string `json:"resolved_by"`
	ResolutionNotes  string `json:"resolution_notes,omitempty"`
	FollowUpRequired bool   `json:"follow_up_required,omitempty"`
}

// ActiveListResponse is the active escalation list with SLA annotations.
type ActiveListResponse struct {
	Items []*escalation.ActiveEscalation `json:"items"`
	Total int                            `json:"total"`
}

// SubjectListResponse is one subject's escalation history.
type SubjectListResponse struct {
	Items []*models.Escalation `json:"items"`
	Total int                  `json:"total"`
}

// buildAssessment validates one assessment request and computes its
// deterioration composite. Component trigger rules still apply if the
// composite cannot be computed from a partial snapshot, so a missing
// component only disables the composite rules.
func buildAssessment(req *AssessmentRequest, deterioration *risk.Aggregator, now time.Time) (*escalation.Assessment, error) {
	if req.SubjectID == "" {
		return nil, fmt.Errorf("subject_id is required")
	}
	if len(req.Components) == 0 {
		return nil, fmt.Errorf("components are required")
	}

	components := make(map[models.ComponentName]float64, len(req.Components))
	for name, value := range req.Components {
		parsed, err := models.ParseComponentName(name)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("component %q: value must be a finite number", name)
		}
		components[parsed] = value
	}

	snapshot := &models.SignalSnapshot{
		SubjectID:  req.SubjectID,
		Timestamp:  now,
		Components: components,
	}

	a := &escalation.Assessment{Snapshot: snapshot}

	composite, err := deterioration.Compute(snapshot)
	if err == nil {
		a.Composite = composite
	} else if _, ok := err.(*risk.MissingSignalError); !ok {
		return nil, err
	}

	if req.PreviousScore != nil {
		a.Previous = &models.CompositeScore{
			SubjectID: req.SubjectID,
			Value:     *req.PreviousScore,
		}
	}

	return a, nil
}

// parseReportRange parses optional RFC 3339 bounds, defaulting to the
// trailing 30 days.
func parseReportRange(fromRaw, toRaw string, now time.Time) (time.Time, time.Time, error) {
	to := now
	if toRaw != "" {
		parsed, err := time.Parse(time.RFC3339, toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to timestamp: %v", err)
		}
		to = parsed
	}

	from := to.Add(-defaultReportRange)
	if fromRaw != "" {
		parsed, err := time.Parse(time.RFC3339, fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from timestamp: %v", err)
		}
		from = parsed
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from must be before to")
	}
	return from, to, nil
}
