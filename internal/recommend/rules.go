// Package recommend maps composite risk scores to ordered, rule-based
// recommended actions. The mapping is a data table, not code: every emitted
// recommendation traces back to a named driver or to the composite level
// itself, so no action appears without an interpretable cause.
package recommend

import (
	"fmt"
	"sort"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// driverRule maps one component at or above a level to a canned action.
type driverRule struct {
	Component models.ComponentName
	MinLevel  models.RiskLevel
	Action    string
	Priority  models.Priority
}

// levelRule maps the composite level itself to a canned action.
type levelRule struct {
	MinLevel models.RiskLevel
	MaxLevel models.RiskLevel
	Action   string
	Priority models.Priority
}

// levelRules are the composite-level actions, independent of which driver
// dominates.
var levelRules = []levelRule{
	{MinLevel: models.RiskMedium, MaxLevel: models.RiskMedium, Action: "Schedule follow-up review within 48 hours", Priority: models.PriorityMedium},
	{MinLevel: models.RiskMedium, MaxLevel: models.RiskMedium, Action: "Increase monitoring frequency", Priority: models.PriorityMedium},
	{MinLevel: models.RiskHigh, MaxLevel: models.RiskCritical, Action: "Immediate clinical review required", Priority: models.PriorityHigh},
	{MinLevel: models.RiskHigh, MaxLevel: models.RiskCritical, Action: "Implement intensive case management", Priority: models.PriorityHigh},
}

// driverRules are the per-driver actions.
var driverRules = []driverRule{
	{Component: models.ComponentERSurge, MinLevel: models.RiskMedium, Action: "Pre-position extra triage staff for evening and night shifts", Priority: models.PriorityMedium},
	{Component: models.ComponentERSurge, MinLevel: models.RiskHigh, Action: "Activate surge plan: add triage nurses and open overflow bays", Priority: models.PriorityHigh},
	{Component: models.ComponentICUPeak, MinLevel: models.RiskMedium, Action: "Audit ICU bed turnover and prepare rapid discharge protocols", Priority: models.PriorityMedium},
	{Component: models.ComponentICUPeak, MinLevel: models.RiskHigh, Action: "Prep contingency ICU beds and equipment", Priority: models.PriorityHigh},
	{Component: models.ComponentStaffStress, MinLevel: models.RiskMedium, Action: "Stagger night shifts with one additional staff member", Priority: models.PriorityMedium},
	{Component: models.ComponentStaffStress, MinLevel: models.RiskHigh, Action: "Reallocate staff to overloaded shifts immediately", Priority: models.PriorityHigh},
	{Component: models.ComponentVitalsInstability, MinLevel: models.RiskMedium, Action: "Review and adjust medications against vitals trends", Priority: models.PriorityMedium},
	{Component: models.ComponentVitalsInstability, MinLevel: models.RiskHigh, Action: "Address vital signs abnormalities immediately", Priority: models.PriorityHigh},
	{Component: models.ComponentChronicConditions, MinLevel: models.RiskMedium, Action: "Optimize chronic disease management plan", Priority: models.PriorityMedium},
	{Component: models.ComponentChronicConditions, MinLevel: models.RiskHigh, Action: "Arrange specialist consultation for chronic condition load", Priority: models.PriorityHigh},
	{Component: models.ComponentAdherenceGap, MinLevel: models.RiskMedium, Action: "Implement adherence improvement strategies", Priority: models.PriorityMedium},
	{Component: models.ComponentAdherenceGap, MinLevel: models.RiskHigh, Action: "Assign case manager to address barriers to care", Priority: models.PriorityHigh},
	{Component: models.ComponentNoShowRisk, MinLevel: models.RiskMedium, Action: "Enable appointment reminders and confirm attendance", Priority: models.PriorityLow},
	{Component: models.ComponentNoShowRisk, MinLevel: models.RiskHigh, Action: "Offer telehealth alternative and direct outreach", Priority: models.PriorityMedium},
	{Component: models.ComponentAgeFactor, MinLevel: models.RiskHigh, Action: "Schedule geriatric or pediatric specialist review", Priority: models.PriorityMedium},
}

// Recommend produces the ordered action list for a composite score.
// Nothing is emitted for Low composites. Ordering is by priority (high
// first), then by the driver's contribution rank; composite-level actions
// sort ahead of driver actions within the same priority.
func Recommend(score *models.CompositeScore) []models.Recommendation {
	if !score.Level.AtLeast(models.RiskMedium) {
		return nil
	}

	type ranked struct {
		rec  models.Recommendation
		rank int
	}
	var out []ranked

	for _, rule := range levelRules {
		if score.Level.AtLeast(rule.MinLevel) && rule.MaxLevel.AtLeast(score.Level) {
			out = append(out, ranked{
				rec: models.Recommendation{
					Action:    rule.Action,
					Priority:  rule.Priority,
					Rationale: fmt.Sprintf("composite risk level is %s (score %.2f)", score.Level, score.Value),
				},
				rank: -1,
			})
		}
	}

	for _, rule := range driverRules {
		if !score.Level.AtLeast(rule.MinLevel) {
			continue
		}
		rank := score.DriverRank(rule.Component)
		if rank >= len(score.Drivers) {
			continue
		}
		driver := score.Drivers[rank]
		if driver.Contribution <= 0 {
			continue
		}
		out = append(out, ranked{
			rec: models.Recommendation{
				Action:   rule.Action,
				Priority: rule.Priority,
				Rationale: fmt.Sprintf("driven by %s (contribution %.1f%% of composite score)",
					driver.Component, driver.ContributionPct),
			},
			rank: rank,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].rec.Priority.Rank() != out[j].rec.Priority.Rank() {
			return out[i].rec.Priority.Rank() < out[j].rec.Priority.Rank()
		}
		return out[i].rank < out[j].rank
	})

	recs := make([]models.Recommendation, len(out))
	for i, r := range out {
		recs[i] = r.rec
	}
	return recs
}
