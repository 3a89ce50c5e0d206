package models

// RiskLevel represents a classified composite risk level.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// riskLevelRank orders risk levels for comparison.
var riskLevelRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Rank returns the ordinal position of the level (low=0 .. critical=3).
func (l RiskLevel) Rank() int {
	return riskLevelRank[l]
}

// AtLeast reports whether l is at or above other in severity.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return riskLevelRank[l] >= riskLevelRank[other]
}

// ParseRiskLevel converts a string to RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	level := RiskLevel(s)
	_, ok := riskLevelRank[level]
	return level, ok
}

// Driver is one component's share of a composite score, used for
// explanation and ranking.
type Driver struct {
	Component       ComponentName `json:"component"`
	Contribution    float64       `json:"contribution"`
	ContributionPct float64       `json:"contribution_pct"`
}

// CompositeScore is the weighted aggregation of a snapshot's components.
// It is a pure projection of a SignalSnapshot plus a weight table and is
// never persisted.
type CompositeScore struct {
	SubjectID string    `json:"subject_id,omitempty"`
	Value     float64   `json:"value"`
	Level     RiskLevel `json:"level"`
	// Drivers are sorted by contribution descending, ties broken by
	// component name for deterministic output.
	Drivers []Driver `json:"drivers"`
}

// TopDriver returns the largest contributor, or "" if there are no drivers.
func (c *CompositeScore) TopDriver() ComponentName {
	if len(c.Drivers) == 0 {
		return ""
	}
	return c.Drivers[0].Component
}

// DriverRank returns the position of a component in the driver ordering,
// or len(Drivers) if the component is not present.
func (c *CompositeScore) DriverRank(name ComponentName) int {
	for i, d := range c.Drivers {
		if d.Component == name {
			return i
		}
	}
	return len(c.Drivers)
}
