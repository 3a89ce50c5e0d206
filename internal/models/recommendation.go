package models

// Priority represents the urgency of a recommended action.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// priorityRank orders priorities for sorting (high first).
var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Rank returns the sort position of the priority (high=0, low=2).
func (p Priority) Rank() int {
	return priorityRank[p]
}

// Recommendation is a canned action tied to a detected risk driver.
// Recommendations are stateless and regenerated every cycle; only the
// current set matters.
type Recommendation struct {
	Action    string   `json:"action"`
	Priority  Priority `json:"priority"`
	Rationale string   `json:"rationale"`
}
