package models

import "time"

// EscalationLevel identifies the responder an escalation is routed to.
type EscalationLevel string

const (
	LevelNurse      EscalationLevel = "nurse"
	LevelPhysician  EscalationLevel = "physician"
	LevelSpecialist EscalationLevel = "specialist"
	LevelEmergency  EscalationLevel = "emergency"
)

// ParseEscalationLevel converts a string to EscalationLevel.
func ParseEscalationLevel(s string) (EscalationLevel, bool) {
	switch l := EscalationLevel(s); l {
	case LevelNurse, LevelPhysician, LevelSpecialist, LevelEmergency:
		return l, true
	}
	return "", false
}

// Urgency represents how quickly an escalation must be handled.
type Urgency string

const (
	UrgencyRoutine   Urgency = "routine"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyImmediate Urgency = "immediate"
)

// urgencyRank orders urgencies for dashboard sorting (immediate first).
var urgencyRank = map[Urgency]int{
	UrgencyImmediate: 0,
	UrgencyUrgent:    1,
	UrgencyRoutine:   2,
}

// Rank returns the sort position of the urgency (immediate=0, routine=2).
func (u Urgency) Rank() int {
	if r, ok := urgencyRank[u]; ok {
		return r
	}
	return 3
}

// ParseUrgency converts a string to Urgency.
func ParseUrgency(s string) (Urgency, bool) {
	switch u := Urgency(s); u {
	case UrgencyRoutine, UrgencyUrgent, UrgencyImmediate:
		return u, true
	}
	return "", false
}

// EscalationStatus is the lifecycle state of an escalation.
type EscalationStatus string

const (
	StatusPending      EscalationStatus = "pending"
	StatusAcknowledged EscalationStatus = "acknowledged"
	StatusInProgress   EscalationStatus = "in_progress"
	StatusResolved     EscalationStatus = "resolved"
)

// ParseEscalationStatus converts a string to EscalationStatus.
func ParseEscalationStatus(s string) (EscalationStatus, bool) {
	switch st := EscalationStatus(s); st {
	case StatusPending, StatusAcknowledged, StatusInProgress, StatusResolved:
		return st, true
	}
	return "", false
}

// allowedTransitions encodes the escalation state machine:
// pending -> acknowledged -> in_progress -> resolved, where in_progress is
// optional and resolve is reachable from every non-terminal state. Nothing
// leaves resolved.
var allowedTransitions = map[EscalationStatus]map[EscalationStatus]bool{
	StatusPending: {
		StatusAcknowledged: true,
		StatusResolved:     true,
	},
	StatusAcknowledged: {
		StatusInProgress: true,
		StatusResolved:   true,
	},
	StatusInProgress: {
		StatusResolved: true,
	},
	StatusResolved: {},
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to EscalationStatus) bool {
	return allowedTransitions[from][to]
}

// Escalation is the sole durable, versioned entity in the engine. It records
// an in-progress human response to a detected risk condition and carries an
// append-only audit trail: escalations are resolved, never deleted.
type Escalation struct {
	ID          string           `json:"escalation_id"`
	SubjectID   string           `json:"subject_id"`
	TriggerRule string           `json:"trigger_rule"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Level       EscalationLevel  `json:"escalation_level"`
	Urgency     Urgency          `json:"urgency"`
	Status      EscalationStatus `json:"status"`

	RecommendedAction string `json:"recommended_action"`
	Reason            string `json:"reason"`

	CreatedAt        time.Time  `json:"created_at"`
	AcknowledgedAt   *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy   string     `json:"acknowledged_by,omitempty"`
	AckNotes         string     `json:"acknowledgment_notes,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy       string     `json:"resolved_by,omitempty"`
	ResolutionNotes  string     `json:"resolution_notes,omitempty"`
	FollowUpRequired bool       `json:"follow_up_required"`

	// Version supports optimistic concurrency control on transitions.
	Version int64 `json:"-"`
}

// Active reports whether the escalation is in a non-terminal state.
func (e *Escalation) Active() bool {
	return e.Status != StatusResolved
}

// Overdue reports whether an unresolved escalation has exceeded the given
// SLA for its urgency.
func (e *Escalation) Overdue(now time.Time, sla time.Duration) bool {
	if e.Status == StatusResolved {
		return false
	}
	return now.Sub(e.CreatedAt) > sla
}
