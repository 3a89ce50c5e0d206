package escalation

import (
	"fmt"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// NotFoundError reports an unknown escalation id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("escalation %s not found", e.ID)
}

// InvalidTransitionError reports a state-machine violation. Transitions are
// never auto-corrected: the audit trail outranks convenience.
type InvalidTransitionError struct {
	ID   string
	From models.EscalationStatus
	To   models.EscalationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("escalation %s: invalid transition %s -> %s", e.ID, e.From, e.To)
}
