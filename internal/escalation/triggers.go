package escalation

import (
	"fmt"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/risk"
)

// Assessment is one subject's input to trigger evaluation: the snapshot, the
// composite deterioration score derived from it, and optionally the previous
// composite for rapid-increase detection.
type Assessment struct {
	Snapshot  *models.SignalSnapshot
	Composite *models.CompositeScore
	// Previous is the prior cycle's composite, nil on the first assessment.
	Previous *models.CompositeScore
}

// firing is a trigger rule that matched an assessment, with the reason text.
type firing struct {
	rule   *risk.TriggerRule
	reason string
}

// evaluateTriggers returns the rules fired by an assessment. Evaluation is
// pure; deduplication against existing escalations happens at creation.
func evaluateTriggers(rules []risk.TriggerRule, a *Assessment) ([]firing, error) {
	if a.Snapshot == nil {
		return nil, fmt.Errorf("assessment has no snapshot")
	}
	if err := a.Snapshot.Validate(); err != nil {
		return nil, err
	}

	var fired []firing
	for i := range rules {
		rule := &rules[i]
		reason, ok := matchRule(rule, a)
		if !ok {
			continue
		}
		fired = append(fired, firing{rule: rule, reason: reason})
	}
	return fired, nil
}

func matchRule(rule *risk.TriggerRule, a *Assessment) (string, bool) {
	switch rule.Kind {
	case risk.TriggerComposite:
		if a.Composite == nil || a.Composite.Value < rule.MinScore {
			return "", false
		}
		return fmt.Sprintf("composite risk score %.1f at or above %.1f", a.Composite.Value, rule.MinScore), true

	case risk.TriggerComponent:
		value, ok := a.Snapshot.Component(rule.Component)
		if !ok || value < rule.MinValue {
			return "", false
		}
		return fmt.Sprintf("%s at %.2f, threshold %.2f", rule.Component, value, rule.MinValue), true

	case risk.TriggerMultiComponent:
		var over []models.ComponentName
		for name, value := range a.Snapshot.Components {
			if value >= rule.ComponentFloor {
				over = append(over, name)
			}
		}
		if len(over) < rule.MinCount {
			return "", false
		}
		return fmt.Sprintf("%d components at or above %.2f", len(over), rule.ComponentFloor), true

	case risk.TriggerRapidIncrease:
		if a.Composite == nil || a.Previous == nil {
			return "", false
		}
		increase := a.Composite.Value - a.Previous.Value
		if increase < rule.MinIncrease {
			return "", false
		}
		return fmt.Sprintf("risk score rose %.1f points since previous assessment", increase), true
	}
	return "", false
}
