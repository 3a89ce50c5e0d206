// Package models defines domain models for PulseWatch.
package models

import (
	"fmt"
	"time"
)

// ComponentName identifies one risk signal component. The set is closed:
// unrecognized names fail validation instead of being coerced.
type ComponentName string

const (
	ComponentERSurge            ComponentName = "er_surge"
	ComponentICUPeak            ComponentName = "icu_peak"
	ComponentStaffStress        ComponentName = "staff_stress"
	ComponentVitalsInstability  ComponentName = "vitals_instability"
	ComponentAdherenceGap       ComponentName = "adherence_gap"
	ComponentNoShowRisk         ComponentName = "no_show_risk"
	ComponentChronicConditions  ComponentName = "chronic_condition_load"
	ComponentAgeFactor          ComponentName = "age_factor"
)

// componentNames is the closed set of valid component names.
var componentNames = map[ComponentName]bool{
	ComponentERSurge:           true,
	ComponentICUPeak:           true,
	ComponentStaffStress:       true,
	ComponentVitalsInstability: true,
	ComponentAdherenceGap:      true,
	ComponentNoShowRisk:        true,
	ComponentChronicConditions: true,
	ComponentAgeFactor:         true,
}

// ParseComponentName validates a string against the closed component set.
func ParseComponentName(s string) (ComponentName, error) {
	name := ComponentName(s)
	if !componentNames[name] {
		return "", fmt.Errorf("unknown component %q", s)
	}
	return name, nil
}

// SignalSnapshot is a point-in-time bundle of component sub-scores for one
// subject (patient) or for the facility as a whole (empty SubjectID).
// Snapshots are created once per evaluation cycle and never mutated; a newer
// snapshot for the same subject supersedes the older one.
type SignalSnapshot struct {
	SubjectID  string                    `json:"subject_id,omitempty"`
	Timestamp  time.Time                 `json:"timestamp"`
	Components map[ComponentName]float64 `json:"components"`
}

// Component returns the value for a component and whether it is present.
func (s *SignalSnapshot) Component(name ComponentName) (float64, bool) {
	v, ok := s.Components[name]
	return v, ok
}

// Validate checks that every component name belongs to the closed set.
// Values outside [0,1] are tolerated here: upstream forecast rounding may
// overshoot slightly, and aggregation clips the composite.
func (s *SignalSnapshot) Validate() error {
	for name := range s.Components {
		if !componentNames[name] {
			return fmt.Errorf("unknown component %q", name)
		}
	}
	return nil
}
