// Package risk computes composite risk scores from signal snapshots and
// classifies them into severity levels. Aggregation and classification are
// pure functions: all state lives in the validated weight and threshold
// tables built at startup.
package risk

import (
	"math"
	"sort"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// weightSumTolerance is the allowed deviation of a weight table from 1.0.
const weightSumTolerance = 1e-6

// Aggregator computes a composite score as the weighted sum of snapshot
// components, clipped to [0, Scale].
type Aggregator struct {
	weights    map[models.ComponentName]float64
	scale      float64
	thresholds Thresholds
}

// NewAggregator validates the weight table and builds an aggregator.
// Weights must sum to 1.0 within tolerance. Scale is the upper bound of the
// composite value (1 for SEWI, 100 for deterioration risk).
func NewAggregator(weights map[models.ComponentName]float64, scale float64, thresholds Thresholds) (*Aggregator, error) {
	if len(weights) == 0 {
		return nil, &ConfigError{Reason: "no weights configured"}
	}
	var sum float64
	for name, w := range weights {
		if _, err := models.ParseComponentName(string(name)); err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
		if w < 0 {
			return nil, &ConfigError{Reason: "negative weight for " + string(name)}
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return nil, &ConfigError{Reason: "weights must sum to 1.0"}
	}
	if scale <= 0 {
		return nil, &ConfigError{Reason: "scale must be positive"}
	}
	if err := thresholds.Validate(scale); err != nil {
		return nil, err
	}

	// Copy to keep the aggregator immutable after construction.
	ws := make(map[models.ComponentName]float64, len(weights))
	for name, w := range weights {
		ws[name] = w
	}
	return &Aggregator{weights: ws, scale: scale, thresholds: thresholds}, nil
}

// Components returns the component names this aggregator consumes.
func (a *Aggregator) Components() []models.ComponentName {
	names := make([]models.ComponentName, 0, len(a.weights))
	for name := range a.weights {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Scale returns the upper bound of the composite value.
func (a *Aggregator) Scale() float64 {
	return a.scale
}

// Compute aggregates a snapshot into a composite score. Every weighted
// component must be present in the snapshot; otherwise a MissingSignalError
// names the absent component and no score is produced. Components with zero
// contribution still appear in the driver list so explanations stay complete.
func (a *Aggregator) Compute(snapshot *models.SignalSnapshot) (*models.CompositeScore, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	drivers := make([]models.Driver, 0, len(a.weights))
	var raw float64
	for name, weight := range a.weights {
		value, ok := snapshot.Component(name)
		if !ok {
			return nil, &MissingSignalError{Component: name}
		}
		contribution := weight * value * a.scale
		raw += contribution
		drivers = append(drivers, models.Driver{
			Component:    name,
			Contribution: contribution,
		})
	}

	// Inputs may overshoot [0,1] from upstream rounding; the composite
	// stays bounded.
	value := clip(raw, 0, a.scale)

	sort.Slice(drivers, func(i, j int) bool {
		if drivers[i].Contribution != drivers[j].Contribution {
			return drivers[i].Contribution > drivers[j].Contribution
		}
		return drivers[i].Component < drivers[j].Component
	})

	if raw > 0 {
		for i := range drivers {
			drivers[i].ContributionPct = drivers[i].Contribution / raw * 100
		}
	}

	return &models.CompositeScore{
		SubjectID: snapshot.SubjectID,
		Value:     value,
		Level:     a.thresholds.Classify(value),
		Drivers:   drivers,
	}, nil
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DefaultSEWIWeights is the Surge Early-Warning Index weight table.
func DefaultSEWIWeights() map[models.ComponentName]float64 {
	return map[models.ComponentName]float64{
		models.ComponentERSurge:     0.40,
		models.ComponentICUPeak:     0.35,
		models.ComponentStaffStress: 0.25,
	}
}

// DefaultDeteriorationWeights is the default patient deterioration weight
// table, tunable per deployment.
func DefaultDeteriorationWeights() map[models.ComponentName]float64 {
	return map[models.ComponentName]float64{
		models.ComponentVitalsInstability: 0.35,
		models.ComponentChronicConditions: 0.25,
		models.ComponentAdherenceGap:      0.20,
		models.ComponentAgeFactor:         0.10,
		models.ComponentNoShowRisk:        0.10,
	}
}
