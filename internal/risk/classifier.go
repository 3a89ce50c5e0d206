package risk

import (
	"fmt"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// Threshold is one band of a severity table: values at or above LowerBound
// (and below the next band's bound) classify as Level.
type Threshold struct {
	Level      models.RiskLevel `yaml:"level"`
	LowerBound float64          `yaml:"lower_bound"`
}

// Thresholds is an ascending severity table. Lower bounds are inclusive and
// upper bounds exclusive: a value exactly on a boundary takes the higher band.
type Thresholds []Threshold

// Validate checks that the table is non-empty, starts at zero, is strictly
// ascending, and stays within the scale.
func (t Thresholds) Validate(scale float64) error {
	if len(t) == 0 {
		return &InvalidThresholdError{Reason: "empty threshold table"}
	}
	if t[0].LowerBound != 0 {
		return &InvalidThresholdError{Reason: "first threshold must start at 0"}
	}
	for i, band := range t {
		if _, ok := models.ParseRiskLevel(string(band.Level)); !ok {
			return &InvalidThresholdError{Reason: fmt.Sprintf("unknown level %q", band.Level)}
		}
		if i > 0 {
			if band.LowerBound <= t[i-1].LowerBound {
				return &InvalidThresholdError{Reason: "thresholds must be strictly ascending"}
			}
			if band.Level.Rank() <= t[i-1].Level.Rank() {
				return &InvalidThresholdError{Reason: "levels must be strictly ascending"}
			}
		}
		if band.LowerBound >= scale && i > 0 {
			return &InvalidThresholdError{Reason: fmt.Sprintf("lower bound %v outside scale %v", band.LowerBound, scale)}
		}
	}
	return nil
}

// Classify maps a value to the highest band whose lower bound it meets.
// Classification is monotonic in the value.
func (t Thresholds) Classify(value float64) models.RiskLevel {
	level := t[0].Level
	for _, band := range t {
		if value >= band.LowerBound {
			level = band.Level
		}
	}
	return level
}

// DefaultSEWIThresholds is the SEWI severity table on the 0-1 scale.
func DefaultSEWIThresholds() Thresholds {
	return Thresholds{
		{Level: models.RiskLow, LowerBound: 0},
		{Level: models.RiskMedium, LowerBound: 0.35},
		{Level: models.RiskHigh, LowerBound: 0.65},
	}
}

// DefaultDeteriorationThresholds is the deterioration severity table on the
// 0-100 scale.
func DefaultDeteriorationThresholds() Thresholds {
	return Thresholds{
		{Level: models.RiskLow, LowerBound: 0},
		{Level: models.RiskMedium, LowerBound: 30},
		{Level: models.RiskHigh, LowerBound: 70},
	}
}
