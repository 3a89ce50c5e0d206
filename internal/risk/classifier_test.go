package risk

import (
	"testing"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

func TestThresholds_ClassifySEWI(t *testing.T) {
	thresholds := DefaultSEWIThresholds()

	tests := []struct {
		value float64
		want  models.RiskLevel
	}{
		{0, models.RiskLow},
		{0.1, models.RiskLow},
		{0.349999, models.RiskLow},
		{0.35, models.RiskMedium}, // lower bounds are inclusive
		{0.5, models.RiskMedium},
		{0.649999, models.RiskMedium},
		{0.65, models.RiskHigh},
		{0.9, models.RiskHigh},
		{1.0, models.RiskHigh},
	}

	for _, tt := range tests {
		if got := thresholds.Classify(tt.value); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestThresholds_ClassifyDeterioration(t *testing.T) {
	thresholds := DefaultDeteriorationThresholds()

	tests := []struct {
		value float64
		want  models.RiskLevel
	}{
		{0, models.RiskLow},
		{29.9, models.RiskLow},
		{30, models.RiskMedium},
		{69.9, models.RiskMedium},
		{70, models.RiskHigh},
		{100, models.RiskHigh},
	}

	for _, tt := range tests {
		if got := thresholds.Classify(tt.value); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestThresholds_ClassifyMonotonic(t *testing.T) {
	thresholds := DefaultSEWIThresholds()

	prev := models.RiskLow
	for v := 0.0; v <= 1.0; v += 0.01 {
		level := thresholds.Classify(v)
		if level.Rank() < prev.Rank() {
			t.Fatalf("classification regressed at %v: %s after %s", v, level, prev)
		}
		prev = level
	}
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name       string
		thresholds Thresholds
		scale      float64
		wantErr    bool
	}{
		{
			name:       "default SEWI table",
			thresholds: DefaultSEWIThresholds(),
			scale:      1,
		},
		{
			name:       "default deterioration table",
			thresholds: DefaultDeteriorationThresholds(),
			scale:      100,
		},
		{
			name:       "empty table",
			thresholds: Thresholds{},
			scale:      1,
			wantErr:    true,
		},
		{
			name: "first bound not zero",
			thresholds: Thresholds{
				{Level: models.RiskLow, LowerBound: 0.1},
				{Level: models.RiskHigh, LowerBound: 0.5},
			},
			scale:   1,
			wantErr: true,
		},
		{
			name: "bounds not strictly ascending",
			thresholds: Thresholds{
				{Level: models.RiskLow, LowerBound: 0},
				{Level: models.RiskMedium, LowerBound: 0.5},
				{Level: models.RiskHigh, LowerBound: 0.5},
			},
			scale:   1,
			wantErr: true,
		},
		{
			name: "levels not strictly ascending",
			thresholds: Thresholds{
				{Level: models.RiskMedium, LowerBound: 0},
				{Level: models.RiskLow, LowerBound: 0.5},
			},
			scale:   1,
			wantErr: true,
		},
		{
			name: "unknown level",
			thresholds: Thresholds{
				{Level: models.RiskLevel("severe"), LowerBound: 0},
			},
			scale:   1,
			wantErr: true,
		},
		{
			name: "bound outside scale",
			thresholds: Thresholds{
				{Level: models.RiskLow, LowerBound: 0},
				{Level: models.RiskHigh, LowerBound: 1.5},
			},
			scale:   1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.thresholds.Validate(tt.scale)
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
