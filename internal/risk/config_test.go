package risk

import (
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.Escalation.SLA.Immediate != 15*time.Minute {
		t.Errorf("immediate SLA = %v, want 15m", cfg.Escalation.SLA.Immediate)
	}
	if cfg.Escalation.SLA.Urgent != 2*time.Hour {
		t.Errorf("urgent SLA = %v, want 2h", cfg.Escalation.SLA.Urgent)
	}
	if cfg.Escalation.SLA.Routine != 24*time.Hour {
		t.Errorf("routine SLA = %v, want 24h", cfg.Escalation.SLA.Routine)
	}
	if len(cfg.Escalation.Triggers) != 8 {
		t.Errorf("trigger rule count = %d, want 8", len(cfg.Escalation.Triggers))
	}
}

func TestSLAConfig_For(t *testing.T) {
	sla := DefaultConfig().Escalation.SLA

	if got := sla.For(models.UrgencyImmediate); got != 15*time.Minute {
		t.Errorf("For(immediate) = %v, want 15m", got)
	}
	if got := sla.For(models.UrgencyUrgent); got != 2*time.Hour {
		t.Errorf("For(urgent) = %v, want 2h", got)
	}
	if got := sla.For(models.UrgencyRoutine); got != 24*time.Hour {
		t.Errorf("For(routine) = %v, want 24h", got)
	}
}

func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "bad weight table",
			mutate: func(c *Config) {
				c.SEWI.Weights = map[models.ComponentName]float64{
					models.ComponentERSurge: 0.5,
				}
			},
		},
		{
			name: "zero SLA",
			mutate: func(c *Config) {
				c.Escalation.SLA.Urgent = 0
			},
		},
		{
			name: "zero trend days",
			mutate: func(c *Config) {
				c.Escalation.TrendDays = 0
			},
		},
		{
			name: "no trigger rules",
			mutate: func(c *Config) {
				c.Escalation.Triggers = nil
			},
		},
		{
			name: "duplicate rule name",
			mutate: func(c *Config) {
				c.Escalation.Triggers = append(c.Escalation.Triggers, c.Escalation.Triggers[0])
			},
		},
		{
			name: "unknown trigger kind",
			mutate: func(c *Config) {
				c.Escalation.Triggers[0].Kind = TriggerKind("periodic")
			},
		},
		{
			name: "unknown escalation level",
			mutate: func(c *Config) {
				c.Escalation.Triggers[0].Level = models.EscalationLevel("janitor")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTriggerRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    TriggerRule
		wantErr bool
	}{
		{
			name: "valid composite",
			rule: TriggerRule{
				Name: "r", Kind: TriggerComposite, MinScore: 70,
				Level: models.LevelPhysician, Urgency: models.UrgencyUrgent,
			},
		},
		{
			name: "composite without min_score",
			rule: TriggerRule{
				Name: "r", Kind: TriggerComposite,
				Level: models.LevelPhysician, Urgency: models.UrgencyUrgent,
			},
			wantErr: true,
		},
		{
			name: "component with unknown component",
			rule: TriggerRule{
				Name: "r", Kind: TriggerComponent, Component: "bogus", MinValue: 0.5,
				Level: models.LevelNurse, Urgency: models.UrgencyRoutine,
			},
			wantErr: true,
		},
		{
			name: "multi_component with min_count of one",
			rule: TriggerRule{
				Name: "r", Kind: TriggerMultiComponent, ComponentFloor: 0.8, MinCount: 1,
				Level: models.LevelSpecialist, Urgency: models.UrgencyUrgent,
			},
			wantErr: true,
		},
		{
			name: "rapid_increase without min_increase",
			rule: TriggerRule{
				Name: "r", Kind: TriggerRapidIncrease,
				Level: models.LevelPhysician, Urgency: models.UrgencyUrgent,
			},
			wantErr: true,
		},
		{
			name: "missing name",
			rule: TriggerRule{
				Kind: TriggerComposite, MinScore: 70,
				Level: models.LevelPhysician, Urgency: models.UrgencyUrgent,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestReadConfig_EmptyFallsBackToDefaults(t *testing.T) {
	cfg, err := ReadConfig(strings.NewReader(""))
	if err != nil {
		t.Fatalf("read empty config: %v", err)
	}

	defaults := DefaultConfig()
	if len(cfg.Escalation.Triggers) != len(defaults.Escalation.Triggers) {
		t.Errorf("trigger count = %d, want %d", len(cfg.Escalation.Triggers), len(defaults.Escalation.Triggers))
	}
	if cfg.Escalation.SLA != defaults.Escalation.SLA {
		t.Errorf("SLA = %+v, want defaults", cfg.Escalation.SLA)
	}
	if cfg.Deterioration.Scale != 100 {
		t.Errorf("deterioration scale = %v, want 100", cfg.Deterioration.Scale)
	}
}

func TestReadConfig_PartialOverride(t *testing.T) {
	yaml := `
escalation:
  sla:
    immediate: 10m
    urgent: 1h
    routine: 12h
`
	cfg, err := ReadConfig(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}

	if cfg.Escalation.SLA.Immediate != 10*time.Minute {
		t.Errorf("immediate SLA = %v, want 10m", cfg.Escalation.SLA.Immediate)
	}
	// Omitted sections keep their defaults.
	if len(cfg.Escalation.Triggers) == 0 {
		t.Error("triggers should fall back to defaults")
	}
	if len(cfg.SEWI.Weights) != 3 {
		t.Errorf("SEWI weight count = %d, want 3", len(cfg.SEWI.Weights))
	}
}

func TestReadConfig_BadWeightsFailLoudly(t *testing.T) {
	// A specified section is taken as written, never silently patched.
	yaml := `
sewi:
  scale: 1
  weights:
    er_surge: 0.9
  thresholds:
    - level: low
      lower_bound: 0
`
	if _, err := ReadConfig(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for weights not summing to 1.0")
	}
}

func TestReadConfig_InvalidYAML(t *testing.T) {
	if _, err := ReadConfig(strings.NewReader("sewi: [not a map")); err == nil {
		t.Fatal("expected parse error")
	}
}
