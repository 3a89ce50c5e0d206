package risk

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// TriggerKind selects how a trigger rule matches an assessment.
type TriggerKind string

const (
	// TriggerComposite fires when the composite score reaches MinScore.
	TriggerComposite TriggerKind = "composite"
	// TriggerComponent fires when a single component reaches MinValue.
	TriggerComponent TriggerKind = "component"
	// TriggerMultiComponent fires when at least MinCount components reach
	// ComponentFloor (multi-system failure).
	TriggerMultiComponent TriggerKind = "multi_component"
	// TriggerRapidIncrease fires when the composite score rose by at least
	// MinIncrease points since the previous assessment.
	TriggerRapidIncrease TriggerKind = "rapid_increase"
)

// TriggerRule is a named condition that, when satisfied, creates an
// escalation routed to a responder with an urgency.
type TriggerRule struct {
	Name string      `yaml:"name"`
	Kind TriggerKind `yaml:"kind"`

	MinScore       float64              `yaml:"min_score,omitempty"`
	Component      models.ComponentName `yaml:"component,omitempty"`
	MinValue       float64              `yaml:"min_value,omitempty"`
	ComponentFloor float64              `yaml:"component_floor,omitempty"`
	MinCount       int                  `yaml:"min_count,omitempty"`
	MinIncrease    float64              `yaml:"min_increase,omitempty"`

	Level   models.EscalationLevel `yaml:"escalation_level"`
	Urgency models.Urgency         `yaml:"urgency"`

	Title  string `yaml:"title"`
	Action string `yaml:"action"`
}

// Validate checks a trigger rule's closed-set fields and kind parameters.
func (r *TriggerRule) Validate() error {
	if r.Name == "" {
		return &ConfigError{Reason: "trigger rule name is required"}
	}
	if _, ok := models.ParseEscalationLevel(string(r.Level)); !ok {
		return &ConfigError{Reason: fmt.Sprintf("rule %q: unknown escalation level %q", r.Name, r.Level)}
	}
	if _, ok := models.ParseUrgency(string(r.Urgency)); !ok {
		return &ConfigError{Reason: fmt.Sprintf("rule %q: unknown urgency %q", r.Name, r.Urgency)}
	}
	switch r.Kind {
	case TriggerComposite:
		if r.MinScore <= 0 {
			return &ConfigError{Reason: fmt.Sprintf("rule %q: min_score must be positive", r.Name)}
		}
	case TriggerComponent:
		if _, err := models.ParseComponentName(string(r.Component)); err != nil {
			return &ConfigError{Reason: fmt.Sprintf("rule %q: %v", r.Name, err)}
		}
		if r.MinValue <= 0 {
			return &ConfigError{Reason: fmt.Sprintf("rule %q: min_value must be positive", r.Name)}
		}
	case TriggerMultiComponent:
		if r.MinCount < 2 {
			return &ConfigError{Reason: fmt.Sprintf("rule %q: min_count must be at least 2", r.Name)}
		}
		if r.ComponentFloor <= 0 {
			return &ConfigError{Reason: fmt.Sprintf("rule %q: component_floor must be positive", r.Name)}
		}
	case TriggerRapidIncrease:
		if r.MinIncrease <= 0 {
			return &ConfigError{Reason: fmt.Sprintf("rule %q: min_increase must be positive", r.Name)}
		}
	default:
		return &ConfigError{Reason: fmt.Sprintf("rule %q: unknown kind %q", r.Name, r.Kind)}
	}
	return nil
}

// SLAConfig holds per-urgency response deadlines for overdue detection.
type SLAConfig struct {
	Immediate time.Duration `yaml:"immediate"`
	Urgent    time.Duration `yaml:"urgent"`
	Routine   time.Duration `yaml:"routine"`
}

// For returns the SLA for an urgency.
func (s SLAConfig) For(u models.Urgency) time.Duration {
	switch u {
	case models.UrgencyImmediate:
		return s.Immediate
	case models.UrgencyUrgent:
		return s.Urgent
	default:
		return s.Routine
	}
}

// ScoreConfig configures one composite score: a weight table, a scale, and a
// severity threshold table.
type ScoreConfig struct {
	Weights    map[models.ComponentName]float64 `yaml:"weights"`
	Scale      float64                          `yaml:"scale"`
	Thresholds Thresholds                       `yaml:"thresholds"`
}

// Build validates the score configuration into an Aggregator.
func (c *ScoreConfig) Build() (*Aggregator, error) {
	return NewAggregator(c.Weights, c.Scale, c.Thresholds)
}

// EscalationConfig holds the trigger rules, SLAs, and dashboard settings for
// the escalation engine.
type EscalationConfig struct {
	SLA       SLAConfig     `yaml:"sla"`
	Triggers  []TriggerRule `yaml:"triggers"`
	TrendDays int           `yaml:"trend_days"`
}

// Config is the full domain risk configuration. Weights, thresholds, SLA
// durations, and the routing table are deployment configuration, not code.
type Config struct {
	SEWI          ScoreConfig      `yaml:"sewi"`
	Deterioration ScoreConfig      `yaml:"deterioration"`
	Escalation    EscalationConfig `yaml:"escalation"`
}

// DefaultConfig returns the built-in weight tables, thresholds, SLAs, and
// trigger routing.
func DefaultConfig() *Config {
	return &Config{
		SEWI: ScoreConfig{
			Weights:    DefaultSEWIWeights(),
			Scale:      1,
			Thresholds: DefaultSEWIThresholds(),
		},
		Deterioration: ScoreConfig{
			Weights:    DefaultDeteriorationWeights(),
			Scale:      100,
			Thresholds: DefaultDeteriorationThresholds(),
		},
		Escalation: EscalationConfig{
			SLA: SLAConfig{
				Immediate: 15 * time.Minute,
				Urgent:    2 * time.Hour,
				Routine:   24 * time.Hour,
			},
			TrendDays: 7,
			Triggers: []TriggerRule{
				{
					Name:     "vitals_critical",
					Kind:     TriggerComponent,
					Component: models.ComponentVitalsInstability,
					MinValue: 0.9,
					Level:    models.LevelNurse,
					Urgency:  models.UrgencyImmediate,
					Title:    "Critical Vitals Alert",
					Action:   "Bedside assessment now",
				},
				{
					Name:     "deterioration_high",
					Kind:     TriggerComposite,
					MinScore: 70,
					Level:    models.LevelPhysician,
					Urgency:  models.UrgencyUrgent,
					Title:    "High Deterioration Risk",
					Action:   "Clinical assessment within 2 hours",
				},
				{
					Name:     "deterioration_critical",
					Kind:     TriggerComposite,
					MinScore: 85,
					Level:    models.LevelPhysician,
					Urgency:  models.UrgencyImmediate,
					Title:    "Critical Deterioration Risk",
					Action:   "Immediate clinical review",
				},
				{
					Name:           "multi_system_failure",
					Kind:           TriggerMultiComponent,
					ComponentFloor: 0.8,
					MinCount:       3,
					Level:          models.LevelSpecialist,
					Urgency:        models.UrgencyUrgent,
					Title:          "Multi-System Risk",
					Action:         "Specialist consultation",
				},
				{
					Name:     "life_threatening",
					Kind:     TriggerComposite,
					MinScore: 95,
					Level:    models.LevelEmergency,
					Urgency:  models.UrgencyImmediate,
					Title:    "Life-Threatening Condition",
					Action:   "Emergency response",
				},
				{
					Name:      "adherence_crisis",
					Kind:      TriggerComponent,
					Component: models.ComponentAdherenceGap,
					MinValue:  0.7,
					Level:     models.LevelNurse,
					Urgency:   models.UrgencyRoutine,
					Title:     "Adherence Crisis",
					Action:    "Case manager intervention",
				},
				{
					Name:      "high_no_show_risk",
					Kind:      TriggerComponent,
					Component: models.ComponentNoShowRisk,
					MinValue:  0.7,
					Level:     models.LevelNurse,
					Urgency:   models.UrgencyRoutine,
					Title:     "High No-Show Risk",
					Action:    "Patient contact and reminder",
				},
				{
					Name:        "rapid_deterioration",
					Kind:        TriggerRapidIncrease,
					MinIncrease: 15,
					Level:       models.LevelPhysician,
					Urgency:     models.UrgencyUrgent,
					Title:       "Rapid Deterioration Alert",
					Action:      "Urgent clinical evaluation",
				},
			},
		},
	}
}

// Validate checks the full configuration. A Config that fails validation is
// fatal at startup.
func (c *Config) Validate() error {
	if _, err := c.SEWI.Build(); err != nil {
		return err
	}
	if _, err := c.Deterioration.Build(); err != nil {
		return err
	}
	if c.Escalation.SLA.Immediate <= 0 || c.Escalation.SLA.Urgent <= 0 || c.Escalation.SLA.Routine <= 0 {
		return &ConfigError{Reason: "all SLA durations must be positive"}
	}
	if c.Escalation.TrendDays <= 0 {
		return &ConfigError{Reason: "trend_days must be positive"}
	}
	if len(c.Escalation.Triggers) == 0 {
		return &ConfigError{Reason: "at least one trigger rule is required"}
	}
	seen := make(map[string]bool, len(c.Escalation.Triggers))
	for i := range c.Escalation.Triggers {
		rule := &c.Escalation.Triggers[i]
		if err := rule.Validate(); err != nil {
			return err
		}
		if seen[rule.Name] {
			return &ConfigError{Reason: fmt.Sprintf("duplicate trigger rule %q", rule.Name)}
		}
		seen[rule.Name] = true
	}
	return nil
}

// LoadConfig reads and validates a risk configuration from a YAML file.
// Missing sections fall back to defaults.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open risk config: %w", err)
	}
	defer f.Close()
	return ReadConfig(f)
}

// ReadConfig reads and validates a risk configuration from a reader.
// Omitted sections fall back to defaults wholesale; a partially specified
// section is taken as written so a bad weight table fails loudly instead of
// being silently patched.
func ReadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse risk config: %w", err)
	}

	defaults := DefaultConfig()
	if cfg.SEWI.Weights == nil {
		cfg.SEWI = defaults.SEWI
	}
	if cfg.Deterioration.Weights == nil {
		cfg.Deterioration = defaults.Deterioration
	}
	if cfg.Escalation.SLA == (SLAConfig{}) {
		cfg.Escalation.SLA = defaults.Escalation.SLA
	}
	if cfg.Escalation.TrendDays == 0 {
		cfg.Escalation.TrendDays = defaults.Escalation.TrendDays
	}
	if len(cfg.Escalation.Triggers) == 0 {
		cfg.Escalation.Triggers = defaults.Escalation.Triggers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
