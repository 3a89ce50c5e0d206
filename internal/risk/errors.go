package risk

import (
	"fmt"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// ConfigError reports an invalid weight or threshold configuration.
// Configuration errors are fatal: they are raised at setup, never during
// evaluation.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("risk config: %s", e.Reason)
}

// MissingSignalError reports a required component absent from a snapshot.
// Missing data is never treated as zero, because that would understate risk.
type MissingSignalError struct {
	Component models.ComponentName
}

func (e *MissingSignalError) Error() string {
	return fmt.Sprintf("missing signal %q in snapshot", e.Component)
}

// InvalidThresholdError reports a threshold table that is not strictly
// ascending or does not cover the range from zero.
type InvalidThresholdError struct {
	Reason string
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("invalid thresholds: %s", e.Reason)
}
