package health

import (
	"context"
	"fmt"
)

// Pinger is anything that can report connection health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StorageChecker checks escalation store connectivity.
type StorageChecker struct {
	pinger Pinger
}

// NewStorageChecker creates a storage health checker.
func NewStorageChecker(p Pinger) *StorageChecker {
	return &StorageChecker{pinger: p}
}

// Name returns the checker name.
func (c *StorageChecker) Name() string {
	return "storage"
}

// Check verifies the escalation store is accessible.
func (c *StorageChecker) Check(ctx context.Context) error {
	if c.pinger == nil {
		return fmt.Errorf("storage not initialized")
	}
	return c.pinger.Ping(ctx)
}

// RiskConfigChecker reports whether a valid risk configuration is loaded.
type RiskConfigChecker struct {
	loaded func() bool
}

// NewRiskConfigChecker creates a risk configuration health checker.
func NewRiskConfigChecker(loaded func() bool) *RiskConfigChecker {
	return &RiskConfigChecker{loaded: loaded}
}

// Name returns the checker name.
func (c *RiskConfigChecker) Name() string {
	return "risk_config"
}

// Check verifies a valid risk configuration is active.
func (c *RiskConfigChecker) Check(ctx context.Context) error {
	if c.loaded == nil || !c.loaded() {
		return fmt.Errorf("risk configuration not loaded")
	}
	return nil
}
