package fleet

import "fmt"

// Config defines fleet-side settings.
type Config struct {
	// Count overrides the number of vehicles. Zero derives the fleet size
	// from the position registry, capped by MaxVehicles.
	Count int `json:"count"`
	// MaxVehicles caps the derived fleet size.
	MaxVehicles int `json:"max_vehicles"`
	// StepIntervalSeconds is the per-vehicle tick period.
	StepIntervalSeconds int `json:"step_interval_seconds"`
	// PlanTimeoutSeconds bounds each routing gateway call. On expiry the
	// agent adopts the fallback path immediately.
	PlanTimeoutSeconds int `json:"plan_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.MaxVehicles == 0 {
		c.MaxVehicles = 20
	}
	if c.StepIntervalSeconds == 0 {
		c.StepIntervalSeconds = 1
	}
	if c.PlanTimeoutSeconds == 0 {
		c.PlanTimeoutSeconds = 5
	}
}

// Validate checks the configured values.
func (c Config) Validate() error {
	if c.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", c.Count)
	}
	if c.MaxVehicles <= 0 {
		return fmt.Errorf("max_vehicles must be positive, got %d", c.MaxVehicles)
	}
	if c.StepIntervalSeconds <= 0 {
		return fmt.Errorf("step_interval_seconds must be positive, got %d", c.StepIntervalSeconds)
	}
	if c.PlanTimeoutSeconds <= 0 {
		return fmt.Errorf("plan_timeout_seconds must be positive, got %d", c.PlanTimeoutSeconds)
	}
	return nil
}

// FleetSize resolves the effective number of vehicles for a registry of the
// given size.
func (c Config) FleetSize(registrySize int) int {
	n := registrySize
	if n > c.MaxVehicles {
		n = c.MaxVehicles
	}
	if c.Count > 0 && c.Count < n {
		n = c.Count
	}
	return n
}
