package dispatch

import "fmt"

// Config defines assignment engine settings.
type Config struct {
	// FillThreshold is the fraction (0-1) above which a location is
	// considered overflowing.
	FillThreshold float64 `json:"fill_threshold"`
	// MaxAssignRatio is the maximum share of total assignments one vehicle
	// may hold.
	MaxAssignRatio float64 `json:"max_assign_ratio"`
	// ScanIntervalSeconds is the period of the feed scan.
	ScanIntervalSeconds int `json:"scan_interval_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.FillThreshold == 0 {
		c.FillThreshold = 0.70
	}
	if c.MaxAssignRatio == 0 {
		c.MaxAssignRatio = 0.75
	}
	if c.ScanIntervalSeconds == 0 {
		c.ScanIntervalSeconds = 1
	}
}

// Validate checks the configured values.
func (c Config) Validate() error {
	if c.FillThreshold <= 0 || c.FillThreshold >= 1 {
		return fmt.Errorf("fill_threshold must be in (0,1), got %v", c.FillThreshold)
	}
	if c.MaxAssignRatio <= 0 || c.MaxAssignRatio > 1 {
		return fmt.Errorf("max_assign_ratio must be in (0,1], got %v", c.MaxAssignRatio)
	}
	if c.ScanIntervalSeconds <= 0 {
		return fmt.Errorf("scan_interval_seconds must be positive, got %d", c.ScanIntervalSeconds)
	}
	return nil
}
