package dispatch

import "fmt"

// Config holds orchestrator policy knobs.
type Config struct {
	// LongTripHours is the occupancy duration from which auto-assignment
	// tries to add a relief driver.
	LongTripHours int `json:"long_trip_hours"`
	// PendingHorizonDays bounds how far ahead PendingTrips looks.
	PendingHorizonDays int `json:"pending_horizon_days"`
}

// SetDefaults applies the shipped policy defaults.
func (c *Config) SetDefaults() {
	if c.LongTripHours <= 0 {
		c.LongTripHours = 12
	}
	if c.PendingHorizonDays <= 0 {
		c.PendingHorizonDays = 7
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.LongTripHours < 1 {
		return fmt.Errorf("long_trip_hours must be at least 1")
	}
	return nil
}
