package occupancy

import "fmt"

// Config holds the process-wide occupancy parameters.
type Config struct {
	// AvgSpeedKmh is the assumed average travel speed used to turn a
	// distance into a duration.
	AvgSpeedKmh float64 `json:"avg_speed_kmh"`
	// BufferMinutes is the fixed post-trip buffer kept on every occupancy
	// window (cleaning, refuelling, repositioning).
	BufferMinutes int `json:"buffer_minutes"`
	// DefaultDistanceKm is used when neither the trip nor the distance
	// estimator can provide a distance.
	DefaultDistanceKm float64 `json:"default_distance_km"`
}

// SetDefaults applies the historical defaults: 60 km/h average speed and a
// ten minute buffer.
func (c *Config) SetDefaults() {
	if c.AvgSpeedKmh <= 0 {
		c.AvgSpeedKmh = 60
	}
	if c.BufferMinutes <= 0 {
		c.BufferMinutes = 10
	}
	if c.DefaultDistanceKm <= 0 {
		c.DefaultDistanceKm = 50
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.AvgSpeedKmh <= 0 {
		return fmt.Errorf("avg_speed_kmh must be positive")
	}
	if c.DefaultDistanceKm <= 0 {
		return fmt.Errorf("default_distance_km must be positive")
	}
	return nil
}
