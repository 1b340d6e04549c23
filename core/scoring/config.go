package scoring

import "fmt"

// Weights tunes the candidate scoring heuristic. Every factor contributes
// additively; higher total score ranks first. Weights are policy, not
// contract: operators adjust them per deployment without code changes.
type Weights struct {
	// Priority multiplies the driver's priority level.
	Priority float64 `json:"priority"`
	// Rating multiplies the driver's mean customer rating.
	Rating float64 `json:"rating"`
	// DailyLoad penalises each trip the driver already has today.
	DailyLoad float64 `json:"daily_load"`
	// WeeklyLoad penalises each trip the driver had in the last seven days.
	WeeklyLoad float64 `json:"weekly_load"`
	// RecentLoad penalises each trip the driver picked up in the last three
	// days, keeping back-to-back assignments spread across the pool.
	RecentLoad float64 `json:"recent_load"`
	// Continuity is a flat bonus for drivers who served this customer before.
	Continuity float64 `json:"continuity"`
	// CapacityFit penalises each seat of slack between vehicle capacity and
	// the requested seat count, so the smallest fitting vehicle wins.
	CapacityFit float64 `json:"capacity_fit"`
	// PairBonus rewards a pair whose driver has driven the vehicle before.
	PairBonus float64 `json:"pair_bonus"`
	// TopN caps how many drivers and vehicles enter the pair cross-join.
	TopN int `json:"top_n"`
}

// SetDefaults applies the shipped weight set.
func (w *Weights) SetDefaults() {
	if w.Priority == 0 {
		w.Priority = 2
	}
	if w.Rating == 0 {
		w.Rating = 1.5
	}
	if w.DailyLoad == 0 {
		w.DailyLoad = 1
	}
	if w.WeeklyLoad == 0 {
		w.WeeklyLoad = 0.2
	}
	if w.RecentLoad == 0 {
		w.RecentLoad = 0.5
	}
	if w.Continuity == 0 {
		w.Continuity = 3
	}
	if w.CapacityFit == 0 {
		w.CapacityFit = 0.5
	}
	if w.PairBonus == 0 {
		w.PairBonus = 1
	}
	if w.TopN <= 0 {
		w.TopN = 5
	}
}

// Validate checks the weight set keeps every factor monotonic in its
// intended direction.
func (w Weights) Validate() error {
	if w.Priority < 0 || w.Rating < 0 || w.Continuity < 0 || w.PairBonus < 0 {
		return fmt.Errorf("bonus weights must not be negative")
	}
	if w.DailyLoad < 0 || w.WeeklyLoad < 0 || w.RecentLoad < 0 || w.CapacityFit < 0 {
		return fmt.Errorf("penalty weights must not be negative")
	}
	if w.TopN < 1 {
		return fmt.Errorf("top_n must be at least 1")
	}
	return nil
}
