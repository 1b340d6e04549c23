// Package scoring ranks drivers and vehicles for a trip. Eligibility is a
// hard filter; the score on top of it is an additive weighted heuristic
// whose every contribution is echoed back as a human-readable reason, so a
// dispatcher can audit why a candidate ranked where it did.
package scoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/fleetops/tripdispatch/core/logger"
	"github.com/fleetops/tripdispatch/core/model"
)

// Store is the read-only view the scorer needs beyond the resource pools
// themselves.
type Store interface {
	DriversAtBranch(ctx context.Context, branchID int64) ([]model.Driver, error)
	VehiclesAtBranch(ctx context.Context, branchID, categoryID int64) ([]model.Vehicle, error)
	// HasDayOff reports whether an approved day-off of the driver covers day.
	HasDayOff(ctx context.Context, driverID int64, day time.Time) (bool, error)
	// TripCountBetween counts the driver's non-cancelled trips starting in
	// [from, to).
	TripCountBetween(ctx context.Context, driverID int64, from, to time.Time) (int, error)
	// HasServedCustomer reports whether the driver completed a trip for the
	// customer before.
	HasServedCustomer(ctx context.Context, driverID, customerID int64) (bool, error)
	// HasDrivenVehicle reports whether the driver was paired with the
	// vehicle on a past trip.
	HasDrivenVehicle(ctx context.Context, driverID, vehicleID int64) (bool, error)
}

// Freer is the slice of the availability checker the scorer uses for the
// occupancy hard filter.
type Freer interface {
	DriverFree(ctx context.Context, driverID int64, w model.TimeWindow, excludeTripID int64) (bool, error)
	VehicleFree(ctx context.Context, vehicleID int64, w model.TimeWindow, excludeTripID int64) (bool, error)
}

// TripInfo carries everything about the trip and its booking the scorer
// reads. Callers resolve it once so scoring stays free of booking lookups.
type TripInfo struct {
	Trip       model.Trip
	BranchID   int64
	CustomerID int64
	CategoryID int64
	// Seats is the requested category's seat count; zero means unknown, in
	// which case license and capacity fit checks are skipped.
	Seats int
}

// DriverCandidate is one scored driver. Ineligible candidates carry the
// exclusion reason and a zero score.
type DriverCandidate struct {
	Driver   model.Driver `json:"driver"`
	Eligible bool         `json:"eligible"`
	Score    float64      `json:"score"`
	Reasons  []string     `json:"reasons"`
}

// VehicleCandidate is one scored vehicle.
type VehicleCandidate struct {
	Vehicle  model.Vehicle `json:"vehicle"`
	Eligible bool          `json:"eligible"`
	Score    float64       `json:"score"`
	Reasons  []string      `json:"reasons"`
}

// PairSuggestion is a driver+vehicle combination with a combined score.
type PairSuggestion struct {
	Driver  model.Driver  `json:"driver"`
	Vehicle model.Vehicle `json:"vehicle"`
	Score   float64       `json:"score"`
	Reasons []string      `json:"reasons"`
}

// Suggestion is the full output of SuggestPairs. Best is nil when no
// eligible pair exists.
type Suggestion struct {
	Drivers  []DriverCandidate  `json:"drivers"`
	Vehicles []VehicleCandidate `json:"vehicles"`
	Pairs    []PairSuggestion   `json:"pairs"`
	Best     *PairSuggestion    `json:"best,omitempty"`
}

// Scorer ranks candidates. It is read-only and safe for concurrent use.
type Scorer struct {
	weights Weights
	store   Store
	free    Freer
	log     logger.Logger
}

// New creates a Scorer with the given weights.
func New(w Weights, store Store, free Freer, log logger.Logger) *Scorer {
	w.SetDefaults()
	return &Scorer{weights: w, store: store, free: free, log: log}
}

// RankDrivers scores the pool for the trip. A nil pool means "every driver
// of the trip's branch". Eligible candidates come first, best score on top;
// ineligible ones follow with their exclusion reason.
func (s *Scorer) RankDrivers(ctx context.Context, ti TripInfo, pool []model.Driver) ([]DriverCandidate, error) {
	if pool == nil {
		var err error
		pool, err = s.store.DriversAtBranch(ctx, ti.BranchID)
		if err != nil {
			return nil, err
		}
	}
	out := make([]DriverCandidate, 0, len(pool))
	for _, d := range pool {
		cand, err := s.scoreDriver(ctx, ti, d)
		if err != nil {
			return nil, err
		}
		out = append(out, cand)
	}
	sortDrivers(out)
	return out, nil
}

// RankVehicles is the vehicle counterpart of RankDrivers.
func (s *Scorer) RankVehicles(ctx context.Context, ti TripInfo, pool []model.Vehicle) ([]VehicleCandidate, error) {
	if pool == nil {
		var err error
		pool, err = s.store.VehiclesAtBranch(ctx, ti.BranchID, ti.CategoryID)
		if err != nil {
			return nil, err
		}
	}
	out := make([]VehicleCandidate, 0, len(pool))
	for _, v := range pool {
		cand, err := s.scoreVehicle(ctx, ti, v)
		if err != nil {
			return nil, err
		}
		out = append(out, cand)
	}
	sortVehicles(out)
	return out, nil
}

// SuggestPairs cross-joins the top eligible drivers and vehicles and ranks
// the combinations. Pair score is the sum of the individual scores plus a
// familiarity bonus when the driver has driven the vehicle before. Pairs
// whose driver license cannot cover the concrete vehicle are dropped.
func (s *Scorer) SuggestPairs(ctx context.Context, ti TripInfo) (Suggestion, error) {
	drivers, err := s.RankDrivers(ctx, ti, nil)
	if err != nil {
		return Suggestion{}, err
	}
	vehicles, err := s.RankVehicles(ctx, ti, nil)
	if err != nil {
		return Suggestion{}, err
	}
	sug := Suggestion{Drivers: drivers, Vehicles: vehicles}

	topD := topEligibleDrivers(drivers, s.weights.TopN)
	topV := topEligibleVehicles(vehicles, s.weights.TopN)
	for _, dc := range topD {
		for _, vc := range topV {
			if !model.LicenseCovers(dc.Driver.LicenseClass, vc.Vehicle.Capacity) {
				continue
			}
			pair := PairSuggestion{
				Driver:  dc.Driver,
				Vehicle: vc.Vehicle,
				Score:   dc.Score + vc.Score,
			}
			pair.Reasons = append(pair.Reasons, dc.Reasons...)
			pair.Reasons = append(pair.Reasons, vc.Reasons...)
			driven, err := s.store.HasDrivenVehicle(ctx, dc.Driver.ID, vc.Vehicle.ID)
			if err != nil {
				return Suggestion{}, err
			}
			if driven {
				pair.Score += s.weights.PairBonus
				pair.Reasons = append(pair.Reasons, fmt.Sprintf("driver knows vehicle (+%.1f)", s.weights.PairBonus))
			}
			sug.Pairs = append(sug.Pairs, pair)
		}
	}
	sort.SliceStable(sug.Pairs, func(i, j int) bool { return sug.Pairs[i].Score > sug.Pairs[j].Score })
	if len(sug.Pairs) > 0 {
		sug.Best = &sug.Pairs[0]
	}
	if s.log != nil {
		s.log.Debugw("pair suggestion", map[string]any{
			"trip": ti.Trip.ID, "drivers": len(topD), "vehicles": len(topV), "pairs": len(sug.Pairs),
		})
	}
	return sug, nil
}

func (s *Scorer) scoreDriver(ctx context.Context, ti TripInfo, d model.Driver) (DriverCandidate, error) {
	cand := DriverCandidate{Driver: d}
	w := ti.Trip.Window()

	if d.BranchID != ti.BranchID {
		cand.Reasons = []string{"not at trip branch"}
		return cand, nil
	}
	if d.Status != model.DriverAvailable {
		cand.Reasons = []string{fmt.Sprintf("driver status %s", d.Status)}
		return cand, nil
	}
	if d.LicenseExpiry != nil && d.LicenseExpiry.Before(w.Start) {
		cand.Reasons = []string{"license expired"}
		return cand, nil
	}
	if ti.Seats > 0 && !model.LicenseCovers(d.LicenseClass, ti.Seats) {
		cand.Reasons = []string{fmt.Sprintf("license class %s cannot operate a %d-seat vehicle", d.LicenseClass, ti.Seats)}
		return cand, nil
	}
	off, err := s.store.HasDayOff(ctx, d.ID, w.Start)
	if err != nil {
		return cand, err
	}
	if off {
		cand.Reasons = []string{"on approved day off"}
		return cand, nil
	}
	free, err := s.free.DriverFree(ctx, d.ID, w, ti.Trip.ID)
	if err != nil {
		return cand, err
	}
	if !free {
		cand.Reasons = []string{"occupied during trip window"}
		return cand, nil
	}

	cand.Eligible = true
	if d.PriorityLevel > 0 {
		pts := s.weights.Priority * float64(d.PriorityLevel)
		cand.Score += pts
		cand.Reasons = append(cand.Reasons, fmt.Sprintf("priority level %d (+%.1f)", d.PriorityLevel, pts))
	}
	if len(d.Ratings) > 0 {
		mean := stat.Mean(d.Ratings, nil)
		pts := s.weights.Rating * mean
		cand.Score += pts
		cand.Reasons = append(cand.Reasons, fmt.Sprintf("mean rating %.2f (+%.1f)", mean, pts))
	}
	day := startOfDay(w.Start)
	today, err := s.store.TripCountBetween(ctx, d.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return cand, err
	}
	if today > 0 {
		pts := s.weights.DailyLoad * float64(today)
		cand.Score -= pts
		cand.Reasons = append(cand.Reasons, fmt.Sprintf("%d trip(s) same day (-%.1f)", today, pts))
	}
	weekly, err := s.store.TripCountBetween(ctx, d.ID, day.AddDate(0, 0, -7), day)
	if err != nil {
		return cand, err
	}
	if weekly > 0 {
		pts := s.weights.WeeklyLoad * float64(weekly)
		cand.Score -= pts
		cand.Reasons = append(cand.Reasons, fmt.Sprintf("%d trip(s) last 7 days (-%.1f)", weekly, pts))
	}
	recent, err := s.store.TripCountBetween(ctx, d.ID, day.AddDate(0, 0, -3), day)
	if err != nil {
		return cand, err
	}
	if recent > 0 {
		pts := s.weights.RecentLoad * float64(recent)
		cand.Score -= pts
		cand.Reasons = append(cand.Reasons, fmt.Sprintf("%d trip(s) last 3 days (-%.1f)", recent, pts))
	}
	if ti.CustomerID != 0 {
		served, err := s.store.HasServedCustomer(ctx, d.ID, ti.CustomerID)
		if err != nil {
			return cand, err
		}
		if served {
			cand.Score += s.weights.Continuity
			cand.Reasons = append(cand.Reasons, fmt.Sprintf("served this customer before (+%.1f)", s.weights.Continuity))
		}
	}
	return cand, nil
}

func (s *Scorer) scoreVehicle(ctx context.Context, ti TripInfo, v model.Vehicle) (VehicleCandidate, error) {
	cand := VehicleCandidate{Vehicle: v}
	w := ti.Trip.Window()

	if v.BranchID != ti.BranchID {
		cand.Reasons = []string{"not at trip branch"}
		return cand, nil
	}
	if v.Status != model.VehicleAvailable {
		cand.Reasons = []string{fmt.Sprintf("vehicle status %s", v.Status)}
		return cand, nil
	}
	if ti.CategoryID != 0 && v.CategoryID != ti.CategoryID {
		cand.Reasons = []string{"wrong category"}
		return cand, nil
	}
	if ti.Seats > 0 && v.Capacity < ti.Seats {
		cand.Reasons = []string{fmt.Sprintf("capacity %d below required %d", v.Capacity, ti.Seats)}
		return cand, nil
	}
	free, err := s.free.VehicleFree(ctx, v.ID, w, ti.Trip.ID)
	if err != nil {
		return cand, err
	}
	if !free {
		cand.Reasons = []string{"occupied during trip window"}
		return cand, nil
	}

	cand.Eligible = true
	if ti.Seats > 0 && v.Capacity > ti.Seats {
		slack := v.Capacity - ti.Seats
		pts := s.weights.CapacityFit * float64(slack)
		cand.Score -= pts
		cand.Reasons = append(cand.Reasons, fmt.Sprintf("%d spare seat(s) (-%.1f)", slack, pts))
	}
	return cand, nil
}

func sortDrivers(cands []DriverCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Eligible != b.Eligible {
			return a.Eligible
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Driver.PriorityLevel != b.Driver.PriorityLevel {
			return a.Driver.PriorityLevel > b.Driver.PriorityLevel
		}
		return a.Driver.ID < b.Driver.ID
	})
}

func sortVehicles(cands []VehicleCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Eligible != b.Eligible {
			return a.Eligible
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Vehicle.ID < b.Vehicle.ID
	})
}

func topEligibleDrivers(cands []DriverCandidate, n int) []DriverCandidate {
	var out []DriverCandidate
	for _, c := range cands {
		if !c.Eligible {
			continue
		}
		out = append(out, c)
		if len(out) == n {
			break
		}
	}
	return out
}

func topEligibleVehicles(cands []VehicleCandidate, n int) []VehicleCandidate {
	var out []VehicleCandidate
	for _, c := range cands {
		if !c.Eligible {
			continue
		}
		out = append(out, c)
		if len(out) == n {
			break
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
