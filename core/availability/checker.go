// Package availability answers "how many units of this fleet are free in a
// window", combining confirmed assignments with soft reservations from
// bookings that have not been given a concrete vehicle yet.
package availability

import (
	"context"
	"time"

	"github.com/fleetops/tripdispatch/core/logger"
	"github.com/fleetops/tripdispatch/core/model"
)

// Occupancy is one active assignment window for a resource.
type Occupancy struct {
	TripID int64
	Window model.TimeWindow
	Status model.TripStatus
}

// Store is the read-only view of the persistent state the checker needs.
// Inside a dispatch transaction the transaction itself satisfies this
// interface, so pre-mutation re-checks see uncommitted writes.
type Store interface {
	// ActiveVehicles lists non-inactive vehicles of the category at the branch.
	ActiveVehicles(ctx context.Context, branchID, categoryID int64) ([]model.Vehicle, error)
	// CategoryOccupancies returns, per vehicle of the branch/category, the
	// active (non-cancelled, non-completed trip) assignment windows that
	// overlap w.
	CategoryOccupancies(ctx context.Context, branchID, categoryID int64, w model.TimeWindow) (map[int64][]Occupancy, error)
	// ReservedQuantity sums soft reservations of live bookings whose trips
	// overlap w and still lack a concrete vehicle of the category.
	ReservedQuantity(ctx context.Context, branchID, categoryID int64, w model.TimeWindow) (int, error)
	// DriverOccupancies returns the driver's active assignment windows.
	DriverOccupancies(ctx context.Context, driverID int64) ([]Occupancy, error)
	// VehicleOccupancies returns the vehicle's active assignment windows.
	VehicleOccupancies(ctx context.Context, vehicleID int64) ([]Occupancy, error)
}

// Result reports fleet capacity for one branch/category/window query.
type Result struct {
	OK              bool       `json:"ok"`
	AvailableCount  int        `json:"availableCount"`
	BusyCount       int        `json:"busyCount"`
	TotalCandidates int        `json:"totalCandidates"`
	Needed          int        `json:"needed"`
	// NextFreeAt is the earliest instant a blocking occupancy releases a
	// unit. Set only when OK is false and at least one unit is merely busy
	// rather than reserved.
	NextFreeAt *time.Time `json:"nextFreeAt,omitempty"`
}

// Checker computes fleet availability. It is read-only and safe for
// concurrent use.
type Checker struct {
	store Store
	log   logger.Logger
}

// New creates a Checker on top of the given store.
func New(store Store, log logger.Logger) *Checker {
	return &Checker{store: store, log: log}
}

// CheckVehicles reports whether `needed` vehicles of the category are free at
// the branch during w. Busy units are those with an overlapping confirmed
// assignment plus the reserved quantity of overlapping unassigned bookings.
func (c *Checker) CheckVehicles(ctx context.Context, branchID, categoryID int64, w model.TimeWindow, needed int) (Result, error) {
	if needed < 1 {
		needed = 1
	}
	vehicles, err := c.store.ActiveVehicles(ctx, branchID, categoryID)
	if err != nil {
		return Result{}, err
	}
	occ, err := c.store.CategoryOccupancies(ctx, branchID, categoryID, w)
	if err != nil {
		return Result{}, err
	}
	reserved, err := c.store.ReservedQuantity(ctx, branchID, categoryID, w)
	if err != nil {
		return Result{}, err
	}

	busy := 0
	var nextFree *time.Time
	for _, v := range vehicles {
		blocking := overlapping(occ[v.ID], w, 0)
		if len(blocking) == 0 {
			continue
		}
		busy++
		for _, o := range blocking {
			end := o.Window.End
			if nextFree == nil || end.Before(*nextFree) {
				t := end
				nextFree = &t
			}
		}
	}

	total := len(vehicles)
	available := total - busy - reserved
	if available < 0 {
		available = 0
	}
	res := Result{
		OK:              available >= needed,
		AvailableCount:  available,
		BusyCount:       busy + reserved,
		TotalCandidates: total,
		Needed:          needed,
	}
	if !res.OK {
		res.NextFreeAt = nextFree
	}
	if c.log != nil {
		c.log.Debugw("availability check", map[string]any{
			"branch": branchID, "category": categoryID,
			"total": total, "busy": busy, "reserved": reserved, "needed": needed, "ok": res.OK,
		})
	}
	return res, nil
}

// DriverFree reports whether the driver has no active assignment overlapping
// w. excludeTripID discounts the candidate trip's own records so a re-check
// before reassignment does not see the trip blocking itself.
func (c *Checker) DriverFree(ctx context.Context, driverID int64, w model.TimeWindow, excludeTripID int64) (bool, error) {
	occ, err := c.store.DriverOccupancies(ctx, driverID)
	if err != nil {
		return false, err
	}
	return len(overlapping(occ, w, excludeTripID)) == 0, nil
}

// VehicleFree is the vehicle counterpart of DriverFree.
func (c *Checker) VehicleFree(ctx context.Context, vehicleID int64, w model.TimeWindow, excludeTripID int64) (bool, error) {
	occ, err := c.store.VehicleOccupancies(ctx, vehicleID)
	if err != nil {
		return false, err
	}
	return len(overlapping(occ, w, excludeTripID)) == 0, nil
}

// overlapping filters occupancies down to active trips whose window
// intersects w, skipping the excluded trip.
func overlapping(occ []Occupancy, w model.TimeWindow, excludeTripID int64) []Occupancy {
	var out []Occupancy
	for _, o := range occ {
		if o.TripID == excludeTripID {
			continue
		}
		if o.Status == model.TripCancelled || o.Status == model.TripCompleted {
			continue
		}
		if o.Window.Overlaps(w) {
			out = append(out, o)
		}
	}
	return out
}
