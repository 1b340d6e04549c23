package dispatch

import (
	"context"
	"time"

	"github.com/fleetops/tripdispatch/core/availability"
	"github.com/fleetops/tripdispatch/core/model"
	"github.com/fleetops/tripdispatch/core/scoring"
)

// Tx is the storage surface a dispatch operation works against. It embeds
// the read views the availability checker and the scorer need, so both run
// against the same transaction as the mutation and observe its uncommitted
// writes. Implementations map uniqueness violations on (trip, driver) and
// (trip, vehicle) to duplicate-pair errors as a backstop; the orchestrator
// checks before writing, the constraint catches races.
type Tx interface {
	availability.Store
	scoring.Store

	Trip(ctx context.Context, id int64) (model.Trip, error)
	TripsForBooking(ctx context.Context, bookingID int64) ([]model.Trip, error)
	UpdateTripStatus(ctx context.Context, id int64, status model.TripStatus) error
	UpdateTripBusyUntil(ctx context.Context, id int64, busyUntil time.Time) error

	Booking(ctx context.Context, id int64) (model.Booking, error)
	Reservations(ctx context.Context, bookingID int64) ([]model.CategoryReservation, error)
	Category(ctx context.Context, id int64) (model.VehicleCategory, error)

	Driver(ctx context.Context, id int64) (model.Driver, error)
	UpdateDriverStatus(ctx context.Context, id int64, status model.DriverStatus) error
	Vehicle(ctx context.Context, id int64) (model.Vehicle, error)
	UpdateVehicleStatus(ctx context.Context, id int64, status model.VehicleStatus) error

	TripDrivers(ctx context.Context, tripID int64) ([]model.TripDriver, error)
	TripVehicles(ctx context.Context, tripID int64) ([]model.TripVehicle, error)
	AddTripDriver(ctx context.Context, td model.TripDriver) error
	AddTripVehicle(ctx context.Context, tv model.TripVehicle) error
	RemoveTripDrivers(ctx context.Context, tripID int64) error
	RemoveTripVehicles(ctx context.Context, tripID int64) error

	AppendHistory(ctx context.Context, rec model.AssignmentRecord) error
	History(ctx context.Context, tripID int64) ([]model.AssignmentRecord, error)

	// PendingTrips lists SCHEDULED trips of the branch starting before the
	// horizon, soonest first. A zero branch means all branches.
	PendingTrips(ctx context.Context, branchID int64, horizon time.Time) ([]model.Trip, error)
}

// Store provides transactional access to dispatch state. RunInTx executes fn
// in a writable transaction that holds the write lock for its duration, so
// concurrent mutations on the same resources serialize. View runs fn against
// a read-only snapshot and never blocks writers.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}
