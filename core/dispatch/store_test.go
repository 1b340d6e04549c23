package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/fleetops/tripdispatch/core/availability"
	"github.com/fleetops/tripdispatch/core/model"
)

// memStore is an in-memory Store/Tx used by the orchestrator tests. RunInTx
// serializes callers with a mutex, mirroring the write lock of the real
// store closely enough for single-process tests.
type memStore struct {
	mu           sync.Mutex
	trips        map[int64]*model.Trip
	bookings     map[int64]model.Booking
	reservations map[int64][]model.CategoryReservation
	categories   map[int64]model.VehicleCategory
	drivers      map[int64]*model.Driver
	vehicles     map[int64]*model.Vehicle
	tripDrivers  []model.TripDriver
	tripVehicles []model.TripVehicle
	history      []model.AssignmentRecord
	dayOff       map[int64]bool
	served       map[int64]bool
	driven       map[[2]int64]bool
}

func newMemStore() *memStore {
	return &memStore{
		trips:        map[int64]*model.Trip{},
		bookings:     map[int64]model.Booking{},
		reservations: map[int64][]model.CategoryReservation{},
		categories:   map[int64]model.VehicleCategory{},
		drivers:      map[int64]*model.Driver{},
		vehicles:     map[int64]*model.Vehicle{},
		dayOff:       map[int64]bool{},
		served:       map[int64]bool{},
		driven:       map[[2]int64]bool{},
	}
}

func (m *memStore) RunInTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// snapshot and restore give RunInTx the rollback-on-error semantics of the
// real store, so a failed transaction leaves no partial writes behind.
func (m *memStore) snapshot() *memStore {
	s := newMemStore()
	for id, t := range m.trips {
		c := *t
		s.trips[id] = &c
	}
	for id, d := range m.drivers {
		c := *d
		s.drivers[id] = &c
	}
	for id, v := range m.vehicles {
		c := *v
		s.vehicles[id] = &c
	}
	s.tripDrivers = append([]model.TripDriver(nil), m.tripDrivers...)
	s.tripVehicles = append([]model.TripVehicle(nil), m.tripVehicles...)
	s.history = append([]model.AssignmentRecord(nil), m.history...)
	return s
}

func (m *memStore) restore(s *memStore) {
	m.trips = s.trips
	m.drivers = s.drivers
	m.vehicles = s.vehicles
	m.tripDrivers = s.tripDrivers
	m.tripVehicles = s.tripVehicles
	m.history = s.history
}

func (m *memStore) View(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}

func (m *memStore) Trip(_ context.Context, id int64) (model.Trip, error) {
	t, ok := m.trips[id]
	if !ok {
		return model.Trip{}, &NotFoundError{Resource: "trip", ID: id}
	}
	return *t, nil
}

func (m *memStore) TripsForBooking(_ context.Context, bookingID int64) ([]model.Trip, error) {
	var out []model.Trip
	for _, t := range m.trips {
		if t.BookingID == bookingID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memStore) UpdateTripStatus(_ context.Context, id int64, status model.TripStatus) error {
	m.trips[id].Status = status
	return nil
}

func (m *memStore) UpdateTripBusyUntil(_ context.Context, id int64, busyUntil time.Time) error {
	m.trips[id].BusyUntil = busyUntil
	return nil
}

func (m *memStore) Booking(_ context.Context, id int64) (model.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, &NotFoundError{Resource: "booking", ID: id}
	}
	return b, nil
}

func (m *memStore) Reservations(_ context.Context, bookingID int64) ([]model.CategoryReservation, error) {
	return m.reservations[bookingID], nil
}

func (m *memStore) Category(_ context.Context, id int64) (model.VehicleCategory, error) {
	c, ok := m.categories[id]
	if !ok {
		return model.VehicleCategory{}, &NotFoundError{Resource: "category", ID: id}
	}
	return c, nil
}

func (m *memStore) Driver(_ context.Context, id int64) (model.Driver, error) {
	d, ok := m.drivers[id]
	if !ok {
		return model.Driver{}, &NotFoundError{Resource: "driver", ID: id}
	}
	return *d, nil
}

func (m *memStore) UpdateDriverStatus(_ context.Context, id int64, status model.DriverStatus) error {
	m.drivers[id].Status = status
	return nil
}

func (m *memStore) Vehicle(_ context.Context, id int64) (model.Vehicle, error) {
	v, ok := m.vehicles[id]
	if !ok {
		return model.Vehicle{}, &NotFoundError{Resource: "vehicle", ID: id}
	}
	return *v, nil
}

func (m *memStore) UpdateVehicleStatus(_ context.Context, id int64, status model.VehicleStatus) error {
	m.vehicles[id].Status = status
	return nil
}

func (m *memStore) TripDrivers(_ context.Context, tripID int64) ([]model.TripDriver, error) {
	var out []model.TripDriver
	for _, td := range m.tripDrivers {
		if td.TripID == tripID {
			out = append(out, td)
		}
	}
	return out, nil
}

func (m *memStore) TripVehicles(_ context.Context, tripID int64) ([]model.TripVehicle, error) {
	var out []model.TripVehicle
	for _, tv := range m.tripVehicles {
		if tv.TripID == tripID {
			out = append(out, tv)
		}
	}
	return out, nil
}

func (m *memStore) AddTripDriver(_ context.Context, td model.TripDriver) error {
	m.tripDrivers = append(m.tripDrivers, td)
	return nil
}

func (m *memStore) AddTripVehicle(_ context.Context, tv model.TripVehicle) error {
	m.tripVehicles = append(m.tripVehicles, tv)
	return nil
}

func (m *memStore) RemoveTripDrivers(_ context.Context, tripID int64) error {
	out := m.tripDrivers[:0]
	for _, td := range m.tripDrivers {
		if td.TripID != tripID {
			out = append(out, td)
		}
	}
	m.tripDrivers = out
	return nil
}

func (m *memStore) RemoveTripVehicles(_ context.Context, tripID int64) error {
	out := m.tripVehicles[:0]
	for _, tv := range m.tripVehicles {
		if tv.TripID != tripID {
			out = append(out, tv)
		}
	}
	m.tripVehicles = out
	return nil
}

func (m *memStore) AppendHistory(_ context.Context, rec model.AssignmentRecord) error {
	m.history = append(m.history, rec)
	return nil
}

func (m *memStore) History(_ context.Context, tripID int64) ([]model.AssignmentRecord, error) {
	var out []model.AssignmentRecord
	for _, r := range m.history {
		if r.TripID == tripID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) PendingTrips(_ context.Context, branchID int64, horizon time.Time) ([]model.Trip, error) {
	var out []model.Trip
	for _, t := range m.trips {
		if t.Status != model.TripScheduled || t.StartTime.After(horizon) {
			continue
		}
		b := m.bookings[t.BookingID]
		if branchID != 0 && b.BranchID != branchID {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *memStore) ActiveVehicles(_ context.Context, branchID, categoryID int64) ([]model.Vehicle, error) {
	var out []model.Vehicle
	for _, v := range m.vehicles {
		if v.BranchID == branchID && v.CategoryID == categoryID && v.Active() {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *memStore) CategoryOccupancies(_ context.Context, branchID, categoryID int64, w model.TimeWindow) (map[int64][]availability.Occupancy, error) {
	out := map[int64][]availability.Occupancy{}
	for _, tv := range m.tripVehicles {
		v := m.vehicles[tv.VehicleID]
		if v == nil || v.BranchID != branchID || v.CategoryID != categoryID {
			continue
		}
		t := m.trips[tv.TripID]
		if t.Window().Overlaps(w) {
			out[tv.VehicleID] = append(out[tv.VehicleID], availability.Occupancy{TripID: t.ID, Window: t.Window(), Status: t.Status})
		}
	}
	return out, nil
}

func (m *memStore) ReservedQuantity(_ context.Context, branchID, categoryID int64, w model.TimeWindow) (int, error) {
	total := 0
	for bookingID, rs := range m.reservations {
		b := m.bookings[bookingID]
		if b.BranchID != branchID || !b.Status.Live() {
			continue
		}
		overlaps := false
		assigned := 0
		for _, t := range m.trips {
			if t.BookingID != bookingID || t.Status.Terminal() {
				continue
			}
			if t.Window().Overlaps(w) {
				overlaps = true
				for _, tv := range m.tripVehicles {
					if tv.TripID == t.ID {
						assigned++
					}
				}
			}
		}
		if !overlaps {
			continue
		}
		for _, r := range rs {
			if r.CategoryID == categoryID && r.Quantity > assigned {
				total += r.Quantity - assigned
			}
		}
	}
	return total, nil
}

func (m *memStore) DriverOccupancies(_ context.Context, driverID int64) ([]availability.Occupancy, error) {
	var out []availability.Occupancy
	for _, td := range m.tripDrivers {
		if td.DriverID != driverID {
			continue
		}
		t := m.trips[td.TripID]
		out = append(out, availability.Occupancy{TripID: t.ID, Window: t.Window(), Status: t.Status})
	}
	return out, nil
}

func (m *memStore) VehicleOccupancies(_ context.Context, vehicleID int64) ([]availability.Occupancy, error) {
	var out []availability.Occupancy
	for _, tv := range m.tripVehicles {
		if tv.VehicleID != vehicleID {
			continue
		}
		t := m.trips[tv.TripID]
		out = append(out, availability.Occupancy{TripID: t.ID, Window: t.Window(), Status: t.Status})
	}
	return out, nil
}

func (m *memStore) DriversAtBranch(_ context.Context, branchID int64) ([]model.Driver, error) {
	var out []model.Driver
	for _, d := range m.drivers {
		if d.BranchID == branchID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) VehiclesAtBranch(_ context.Context, branchID, categoryID int64) ([]model.Vehicle, error) {
	var out []model.Vehicle
	for _, v := range m.vehicles {
		if v.BranchID == branchID && v.CategoryID == categoryID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *memStore) HasDayOff(_ context.Context, driverID int64, _ time.Time) (bool, error) {
	return m.dayOff[driverID], nil
}

func (m *memStore) TripCountBetween(_ context.Context, driverID int64, from, to time.Time) (int, error) {
	count := 0
	seen := map[int64]bool{}
	for _, td := range m.tripDrivers {
		if td.DriverID != driverID || seen[td.TripID] {
			continue
		}
		seen[td.TripID] = true
		t := m.trips[td.TripID]
		if t.Status != model.TripCancelled && !t.StartTime.Before(from) && t.StartTime.Before(to) {
			count++
		}
	}
	return count, nil
}

func (m *memStore) HasServedCustomer(_ context.Context, driverID, _ int64) (bool, error) {
	return m.served[driverID], nil
}

func (m *memStore) HasDrivenVehicle(_ context.Context, driverID, vehicleID int64) (bool, error) {
	return m.driven[[2]int64{driverID, vehicleID}], nil
}
