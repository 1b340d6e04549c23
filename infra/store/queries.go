package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fleetops/tripdispatch/core/dispatch"
	"github.com/fleetops/tripdispatch/core/model"
)

// queries implements dispatch.Tx over one sql.Tx.
type queries struct {
	tx *sql.Tx
}

const activeTripCond = `t.status NOT IN ('CANCELLED','COMPLETED')`

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0).UTC()
	return &t
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(r rowScanner) (model.Trip, error) {
	var (
		t         model.Trip
		endTime   sql.NullInt64
		busyUntil int64
		start     int64
		highway   int
	)
	err := r.Scan(&t.ID, &t.BookingID, &start, &endTime, &busyUntil, &t.StartLoc, &t.EndLoc, &t.DistanceKm, &highway, &t.Status)
	if err != nil {
		return model.Trip{}, err
	}
	t.StartTime = time.Unix(start, 0).UTC()
	t.EndTime = timePtr(endTime)
	if busyUntil != 0 {
		t.BusyUntil = time.Unix(busyUntil, 0).UTC()
	}
	t.UseHighway = highway != 0
	return t, nil
}

const tripCols = `t.id, t.booking_id, t.start_time, t.end_time, t.busy_until, t.start_loc, t.end_loc, t.distance_km, t.use_highway, t.status`

func (q *queries) Trip(ctx context.Context, id int64) (model.Trip, error) {
	row := q.tx.QueryRowContext(ctx, `SELECT `+tripCols+` FROM trips t WHERE t.id = ?`, id)
	t, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Trip{}, &dispatch.NotFoundError{Resource: "trip", ID: id}
	}
	return t, err
}

func (q *queries) TripsForBooking(ctx context.Context, bookingID int64) ([]model.Trip, error) {
	rows, err := q.tx.QueryContext(ctx, `SELECT `+tripCols+` FROM trips t WHERE t.booking_id = ? ORDER BY t.start_time`, bookingID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *queries) UpdateTripStatus(ctx context.Context, id int64, status model.TripStatus) error {
	_, err := q.tx.ExecContext(ctx, `UPDATE trips SET status = ? WHERE id = ?`, string(status), id)
	return err
}

func (q *queries) UpdateTripBusyUntil(ctx context.Context, id int64, busyUntil time.Time) error {
	_, err := q.tx.ExecContext(ctx, `UPDATE trips SET busy_until = ? WHERE id = ?`, busyUntil.Unix(), id)
	return err
}

func (q *queries) Booking(ctx context.Context, id int64) (model.Booking, error) {
	var b model.Booking
	var hire string
	err := q.tx.QueryRowContext(ctx,
		`SELECT id, branch_id, customer_id, hire_type, status FROM bookings WHERE id = ?`, id).
		Scan(&b.ID, &b.BranchID, &b.CustomerID, &hire, &b.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, &dispatch.NotFoundError{Resource: "booking", ID: id}
	}
	if err != nil {
		return model.Booking{}, err
	}
	b.HireType = model.ParseHireType(hire)
	return b, nil
}

func (q *queries) Reservations(ctx context.Context, bookingID int64) ([]model.CategoryReservation, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT booking_id, category_id, quantity FROM booking_vehicle_details WHERE booking_id = ?`, bookingID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.CategoryReservation
	for rows.Next() {
		var r model.CategoryReservation
		if err := rows.Scan(&r.BookingID, &r.CategoryID, &r.Quantity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *queries) Category(ctx context.Context, id int64) (model.VehicleCategory, error) {
	var c model.VehicleCategory
	err := q.tx.QueryRowContext(ctx, `SELECT id, name, seats FROM vehicle_categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Seats)
	if errors.Is(err, sql.ErrNoRows) {
		return model.VehicleCategory{}, &dispatch.NotFoundError{Resource: "category", ID: id}
	}
	return c, err
}

const driverCols = `d.id, d.branch_id, d.name, d.phone, d.license_class, d.license_expiry, d.priority_level, d.status`

func scanDriver(r rowScanner) (model.Driver, error) {
	var d model.Driver
	var expiry sql.NullInt64
	err := r.Scan(&d.ID, &d.BranchID, &d.Name, &d.Phone, &d.LicenseClass, &expiry, &d.PriorityLevel, &d.Status)
	if err != nil {
		return model.Driver{}, err
	}
	d.LicenseExpiry = timePtr(expiry)
	return d, nil
}

func (q *queries) Driver(ctx context.Context, id int64) (model.Driver, error) {
	row := q.tx.QueryRowContext(ctx, `SELECT `+driverCols+` FROM drivers d WHERE d.id = ?`, id)
	d, err := scanDriver(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Driver{}, &dispatch.NotFoundError{Resource: "driver", ID: id}
	}
	if err != nil {
		return model.Driver{}, err
	}
	d.Ratings, err = q.driverRatings(ctx, id)
	return d, err
}

func (q *queries) driverRatings(ctx context.Context, driverID int64) ([]float64, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT rating FROM driver_ratings WHERE driver_id = ? ORDER BY created_at`, driverID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []float64
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *queries) UpdateDriverStatus(ctx context.Context, id int64, status model.DriverStatus) error {
	_, err := q.tx.ExecContext(ctx, `UPDATE drivers SET status = ? WHERE id = ?`, string(status), id)
	return err
}

const vehicleCols = `v.id, v.branch_id, v.category_id, v.plate, v.model, v.capacity, v.status`

func scanVehicle(r rowScanner) (model.Vehicle, error) {
	var v model.Vehicle
	err := r.Scan(&v.ID, &v.BranchID, &v.CategoryID, &v.Plate, &v.Model, &v.Capacity, &v.Status)
	return v, err
}

func (q *queries) Vehicle(ctx context.Context, id int64) (model.Vehicle, error) {
	row := q.tx.QueryRowContext(ctx, `SELECT `+vehicleCols+` FROM vehicles v WHERE v.id = ?`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Vehicle{}, &dispatch.NotFoundError{Resource: "vehicle", ID: id}
	}
	return v, err
}

func (q *queries) UpdateVehicleStatus(ctx context.Context, id int64, status model.VehicleStatus) error {
	_, err := q.tx.ExecContext(ctx, `UPDATE vehicles SET status = ? WHERE id = ?`, string(status), id)
	return err
}

func (q *queries) TripDrivers(ctx context.Context, tripID int64) ([]model.TripDriver, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT trip_id, driver_id, role, note FROM trip_drivers WHERE trip_id = ?`, tripID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.TripDriver
	for rows.Next() {
		var td model.TripDriver
		if err := rows.Scan(&td.TripID, &td.DriverID, &td.Role, &td.Note); err != nil {
			return nil, err
		}
		out = append(out, td)
	}
	return out, rows.Err()
}

func (q *queries) TripVehicles(ctx context.Context, tripID int64) ([]model.TripVehicle, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT trip_id, vehicle_id, note FROM trip_vehicles WHERE trip_id = ?`, tripID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.TripVehicle
	for rows.Next() {
		var tv model.TripVehicle
		if err := rows.Scan(&tv.TripID, &tv.VehicleID, &tv.Note); err != nil {
			return nil, err
		}
		out = append(out, tv)
	}
	return out, rows.Err()
}

// duplicatePair maps the unique-constraint backstop to the dispatch error
// taxonomy, so a race the orchestrator's own check missed still surfaces as
// a conflict.
func duplicatePair(err error, resource string, id int64) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &dispatch.ConflictError{Resource: resource, ID: id, Reason: "already assigned"}
	}
	return err
}

func (q *queries) AddTripDriver(ctx context.Context, td model.TripDriver) error {
	_, err := q.tx.ExecContext(ctx,
		`INSERT INTO trip_drivers (trip_id, driver_id, role, note) VALUES (?, ?, ?, ?)`,
		td.TripID, td.DriverID, td.Role, td.Note)
	return duplicatePair(err, "driver", td.DriverID)
}

func (q *queries) AddTripVehicle(ctx context.Context, tv model.TripVehicle) error {
	_, err := q.tx.ExecContext(ctx,
		`INSERT INTO trip_vehicles (trip_id, vehicle_id, note) VALUES (?, ?, ?)`,
		tv.TripID, tv.VehicleID, tv.Note)
	return duplicatePair(err, "vehicle", tv.VehicleID)
}

func (q *queries) RemoveTripDrivers(ctx context.Context, tripID int64) error {
	_, err := q.tx.ExecContext(ctx, `DELETE FROM trip_drivers WHERE trip_id = ?`, tripID)
	return err
}

func (q *queries) RemoveTripVehicles(ctx context.Context, tripID int64) error {
	_, err := q.tx.ExecContext(ctx, `DELETE FROM trip_vehicles WHERE trip_id = ?`, tripID)
	return err
}

func (q *queries) AppendHistory(ctx context.Context, rec model.AssignmentRecord) error {
	_, err := q.tx.ExecContext(ctx,
		`INSERT INTO trip_assignment_history
		 (id, trip_id, action, actor, driver_before, driver_after, vehicle_before, vehicle_after, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TripID, string(rec.Action), rec.Actor,
		idOrNil(rec.DriverBefore), idOrNil(rec.DriverAfter),
		idOrNil(rec.VehicleBefore), idOrNil(rec.VehicleAfter),
		rec.Note, rec.CreatedAt.Unix())
	return err
}

func idOrNil(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func (q *queries) History(ctx context.Context, tripID int64) ([]model.AssignmentRecord, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT id, trip_id, action, actor, driver_before, driver_after, vehicle_before, vehicle_after, note, created_at
		 FROM trip_assignment_history WHERE trip_id = ? ORDER BY rowid`, tripID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.AssignmentRecord
	for rows.Next() {
		var (
			rec             model.AssignmentRecord
			dBefore, dAfter sql.NullInt64
			vBefore, vAfter sql.NullInt64
			createdAt       int64
		)
		if err := rows.Scan(&rec.ID, &rec.TripID, &rec.Action, &rec.Actor, &dBefore, &dAfter, &vBefore, &vAfter, &rec.Note, &createdAt); err != nil {
			return nil, err
		}
		rec.DriverBefore = int64Ptr(dBefore)
		rec.DriverAfter = int64Ptr(dAfter)
		rec.VehicleBefore = int64Ptr(vBefore)
		rec.VehicleAfter = int64Ptr(vAfter)
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func (q *queries) PendingTrips(ctx context.Context, branchID int64, horizon time.Time) ([]model.Trip, error) {
	query := `SELECT ` + tripCols + ` FROM trips t
		JOIN bookings b ON b.id = t.booking_id
		WHERE t.status = 'SCHEDULED' AND t.start_time <= ?`
	args := []any{horizon.Unix()}
	if branchID != 0 {
		query += ` AND b.branch_id = ?`
		args = append(args, branchID)
	}
	query += ` ORDER BY t.start_time`
	rows, err := q.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
