package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/fleetops/tripdispatch/core/availability"
	"github.com/fleetops/tripdispatch/core/model"
)

// Read views backing the availability checker and the candidate scorer.

func (q *queries) ActiveVehicles(ctx context.Context, branchID, categoryID int64) ([]model.Vehicle, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT `+vehicleCols+` FROM vehicles v
		 WHERE v.branch_id = ? AND v.category_id = ? AND v.status NOT IN ('INACTIVE','MAINTENANCE')`,
		branchID, categoryID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (q *queries) CategoryOccupancies(ctx context.Context, branchID, categoryID int64, w model.TimeWindow) (map[int64][]availability.Occupancy, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT tv.vehicle_id, `+tripCols+` FROM trip_vehicles tv
		 JOIN trips t ON t.id = tv.trip_id
		 JOIN vehicles v ON v.id = tv.vehicle_id
		 WHERE v.branch_id = ? AND v.category_id = ? AND `+activeTripCond,
		branchID, categoryID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make(map[int64][]availability.Occupancy)
	for rows.Next() {
		var vehicleID int64
		var (
			t         model.Trip
			endTime   sql.NullInt64
			busyUntil int64
			start     int64
			highway   int
		)
		if err := rows.Scan(&vehicleID, &t.ID, &t.BookingID, &start, &endTime, &busyUntil, &t.StartLoc, &t.EndLoc, &t.DistanceKm, &highway, &t.Status); err != nil {
			return nil, err
		}
		t.StartTime = time.Unix(start, 0).UTC()
		t.EndTime = timePtr(endTime)
		if busyUntil != 0 {
			t.BusyUntil = time.Unix(busyUntil, 0).UTC()
		}
		if t.Window().Overlaps(w) {
			out[vehicleID] = append(out[vehicleID], availability.Occupancy{TripID: t.ID, Window: t.Window(), Status: t.Status})
		}
	}
	return out, rows.Err()
}

func (q *queries) ReservedQuantity(ctx context.Context, branchID, categoryID int64, w model.TimeWindow) (int, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT bvd.booking_id, bvd.quantity FROM booking_vehicle_details bvd
		 JOIN bookings b ON b.id = bvd.booking_id
		 WHERE b.branch_id = ? AND bvd.category_id = ? AND b.status NOT IN ('CANCELLED','COMPLETED')`,
		branchID, categoryID)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()
	type claim struct {
		bookingID int64
		quantity  int
	}
	var claims []claim
	for rows.Next() {
		var c claim
		if err := rows.Scan(&c.bookingID, &c.quantity); err != nil {
			return 0, err
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	total := 0
	for _, c := range claims {
		trips, err := q.TripsForBooking(ctx, c.bookingID)
		if err != nil {
			return 0, err
		}
		overlaps := false
		assigned := 0
		for _, t := range trips {
			if t.Status.Terminal() || !t.Window().Overlaps(w) {
				continue
			}
			overlaps = true
			tvs, err := q.TripVehicles(ctx, t.ID)
			if err != nil {
				return 0, err
			}
			assigned += len(tvs)
		}
		if overlaps && c.quantity > assigned {
			total += c.quantity - assigned
		}
	}
	return total, nil
}

func (q *queries) DriverOccupancies(ctx context.Context, driverID int64) ([]availability.Occupancy, error) {
	return q.occupancies(ctx,
		`SELECT `+tripCols+` FROM trip_drivers j JOIN trips t ON t.id = j.trip_id
		 WHERE j.driver_id = ? AND `+activeTripCond, driverID)
}

func (q *queries) VehicleOccupancies(ctx context.Context, vehicleID int64) ([]availability.Occupancy, error) {
	return q.occupancies(ctx,
		`SELECT `+tripCols+` FROM trip_vehicles j JOIN trips t ON t.id = j.trip_id
		 WHERE j.vehicle_id = ? AND `+activeTripCond, vehicleID)
}

func (q *queries) occupancies(ctx context.Context, query string, id int64) ([]availability.Occupancy, error) {
	rows, err := q.tx.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []availability.Occupancy
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, availability.Occupancy{TripID: t.ID, Window: t.Window(), Status: t.Status})
	}
	return out, rows.Err()
}

func (q *queries) DriversAtBranch(ctx context.Context, branchID int64) ([]model.Driver, error) {
	rows, err := q.tx.QueryContext(ctx, `SELECT `+driverCols+` FROM drivers d WHERE d.branch_id = ?`, branchID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Ratings, err = q.driverRatings(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (q *queries) VehiclesAtBranch(ctx context.Context, branchID, categoryID int64) ([]model.Vehicle, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT `+vehicleCols+` FROM vehicles v WHERE v.branch_id = ? AND v.category_id = ?`,
		branchID, categoryID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// HasDayOff treats day-off ranges as whole UTC days.
func (q *queries) HasDayOff(ctx context.Context, driverID int64, day time.Time) (bool, error) {
	y, m, d := day.UTC().Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	var exists int
	err := q.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM driver_day_off
		 WHERE driver_id = ? AND status = 'APPROVED' AND start_day <= ? AND end_day >= ?)`,
		driverID, dayStart, dayStart).Scan(&exists)
	return exists == 1, err
}

func (q *queries) TripCountBetween(ctx context.Context, driverID int64, from, to time.Time) (int, error) {
	var count int
	err := q.tx.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT t.id) FROM trips t
		 JOIN trip_drivers td ON td.trip_id = t.id
		 WHERE td.driver_id = ? AND t.status != 'CANCELLED' AND t.start_time >= ? AND t.start_time < ?`,
		driverID, from.Unix(), to.Unix()).Scan(&count)
	return count, err
}

func (q *queries) HasServedCustomer(ctx context.Context, driverID, customerID int64) (bool, error) {
	var exists int
	err := q.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM trips t
		 JOIN trip_drivers td ON td.trip_id = t.id
		 JOIN bookings b ON b.id = t.booking_id
		 WHERE td.driver_id = ? AND b.customer_id = ? AND t.status = 'COMPLETED')`,
		driverID, customerID).Scan(&exists)
	return exists == 1, err
}

func (q *queries) HasDrivenVehicle(ctx context.Context, driverID, vehicleID int64) (bool, error) {
	var exists int
	err := q.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM trip_drivers td
		 JOIN trip_vehicles tv ON tv.trip_id = td.trip_id
		 JOIN trips t ON t.id = td.trip_id
		 WHERE td.driver_id = ? AND tv.vehicle_id = ? AND t.status = 'COMPLETED')`,
		driverID, vehicleID).Scan(&exists)
	return exists == 1, err
}
