// Package dispatch drives the trip state machine: assign, unassign,
// reassign, start and complete, each executed as a single transaction with
// the availability re-check inside it. Events and metrics are emitted only
// after the transaction commits.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/tripdispatch/core/availability"
	"github.com/fleetops/tripdispatch/core/events"
	"github.com/fleetops/tripdispatch/core/logger"
	"github.com/fleetops/tripdispatch/core/metrics"
	"github.com/fleetops/tripdispatch/core/model"
	"github.com/fleetops/tripdispatch/core/monitoring"
	"github.com/fleetops/tripdispatch/core/occupancy"
	"github.com/fleetops/tripdispatch/core/scoring"
	"github.com/fleetops/tripdispatch/internal/eventbus"
)

// AssignRequest drives Assign and Reassign. Either concrete resource ids or
// AutoAssign must be supplied. With an empty TripIDs list every assignable
// trip of the booking is targeted.
type AssignRequest struct {
	BookingID      int64   `json:"bookingId"`
	TripIDs        []int64 `json:"tripIds,omitempty"`
	DriverID       int64   `json:"driverId,omitempty"`
	SecondDriverID int64   `json:"secondDriverId,omitempty"`
	VehicleID      int64   `json:"vehicleId,omitempty"`
	AutoAssign     bool    `json:"autoAssign,omitempty"`
	Actor          string  `json:"actor,omitempty"`
	Note           string  `json:"note,omitempty"`
}

// TripAssignment summarises one trip after an assign-class operation.
type TripAssignment struct {
	TripID     int64            `json:"tripId"`
	Status     model.TripStatus `json:"status"`
	DriverIDs  []int64          `json:"driverIds"`
	VehicleIDs []int64          `json:"vehicleIds"`
	BusyUntil  time.Time        `json:"busyUntil"`
}

// Result is the outcome of Assign or Reassign.
type Result struct {
	BookingID int64            `json:"bookingId"`
	Trips     []TripAssignment `json:"trips"`
}

// Orchestrator owns every trip, driver and vehicle status mutation. It is
// safe for concurrent use; the store serializes conflicting writes.
type Orchestrator struct {
	store   Store
	calc    *occupancy.Calculator
	weights scoring.Weights
	cfg     Config
	log     logger.Logger
	sink    metrics.MetricsSink
	bus     eventbus.EventBus
	now     func() time.Time
}

// New creates an Orchestrator. sink and bus may be nil; log must not be.
func New(store Store, calc *occupancy.Calculator, weights scoring.Weights, cfg Config, log logger.Logger, sink metrics.MetricsSink, bus eventbus.EventBus) *Orchestrator {
	cfg.SetDefaults()
	weights.SetDefaults()
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Orchestrator{
		store:   store,
		calc:    calc,
		weights: weights,
		cfg:     cfg,
		log:     log,
		sink:    sink,
		bus:     bus,
		now:     time.Now,
	}
}

// emission buffers bus events and history metrics produced inside a
// transaction. Nothing leaves the process until the transaction commits.
type emission struct {
	events  []eventbus.Event
	history []metrics.AssignmentEvent
}

func (e *emission) event(ev eventbus.Event) { e.events = append(e.events, ev) }

func (o *Orchestrator) flush(em *emission) {
	if o.bus != nil {
		for _, ev := range em.events {
			o.bus.Publish(ev)
		}
	}
	if rec, ok := o.sink.(metrics.AssignmentRecorder); ok {
		for _, h := range em.history {
			if err := rec.RecordAssignment(h); err != nil {
				o.log.Warnf("record assignment metric: %v", err)
			}
		}
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsConflict(err):
		return "conflict"
	case IsStateError(err):
		return "invalid_state"
	case IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

func (o *Orchestrator) finishOp(op string, tripID, branchID int64, started time.Time, err error) {
	ev := metrics.OperationEvent{
		Op:       op,
		Outcome:  outcomeOf(err),
		TripID:   tripID,
		BranchID: branchID,
		Duration: o.now().Sub(started),
		Time:     o.now(),
	}
	if mErr := o.sink.RecordOperation([]metrics.OperationEvent{ev}); mErr != nil {
		o.log.Warnf("record operation metric: %v", mErr)
	}
	if err != nil && ev.Outcome == "error" {
		monitoring.CaptureException(err, map[string]string{"op": op})
	}
}

// Assign attaches a driver and/or vehicle to the booking's trips. With
// AutoAssign the best scored pair is used instead of explicit ids.
func (o *Orchestrator) Assign(ctx context.Context, req AssignRequest) (Result, error) {
	return o.assign(ctx, "assign", req, false)
}

// Reassign replaces a trip's current resources with new ones in one
// transaction; no intermediate unassigned state is observable outside it.
func (o *Orchestrator) Reassign(ctx context.Context, req AssignRequest) (Result, error) {
	return o.assign(ctx, "reassign", req, true)
}

func (o *Orchestrator) assign(ctx context.Context, op string, req AssignRequest, replace bool) (Result, error) {
	started := o.now()
	if !req.AutoAssign && req.DriverID == 0 && req.VehicleID == 0 {
		return Result{}, fmt.Errorf("%s: driverId, vehicleId or autoAssign required", op)
	}
	if req.BookingID == 0 && len(req.TripIDs) == 0 {
		return Result{}, fmt.Errorf("%s: bookingId or tripIds required", op)
	}

	var (
		res      Result
		branchID int64
		em       emission
	)
	err := o.store.RunInTx(ctx, func(tx Tx) error {
		trips, err := o.targetTrips(ctx, tx, req)
		if err != nil {
			return err
		}
		res = Result{BookingID: req.BookingID}
		for _, trip := range trips {
			ta, branch, err := o.assignOne(ctx, tx, trip, req, replace, &em)
			if err != nil {
				return err
			}
			branchID = branch
			res.Trips = append(res.Trips, ta)
		}
		return nil
	})
	var firstTrip int64
	if len(res.Trips) > 0 {
		firstTrip = res.Trips[0].TripID
	} else if len(req.TripIDs) > 0 {
		firstTrip = req.TripIDs[0]
	}
	o.finishOp(op, firstTrip, branchID, started, err)
	if err != nil {
		return Result{}, err
	}
	o.flush(&em)
	return res, nil
}

func (o *Orchestrator) targetTrips(ctx context.Context, tx Tx, req AssignRequest) ([]model.Trip, error) {
	if len(req.TripIDs) > 0 {
		trips := make([]model.Trip, 0, len(req.TripIDs))
		for _, id := range req.TripIDs {
			trip, err := tx.Trip(ctx, id)
			if err != nil {
				return nil, err
			}
			if req.BookingID != 0 && trip.BookingID != req.BookingID {
				return nil, fmt.Errorf("trip %d does not belong to booking %d", id, req.BookingID)
			}
			trips = append(trips, trip)
		}
		return trips, nil
	}
	all, err := tx.TripsForBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	var trips []model.Trip
	for _, t := range all {
		if t.Status == model.TripScheduled || t.Status == model.TripAssigned {
			trips = append(trips, t)
		}
	}
	if len(trips) == 0 {
		return nil, &NotFoundError{Resource: "assignable trip for booking", ID: req.BookingID}
	}
	return trips, nil
}

func (o *Orchestrator) assignOne(ctx context.Context, tx Tx, trip model.Trip, req AssignRequest, replace bool, em *emission) (TripAssignment, int64, error) {
	if trip.Status != model.TripScheduled && trip.Status != model.TripAssigned {
		return TripAssignment{}, 0, &StateError{TripID: trip.ID, Status: trip.Status, Reason: "cannot assign"}
	}
	ti, booking, err := o.tripInfo(ctx, tx, trip)
	if err != nil {
		return TripAssignment{}, 0, err
	}

	// Occupancy is (re)computed on every assign so later edits to the trip's
	// schedule are reflected before the overlap checks run.
	busyUntil, err := o.calc.BusyUntil(ctx, booking.HireType, trip.StartTime, trip.EndTime, trip.DistanceKm, trip.StartLoc, trip.EndLoc)
	if err != nil {
		return TripAssignment{}, 0, err
	}
	if !busyUntil.Equal(trip.BusyUntil) {
		if err := tx.UpdateTripBusyUntil(ctx, trip.ID, busyUntil); err != nil {
			return TripAssignment{}, 0, err
		}
		trip.BusyUntil = busyUntil
		ti.Trip = trip
	}

	checker := availability.New(tx, o.log)
	action := model.ActionAssign
	var driverBefore, vehicleBefore *int64
	if replace {
		action = model.ActionReassign
		driverBefore, vehicleBefore, err = o.clearAssignments(ctx, tx, trip, action, req.Actor, req.Note, em)
		if err != nil {
			return TripAssignment{}, 0, err
		}
	}

	driverID, secondDriverID, vehicleID := req.DriverID, req.SecondDriverID, req.VehicleID
	autoRelief := false
	if req.AutoAssign {
		scorer := scoring.New(o.weights, tx, checker, o.log)
		sug, err := scorer.SuggestPairs(ctx, ti)
		if err != nil {
			return TripAssignment{}, 0, err
		}
		best, err := o.pickPair(ctx, tx, trip, sug.Pairs)
		if err != nil {
			return TripAssignment{}, 0, err
		}
		if best == nil {
			return TripAssignment{}, 0, &ConflictError{Resource: "pair", Reason: fmt.Sprintf("no eligible driver/vehicle pair for trip %d", trip.ID)}
		}
		driverID, vehicleID = best.Driver.ID, best.Vehicle.ID
		if secondDriverID == 0 && ti.Trip.Window().Duration() >= time.Duration(o.cfg.LongTripHours)*time.Hour {
			secondDriverID = pickRelief(sug.Drivers, driverID)
			autoRelief = secondDriverID != 0
			if secondDriverID == 0 {
				o.log.Warnf("trip %d exceeds %dh but no relief driver is available", trip.ID, o.cfg.LongTripHours)
			}
		}
	}

	if driverID != 0 {
		if err := o.addDriver(ctx, tx, ti, checker, driverID, model.RoleMain, action, req, driverBefore, vehicleBefore, em); err != nil {
			return TripAssignment{}, 0, err
		}
	}
	if secondDriverID != 0 {
		if secondDriverID == driverID {
			return TripAssignment{}, 0, &ConflictError{Resource: "driver", ID: driverID, Reason: "cannot be both main and relief driver"}
		}
		if err := o.addDriver(ctx, tx, ti, checker, secondDriverID, model.RoleRelief, action, req, nil, nil, em); err != nil {
			// An auto-picked relief driver is best effort; an explicitly
			// requested one is not.
			if !(autoRelief && IsConflict(err)) {
				return TripAssignment{}, 0, err
			}
			o.log.Warnf("trip %d: relief driver %d skipped: %v", trip.ID, secondDriverID, err)
		}
	}
	if vehicleID != 0 {
		if err := o.addVehicle(ctx, tx, ti, checker, vehicleID, action, req, driverBefore, vehicleBefore, em); err != nil {
			return TripAssignment{}, 0, err
		}
	}

	ta, err := o.settleStatus(ctx, tx, trip, em)
	if err != nil {
		return TripAssignment{}, 0, err
	}
	return ta, booking.BranchID, nil
}

// clearAssignments removes the trip's joins, returning the previous main
// driver and vehicle for the caller's audit record. Removed relief drivers
// get their own history entry so every freed resource stays on the trail.
func (o *Orchestrator) clearAssignments(ctx context.Context, tx Tx, trip model.Trip, action model.AssignmentAction, actor, note string, em *emission) (driverBefore, vehicleBefore *int64, err error) {
	drivers, err := tx.TripDrivers(ctx, trip.ID)
	if err != nil {
		return nil, nil, err
	}
	for _, d := range drivers {
		if d.Role == model.RoleMain && driverBefore == nil {
			id := d.DriverID
			driverBefore = &id
			continue
		}
		id := d.DriverID
		if err := o.record(ctx, tx, em, model.AssignmentRecord{
			TripID:       trip.ID,
			Action:       action,
			Actor:        actor,
			DriverBefore: &id,
			Note:         noteFor(model.RoleRelief, note),
		}); err != nil {
			return nil, nil, err
		}
	}
	vehicles, err := tx.TripVehicles(ctx, trip.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(vehicles) > 0 {
		id := vehicles[0].VehicleID
		vehicleBefore = &id
	}
	if err := tx.RemoveTripDrivers(ctx, trip.ID); err != nil {
		return nil, nil, err
	}
	if err := tx.RemoveTripVehicles(ctx, trip.ID); err != nil {
		return nil, nil, err
	}
	return driverBefore, vehicleBefore, nil
}

func (o *Orchestrator) addDriver(ctx context.Context, tx Tx, ti scoring.TripInfo, checker *availability.Checker, driverID int64, role string, action model.AssignmentAction, req AssignRequest, driverBefore, vehicleBefore *int64, em *emission) error {
	driver, err := tx.Driver(ctx, driverID)
	if err != nil {
		return err
	}
	if !driver.Active() {
		return &ConflictError{Resource: "driver", ID: driverID, Reason: "inactive"}
	}
	existing, err := tx.TripDrivers(ctx, ti.Trip.ID)
	if err != nil {
		return err
	}
	for _, d := range existing {
		if d.DriverID == driverID {
			return &ConflictError{Resource: "driver", ID: driverID, Reason: fmt.Sprintf("already assigned to trip %d", ti.Trip.ID)}
		}
	}
	if driver.LicenseExpiry != nil && driver.LicenseExpiry.Before(ti.Trip.Window().Start) {
		return &ConflictError{Resource: "driver", ID: driverID, Reason: "license expires before the trip starts"}
	}
	if ti.Seats > 0 && !model.LicenseCovers(driver.LicenseClass, ti.Seats) {
		return &ConflictError{Resource: "driver", ID: driverID, Reason: fmt.Sprintf("license class %s cannot operate a %d-seat vehicle", driver.LicenseClass, ti.Seats)}
	}
	off, err := tx.HasDayOff(ctx, driverID, ti.Trip.Window().Start)
	if err != nil {
		return err
	}
	if off {
		return &ConflictError{Resource: "driver", ID: driverID, Reason: "on approved day off"}
	}
	if err := o.checkSiblingTrips(ctx, tx, ti.Trip, "driver", driverID, func(tripID int64) (bool, error) {
		joins, err := tx.TripDrivers(ctx, tripID)
		if err != nil {
			return false, err
		}
		for _, j := range joins {
			if j.DriverID == driverID {
				return true, nil
			}
		}
		return false, nil
	}); err != nil {
		return err
	}
	free, err := checker.DriverFree(ctx, driverID, ti.Trip.Window(), ti.Trip.ID)
	if err != nil {
		return err
	}
	if !free {
		return &ConflictError{Resource: "driver", ID: driverID, Reason: "occupied during the trip's window"}
	}
	if err := tx.AddTripDriver(ctx, model.TripDriver{TripID: ti.Trip.ID, DriverID: driverID, Role: role, Note: req.Note}); err != nil {
		return err
	}
	after := driverID
	return o.record(ctx, tx, em, model.AssignmentRecord{
		TripID:        ti.Trip.ID,
		Action:        action,
		Actor:         req.Actor,
		DriverBefore:  driverBefore,
		DriverAfter:   &after,
		VehicleBefore: vehicleBefore,
		Note:          noteFor(role, req.Note),
	})
}

// pickPair returns the best-ranked pair whose driver and vehicle are not
// already attached to a sibling trip of the booking. The scorer ranks on
// window overlap alone and cannot see the within-booking exclusivity rule.
func (o *Orchestrator) pickPair(ctx context.Context, tx Tx, trip model.Trip, pairs []scoring.PairSuggestion) (*scoring.PairSuggestion, error) {
	for i := range pairs {
		p := &pairs[i]
		if err := o.checkSiblingTrips(ctx, tx, trip, "driver", p.Driver.ID, func(tripID int64) (bool, error) {
			joins, err := tx.TripDrivers(ctx, tripID)
			if err != nil {
				return false, err
			}
			for _, j := range joins {
				if j.DriverID == p.Driver.ID {
					return true, nil
				}
			}
			return false, nil
		}); err != nil {
			if IsConflict(err) {
				continue
			}
			return nil, err
		}
		if err := o.checkSiblingTrips(ctx, tx, trip, "vehicle", p.Vehicle.ID, func(tripID int64) (bool, error) {
			joins, err := tx.TripVehicles(ctx, tripID)
			if err != nil {
				return false, err
			}
			for _, j := range joins {
				if j.VehicleID == p.Vehicle.ID {
					return true, nil
				}
			}
			return false, nil
		}); err != nil {
			if IsConflict(err) {
				continue
			}
			return nil, err
		}
		return p, nil
	}
	return nil, nil
}

// checkSiblingTrips rejects a resource already attached to another live trip
// of the same booking. Each trip of a booking gets its own resources, even
// when the trips do not overlap.
func (o *Orchestrator) checkSiblingTrips(ctx context.Context, tx Tx, trip model.Trip, resource string, id int64, attached func(tripID int64) (bool, error)) error {
	siblings, err := tx.TripsForBooking(ctx, trip.BookingID)
	if err != nil {
		return err
	}
	for _, s := range siblings {
		if s.ID == trip.ID || s.Status.Terminal() {
			continue
		}
		found, err := attached(s.ID)
		if err != nil {
			return err
		}
		if found {
			return &ConflictError{Resource: resource, ID: id, Reason: fmt.Sprintf("already assigned to trip %d of the same booking", s.ID)}
		}
	}
	return nil
}

func (o *Orchestrator) addVehicle(ctx context.Context, tx Tx, ti scoring.TripInfo, checker *availability.Checker, vehicleID int64, action model.AssignmentAction, req AssignRequest, driverBefore, vehicleBefore *int64, em *emission) error {
	vehicle, err := tx.Vehicle(ctx, vehicleID)
	if err != nil {
		return err
	}
	if !vehicle.Active() {
		return &ConflictError{Resource: "vehicle", ID: vehicleID, Reason: fmt.Sprintf("status %s", vehicle.Status)}
	}
	existing, err := tx.TripVehicles(ctx, ti.Trip.ID)
	if err != nil {
		return err
	}
	for _, v := range existing {
		if v.VehicleID == vehicleID {
			return &ConflictError{Resource: "vehicle", ID: vehicleID, Reason: fmt.Sprintf("already assigned to trip %d", ti.Trip.ID)}
		}
	}
	if ti.Seats > 0 && vehicle.Capacity < ti.Seats {
		return &ConflictError{Resource: "vehicle", ID: vehicleID, Reason: fmt.Sprintf("capacity %d below required %d", vehicle.Capacity, ti.Seats)}
	}
	if err := o.checkSiblingTrips(ctx, tx, ti.Trip, "vehicle", vehicleID, func(tripID int64) (bool, error) {
		joins, err := tx.TripVehicles(ctx, tripID)
		if err != nil {
			return false, err
		}
		for _, j := range joins {
			if j.VehicleID == vehicleID {
				return true, nil
			}
		}
		return false, nil
	}); err != nil {
		return err
	}
	free, err := checker.VehicleFree(ctx, vehicleID, ti.Trip.Window(), ti.Trip.ID)
	if err != nil {
		return err
	}
	if !free {
		return &ConflictError{Resource: "vehicle", ID: vehicleID, Reason: "occupied during the trip's window"}
	}
	if err := tx.AddTripVehicle(ctx, model.TripVehicle{TripID: ti.Trip.ID, VehicleID: vehicleID, Note: req.Note}); err != nil {
		return err
	}
	after := vehicleID
	return o.record(ctx, tx, em, model.AssignmentRecord{
		TripID:        ti.Trip.ID,
		Action:        action,
		Actor:         req.Actor,
		DriverBefore:  driverBefore,
		VehicleBefore: vehicleBefore,
		VehicleAfter:  &after,
		Note:          req.Note,
	})
}

// settleStatus recomputes the trip status from its join rows: SCHEDULED
// becomes ASSIGNED once at least one driver and one vehicle are attached,
// and ASSIGNED reverts to SCHEDULED when either is missing (a reassign may
// replace only one side). It reports the trip's current assignments.
func (o *Orchestrator) settleStatus(ctx context.Context, tx Tx, trip model.Trip, em *emission) (TripAssignment, error) {
	drivers, err := tx.TripDrivers(ctx, trip.ID)
	if err != nil {
		return TripAssignment{}, err
	}
	vehicles, err := tx.TripVehicles(ctx, trip.ID)
	if err != nil {
		return TripAssignment{}, err
	}
	ta := TripAssignment{TripID: trip.ID, Status: trip.Status, BusyUntil: trip.BusyUntil}
	for _, d := range drivers {
		ta.DriverIDs = append(ta.DriverIDs, d.DriverID)
	}
	for _, v := range vehicles {
		ta.VehicleIDs = append(ta.VehicleIDs, v.VehicleID)
	}
	switch {
	case trip.Status == model.TripScheduled && len(drivers) > 0 && len(vehicles) > 0:
		if err := o.transition(ctx, tx, trip, model.TripAssigned, em); err != nil {
			return TripAssignment{}, err
		}
		ta.Status = model.TripAssigned
	case trip.Status == model.TripAssigned && (len(drivers) == 0 || len(vehicles) == 0):
		if err := o.transition(ctx, tx, trip, model.TripScheduled, em); err != nil {
			return TripAssignment{}, err
		}
		ta.Status = model.TripScheduled
	}
	return ta, nil
}

// Unassign removes every driver and vehicle from the trip and reverts it to
// SCHEDULED. Freed resources return to AVAILABLE unless another ongoing trip
// still holds them.
func (o *Orchestrator) Unassign(ctx context.Context, tripID int64, actor, note string) error {
	started := o.now()
	var em emission
	err := o.store.RunInTx(ctx, func(tx Tx) error {
		trip, err := tx.Trip(ctx, tripID)
		if err != nil {
			return err
		}
		if trip.Status != model.TripAssigned && trip.Status != model.TripScheduled {
			return &StateError{TripID: tripID, Status: trip.Status, Reason: "cannot unassign"}
		}
		driverBefore, vehicleBefore, err := o.clearAssignments(ctx, tx, trip, model.ActionUnassign, actor, note, &em)
		if err != nil {
			return err
		}
		if driverBefore == nil && vehicleBefore == nil {
			return &StateError{TripID: tripID, Status: trip.Status, Reason: "nothing assigned"}
		}
		if driverBefore != nil {
			if err := o.releaseDriver(ctx, tx, *driverBefore, tripID, &em); err != nil {
				return err
			}
		}
		if vehicleBefore != nil {
			if err := o.releaseVehicle(ctx, tx, *vehicleBefore, tripID, &em); err != nil {
				return err
			}
		}
		if trip.Status == model.TripAssigned {
			if err := o.transition(ctx, tx, trip, model.TripScheduled, &em); err != nil {
				return err
			}
		}
		return o.record(ctx, tx, &em, model.AssignmentRecord{
			TripID:        tripID,
			Action:        model.ActionUnassign,
			Actor:         actor,
			DriverBefore:  driverBefore,
			VehicleBefore: vehicleBefore,
			Note:          note,
		})
	})
	o.finishOp("unassign", tripID, 0, started, err)
	if err != nil {
		return err
	}
	o.flush(&em)
	return nil
}

// Start moves an ASSIGNED trip to ONGOING and flips its driver(s) to
// ON_TRIP and vehicle(s) to IN_USE.
func (o *Orchestrator) Start(ctx context.Context, tripID int64, actor string) (model.Trip, error) {
	started := o.now()
	var (
		em   emission
		trip model.Trip
	)
	err := o.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		trip, err = tx.Trip(ctx, tripID)
		if err != nil {
			return err
		}
		if trip.Status != model.TripAssigned {
			return &StateError{TripID: tripID, Status: trip.Status, Reason: "no driver assigned"}
		}
		drivers, err := tx.TripDrivers(ctx, tripID)
		if err != nil {
			return err
		}
		if len(drivers) == 0 {
			return &StateError{TripID: tripID, Status: trip.Status, Reason: "no driver assigned"}
		}
		vehicles, err := tx.TripVehicles(ctx, tripID)
		if err != nil {
			return err
		}
		if err := o.transition(ctx, tx, trip, model.TripOngoing, &em); err != nil {
			return err
		}
		trip.Status = model.TripOngoing
		for _, d := range drivers {
			if err := o.setDriverStatus(ctx, tx, d.DriverID, model.DriverOnTrip, &em); err != nil {
				return err
			}
		}
		for _, v := range vehicles {
			if err := o.setVehicleStatus(ctx, tx, v.VehicleID, model.VehicleInUse, &em); err != nil {
				return err
			}
		}
		return o.record(ctx, tx, &em, model.AssignmentRecord{
			TripID: tripID,
			Action: model.ActionStart,
			Actor:  actor,
		})
	})
	o.finishOp("start", tripID, 0, started, err)
	if err != nil {
		return model.Trip{}, err
	}
	o.flush(&em)
	return trip, nil
}

// Complete moves an ONGOING trip to COMPLETED and releases its resources
// back to AVAILABLE unless another ongoing trip still holds them.
func (o *Orchestrator) Complete(ctx context.Context, tripID int64, actor string) (model.Trip, error) {
	started := o.now()
	var (
		em   emission
		trip model.Trip
	)
	err := o.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		trip, err = tx.Trip(ctx, tripID)
		if err != nil {
			return err
		}
		if trip.Status != model.TripOngoing {
			return &StateError{TripID: tripID, Status: trip.Status, Reason: "only an ongoing trip can complete"}
		}
		drivers, err := tx.TripDrivers(ctx, tripID)
		if err != nil {
			return err
		}
		vehicles, err := tx.TripVehicles(ctx, tripID)
		if err != nil {
			return err
		}
		if err := o.transition(ctx, tx, trip, model.TripCompleted, &em); err != nil {
			return err
		}
		trip.Status = model.TripCompleted
		for _, d := range drivers {
			if err := o.releaseDriver(ctx, tx, d.DriverID, tripID, &em); err != nil {
				return err
			}
		}
		for _, v := range vehicles {
			if err := o.releaseVehicle(ctx, tx, v.VehicleID, tripID, &em); err != nil {
				return err
			}
		}
		return o.record(ctx, tx, &em, model.AssignmentRecord{
			TripID: tripID,
			Action: model.ActionComplete,
			Actor:  actor,
		})
	})
	o.finishOp("complete", tripID, 0, started, err)
	if err != nil {
		return model.Trip{}, err
	}
	o.flush(&em)
	return trip, nil
}

// Accept records a driver's acknowledgement of an assignment. It does not
// change the trip state machine.
func (o *Orchestrator) Accept(ctx context.Context, tripID, driverID int64, note string) error {
	started := o.now()
	var em emission
	err := o.store.RunInTx(ctx, func(tx Tx) error {
		trip, err := tx.Trip(ctx, tripID)
		if err != nil {
			return err
		}
		if trip.Status.Terminal() {
			return &StateError{TripID: tripID, Status: trip.Status, Reason: "cannot accept"}
		}
		drivers, err := tx.TripDrivers(ctx, tripID)
		if err != nil {
			return err
		}
		assigned := false
		for _, d := range drivers {
			if d.DriverID == driverID {
				assigned = true
				break
			}
		}
		if !assigned {
			return &ConflictError{Resource: "driver", ID: driverID, Reason: fmt.Sprintf("not assigned to trip %d", tripID)}
		}
		id := driverID
		return o.record(ctx, tx, &em, model.AssignmentRecord{
			TripID:      tripID,
			Action:      model.ActionAccept,
			Actor:       fmt.Sprintf("driver:%d", driverID),
			DriverAfter: &id,
			Note:        note,
		})
	})
	o.finishOp("accept", tripID, 0, started, err)
	if err != nil {
		return err
	}
	o.flush(&em)
	return nil
}

// Availability answers a fleet capacity query outside any mutation.
func (o *Orchestrator) Availability(ctx context.Context, branchID, categoryID int64, w model.TimeWindow, quantity int) (availability.Result, error) {
	var res availability.Result
	err := o.store.View(ctx, func(tx Tx) error {
		var err error
		res, err = availability.New(tx, o.log).CheckVehicles(ctx, branchID, categoryID, w, quantity)
		return err
	})
	if err != nil {
		return availability.Result{}, err
	}
	if rec, ok := o.sink.(metrics.AvailabilityRecorder); ok {
		ev := metrics.AvailabilityEvent{
			BranchID:        branchID,
			CategoryID:      categoryID,
			OK:              res.OK,
			AvailableCount:  res.AvailableCount,
			BusyCount:       res.BusyCount,
			TotalCandidates: res.TotalCandidates,
			Time:            o.now(),
		}
		if mErr := rec.RecordAvailability(ev); mErr != nil {
			o.log.Warnf("record availability metric: %v", mErr)
		}
	}
	return res, nil
}

// Suggestions ranks drivers, vehicles and pairs for the trip.
func (o *Orchestrator) Suggestions(ctx context.Context, tripID int64) (scoring.Suggestion, error) {
	var sug scoring.Suggestion
	err := o.store.View(ctx, func(tx Tx) error {
		trip, err := tx.Trip(ctx, tripID)
		if err != nil {
			return err
		}
		ti, _, err := o.tripInfo(ctx, tx, trip)
		if err != nil {
			return err
		}
		checker := availability.New(tx, o.log)
		sug, err = scoring.New(o.weights, tx, checker, o.log).SuggestPairs(ctx, ti)
		return err
	})
	return sug, err
}

// PendingTrips lists SCHEDULED trips awaiting resources, soonest first.
func (o *Orchestrator) PendingTrips(ctx context.Context, branchID int64) ([]model.Trip, error) {
	horizon := o.now().AddDate(0, 0, o.cfg.PendingHorizonDays)
	var trips []model.Trip
	err := o.store.View(ctx, func(tx Tx) error {
		var err error
		trips, err = tx.PendingTrips(ctx, branchID, horizon)
		return err
	})
	return trips, err
}

// History returns the trip's append-only audit trail, oldest first.
func (o *Orchestrator) History(ctx context.Context, tripID int64) ([]model.AssignmentRecord, error) {
	var recs []model.AssignmentRecord
	err := o.store.View(ctx, func(tx Tx) error {
		var err error
		recs, err = tx.History(ctx, tripID)
		return err
	})
	return recs, err
}

func (o *Orchestrator) tripInfo(ctx context.Context, tx Tx, trip model.Trip) (scoring.TripInfo, model.Booking, error) {
	booking, err := tx.Booking(ctx, trip.BookingID)
	if err != nil {
		return scoring.TripInfo{}, model.Booking{}, err
	}
	ti := scoring.TripInfo{
		Trip:       trip,
		BranchID:   booking.BranchID,
		CustomerID: booking.CustomerID,
	}
	reservations, err := tx.Reservations(ctx, booking.ID)
	if err != nil {
		return scoring.TripInfo{}, model.Booking{}, err
	}
	if len(reservations) > 0 {
		ti.CategoryID = reservations[0].CategoryID
		cat, err := tx.Category(ctx, ti.CategoryID)
		if err != nil {
			return scoring.TripInfo{}, model.Booking{}, err
		}
		ti.Seats = cat.Seats
	}
	return ti, booking, nil
}

func (o *Orchestrator) transition(ctx context.Context, tx Tx, trip model.Trip, to model.TripStatus, em *emission) error {
	if !trip.Status.CanTransition(to) {
		return &StateError{TripID: trip.ID, Status: trip.Status, Reason: fmt.Sprintf("cannot transition to %s", to)}
	}
	if err := tx.UpdateTripStatus(ctx, trip.ID, to); err != nil {
		return err
	}
	em.event(events.TripStatusEvent{TripID: trip.ID, BookingID: trip.BookingID, From: trip.Status, To: to, Time: o.now()})
	return nil
}

func (o *Orchestrator) setDriverStatus(ctx context.Context, tx Tx, driverID int64, to model.DriverStatus, em *emission) error {
	driver, err := tx.Driver(ctx, driverID)
	if err != nil {
		return err
	}
	if driver.Status == to {
		return nil
	}
	if err := tx.UpdateDriverStatus(ctx, driverID, to); err != nil {
		return err
	}
	em.event(events.DriverStatusEvent{DriverID: driverID, From: driver.Status, To: to, Time: o.now()})
	return nil
}

func (o *Orchestrator) setVehicleStatus(ctx context.Context, tx Tx, vehicleID int64, to model.VehicleStatus, em *emission) error {
	vehicle, err := tx.Vehicle(ctx, vehicleID)
	if err != nil {
		return err
	}
	if vehicle.Status == to {
		return nil
	}
	if err := tx.UpdateVehicleStatus(ctx, vehicleID, to); err != nil {
		return err
	}
	em.event(events.VehicleStatusEvent{VehicleID: vehicleID, From: vehicle.Status, To: to, Time: o.now()})
	return nil
}

// releaseDriver returns the driver to AVAILABLE unless another ongoing trip
// still holds them. Back-to-back trips therefore flip the status per trip.
func (o *Orchestrator) releaseDriver(ctx context.Context, tx Tx, driverID, excludeTripID int64, em *emission) error {
	occ, err := tx.DriverOccupancies(ctx, driverID)
	if err != nil {
		return err
	}
	for _, oc := range occ {
		if oc.TripID != excludeTripID && oc.Status == model.TripOngoing {
			return nil
		}
	}
	return o.setDriverStatus(ctx, tx, driverID, model.DriverAvailable, em)
}

func (o *Orchestrator) releaseVehicle(ctx context.Context, tx Tx, vehicleID, excludeTripID int64, em *emission) error {
	occ, err := tx.VehicleOccupancies(ctx, vehicleID)
	if err != nil {
		return err
	}
	for _, oc := range occ {
		if oc.TripID != excludeTripID && oc.Status == model.TripOngoing {
			return nil
		}
	}
	return o.setVehicleStatus(ctx, tx, vehicleID, model.VehicleAvailable, em)
}

func (o *Orchestrator) record(ctx context.Context, tx Tx, em *emission, rec model.AssignmentRecord) error {
	rec.ID = uuid.NewString()
	rec.CreatedAt = o.now()
	if err := tx.AppendHistory(ctx, rec); err != nil {
		return err
	}
	em.event(events.AssignmentEvent{Record: rec})
	mev := metrics.AssignmentEvent{TripID: rec.TripID, Action: rec.Action, Actor: rec.Actor, Time: rec.CreatedAt}
	if rec.DriverAfter != nil {
		mev.DriverID = *rec.DriverAfter
	} else if rec.DriverBefore != nil {
		mev.DriverID = *rec.DriverBefore
	}
	if rec.VehicleAfter != nil {
		mev.VehicleID = *rec.VehicleAfter
	} else if rec.VehicleBefore != nil {
		mev.VehicleID = *rec.VehicleBefore
	}
	em.history = append(em.history, mev)
	return nil
}

func noteFor(role, note string) string {
	if role == model.RoleRelief {
		if note == "" {
			return "relief driver"
		}
		return note + " (relief driver)"
	}
	return note
}

// pickRelief returns the best eligible driver other than mainID, or zero.
func pickRelief(cands []scoring.DriverCandidate, mainID int64) int64 {
	for _, c := range cands {
		if c.Eligible && c.Driver.ID != mainID {
			return c.Driver.ID
		}
	}
	return 0
}
