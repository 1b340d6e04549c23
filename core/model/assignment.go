package model

import "time"

// TripDriver joins a trip to a driver. At most one active record exists per
// (trip, driver) pair.
type TripDriver struct {
	TripID   int64
	DriverID int64
	Role     string // "MAIN" or "RELIEF"
	Note     string
}

// Driver roles on a trip.
const (
	RoleMain   = "MAIN"
	RoleRelief = "RELIEF"
)

// TripVehicle joins a trip to a vehicle. At most one active record exists per
// (trip, vehicle) pair.
type TripVehicle struct {
	TripID    int64
	VehicleID int64
	Note      string
}

// AssignmentAction enumerates audited dispatch operations.
type AssignmentAction string

const (
	ActionAssign   AssignmentAction = "ASSIGN"
	ActionUnassign AssignmentAction = "UNASSIGN"
	ActionReassign AssignmentAction = "REASSIGN"
	ActionStart    AssignmentAction = "START"
	ActionComplete AssignmentAction = "COMPLETE"
	ActionAccept   AssignmentAction = "ACCEPT"
)

// AssignmentRecord is an immutable audit entry, appended on every dispatch
// operation and never updated or deleted.
type AssignmentRecord struct {
	ID            string           `json:"id"` // uuid
	TripID        int64            `json:"tripId"`
	Action        AssignmentAction `json:"action"`
	Actor         string           `json:"actor,omitempty"`
	DriverBefore  *int64           `json:"driverBefore,omitempty"`
	DriverAfter   *int64           `json:"driverAfter,omitempty"`
	VehicleBefore *int64           `json:"vehicleBefore,omitempty"`
	VehicleAfter  *int64           `json:"vehicleAfter,omitempty"`
	Note          string           `json:"note,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}
