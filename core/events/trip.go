package events

import (
	"time"

	"github.com/fleetops/tripdispatch/core/model"
)

// TripStatusEvent is published when a trip changes status.
type TripStatusEvent struct {
	TripID    int64
	BookingID int64
	From      model.TripStatus
	To        model.TripStatus
	Time      time.Time
}

// AssignmentEvent is published for every assignment history entry.
type AssignmentEvent struct {
	Record model.AssignmentRecord
}

// DriverStatusEvent is published when dispatch flips a driver's status.
type DriverStatusEvent struct {
	DriverID int64
	From     model.DriverStatus
	To       model.DriverStatus
	Time     time.Time
}

// VehicleStatusEvent is published when dispatch flips a vehicle's status.
type VehicleStatusEvent struct {
	VehicleID int64
	From      model.VehicleStatus
	To        model.VehicleStatus
	Time      time.Time
}
