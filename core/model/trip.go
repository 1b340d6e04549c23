package model

import "time"

// TripStatus enumerates the trip lifecycle states (persisted as strings).
type TripStatus string

const (
	TripScheduled TripStatus = "SCHEDULED"
	TripAssigned  TripStatus = "ASSIGNED"
	TripOngoing   TripStatus = "ONGOING"
	TripCompleted TripStatus = "COMPLETED"
	TripCancelled TripStatus = "CANCELLED"
)

// tripTransitions is the directed graph of allowed trip status changes.
// Terminal states have no outgoing edges.
var tripTransitions = map[TripStatus][]TripStatus{
	TripScheduled: {TripAssigned, TripCancelled},
	TripAssigned:  {TripOngoing, TripScheduled, TripCancelled},
	TripOngoing:   {TripCompleted},
	TripCompleted: {},
	TripCancelled: {},
}

// CanTransition reports whether from -> to is an allowed trip status change.
func (from TripStatus) CanTransition(to TripStatus) bool {
	if from == to {
		return true
	}
	for _, s := range tripTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s TripStatus) Terminal() bool { return len(tripTransitions[s]) == 0 }

// Trip is one leg of service for a booking: a single vehicle with one or two
// drivers covering a start/end pair. Trips are created when a booking is
// confirmed and are only ever cancelled, never deleted.
type Trip struct {
	ID         int64      `json:"id"`
	BookingID  int64      `json:"bookingId"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"` // semantics depend on the booking's hire type
	BusyUntil  time.Time  `json:"busyUntil"`         // end of the occupancy window, set on (re)assign
	StartLoc   string     `json:"startLoc"`
	EndLoc     string     `json:"endLoc"`
	DistanceKm float64    `json:"distanceKm"` // 0 means unknown
	UseHighway bool       `json:"useHighway"`
	Status     TripStatus `json:"status"`
}

// Window returns the trip's occupancy window. When BusyUntil has not been
// computed yet it falls back to the explicit end time, then to the start.
func (t Trip) Window() TimeWindow {
	end := t.BusyUntil
	if end.IsZero() && t.EndTime != nil {
		end = *t.EndTime
	}
	if end.IsZero() {
		end = t.StartTime
	}
	return TimeWindow{Start: t.StartTime, End: end}
}
