package model

import (
	"strings"
	"time"
)

// DriverStatus enumerates driver availability states.
type DriverStatus string

const (
	DriverAvailable DriverStatus = "AVAILABLE"
	DriverOnTrip    DriverStatus = "ON_TRIP"
	DriverInactive  DriverStatus = "INACTIVE"
)

// Driver is a branch-owned resource. Status is mutated exclusively by the
// dispatch orchestrator in response to trip lifecycle events.
type Driver struct {
	ID            int64        `json:"id"`
	BranchID      int64        `json:"branchId"`
	Name          string       `json:"name"`
	Phone         string       `json:"phone,omitempty"`
	LicenseClass  string       `json:"licenseClass"`
	LicenseExpiry *time.Time   `json:"licenseExpiry,omitempty"`
	PriorityLevel int          `json:"priorityLevel"` // tie-break weight, higher is preferred
	Status        DriverStatus `json:"status"`
	Ratings       []float64    `json:"ratings,omitempty"` // customer rating history, most recent last
}

// Active reports whether the driver may be considered for assignment at all.
func (d Driver) Active() bool { return d.Status != DriverInactive }

// LicenseCovers reports whether the driver's license class allows a vehicle
// with the given seat count. Class E covers everything, D up to 30 seats and
// the B classes anything below 10.
func LicenseCovers(class string, seats int) bool {
	switch strings.ToUpper(strings.TrimSpace(class)) {
	case "E":
		return true
	case "D":
		return seats <= 30
	case "B", "B1", "B2":
		return seats < 10
	default:
		return false
	}
}

// DayOffStatus enumerates states of a driver's day-off request.
type DayOffStatus string

const (
	DayOffPending  DayOffStatus = "PENDING"
	DayOffApproved DayOffStatus = "APPROVED"
	DayOffRejected DayOffStatus = "REJECTED"
)

// DayOff is a driver leave period; only APPROVED entries block dispatch.
type DayOff struct {
	ID        int64
	DriverID  int64
	StartDate time.Time
	EndDate   time.Time
	Status    DayOffStatus
}

// Covers reports whether the day-off period includes the given day.
func (d DayOff) Covers(day time.Time) bool {
	y, m, dd := day.Date()
	day = time.Date(y, m, dd, 0, 0, 0, 0, day.Location())
	return !day.Before(startOfDay(d.StartDate)) && !day.After(startOfDay(d.EndDate))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
