package model

import "strings"

// HireType encodes how a booking's trips occupy their resources.
type HireType string

const (
	HireOneWay     HireType = "ONE_WAY"
	HireRoundTrip  HireType = "ROUND_TRIP"
	HireDaily      HireType = "DAILY"
	HireMultiDay   HireType = "MULTI_DAY"
	HireFixedRoute HireType = "FIXED_ROUTE"
)

// ParseHireType normalises a hire-type code. Unknown codes fall back to
// ONE_WAY, matching how historical bookings without a code are treated.
func ParseHireType(code string) HireType {
	switch HireType(strings.ToUpper(strings.TrimSpace(code))) {
	case HireRoundTrip:
		return HireRoundTrip
	case HireDaily:
		return HireDaily
	case HireMultiDay:
		return HireMultiDay
	case HireFixedRoute:
		return HireFixedRoute
	default:
		return HireOneWay
	}
}

// BookingStatus mirrors the collaborator-owned booking lifecycle. The dispatch
// engine never mutates it; it only filters on liveness.
type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingQuoted     BookingStatus = "QUOTATION_SENT"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingInProgress BookingStatus = "INPROGRESS"
	BookingCompleted  BookingStatus = "COMPLETED"
	BookingCancelled  BookingStatus = "CANCELLED"
)

// Live reports whether the booking still claims fleet capacity. Cancelled and
// completed bookings no longer hold soft reservations.
func (s BookingStatus) Live() bool {
	return s != BookingCancelled && s != BookingCompleted
}

// Booking is the dispatch engine's read-only view of a booking owned by the
// booking collaborator.
type Booking struct {
	ID         int64
	BranchID   int64
	CustomerID int64
	HireType   HireType
	Status     BookingStatus
}

// CategoryReservation is a booking's soft claim on vehicle capacity: a
// requested quantity of a category before concrete vehicles are assigned.
type CategoryReservation struct {
	BookingID  int64
	CategoryID int64
	Quantity   int
}
