package metrics

import (
	"time"

	"github.com/fleetops/tripdispatch/core/model"
)

// OperationEvent is one dispatch operation outcome to be recorded.
type OperationEvent struct {
	Op       string // assign, unassign, reassign, start, complete, accept
	Outcome  string // ok, conflict, invalid_state, not_found, error
	TripID   int64
	BranchID int64
	Duration time.Duration
	Time     time.Time
}

// MetricsSink records dispatch operations for observability purposes.
type MetricsSink interface {
	RecordOperation(evs []OperationEvent) error
}

// AvailabilityEvent captures one fleet availability query and its answer.
type AvailabilityEvent struct {
	BranchID        int64
	CategoryID      int64
	OK              bool
	AvailableCount  int
	BusyCount       int
	TotalCandidates int
	Time            time.Time
}

// AvailabilityRecorder records availability checks.
type AvailabilityRecorder interface {
	RecordAvailability(ev AvailabilityEvent) error
}

// AssignmentEvent mirrors one assignment history entry.
type AssignmentEvent struct {
	TripID    int64
	Action    model.AssignmentAction
	Actor     string
	DriverID  int64 // zero when no driver involved
	VehicleID int64 // zero when no vehicle involved
	Time      time.Time
}

// AssignmentRecorder records assignment history entries.
type AssignmentRecorder interface {
	RecordAssignment(ev AssignmentEvent) error
}

// TripTransitionEvent captures one trip status change.
type TripTransitionEvent struct {
	TripID int64
	From   model.TripStatus
	To     model.TripStatus
	Time   time.Time
}

// TripTransitionRecorder records trip status changes.
type TripTransitionRecorder interface {
	RecordTripTransition(ev TripTransitionEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordOperation([]OperationEvent) error { return nil }

func (NopSink) RecordAvailability(AvailabilityEvent) error { return nil }

func (NopSink) RecordAssignment(AssignmentEvent) error { return nil }

func (NopSink) RecordTripTransition(TripTransitionEvent) error { return nil }
