package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/fleetops/tripdispatch/core/metrics"
	"github.com/fleetops/tripdispatch/core/model"
)

func TestPromSinkRecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	err = sink.RecordOperation([]coremetrics.OperationEvent{
		{Op: "assign", Outcome: "ok", TripID: 1, Duration: 40 * time.Millisecond},
		{Op: "assign", Outcome: "ok", TripID: 2, Duration: 10 * time.Millisecond},
		{Op: "start", Outcome: "conflict", TripID: 1, Duration: time.Millisecond},
	})
	require.NoError(t, err)

	require.Equal(t, 2.0, testutil.ToFloat64(sink.operations.WithLabelValues("assign", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.operations.WithLabelValues("start", "conflict")))
}

func TestPromSinkRecordsAvailability(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	err = sink.RecordAvailability(coremetrics.AvailabilityEvent{
		BranchID:       3,
		CategoryID:     7,
		OK:             false,
		AvailableCount: 1,
		BusyCount:      2,
		Time:           time.Now(),
	})
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(sink.checks.WithLabelValues("false")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.available.WithLabelValues("3", "7")))
}

func TestPromSinkRecordsTransitionsAndAssignments(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordTripTransition(coremetrics.TripTransitionEvent{
		TripID: 1, From: model.TripScheduled, To: model.TripAssigned,
	}))
	require.NoError(t, sink.RecordAssignment(coremetrics.AssignmentEvent{
		TripID: 1, Action: model.ActionAssign,
	}))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.transitions.WithLabelValues("SCHEDULED", "ASSIGNED")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.assignments.WithLabelValues("ASSIGN")))
}

func TestPromSinkDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	// Registering the same collectors twice must reuse them, not fail.
	_, err = NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
}
