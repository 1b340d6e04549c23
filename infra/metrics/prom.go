package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/fleetops/tripdispatch/core/metrics"
)

// PromSink records dispatch events in Prometheus metrics.
type PromSink struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	assignments *prometheus.CounterVec
	transitions *prometheus.CounterVec
	checks      *prometheus.CounterVec
	available   *prometheus.GaugeVec
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The HTTP server exposing them is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_operations_total",
			Help: "Dispatch operations by outcome",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_operation_seconds",
			Help:    "Duration of dispatch operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_assignments_total",
			Help: "Assignment history entries by action",
		}, []string{"action"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trip_transitions_total",
			Help: "Trip status transitions",
		}, []string{"from", "to"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "availability_checks_total",
			Help: "Availability queries by answer",
		}, []string{"ok"}),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "availability_available_units",
			Help: "Free units reported by the latest availability check",
		}, []string{"branch", "category"}),
	}
	for _, c := range []prometheus.Collector{s.operations, s.duration, s.assignments, s.transitions, s.checks, s.available} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordOperation increments the operation counter and duration histogram.
func (s *PromSink) RecordOperation(evs []coremetrics.OperationEvent) error {
	for _, ev := range evs {
		s.operations.WithLabelValues(ev.Op, ev.Outcome).Inc()
		s.duration.WithLabelValues(ev.Op).Observe(ev.Duration.Seconds())
	}
	return nil
}

// RecordAvailability counts the check and gauges the free units.
func (s *PromSink) RecordAvailability(ev coremetrics.AvailabilityEvent) error {
	s.checks.WithLabelValues(strconv.FormatBool(ev.OK)).Inc()
	s.available.WithLabelValues(
		strconv.FormatInt(ev.BranchID, 10),
		strconv.FormatInt(ev.CategoryID, 10),
	).Set(float64(ev.AvailableCount))
	return nil
}

// RecordAssignment counts the history entry by action.
func (s *PromSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	s.assignments.WithLabelValues(string(ev.Action)).Inc()
	return nil
}

// RecordTripTransition counts the status change.
func (s *PromSink) RecordTripTransition(ev coremetrics.TripTransitionEvent) error {
	s.transitions.WithLabelValues(string(ev.From), string(ev.To)).Inc()
	return nil
}
