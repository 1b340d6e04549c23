package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOperation forwards the events to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordOperation(evs []OperationEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordOperation(evs); err != nil {
			return err
		}
	}
	return nil
}

// RecordAvailability forwards availability checks to capable sinks.
func (m *MultiSink) RecordAvailability(ev AvailabilityEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AvailabilityRecorder); ok {
			if err := rec.RecordAvailability(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordAssignment forwards assignment entries to capable sinks.
func (m *MultiSink) RecordAssignment(ev AssignmentEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AssignmentRecorder); ok {
			if err := rec.RecordAssignment(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordTripTransition forwards trip status changes to capable sinks.
func (m *MultiSink) RecordTripTransition(ev TripTransitionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(TripTransitionRecorder); ok {
			if err := rec.RecordTripTransition(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
