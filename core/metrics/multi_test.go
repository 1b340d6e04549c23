package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	ops    []OperationEvent
	avail  []AvailabilityEvent
	failOp bool
}

func (c *captureSink) RecordOperation(evs []OperationEvent) error {
	if c.failOp {
		return assert.AnError
	}
	c.ops = append(c.ops, evs...)
	return nil
}

func (c *captureSink) RecordAvailability(ev AvailabilityEvent) error {
	c.avail = append(c.avail, ev)
	return nil
}

func TestMultiSinkFanout(t *testing.T) {
	s1 := &captureSink{}
	s2 := &captureSink{}
	m := NewMultiSink(s1, s2)

	ev := OperationEvent{Op: "assign", Outcome: "ok", TripID: 1, Time: time.Now()}
	require.NoError(t, m.RecordOperation([]OperationEvent{ev}))
	assert.Len(t, s1.ops, 1)
	assert.Len(t, s2.ops, 1)

	require.NoError(t, m.RecordAvailability(AvailabilityEvent{BranchID: 1, OK: true}))
	assert.Len(t, s1.avail, 1)
}

func TestMultiSinkFirstError(t *testing.T) {
	s1 := &captureSink{failOp: true}
	s2 := &captureSink{}
	m := NewMultiSink(s1, s2)

	err := m.RecordOperation([]OperationEvent{{Op: "assign"}})
	assert.Error(t, err)
	assert.Empty(t, s2.ops, "fan-out stops at the first failing sink")
}

func TestMultiSinkSkipsIncapableSinks(t *testing.T) {
	m := NewMultiSink(NopSink{})
	assert.NoError(t, m.RecordAssignment(AssignmentEvent{TripID: 1}))
}
