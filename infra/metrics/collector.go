package metrics

import (
	"context"

	"github.com/fleetops/tripdispatch/core/events"
	coremetrics "github.com/fleetops/tripdispatch/core/metrics"
	"github.com/fleetops/tripdispatch/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// trip status changes. Assignment and operation metrics are recorded by the
// orchestrator directly; the collector only covers the asynchronous feed.
// It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if e, isTrip := ev.(events.TripStatusEvent); isTrip {
					if r, capable := sink.(coremetrics.TripTransitionRecorder); capable {
						_ = r.RecordTripTransition(coremetrics.TripTransitionEvent{
							TripID: e.TripID,
							From:   e.From,
							To:     e.To,
							Time:   e.Time,
						})
					}
				}
			}
		}
	}()
}
