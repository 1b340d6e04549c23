package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/fleetops/tripdispatch/core/metrics"
	"github.com/fleetops/tripdispatch/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordOperation writes operation outcomes as line protocol events.
func (s *InfluxSink) RecordOperation(evs []coremetrics.OperationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("dispatch_operation").
			AddTag("op", ev.Op).
			AddTag("outcome", ev.Outcome).
			AddTag("branch_id", strconv.FormatInt(ev.BranchID, 10)).
			AddField("trip_id", ev.TripID).
			AddField("duration_ms", ev.Duration.Milliseconds()).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordAvailability persists one availability query and its answer.
func (s *InfluxSink) RecordAvailability(ev coremetrics.AvailabilityEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("availability_check").
		AddTag("branch_id", strconv.FormatInt(ev.BranchID, 10)).
		AddTag("category_id", strconv.FormatInt(ev.CategoryID, 10)).
		AddTag("ok", strconv.FormatBool(ev.OK)).
		AddField("available", ev.AvailableCount).
		AddField("busy", ev.BusyCount).
		AddField("total", ev.TotalCandidates).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAssignment persists one assignment history entry.
func (s *InfluxSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("assignment_event").
		AddTag("action", string(ev.Action)).
		AddTag("actor", ev.Actor).
		AddField("trip_id", ev.TripID).
		AddField("driver_id", ev.DriverID).
		AddField("vehicle_id", ev.VehicleID).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTripTransition persists one trip status change.
func (s *InfluxSink) RecordTripTransition(ev coremetrics.TripTransitionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("trip_transition").
		AddTag("from", string(ev.From)).
		AddTag("to", string(ev.To)).
		AddField("trip_id", ev.TripID).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
