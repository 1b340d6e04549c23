// Package occupancy computes how long a driver or vehicle stays busy on a
// trip. The calculation is deterministic given a config and (optionally) a
// distance estimate, so a driver freed at the computed instant can be offered
// to the next trip without consulting live data.
package occupancy

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetops/tripdispatch/core/logger"
	"github.com/fleetops/tripdispatch/core/model"
)

// DistanceEstimator resolves the road distance between two location labels.
// It is an external collaborator; failures are recovered with the configured
// default distance and never surfaced to callers.
type DistanceEstimator interface {
	EstimateKm(ctx context.Context, from, to string) (float64, error)
}

// Calculator derives occupancy windows from trip timing and hire type.
type Calculator struct {
	cfg Config
	est DistanceEstimator
	log logger.Logger
}

// New builds a Calculator. est may be nil, in which case missing distances
// fall straight through to the configured default.
func New(cfg Config, est DistanceEstimator, log logger.Logger) *Calculator {
	cfg.SetDefaults()
	return &Calculator{cfg: cfg, est: est, log: log}
}

// BusyUntil returns the instant until which a resource assigned to the trip
// must be considered occupied.
//
// endTime semantics depend on the hire type: for ONE_WAY/FIXED_ROUTE it is an
// explicit arrival bound, for ROUND_TRIP the instant the return leg starts,
// for DAILY an optional later day and for MULTI_DAY the mandatory hire end.
func (c *Calculator) BusyUntil(ctx context.Context, hire model.HireType, startTime time.Time, endTime *time.Time, distanceKm float64, from, to string) (time.Time, error) {
	if startTime.IsZero() {
		return time.Time{}, fmt.Errorf("occupancy: start time is required")
	}
	buffer := time.Duration(c.cfg.BufferMinutes) * time.Minute

	switch hire {
	case model.HireRoundTrip:
		travel := c.travelDuration(ctx, hire, distanceKm, from, to)
		if endTime != nil {
			// endTime is the instant the return leg starts.
			return endTime.Add(travel).Add(buffer), nil
		}
		// No return instant given: assume an immediate turnaround, two legs.
		return startTime.Add(2 * travel).Add(buffer), nil

	case model.HireDaily:
		effectiveEnd := startTime
		if endTime != nil && endTime.After(effectiveEnd) {
			effectiveEnd = *endTime
		}
		return endOfDay(effectiveEnd).Add(buffer), nil

	case model.HireMultiDay:
		if endTime == nil {
			return time.Time{}, fmt.Errorf("occupancy: %s requires an end time", hire)
		}
		return endTime.Add(buffer), nil

	default: // ONE_WAY, FIXED_ROUTE and unknown codes
		travel := c.travelDuration(ctx, hire, distanceKm, from, to)
		arrival := startTime.Add(travel)
		if endTime != nil && endTime.After(arrival) {
			arrival = *endTime
		}
		return arrival.Add(buffer), nil
	}
}

// TripWindow computes and returns the full occupancy window for a trip under
// the booking's hire type.
func (c *Calculator) TripWindow(ctx context.Context, trip model.Trip, hire model.HireType) (model.TimeWindow, error) {
	until, err := c.BusyUntil(ctx, hire, trip.StartTime, trip.EndTime, trip.DistanceKm, trip.StartLoc, trip.EndLoc)
	if err != nil {
		return model.TimeWindow{}, err
	}
	return model.TimeWindow{Start: trip.StartTime, End: until}, nil
}

// travelDuration converts the best known distance into a driving duration.
func (c *Calculator) travelDuration(ctx context.Context, hire model.HireType, distanceKm float64, from, to string) time.Duration {
	km := c.resolveDistance(ctx, distanceKm, from, to)
	if km <= 0 {
		return 0
	}
	hours := km / c.cfg.AvgSpeedKmh
	return time.Duration(hours * float64(time.Hour)).Round(time.Second)
}

// resolveDistance prefers the supplied distance, then the estimator, then the
// configured default. Estimator failures are logged and absorbed so that a
// geocoding outage never blocks dispatch.
func (c *Calculator) resolveDistance(ctx context.Context, distanceKm float64, from, to string) float64 {
	if distanceKm > 0 {
		return distanceKm
	}
	if c.est != nil && from != "" && to != "" {
		km, err := c.est.EstimateKm(ctx, from, to)
		if err == nil && km > 0 {
			return km
		}
		if err != nil && c.log != nil {
			c.log.Warnf("distance estimate %q -> %q failed, using default %.0f km: %v", from, to, c.cfg.DefaultDistanceKm, err)
		}
	}
	return c.cfg.DefaultDistanceKm
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}
