package occupancy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/tripdispatch/core/model"
)

var testCfg = Config{AvgSpeedKmh: 50, BufferMinutes: 30, DefaultDistanceKm: 40}

type fixedEstimator struct {
	km  float64
	err error
}

func (f fixedEstimator) EstimateKm(context.Context, string, string) (float64, error) {
	return f.km, f.err
}

func TestOneWayWithDistance(t *testing.T) {
	calc := New(testCfg, nil, nil)
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	// 100 km at 50 km/h = 2h travel, plus 30m buffer.
	until, err := calc.BusyUntil(context.Background(), model.HireOneWay, start, nil, 100, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, start.Add(2*time.Hour+30*time.Minute), until)
}

func TestOneWayExplicitEndDominates(t *testing.T) {
	calc := New(testCfg, nil, nil)
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Hour)

	until, err := calc.BusyUntil(context.Background(), model.HireOneWay, start, &end, 100, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, end.Add(30*time.Minute), until)
}

func TestRoundTripReturnStart(t *testing.T) {
	calc := New(testCfg, nil, nil)
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	returnStart := start.Add(6 * time.Hour)

	until, err := calc.BusyUntil(context.Background(), model.HireRoundTrip, start, &returnStart, 100, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, returnStart.Add(2*time.Hour+30*time.Minute), until)
}

func TestRoundTripWithoutReturnDoublesDistance(t *testing.T) {
	calc := New(testCfg, nil, nil)
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	until, err := calc.BusyUntil(context.Background(), model.HireRoundTrip, start, nil, 100, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, start.Add(4*time.Hour+30*time.Minute), until)
}

func TestDailyExtendsToEndOfDay(t *testing.T) {
	calc := New(testCfg, nil, nil)
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	until, err := calc.BusyUntil(context.Background(), model.HireDaily, start, nil, 0, "", "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 30, 0, 0, time.UTC), until)
}

func TestDailyMultiDayEndExtends(t *testing.T) {
	calc := New(testCfg, nil, nil)
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 3, 11, 0, 0, 0, time.UTC)

	until, err := calc.BusyUntil(context.Background(), model.HireDaily, start, &end, 0, "", "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 30, 0, 0, time.UTC), until)
}

func TestMultiDayRequiresEnd(t *testing.T) {
	calc := New(testCfg, nil, nil)
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := calc.BusyUntil(context.Background(), model.HireMultiDay, start, nil, 0, "", "")
	assert.Error(t, err)

	end := start.AddDate(0, 0, 3)
	until, err := calc.BusyUntil(context.Background(), model.HireMultiDay, start, &end, 0, "", "")
	require.NoError(t, err)
	assert.Equal(t, end.Add(30*time.Minute), until)
}

func TestFixedRouteBehavesLikeOneWay(t *testing.T) {
	calc := New(testCfg, nil, nil)
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	until, err := calc.BusyUntil(context.Background(), model.HireFixedRoute, start, nil, 50, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Hour+30*time.Minute), until)
}

func TestMissingDistanceUsesEstimator(t *testing.T) {
	calc := New(testCfg, fixedEstimator{km: 25}, nil)
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	// 25 km at 50 km/h = 30m travel, plus buffer.
	until, err := calc.BusyUntil(context.Background(), model.HireOneWay, start, nil, 0, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Hour), until)
}

func TestEstimatorFailureFallsBackToDefault(t *testing.T) {
	calc := New(testCfg, fixedEstimator{err: errors.New("routing down")}, nil)
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	// Default 40 km at 50 km/h = 48m travel, plus 30m buffer.
	until, err := calc.BusyUntil(context.Background(), model.HireOneWay, start, nil, 0, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, start.Add(48*time.Minute+30*time.Minute), until)
}

func TestMissingStartRejected(t *testing.T) {
	calc := New(testCfg, nil, nil)
	_, err := calc.BusyUntil(context.Background(), model.HireOneWay, time.Time{}, nil, 10, "A", "B")
	assert.Error(t, err)
}
