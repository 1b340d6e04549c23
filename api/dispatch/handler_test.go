package dispatch

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	coredispatch "github.com/fleetops/tripdispatch/core/dispatch"
	"github.com/fleetops/tripdispatch/core/occupancy"
	"github.com/fleetops/tripdispatch/core/scoring"
	"github.com/fleetops/tripdispatch/infra/logger"
	"github.com/fleetops/tripdispatch/infra/store"
)

var tripStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dispatch.db")
	s, err := store.Open(path, logger.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range []string{
		`INSERT INTO vehicle_categories (id, name, seats) VALUES (1, 'minibus', 7)`,
		`INSERT INTO vehicles (id, branch_id, category_id, plate, capacity, status) VALUES
		  (9, 1, 1, 'KA-01-1111', 7, 'AVAILABLE'), (10, 1, 1, 'KA-01-2222', 16, 'AVAILABLE')`,
		`INSERT INTO drivers (id, branch_id, name, license_class, priority_level, status) VALUES
		  (5, 1, 'Arun', 'D', 2, 'AVAILABLE'), (6, 1, 'Binu', 'D', 1, 'AVAILABLE')`,
		`INSERT INTO bookings (id, branch_id, customer_id, hire_type, status) VALUES (100, 1, 42, 'ONE_WAY', 'CONFIRMED')`,
		`INSERT INTO booking_vehicle_details (booking_id, category_id, quantity) VALUES (100, 1, 1)`,
		fmt.Sprintf(`INSERT INTO trips (id, booking_id, start_time, start_loc, end_loc, distance_km, status) VALUES
		  (1, 100, %d, 'Kochi', 'Munnar', 100, 'SCHEDULED')`, tripStart.Unix()),
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	calc := occupancy.New(occupancy.Config{AvgSpeedKmh: 50, BufferMinutes: 30, DefaultDistanceKm: 40}, nil, logger.NopLogger{})
	orch := coredispatch.New(s, calc, scoring.Weights{}, coredispatch.Config{}, logger.NopLogger{}, nil, nil)

	mux := http.NewServeMux()
	NewHandler(orch, token).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAssignEndpoint(t *testing.T) {
	srv := newServer(t, "")

	resp := postJSON(t, srv.URL+"/api/dispatch/assign", coredispatch.AssignRequest{
		BookingID: 100, DriverID: 5, VehicleID: 9, Actor: "dispatcher",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[coredispatch.Result](t, resp)
	require.Len(t, res.Trips, 1)
	assert.Equal(t, int64(1), res.Trips[0].TripID)
	assert.Equal(t, []int64{5}, res.Trips[0].DriverIDs)
}

func TestAssignEndpointConflictMapsTo409(t *testing.T) {
	srv := newServer(t, "")

	resp := postJSON(t, srv.URL+"/api/dispatch/assign", coredispatch.AssignRequest{
		BookingID: 100, DriverID: 5, VehicleID: 9,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/dispatch/assign", coredispatch.AssignRequest{
		BookingID: 100, DriverID: 6, VehicleID: 10,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[errorBody](t, resp)
	assert.Contains(t, body.Error, "already assigned")
}

func TestAssignEndpointValidation(t *testing.T) {
	srv := newServer(t, "")

	resp := postJSON(t, srv.URL+"/api/dispatch/assign", map[string]any{"bookingId": 100})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Post(srv.URL+"/api/dispatch/assign", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestStartBeforeAssignMapsTo422(t *testing.T) {
	srv := newServer(t, "")

	resp := postJSON(t, srv.URL+"/api/trips/1/start", actorBody{Actor: "dispatcher"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestUnknownTripMapsTo404(t *testing.T) {
	srv := newServer(t, "")

	resp := postJSON(t, srv.URL+"/api/trips/999/start", actorBody{})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTripLifecycleOverHTTP(t *testing.T) {
	srv := newServer(t, "")

	resp := postJSON(t, srv.URL+"/api/dispatch/assign", coredispatch.AssignRequest{BookingID: 100, AutoAssign: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/trips/1/start", actorBody{Actor: "dispatcher"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/trips/1/complete", actorBody{Actor: "dispatcher"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/trips/1/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recs := decodeBody[[]map[string]any](t, resp)
	require.Len(t, recs, 4)
	assert.Equal(t, "ASSIGN", recs[0]["action"])
	assert.Equal(t, "COMPLETE", recs[3]["action"])
}

func TestAvailabilityEndpoint(t *testing.T) {
	srv := newServer(t, "")

	u := fmt.Sprintf("%s/api/dispatch/availability?branchId=1&categoryId=1&start=%s&end=%s&quantity=2",
		srv.URL,
		tripStart.Format(time.RFC3339),
		tripStart.Add(2*time.Hour).Format(time.RFC3339))
	resp, err := http.Get(u)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(2), body["totalCandidates"])
}

func TestAvailabilityEndpointValidation(t *testing.T) {
	srv := newServer(t, "")

	resp, err := http.Get(srv.URL + "/api/dispatch/availability?categoryId=1&start=bogus&end=2025-03-10T11:00:00Z")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSuggestionsEndpoint(t *testing.T) {
	srv := newServer(t, "")

	resp, err := http.Get(srv.URL + "/api/trips/1/suggestions")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	require.NotEmpty(t, body["drivers"])
	require.NotEmpty(t, body["vehicles"])
}

func TestPendingEndpoint(t *testing.T) {
	srv := newServer(t, "")

	resp, err := http.Get(srv.URL + "/api/trips/pending?branchId=1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	trips := decodeBody[[]map[string]any](t, resp)
	require.Len(t, trips, 1)
	assert.Equal(t, float64(1), trips[0]["id"])
}

func TestBearerTokenRequired(t *testing.T) {
	srv := newServer(t, "secret")

	resp, err := http.Get(srv.URL + "/api/trips/pending")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/api/trips/pending", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
