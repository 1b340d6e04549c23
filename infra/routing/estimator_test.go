package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetops/tripdispatch/auth"
)

func TestHTTPEstimatorParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Kochi", r.URL.Query().Get("from"))
		require.Equal(t, "Munnar", r.URL.Query().Get("to"))
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"distance_km": 130.5}`))
	}))
	defer srv.Close()

	est := NewHTTPEstimator(Config{URL: srv.URL, APIKey: "secret"})
	km, err := est.EstimateKm(context.Background(), "Kochi", "Munnar")
	require.NoError(t, err)
	require.Equal(t, 130.5, km)
}

func TestHTTPEstimatorRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	est := NewHTTPEstimator(Config{URL: srv.URL})
	_, err := est.EstimateKm(context.Background(), "A", "B")
	require.Error(t, err)
}

func TestHTTPEstimatorRejectsNonPositiveDistance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"distance_km": 0}`))
	}))
	defer srv.Close()

	est := NewHTTPEstimator(Config{URL: srv.URL})
	_, err := est.EstimateKm(context.Background(), "A", "B")
	require.Error(t, err)
}

func TestStaticEstimatorIsSymmetric(t *testing.T) {
	est := NewStaticEstimator(map[string]map[string]float64{
		"Kochi": {"Munnar": 130},
	})

	km, err := est.EstimateKm(context.Background(), "Munnar", "Kochi")
	require.NoError(t, err)
	require.Equal(t, 130.0, km)

	_, err = est.EstimateKm(context.Background(), "Kochi", "Alleppey")
	require.Error(t, err)
}

func TestHTTPEstimatorUsesOAuthCredentials(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token123", r.Header.Get("Authorization"))
		w.Write([]byte(`{"distance_km": 12}`))
	}))
	defer srv.Close()

	est := NewHTTPEstimator(Config{
		URL:   srv.URL,
		OAuth: &auth.Conf{ClientID: "id", ClientSecret: "secret", AuthURL: tokenSrv.URL},
	})
	km, err := est.EstimateKm(context.Background(), "A", "B")
	require.NoError(t, err)
	require.Equal(t, 12.0, km)
}
