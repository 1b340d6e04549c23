// Package routing resolves road distances between location labels. The
// occupancy calculator consumes its estimates to size trip windows; any
// failure here is recovered upstream with a configured default distance.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fleetops/tripdispatch/auth"
	"github.com/fleetops/tripdispatch/infra/logger"
)

// Config defines the connection parameters for the routing service. When
// OAuth is set the estimator authenticates with client credentials instead
// of the static API key.
type Config struct {
	URL       string     `json:"url"`
	APIKey    string     `json:"api_key"`
	OAuth     *auth.Conf `json:"oauth"`
	TimeoutMS int        `json:"timeout_ms"`
}

// SetDefaults fills unset fields with sane values.
func (c *Config) SetDefaults() {
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 3000
	}
}

// HTTPEstimator queries an external routing service over HTTP.
type HTTPEstimator struct {
	base   string
	apiKey string
	cred   *auth.ClientCred
	client *http.Client
	log    logger.Logger
}

// NewHTTPEstimator builds an estimator for the given routing service.
func NewHTTPEstimator(cfg Config) *HTTPEstimator {
	cfg.SetDefaults()
	e := &HTTPEstimator{
		base:   strings.TrimSuffix(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		log:    logger.New("routing"),
	}
	if cfg.OAuth != nil {
		e.cred = auth.NewClientCred(*cfg.OAuth)
	}
	return e
}

type distanceResponse struct {
	DistanceKm float64 `json:"distance_km"`
}

// EstimateKm asks the routing service for the road distance between from and
// to. Errors are returned to the caller, which falls back to its default.
func (e *HTTPEstimator) EstimateKm(ctx context.Context, from, to string) (float64, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.base+"/distance?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	if e.cred != nil {
		if err := e.cred.SetAuthHeader(req); err != nil {
			return 0, err
		}
	} else if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("routing service status %d", resp.StatusCode)
	}
	var body distanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if body.DistanceKm <= 0 {
		return 0, fmt.Errorf("routing service returned non-positive distance %.2f", body.DistanceKm)
	}
	e.log.Debugf("distance %s -> %s: %.1f km", from, to, body.DistanceKm)
	return body.DistanceKm, nil
}

// StaticEstimator serves distances from a fixed table. It is used in tests
// and in deployments without a routing service.
type StaticEstimator struct {
	table map[string]float64
}

// NewStaticEstimator builds an estimator from a from->to->km table. Lookups
// are symmetric.
func NewStaticEstimator(distances map[string]map[string]float64) *StaticEstimator {
	table := make(map[string]float64)
	for from, tos := range distances {
		for to, km := range tos {
			table[pairKey(from, to)] = km
		}
	}
	return &StaticEstimator{table: table}
}

// EstimateKm looks up the pair in the table.
func (e *StaticEstimator) EstimateKm(_ context.Context, from, to string) (float64, error) {
	if km, ok := e.table[pairKey(from, to)]; ok {
		return km, nil
	}
	return 0, fmt.Errorf("no distance on record for %s -> %s", from, to)
}

func pairKey(from, to string) string {
	a, b := strings.ToLower(strings.TrimSpace(from)), strings.ToLower(strings.TrimSpace(to))
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
