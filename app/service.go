// Package app wires the dispatch engine together: store, orchestrator, HTTP
// API, metrics sinks, event collaborators and the MQTT bridge.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apidispatch "github.com/fleetops/tripdispatch/api/dispatch"
	"github.com/fleetops/tripdispatch/config"
	"github.com/fleetops/tripdispatch/core/dispatch"
	coremetrics "github.com/fleetops/tripdispatch/core/metrics"
	coremon "github.com/fleetops/tripdispatch/core/monitoring"
	"github.com/fleetops/tripdispatch/core/occupancy"
	"github.com/fleetops/tripdispatch/infra/logger"
	"github.com/fleetops/tripdispatch/infra/metrics"
	"github.com/fleetops/tripdispatch/infra/monitoring"
	"github.com/fleetops/tripdispatch/infra/mqtt"
	"github.com/fleetops/tripdispatch/infra/routing"
	"github.com/fleetops/tripdispatch/infra/store"
	"github.com/fleetops/tripdispatch/internal/eventbus"
)

// Service owns the long-lived components of the dispatch engine.
type Service struct {
	Orchestrator *dispatch.Orchestrator

	cfg    *config.Config
	store  *store.Store
	bus    eventbus.EventBus
	sink   coremetrics.MetricsSink
	pub    *mqtt.PahoClient
	server *http.Server
	log    logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.Configure(cfg.Logging.Level, cfg.Logging.Pretty)
	logg := logger.New("service")

	monitor, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(monitor)

	st, err := store.Open(cfg.Store.Path, logger.New("store"))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	var est occupancy.DistanceEstimator
	if cfg.Routing.URL != "" {
		est = routing.NewHTTPEstimator(cfg.Routing)
	}
	calc := occupancy.New(cfg.Occupancy, est, logger.New("occupancy"))

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	bus := eventbus.New()
	orch := dispatch.New(st, calc, cfg.Scoring, cfg.Dispatch, logger.New("dispatch"), sink, bus)

	svc := &Service{
		Orchestrator: orch,
		cfg:          cfg,
		store:        st,
		bus:          bus,
		sink:         sink,
		log:          logg,
	}

	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.pub = pub
	}

	mux := http.NewServeMux()
	apidispatch.NewHandler(orch, cfg.API.Token).Register(mux)
	svc.server = &http.Server{Addr: cfg.API.Addr, Handler: mux}
	return svc, nil
}

// Run starts the service and blocks until the context is cancelled or the
// HTTP server fails.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.pub != nil {
		mqtt.NewBridge(s.pub, s.cfg.MQTT.TopicPrefix).Start(ctx, s.bus)
	}
	if port := s.cfg.Metrics.PrometheusPort; port > 0 {
		go func() {
			if err := metrics.StartPromServer(ctx, fmt.Sprintf(":%d", port)); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infof("dispatch API listening on %s", s.cfg.API.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("http shutdown: %v", err)
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.pub != nil {
		s.pub.Disconnect()
	}
	coremon.Flush(2 * time.Second)
	return s.store.Close()
}
