// Package config loads the service configuration from a YAML or JSON file
// with environment variable overrides (K_SECTION__KEY).
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fleetops/tripdispatch/core/dispatch"
	"github.com/fleetops/tripdispatch/core/metrics"
	"github.com/fleetops/tripdispatch/core/occupancy"
	"github.com/fleetops/tripdispatch/core/scoring"
	"github.com/fleetops/tripdispatch/infra/mqtt"
	"github.com/fleetops/tripdispatch/infra/routing"
)

type Config struct {
	API       APIConfig        `json:"api"`
	Store     StoreConfig      `json:"store"`
	Occupancy occupancy.Config `json:"occupancy"`
	Scoring   scoring.Weights  `json:"scoring"`
	Dispatch  dispatch.Config  `json:"dispatch"`
	Routing   routing.Config   `json:"routing"`
	MQTT      mqtt.Config      `json:"mqtt"`
	Metrics   metrics.Config   `json:"metrics"`
	Logging   LoggingConfig    `json:"logging"`
	Sentry    SentryConfig     `json:"sentry"`
}

// APIConfig defines where the HTTP API listens. Token, when set, is required
// as a bearer token on every request.
type APIConfig struct {
	Addr  string `json:"addr"`
	Token string `json:"token"`
}

// SetDefaults applies the default listen address.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// StoreConfig defines where the SQLite database lives.
type StoreConfig struct {
	Path string `json:"path"`
}

// SetDefaults applies the default database path.
func (c *StoreConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "dispatch.db"
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.API.SetDefaults()
	cfg.Store.SetDefaults()
	cfg.Occupancy.SetDefaults()
	cfg.Scoring.SetDefaults()
	cfg.Dispatch.SetDefaults()
	cfg.Routing.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Occupancy.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Dispatch.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
