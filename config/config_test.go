package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `api:
  addr: ":9090"
store:
  path: "/var/lib/fleet/dispatch.db"
occupancy:
  avg_speed_kmh: 50
  buffer_minutes: 30
dispatch:
  long_trip_hours: 10
scoring:
  priority: 3
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "dispatch"
  topic_prefix: "fleet"
metrics:
  sinks:
    - type: "nop"
logging:
  level: "debug"
  pretty: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.API.Addr)
	require.Equal(t, "/var/lib/fleet/dispatch.db", cfg.Store.Path)
	require.Equal(t, 50.0, cfg.Occupancy.AvgSpeedKmh)
	require.Equal(t, 30, cfg.Occupancy.BufferMinutes)
	require.Equal(t, 10, cfg.Dispatch.LongTripHours)
	require.Equal(t, 3.0, cfg.Scoring.Priority)
	require.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Len(t, cfg.Metrics.Sinks, 1)

	// Defaults fill whatever the file leaves out.
	require.Equal(t, 50.0, cfg.Occupancy.DefaultDistanceKm)
	require.Equal(t, 7, cfg.Dispatch.PendingHorizonDays)
	require.Equal(t, 5, cfg.Scoring.TopN)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `store:
  path: "file.db"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	t.Setenv("K_STORE__PATH", "other.db")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "other.db", cfg.Store.Path)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := Load("config.toml")
	require.Error(t, err)
}

func TestLoadRejectsBadLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: \"loud\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
