package config

import "fmt"

// LoggingConfig defines settings for the structured logger.
type LoggingConfig struct {
	// Level sets the minimum log level: debug, info, warn or error.
	Level string `json:"level"`
	// Pretty switches on human readable console output.
	Pretty bool `json:"pretty"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level is one the logger understands.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("unknown log level %s", c.Level)
}
