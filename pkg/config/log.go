package config

import (
	"fmt"
	"slices"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
)

// LogConfig selects the minimum level and the encoding of the process logs.
// Empty values mean info and json.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func (c *LogConfig) String() string {
	return fmt.Sprintf("\n--- Log ---\n  level: %s\n  format: %s\n", c.Level, c.Format)
}

func (c *LogConfig) Validate() error {
	if c.Level != "" && !slices.Contains(logLevels, c.Level) {
		return fmt.Errorf("unknown log level: %q", c.Level)
	}
	if c.Format != "" && !slices.Contains(logFormats, c.Format) {
		return fmt.Errorf("unknown log format: %q", c.Format)
	}
	return nil
}
