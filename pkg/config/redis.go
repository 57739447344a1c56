package config

import (
	"fmt"
	"strings"
	"time"
)

// RedisConfig configures the key-value store for one-time codes.
// An empty Addr selects the in-process store, which only suits a single replica.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
}

// String returns a string representation of the Redis configuration.
func (c *RedisConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Redis ---\n")
	if c.Addr == "" {
		b.WriteString("  addr: <in-memory>\n")
	} else {
		b.WriteString(fmt.Sprintf("  addr: %s\n", c.Addr))
	}
	b.WriteString(fmt.Sprintf("  db: %d\n", c.DB))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return nil
	}
	if c.DB < 0 {
		return fmt.Errorf("redis db must not be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("redis timeout must be greater than zero")
	}
	return nil
}
