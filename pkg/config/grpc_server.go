package config

import (
	"fmt"
	"strings"
	"time"
)

type GrpcServerConfig struct {
	Port              string `koanf:"port"`
	ReflectionEnabled bool   `koanf:"reflection"`
	// HealthInterval is how often the health service re-checks its dependencies.
	HealthInterval time.Duration `koanf:"healthinterval"`
	// MaxConnectionIdle closes client connections idle for longer; zero keeps them open.
	MaxConnectionIdle time.Duration `koanf:"maxconnectionidle"`
}

// String returns a string representation of the gRPC server configuration.
func (c *GrpcServerConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- gRPC Server ---\n")
	b.WriteString(fmt.Sprintf("  port: %s\n", c.Port))
	b.WriteString(fmt.Sprintf("  reflection: %t\n", c.ReflectionEnabled))
	b.WriteString(fmt.Sprintf("  healthinterval: %s\n", c.HealthInterval))
	b.WriteString(fmt.Sprintf("  maxconnectionidle: %s\n", c.MaxConnectionIdle))
	return b.String()
}

func (c *GrpcServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("gRPC port is not configured")
	}
	if c.HealthInterval <= 0 {
		return fmt.Errorf("gRPC health interval must be greater than zero")
	}
	if c.MaxConnectionIdle < 0 {
		return fmt.Errorf("gRPC max connection idle must not be negative")
	}
	return nil
}
