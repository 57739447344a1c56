package config

import (
	"fmt"
	"strings"
	"time"
)

const defaultNATSReconnectWait = 2 * time.Second

type NATSConfig struct {
	Url     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	// Name identifies the connection in the NATS server monitoring endpoints.
	Name string `koanf:"name"`
	// ReconnectWait is the pause between reconnect attempts. The client never stops reconnecting.
	ReconnectWait time.Duration `koanf:"reconnectwait"`
}

func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	b.WriteString(fmt.Sprintf("  url: %s\n", c.Url))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  name: %s\n", c.Name))
	b.WriteString(fmt.Sprintf("  reconnectwait: %s\n", c.ReconnectWait))
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if c.Url == "" {
		return fmt.Errorf("nats.url is not configured")
	}
	if !strings.HasPrefix(c.Url, "nats://") && !strings.HasPrefix(c.Url, "tls://") {
		return fmt.Errorf("nats.url must use the nats:// or tls:// scheme, got %q", c.Url)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats.timeout must be greater than zero")
	}
	if c.ReconnectWait < 0 {
		return fmt.Errorf("nats.reconnectwait must not be negative")
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = defaultNATSReconnectWait
	}
	return nil
}
