package config

import (
	"fmt"
	"net"
)

// defaultPProfAddr keeps the profiler off public interfaces unless configured otherwise.
const defaultPProfAddr = "localhost:6060"

type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

func (c *PProfConfig) String() string {
	if !c.Enabled {
		return "\n--- PProf ---\n  enabled: false\n"
	}
	return fmt.Sprintf("\n--- PProf ---\n  enabled: true\n  address: %s\n", c.Addr)
}

// Validate defaults the address of an enabled profiler and rejects malformed ones.
func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		c.Addr = defaultPProfAddr
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("pprof.addr %q is not a host:port pair: %w", c.Addr, err)
	}
	return nil
}
