package config

import (
	"fmt"
	"time"
)

// ProbesConfig names the files a worker touches so an orchestrator can probe it
// without an HTTP listener. Unset values are defaulted by Validate.
type ProbesConfig struct {
	ReadinessFileName string        `koanf:"readinessfilename"`
	LivenessFileName  string        `koanf:"livenessfilename"`
	LivenessInterval  time.Duration `koanf:"livenessinterval"`
}

var defaultProbes = ProbesConfig{
	ReadinessFileName: "/tmp/ready",
	LivenessFileName:  "/tmp/live",
	LivenessInterval:  20 * time.Second,
}

func (c *ProbesConfig) String() string {
	return fmt.Sprintf("\n--- Probes ---\n  readiness: %s\n  liveness: %s every %s\n",
		c.ReadinessFileName, c.LivenessFileName, c.LivenessInterval)
}

func (c *ProbesConfig) Validate() error {
	if c.ReadinessFileName == "" {
		c.ReadinessFileName = defaultProbes.ReadinessFileName
	}
	if c.LivenessFileName == "" {
		c.LivenessFileName = defaultProbes.LivenessFileName
	}
	if c.LivenessInterval <= 0 {
		c.LivenessInterval = defaultProbes.LivenessInterval
	}
	if c.ReadinessFileName == c.LivenessFileName {
		return fmt.Errorf("probes.readinessfilename and probes.livenessfilename must differ")
	}
	return nil
}
