// Package probes implements file based readiness and liveness probes for processes
// without an HTTP listener. The orchestrator checks that the files exist and are recent.
package probes

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bazaarhq/bazaar/pkg/config"
)

// MarkReady creates the readiness file.
func MarkReady(cfg config.ProbesConfig) error {
	if err := touch(cfg.ReadinessFileName); err != nil {
		return fmt.Errorf("failed to write readiness file: %w", err)
	}
	return nil
}

// RunLiveness refreshes the liveness file every cfg.LivenessInterval until ctx is done,
// then removes both probe files.
func RunLiveness(ctx context.Context, cfg config.ProbesConfig) error {
	defer func() {
		_ = os.Remove(cfg.LivenessFileName)
		_ = os.Remove(cfg.ReadinessFileName)
	}()

	if err := touch(cfg.LivenessFileName); err != nil {
		return fmt.Errorf("failed to write liveness file: %w", err)
	}
	ticker := time.NewTicker(cfg.LivenessInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := touch(cfg.LivenessFileName); err != nil {
				return fmt.Errorf("failed to refresh liveness file: %w", err)
			}
		}
	}
}

func touch(path string) error {
	now := time.Now()
	if err := os.Chtimes(path, now, now); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(now.UTC().Format(time.RFC3339)), 0o644)
}
