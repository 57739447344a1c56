package probes

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bazaarhq/bazaar/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbes_Lifecycle(t *testing.T) {
	// given
	dir := t.TempDir()
	cfg := config.ProbesConfig{
		ReadinessFileName: filepath.Join(dir, "ready"),
		LivenessFileName:  filepath.Join(dir, "live"),
		LivenessInterval:  10 * time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	// when
	require.NoError(t, MarkReady(cfg))
	go func() { done <- RunLiveness(ctx, cfg) }()

	// then
	assert.FileExists(t, cfg.ReadinessFileName)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(cfg.LivenessFileName)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.NoFileExists(t, cfg.LivenessFileName)
	assert.NoFileExists(t, cfg.ReadinessFileName)
}
