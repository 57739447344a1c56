package configloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Server struct {
		Port int `koanf:"port"`
	} `koanf:"server"`
	Database struct {
		URL     string        `koanf:"url"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"database"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func (c *testConfig) Validate() error {
	if c.Server.Port == 0 {
		return errors.New("server.port is required")
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFrom_Precedence(t *testing.T) {
	// given
	dir := t.TempDir()
	yamlFile := writeFile(t, dir, "config.yaml", `
server:
  port: 8080
database:
  url: postgres://yaml
  timeout: 5s
log:
  level: info
`)
	envFile := writeFile(t, dir, ".env", "CFGTEST_DATABASE_URL=postgres://dotenv\nCFGTEST_LOG_LEVEL=warn\nOTHER_LOG_LEVEL=error\n")
	t.Setenv("CFGTEST_LOG_LEVEL", "debug")

	// when
	cfg, err := LoadFrom[*testConfig](Sources{ConfigFile: yamlFile, EnvFile: envFile, EnvPrefix: "CFGTEST_"})

	// then
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Database.Timeout)
	assert.Equal(t, "postgres://dotenv", cfg.Database.URL, ".env overrides yaml")
	assert.Equal(t, "debug", cfg.Log.Level, "process env overrides .env")
}

func TestLoadFrom_MissingFilesAreOptional(t *testing.T) {
	// given
	dir := t.TempDir()
	t.Setenv("CFGTEST_SERVER_PORT", "9090")

	// when
	cfg, err := LoadFrom[*testConfig](Sources{
		ConfigFile: filepath.Join(dir, "missing.yaml"),
		EnvFile:    filepath.Join(dir, "missing.env"),
		EnvPrefix:  "CFGTEST_",
	})

	// then
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadFrom_ValidationFailure(t *testing.T) {
	// given
	dir := t.TempDir()

	// when
	_, err := LoadFrom[*testConfig](Sources{
		ConfigFile: filepath.Join(dir, "missing.yaml"),
		EnvPrefix:  "CFGTEST_",
	})

	// then
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}
