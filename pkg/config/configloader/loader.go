// Package configloader assembles typed configuration from a YAML file, a .env file
// and the process environment, in increasing order of priority.
package configloader

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Validator interface {
	Validate() error
}

const defaultConfigFile = "config.yaml"
const defaultEnvFile = ".env"

// Sources names where configuration is read from.
type Sources struct {
	ConfigFile string
	EnvFile    string
	// EnvPrefix selects process and .env variables, e.g. BAZAAR_ maps BAZAAR_DATABASE_URL to database.url.
	EnvPrefix string
}

// Load reads configuration for appName using the default sources.
// The YAML file can be overridden with <APPNAME>_CONFIG_FILE.
func Load[T Validator](appName string) (T, error) {
	prefix := strings.ToUpper(appName) + "_"
	src := Sources{
		ConfigFile: defaultConfigFile,
		EnvFile:    defaultEnvFile,
		EnvPrefix:  prefix,
	}
	if override := os.Getenv(prefix + "CONFIG_FILE"); override != "" {
		src.ConfigFile = override
	}
	return LoadFrom[T](src)
}

// LoadFrom reads configuration from the given sources, unmarshals it into T and validates it.
func LoadFrom[T Validator](src Sources) (T, error) {
	var cfg T
	k := koanf.New(".")

	if err := k.Load(file.Provider(src.ConfigFile), yaml.Parser()); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load YAML config", "file", src.ConfigFile, "error", err)
	}

	keyOf := envKeyMapper(src.EnvPrefix)
	if src.EnvFile != "" {
		if vars, err := godotenv.Read(src.EnvFile); err == nil {
			m := make(map[string]any, len(vars))
			for key, value := range vars {
				if strings.HasPrefix(strings.ToUpper(key), src.EnvPrefix) {
					m[keyOf(key)] = value
				}
			}
			if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
				slog.Warn("Failed to load .env config", "file", src.EnvFile, "error", err)
			}
		} else if !os.IsNotExist(err) {
			slog.Warn("Failed to read .env file", "file", src.EnvFile, "error", err)
		}
	}

	if err := k.Load(env.Provider(src.EnvPrefix, ".", keyOf), nil); err != nil {
		slog.Warn("Failed to load environment variables", "error", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func envKeyMapper(prefix string) func(string) string {
	lowerPrefix := strings.ToLower(prefix)
	return func(key string) string {
		key = strings.TrimPrefix(strings.ToLower(key), lowerPrefix)
		return strings.ReplaceAll(key, "_", ".")
	}
}
