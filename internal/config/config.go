package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	SessionConfig
	StoreConfig
	BackendConfig
}

type EnvConfig interface {
	GetAPIURL() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Session
	Store
	Backend
}

// New returns a configuration resolved from environment variables and defaults.
func New() Config {
	return newConfig(nil)
}

// Load returns a configuration where values missing from the environment are taken from
// the YAML file at path. Keys in the file are the lower-cased variable names, e.g.
// `api_url: http://localhost:8000/`.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load read %s: %w", path, err)
	}
	file := make(map[string]string)
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config.Load parse %s: %w", path, err)
	}
	v := make(values, len(file))
	for k, val := range file {
		v[strings.ToLower(k)] = val
	}
	return newConfig(v), nil
}

// LoadDotEnv loads .env style files into the process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Warn().Err(err).Str("file", p).Msg("failed to load env file")
		}
	}
}

func newConfig(v values) Config {
	return mainConfig{
		EnvVars: EnvVars{v: v},
		Session: Session{v: v},
		Store:   Store{v: v},
		Backend: Backend{v: v},
	}
}

// values holds settings read from a config file; the environment always wins.
type values map[string]string

func (v values) get(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if value, ok := v[strings.ToLower(envVar)]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (v values) duration(envVar string, defaultValue time.Duration) time.Duration {
	raw := v.get(envVar, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn().Str("var", envVar).Str("value", raw).Msg("invalid duration, using default")
		return defaultValue
	}
	return d
}
