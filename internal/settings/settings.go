// Package settings loads the agent's YAML settings file and the legacy
// KEY=VALUE probe settings file shared with cron-invoked probe runs.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envSettingsPath     = "VIGILO_SETTINGS"
	DefaultSettingsPath = "/etc/vigilo/agent.yaml"

	// DefaultConfPath is where the endpoint configuration document lives
	// unless overridden.
	DefaultConfPath = "/etc/vigilo/vigilo.conf"

	defaultGeneralLog = "/var/log/vigilo/agent.log"
)

type Settings struct {
	Dashboard DashboardSettings `yaml:"dashboard"`
	API       APISettings       `yaml:"api"`
	Conf      ConfSettings      `yaml:"conf"`
	Logging   LoggingSettings   `yaml:"logging"`
	Probes    ProbeSettings     `yaml:"probes"`
}

type DashboardSettings struct {
	URL string `yaml:"url" env:"VIGILO_DASHBOARD_URL"`
}

type APISettings struct {
	URL string `yaml:"url" env:"VIGILO_API_URL"`
	Key string `yaml:"key" env:"VIGILO_API_KEY"`
}

type ConfSettings struct {
	Path string `yaml:"path" env:"VIGILO_CONF"`
}

type LoggingSettings struct {
	Streams map[string]string `yaml:"streams"`
	Quiet   bool              `yaml:"quiet"`
}

type ProbeSettings struct {
	SampleInterval time.Duration `yaml:"sample_interval"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
}

// Load reads the settings file at path, then applies environment
// overrides and defaults. A missing file is not an error: the agent can
// run on env and defaults alone.
func Load(ctx context.Context, path string) (Settings, error) {
	var cfg Settings

	f, err := os.Open(filepath.Clean(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("open settings %q: %w", path, err)
	}
	if err == nil {
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return cfg, fmt.Errorf("read settings %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse settings %q: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("apply env overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// LoadFromEnv resolves the settings path from VIGILO_SETTINGS, falling
// back to the default location.
func LoadFromEnv(ctx context.Context) (Settings, error) {
	path := os.Getenv(envSettingsPath)
	if path == "" {
		path = DefaultSettingsPath
	}
	return Load(ctx, path)
}

func (s *Settings) applyDefaults() {
	if s.Conf.Path == "" {
		s.Conf.Path = DefaultConfPath
	}
	if len(s.Logging.Streams) == 0 {
		s.Logging.Streams = map[string]string{"general": defaultGeneralLog}
	}
	if _, ok := s.Logging.Streams["general"]; !ok {
		s.Logging.Streams["general"] = defaultGeneralLog
	}
	if s.Probes.SampleInterval <= 0 {
		s.Probes.SampleInterval = time.Second
	}
}

// ProbeEnv carries the flags probes read from the shared config.settings
// file.
type ProbeEnv struct {
	LogOutput bool
}

// LoadProbeEnv reads the legacy KEY=VALUE settings file. A missing file
// yields the zero value, since sourcing it is optional for probes.
func LoadProbeEnv(path string) (ProbeEnv, error) {
	var pe ProbeEnv
	if path == "" {
		return pe, nil
	}

	vals, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pe, nil
		}
		return pe, fmt.Errorf("read probe settings %q: %w", path, err)
	}

	pe.LogOutput = parseBool(vals["LOG_OUTPUT"])
	return pe, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
