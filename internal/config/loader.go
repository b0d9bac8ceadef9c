// Package config loads and validates the studio YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a studio configuration from the given YAML file path.
// After parsing, it applies defaults for anything the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the first
// one found. Search order: ./showrunner.yaml, ~/.showrunner/config.yaml.
// When none exists, a default config is returned so read-only commands work
// out of the box.
func LoadDefault() (*Config, error) {
	candidates := []string{"showrunner.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".showrunner", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &Config{}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills unset fields with usable values and expands ~ in paths.
func applyDefaults(cfg *Config) {
	s := &cfg.Studio

	if s.OutputDir == "" {
		s.OutputDir = filepath.Join("~", ".showrunner", "projects")
	}
	s.OutputDir = expandHome(s.OutputDir)

	if s.DBPath == "" {
		s.DBPath = filepath.Join("~", ".showrunner", "showrunner.db")
	}
	s.DBPath = expandHome(s.DBPath)

	if s.MaxParallelTasks <= 0 {
		s.MaxParallelTasks = 4
	}
	if s.MaxPhaseAttempts <= 0 {
		s.MaxPhaseAttempts = 3
	}
	if s.Defaults.Timeout == "" {
		s.Defaults.Timeout = "10m"
	}
	if s.Serve.Port == 0 {
		s.Serve.Port = 8790
	}

	for name, agent := range s.Agents {
		if agent.Timeout == "" {
			agent.Timeout = s.Defaults.Timeout
		}
		if agent.WorkDir == "" {
			agent.WorkDir = s.Defaults.WorkDir
		}
		s.Agents[name] = agent
	}
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], string(os.PathSeparator)))
	}
	return path
}
