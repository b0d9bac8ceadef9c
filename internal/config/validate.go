package config

import (
	"fmt"
	"time"
)

// Validate checks a parsed config for inconsistencies that would only
// surface mid-pipeline otherwise.
func Validate(cfg *Config) error {
	s := cfg.Studio

	if s.MaxParallelTasks < 1 {
		return fmt.Errorf("config: max_parallel_tasks must be >= 1, got %d", s.MaxParallelTasks)
	}
	if s.MaxPhaseAttempts < 1 {
		return fmt.Errorf("config: max_phase_attempts must be >= 1, got %d", s.MaxPhaseAttempts)
	}

	if s.Defaults.Timeout != "" {
		if _, err := time.ParseDuration(s.Defaults.Timeout); err != nil {
			return fmt.Errorf("config: defaults.timeout %q: %w", s.Defaults.Timeout, err)
		}
	}

	for name, agent := range s.Agents {
		if agent.Command == "" {
			return fmt.Errorf("config: agent %q has no command", name)
		}
		if agent.Timeout != "" {
			if _, err := time.ParseDuration(agent.Timeout); err != nil {
				return fmt.Errorf("config: agent %q timeout %q: %w", name, agent.Timeout, err)
			}
		}
	}

	if s.Serve.Port < 0 || s.Serve.Port > 65535 {
		return fmt.Errorf("config: serve.port %d out of range", s.Serve.Port)
	}
	return nil
}
