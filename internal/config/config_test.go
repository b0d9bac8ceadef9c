package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "showrunner.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
studio:
  output_dir: /var/lib/showrunner/projects
  db_path: /var/lib/showrunner/audit.db
  auto_approve: true
  max_parallel_tasks: 8
  max_phase_attempts: 5
  defaults:
    timeout: 2m
    workdir: /srv/agents
  agents:
    script_generator:
      command: scriptgen --json
      timeout: 5m
    investigator:
      command: investigate --json
    witness:
      command: witness --json
      workdir: /srv/witness
  serve:
    port: 9000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := cfg.Studio
	if s.OutputDir != "/var/lib/showrunner/projects" {
		t.Errorf("OutputDir = %q", s.OutputDir)
	}
	if !s.AutoApprove {
		t.Error("AutoApprove should be true")
	}
	if s.MaxParallelTasks != 8 {
		t.Errorf("MaxParallelTasks = %d, want 8", s.MaxParallelTasks)
	}
	if s.MaxPhaseAttempts != 5 {
		t.Errorf("MaxPhaseAttempts = %d, want 5", s.MaxPhaseAttempts)
	}
	if s.Serve.Port != 9000 {
		t.Errorf("Serve.Port = %d, want 9000", s.Serve.Port)
	}

	// Explicit agent values win; defaults fill the gaps.
	if got := s.Agents["script_generator"].Timeout; got != "5m" {
		t.Errorf("script_generator timeout = %q, want 5m", got)
	}
	if got := s.Agents["investigator"].Timeout; got != "2m" {
		t.Errorf("investigator timeout = %q, want default 2m", got)
	}
	if got := s.Agents["investigator"].WorkDir; got != "/srv/agents" {
		t.Errorf("investigator workdir = %q, want default", got)
	}
	if got := s.Agents["witness"].WorkDir; got != "/srv/witness" {
		t.Errorf("witness workdir = %q, want its own", got)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "studio: {}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := cfg.Studio
	if s.OutputDir == "" || strings.HasPrefix(s.OutputDir, "~") {
		t.Errorf("OutputDir = %q, want an expanded default", s.OutputDir)
	}
	if s.DBPath == "" || strings.HasPrefix(s.DBPath, "~") {
		t.Errorf("DBPath = %q, want an expanded default", s.DBPath)
	}
	if s.MaxParallelTasks != 4 {
		t.Errorf("MaxParallelTasks = %d, want 4", s.MaxParallelTasks)
	}
	if s.MaxPhaseAttempts != 3 {
		t.Errorf("MaxPhaseAttempts = %d, want 3", s.MaxPhaseAttempts)
	}
	if s.Defaults.Timeout != "10m" {
		t.Errorf("Defaults.Timeout = %q, want 10m", s.Defaults.Timeout)
	}
	if s.Serve.Port != 8790 {
		t.Errorf("Serve.Port = %d, want 8790", s.Serve.Port)
	}
	if s.AutoApprove {
		t.Error("AutoApprove should default to false")
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad yaml", "studio: [\n"},
		{"agent without command", `
studio:
  agents:
    investigator:
      timeout: 1m
`},
		{"bad timeout", `
studio:
  agents:
    investigator:
      command: investigate
      timeout: soon
`},
		{"bad default timeout", `
studio:
  defaults:
    timeout: whenever
`},
		{"port out of range", `
studio:
  serve:
    port: 99999
`},
	}
	for _, tc := range cases {
		if _, err := Load(writeConfig(t, tc.body)); err == nil {
			t.Errorf("%s: Load should fail", tc.name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load on a missing file should fail")
	}
}

func TestValidateNegativeLimits(t *testing.T) {
	cfg := &Config{}
	cfg.Studio.MaxParallelTasks = -1
	cfg.Studio.MaxPhaseAttempts = 3
	if err := Validate(cfg); err == nil {
		t.Error("negative max_parallel_tasks should fail validation")
	}

	cfg.Studio.MaxParallelTasks = 4
	cfg.Studio.MaxPhaseAttempts = 0
	if err := Validate(cfg); err == nil {
		t.Error("zero max_phase_attempts should fail validation")
	}
}
