package cli

import (
	"fmt"
	"os"
	"strings"

	"showrunner/internal/agents"
	"showrunner/internal/config"
	"showrunner/internal/db"
	"showrunner/internal/director"
	"showrunner/internal/project"
)

// loadConfig loads the studio config from the standard search path.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openDB opens and migrates the audit database.
func openDB(cfg *config.Config) (*db.DB, error) {
	d, err := db.Open(cfg.Studio.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return d, nil
}

// openProject binds the configured agents and audit DB to a project.
// The returned closer releases the database.
func openProject(cfg *config.Config, id string, brief director.Brief, progress bool) (*project.Project, func(), error) {
	database, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := project.Options{
		OutputDir:        cfg.Studio.OutputDir,
		ProjectID:        id,
		Brief:            brief,
		Executor:         agents.NewCommandExecutor(cfg),
		DB:               database,
		AutoApprove:      cfg.Studio.AutoApprove,
		MaxParallelTasks: cfg.Studio.MaxParallelTasks,
		MaxPhaseAttempts: cfg.Studio.MaxPhaseAttempts,
	}
	if progress {
		opts.Progress = os.Stderr
	}

	p, err := project.Open(opts)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return p, func() { database.Close() }, nil
}

// normalizeGateID accepts both "script" and "gate_script" forms.
func normalizeGateID(arg string) string {
	if strings.HasPrefix(arg, "gate_") {
		return arg
	}
	return "gate_" + arg
}
