package config

// Config is the top-level configuration structure parsed from studio YAML.
type Config struct {
	Studio Studio `yaml:"studio"`
}

// Studio defines the full coordinator setup: storage locations, approval
// policy, concurrency limits, and agent bindings.
type Studio struct {
	OutputDir        string           `yaml:"output_dir"`
	DBPath           string           `yaml:"db_path"`
	AutoApprove      bool             `yaml:"auto_approve"`
	MaxParallelTasks int              `yaml:"max_parallel_tasks"`
	MaxPhaseAttempts int              `yaml:"max_phase_attempts"`
	Defaults         AgentDefaults    `yaml:"defaults"`
	Agents           map[string]Agent `yaml:"agents"`
	Serve            Serve            `yaml:"serve"`
}

// AgentDefaults holds default values applied to agents that don't specify their own.
type AgentDefaults struct {
	Timeout string `yaml:"timeout"`
	WorkDir string `yaml:"workdir"`
}

// Agent binds one agent name (script_generator, investigator, witness) to an
// external command. The command receives the task as JSON on stdin and must
// print its result as JSON on stdout.
type Agent struct {
	Command string `yaml:"command"`
	Timeout string `yaml:"timeout"`
	WorkDir string `yaml:"workdir"`
}

// Serve configures the read-only status server.
type Serve struct {
	Port int `yaml:"port"`
}
