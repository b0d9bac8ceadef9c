// Package agents wires the director's task boundary to real agent processes.
// Each agent name maps to a configured command that receives the task as
// JSON on stdin and prints its structured result as JSON on stdout.
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"showrunner/internal/config"
	"showrunner/internal/director"
)

// CommandExecutor runs one external command per agent.
type CommandExecutor struct {
	agents map[string]config.Agent
}

// NewCommandExecutor builds an executor from the configured agent bindings.
func NewCommandExecutor(cfg *config.Config) *CommandExecutor {
	return &CommandExecutor{agents: cfg.Studio.Agents}
}

// Execute implements director.Executor. The command's stdout must be a single
// JSON object; stderr is folded into the error on failure.
func (c *CommandExecutor) Execute(ctx context.Context, task *director.Task) (map[string]interface{}, error) {
	agent, ok := c.agents[task.Agent]
	if !ok {
		return nil, fmt.Errorf("no command configured for agent %q", task.Agent)
	}

	if agent.Timeout != "" {
		timeout, err := time.ParseDuration(agent.Timeout)
		if err != nil {
			return nil, fmt.Errorf("agent %q timeout: %w", task.Agent, err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	input, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode task %s: %w", task.ID, err)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", agent.Command)
	cmd.Dir = agent.WorkDir
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("agent %q: %w: %s", task.Agent, err, detail)
		}
		return nil, fmt.Errorf("agent %q: %w", task.Agent, err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("agent %q returned invalid JSON: %w", task.Agent, err)
	}
	return result, nil
}
