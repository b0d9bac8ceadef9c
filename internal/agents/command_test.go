package agents

import (
	"context"
	"strings"
	"testing"

	"showrunner/internal/config"
	"showrunner/internal/director"
)

func executorWith(agents map[string]config.Agent) *CommandExecutor {
	cfg := &config.Config{}
	cfg.Studio.Agents = agents
	return NewCommandExecutor(cfg)
}

func TestExecuteParsesResult(t *testing.T) {
	e := executorWith(map[string]config.Agent{
		director.AgentInvestigator: {Command: `echo '{"url":"https://example.com","title":"Filing"}'`},
	})

	task := &director.Task{ID: "t1", Agent: director.AgentInvestigator, Action: director.ActionFindEvidence}
	result, err := e.Execute(context.Background(), task)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result["url"] != "https://example.com" {
		t.Errorf("url = %v", result["url"])
	}
	if result["title"] != "Filing" {
		t.Errorf("title = %v", result["title"])
	}
}

func TestExecutePipesTaskOnStdin(t *testing.T) {
	// The command echoes the task back wrapped in a result field, proving the
	// agent received the full task JSON.
	e := executorWith(map[string]config.Agent{
		director.AgentWitness: {Command: `printf '{"echo":%s}' "$(cat)"`},
	})

	task := &director.Task{
		ID: "t2", Agent: director.AgentWitness, Action: director.ActionCaptureScreenshot,
		SceneID: "s2", Params: map[string]interface{}{"url": "https://example.com"},
	}
	result, err := e.Execute(context.Background(), task)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	echoed, ok := result["echo"].(map[string]interface{})
	if !ok {
		t.Fatalf("echo = %T, want object", result["echo"])
	}
	if echoed["id"] != "t2" || echoed["scene_id"] != "s2" {
		t.Errorf("echoed task = %v", echoed)
	}
}

func TestExecuteUnknownAgent(t *testing.T) {
	e := executorWith(nil)

	_, err := e.Execute(context.Background(), &director.Task{Agent: "ghost"})
	if err == nil || !strings.Contains(err.Error(), "no command configured") {
		t.Errorf("err = %v, want no-command error", err)
	}
}

func TestExecuteFoldsStderrIntoError(t *testing.T) {
	e := executorWith(map[string]config.Agent{
		director.AgentWitness: {Command: `echo "page did not load" >&2; exit 3`},
	})

	_, err := e.Execute(context.Background(), &director.Task{ID: "t3", Agent: director.AgentWitness})
	if err == nil {
		t.Fatal("expected error from failing command")
	}
	if !strings.Contains(err.Error(), "page did not load") {
		t.Errorf("err = %v, want stderr detail", err)
	}
}

func TestExecuteRejectsInvalidJSON(t *testing.T) {
	e := executorWith(map[string]config.Agent{
		director.AgentWitness: {Command: `echo not-json`},
	})

	_, err := e.Execute(context.Background(), &director.Task{ID: "t4", Agent: director.AgentWitness})
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("err = %v, want invalid JSON error", err)
	}
}

func TestExecuteHonorsTimeout(t *testing.T) {
	e := executorWith(map[string]config.Agent{
		director.AgentWitness: {Command: `sleep 5; echo '{}'`, Timeout: "50ms"},
	})

	_, err := e.Execute(context.Background(), &director.Task{ID: "t5", Agent: director.AgentWitness})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
