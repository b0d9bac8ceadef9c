package director

import "context"

// Agent names the director dispatches to. The concrete agents live outside
// the coordinator; they are reached only through the Executor boundary.
const (
	AgentScriptGenerator = "script_generator"
	AgentInvestigator    = "investigator"
	AgentWitness         = "witness"
)

// Task actions per agent.
const (
	ActionWriteScript       = "write_script"
	ActionFindEvidence      = "find_evidence"
	ActionCaptureScreenshot = "capture_screenshot"
)

// TaskStatus is the lifecycle state of a dispatched task.
type TaskStatus string

const (
	TaskPending  TaskStatus = "pending"
	TaskRunning  TaskStatus = "running"
	TaskComplete TaskStatus = "complete"
	TaskFailed   TaskStatus = "failed"
)

// Task is one unit of delegated agent work. Tasks are terminal once the
// agent call returns: complete with a result, or failed with an error.
type Task struct {
	ID         string                 `json:"id"`
	Agent      string                 `json:"agent"`
	Action     string                 `json:"action"`
	SceneID    string                 `json:"scene_id,omitempty"`
	Params     map[string]interface{} `json:"params,omitempty"`
	Status     TaskStatus             `json:"status"`
	Result     map[string]interface{} `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	DurationMs int                    `json:"duration_ms,omitempty"`
}

// Executor is the external capability that performs actual agent work. The
// director stores whatever structured result it returns verbatim as artifact
// data. Implementations may block on network calls; the director passes its
// context through so callers can cancel.
type Executor interface {
	Execute(ctx context.Context, task *Task) (map[string]interface{}, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task *Task) (map[string]interface{}, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, task *Task) (map[string]interface{}, error) {
	return f(ctx, task)
}
