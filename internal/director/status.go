package director

import (
	"showrunner/internal/artifact"
	"showrunner/internal/gate"
)

// Status is the snapshot every externally visible call returns: where the
// director is, what the store and gates look like, and every task dispatched
// so far.
type Status struct {
	ProjectID    string           `json:"project_id"`
	State        State            `json:"state"`
	Message      string           `json:"message"`
	Error        bool             `json:"error"`
	PendingGate  string           `json:"pending_gate,omitempty"`
	StoreSummary artifact.Summary `json:"store_summary"`
	GatesSummary gate.Summary     `json:"gates_summary"`
	Tasks        []*Task          `json:"tasks,omitempty"`
}

// Snapshot returns the current status without driving the pipeline.
func (d *Director) Snapshot() *Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// snapshotLocked builds a status snapshot. Callers must hold d.mu.
func (d *Director) snapshotLocked() *Status {
	tasks := make([]*Task, len(d.st.Tasks))
	for i, t := range d.st.Tasks {
		cp := *t
		tasks[i] = &cp
	}
	return &Status{
		ProjectID:    d.opts.ProjectID,
		State:        d.st.State,
		Message:      d.st.Message,
		Error:        d.st.State == StateError,
		PendingGate:  d.st.PendingGate,
		StoreSummary: d.opts.Store.Summarize(),
		GatesSummary: d.opts.Gates.Summarize(),
		Tasks:        tasks,
	}
}
