// Package director drives the production pipeline: a finite-state
// orchestrator that dispatches work to pluggable agents, persists every
// output as a draft artifact, and advances past a stage only when its
// approval gate clears.
package director

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"showrunner/internal/artifact"
	"showrunner/internal/db"
	"showrunner/internal/fsio"
	"showrunner/internal/gate"
)

// State is the director's position in the pipeline.
type State string

const (
	StateIdle                     State = "idle"
	StateScripting                State = "scripting"
	StateAwaitingScriptApproval   State = "awaiting_script_approval"
	StateInvestigating            State = "investigating"
	StateAwaitingEvidenceApproval State = "awaiting_evidence_approval"
	StateCapturing                State = "capturing"
	StateAwaitingCaptureApproval  State = "awaiting_capture_approval"
	StatePackaging                State = "packaging"
	StateAwaitingRenderApproval   State = "awaiting_render_approval"
	StateRendering                State = "rendering"
	StateComplete                 State = "complete"
	StateError                    State = "error"
)

// Terminal reports whether no further work is possible from the state.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError
}

const stateFile = "director.json"

// Brief is the project-level input handed to the script generator.
type Brief struct {
	Title string `json:"title"`
	Topic string `json:"topic"`
	Notes string `json:"notes,omitempty"`
}

// Options configures a Director.
type Options struct {
	ProjectID string
	Dir       string // project directory, shared with the store and gates
	Store     *artifact.Store
	Gates     *gate.Engine
	Executor  Executor
	DB        *db.DB // optional audit log
	Brief     Brief
	// MaxParallelTasks bounds per-scene fan-out in the investigate and
	// capture phases. Values below 1 mean sequential.
	MaxParallelTasks int
	// MaxPhaseAttempts caps how often a rejected phase may be retried via
	// RetryPhase before the director refuses.
	MaxPhaseAttempts int
	// RenderHook, when set, is invoked with the locked render manifest once
	// the render gate clears. The core's responsibility ends there.
	RenderHook func(ctx context.Context, m *artifact.RenderManifest) error
	Progress   io.Writer // live progress output; nil = silent
}

// persistedState is the resumable pointer written to director.json. Resume
// reads this and continues from exactly the recorded phase instead of
// restarting the pipeline.
type persistedState struct {
	State            State          `json:"state"`
	Message          string         `json:"message,omitempty"`
	Brief            Brief          `json:"brief"`
	Tasks            []*Task        `json:"tasks,omitempty"`
	PendingGate      string         `json:"pending_gate,omitempty"`
	PendingArtifacts []string       `json:"pending_artifacts,omitempty"`
	PhaseAttempts    map[State]int  `json:"phase_attempts,omitempty"`
	UpdatedAt        string         `json:"updated_at"`
}

// Director sequences the pipeline phases for one project. It is the only
// writer of the project's artifacts; manual gate decisions may race a
// running director safely because store and gate mutation is serialized
// behind their own locks.
type Director struct {
	mu       sync.Mutex
	opts     Options
	path     string
	st       persistedState
	progress io.Writer
}

// New loads or creates a director for a project directory.
func New(opts Options) (*Director, error) {
	if opts.Store == nil || opts.Gates == nil {
		return nil, fmt.Errorf("director requires a store and a gate engine")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("director requires a task executor")
	}
	if opts.MaxPhaseAttempts <= 0 {
		opts.MaxPhaseAttempts = 3
	}

	d := &Director{
		opts:     opts,
		path:     filepath.Join(opts.Dir, stateFile),
		progress: opts.Progress,
	}

	if err := fsio.ReadJSON(d.path, &d.st); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load director state: %w", err)
		}
		d.st = persistedState{State: StateIdle, Brief: opts.Brief}
		if err := d.save(); err != nil {
			return nil, err
		}
	}
	if d.st.PhaseAttempts == nil {
		d.st.PhaseAttempts = make(map[State]int)
	}
	return d, nil
}

// State returns the director's current state.
func (d *Director) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.State
}

// logf prints a progress line if a progress writer is configured.
func (d *Director) logf(format string, args ...interface{}) {
	if d.progress != nil {
		fmt.Fprintf(d.progress, "  → "+format+"\n", args...)
	}
}

// save persists the resumable state pointer. Callers must hold d.mu.
func (d *Director) save() error {
	d.st.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := fsio.WriteJSON(d.path, &d.st); err != nil {
		return fmt.Errorf("write director state: %w", err)
	}
	return nil
}

// logPhaseEvent records a phase transition in the audit DB, best-effort.
func (d *Director) logPhaseEvent(event, detail string) {
	if d.opts.DB == nil {
		return
	}
	_ = d.opts.DB.LogPhaseEvent(d.opts.ProjectID, event, string(d.st.State), detail)
}

// setState transitions the director and persists the pointer.
func (d *Director) setState(s State, message string) error {
	d.st.State = s
	d.st.Message = message
	if err := d.save(); err != nil {
		return err
	}
	d.logPhaseEvent("state_changed", message)
	d.logf("state → %s", s)
	return nil
}

// Run drives the pipeline from the persisted state until it either completes,
// fails, or suspends at a pending gate. Phase failures are caught here,
// recorded as the terminal error state, and returned as status rather than
// raised; the returned error covers only persistence problems.
func (d *Director) Run(ctx context.Context) (*Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return d.failLocked(err)
		}

		switch d.st.State {
		case StateIdle:
			if err := d.setState(StateScripting, "starting script generation"); err != nil {
				return nil, err
			}

		case StateScripting:
			if err := d.runScripting(ctx); err != nil {
				return d.failLocked(err)
			}

		case StateAwaitingScriptApproval:
			done, status, err := d.checkGate(gate.GateScript, StateInvestigating, "script approved, investigating evidence")
			if err != nil {
				return d.failLocked(err)
			}
			if !done {
				return status, nil
			}

		case StateInvestigating:
			if err := d.runInvestigating(ctx); err != nil {
				return d.failLocked(err)
			}

		case StateAwaitingEvidenceApproval:
			done, status, err := d.checkGate(gate.GateEvidence, StateCapturing, "evidence approved, capturing screenshots")
			if err != nil {
				return d.failLocked(err)
			}
			if !done {
				return status, nil
			}

		case StateCapturing:
			if err := d.runCapturing(ctx); err != nil {
				return d.failLocked(err)
			}

		case StateAwaitingCaptureApproval:
			done, status, err := d.checkGate(gate.GateCapture, StatePackaging, "captures approved, packaging render manifest")
			if err != nil {
				return d.failLocked(err)
			}
			if !done {
				return status, nil
			}

		case StatePackaging:
			if err := d.runPackaging(); err != nil {
				return d.failLocked(err)
			}

		case StateAwaitingRenderApproval:
			done, status, err := d.checkGate(gate.GateRender, StateRendering, "render approved")
			if err != nil {
				return d.failLocked(err)
			}
			if !done {
				return status, nil
			}

		case StateRendering:
			if err := d.runRendering(ctx); err != nil {
				return d.failLocked(err)
			}

		case StateComplete:
			return d.snapshotLocked(), nil

		case StateError:
			return d.snapshotLocked(), nil

		default:
			return d.failLocked(fmt.Errorf("unknown director state %q", d.st.State))
		}
	}
}

// failLocked records a phase failure as the terminal error state. Callers
// must hold d.mu.
func (d *Director) failLocked(cause error) (*Status, error) {
	d.st.State = StateError
	d.st.Message = cause.Error()
	if err := d.save(); err != nil {
		return nil, err
	}
	d.logPhaseEvent("error", cause.Error())
	d.logf("error: %v", cause)
	return d.snapshotLocked(), nil
}

// checkGate inspects the gate guarding the current awaiting state. When the
// gate has cleared it locks every pending artifact and advances to next.
// When still pending or rejected, it returns the status snapshot the run
// call should hand back to the caller.
func (d *Director) checkGate(gateID string, next State, message string) (bool, *Status, error) {
	g, err := d.opts.Gates.Gate(gateID)
	if err != nil {
		return false, nil, err
	}

	switch g.Status {
	case gate.StatusApproved, gate.StatusAutoApproved:
		decidedBy := gate.AutoActor
		if n := len(g.Events); n > 0 {
			decidedBy = g.Events[n-1].DecidedBy
		}
		for _, id := range d.st.PendingArtifacts {
			if _, err := d.opts.Store.Lock(id, decidedBy); err != nil {
				return false, nil, fmt.Errorf("lock artifact %s after %s cleared: %w", id, gateID, err)
			}
		}
		d.logf("gate %s cleared by %s, locked %d artifact(s)", gateID, decidedBy, len(d.st.PendingArtifacts))
		d.st.PendingArtifacts = nil
		d.st.PendingGate = ""
		if err := d.setState(next, message); err != nil {
			return false, nil, err
		}
		return true, nil, nil

	case gate.StatusRejected:
		reason := ""
		for i := len(g.Events) - 1; i >= 0; i-- {
			if g.Events[i].Status == gate.StatusRejected {
				reason = g.Events[i].RejectionReason
				break
			}
		}
		d.st.Message = fmt.Sprintf("gate %s rejected: %s", gateID, reason)
		if err := d.save(); err != nil {
			return false, nil, err
		}
		s := d.snapshotLocked()
		s.Error = true
		return false, s, nil

	default:
		d.st.Message = fmt.Sprintf("awaiting decision on gate %s", gateID)
		if err := d.save(); err != nil {
			return false, nil, err
		}
		return false, d.snapshotLocked(), nil
	}
}

// producingStateFor maps an awaiting state back to the phase that produced
// the artifacts under review.
func producingStateFor(s State) (State, string) {
	switch s {
	case StateAwaitingScriptApproval:
		return StateScripting, gate.GateScript
	case StateAwaitingEvidenceApproval:
		return StateInvestigating, gate.GateEvidence
	case StateAwaitingCaptureApproval:
		return StateCapturing, gate.GateCapture
	case StateAwaitingRenderApproval:
		return StatePackaging, gate.GateRender
	}
	return "", ""
}

// RetryPhase re-arms a rejected phase: the gate is reset to pending and the
// director moves back to the producing phase so the next Run regenerates the
// stage's artifacts. Retries are bounded by MaxPhaseAttempts and every retry
// is recorded, keeping the policy explicit and observable. Draft artifacts
// from the rejected attempt are left in place for inspection.
func (d *Director) RetryPhase() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	producing, gateID := producingStateFor(d.st.State)
	if producing == "" {
		return fmt.Errorf("state %s has no phase to retry", d.st.State)
	}

	g, err := d.opts.Gates.Gate(gateID)
	if err != nil {
		return err
	}
	if g.Status != gate.StatusRejected {
		return fmt.Errorf("gate %s is %s, only rejected gates can be retried", gateID, g.Status)
	}

	attempts := d.st.PhaseAttempts[producing] + 1
	if attempts >= d.opts.MaxPhaseAttempts {
		return fmt.Errorf("phase %s exhausted its %d attempts", producing, d.opts.MaxPhaseAttempts)
	}
	d.st.PhaseAttempts[producing] = attempts

	if err := d.opts.Gates.Reset(gateID); err != nil {
		return err
	}
	d.st.PendingArtifacts = nil
	d.st.PendingGate = ""
	d.logPhaseEvent("retry", fmt.Sprintf("phase=%s attempt=%d", producing, attempts+1))
	return d.setState(producing, fmt.Sprintf("retrying %s (attempt %d)", producing, attempts+1))
}
