package gate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"showrunner/internal/fsio"
)

const gatesFile = "gates.json"

// AutoActor is the decided_by value that marks a decision as automated.
const AutoActor = "auto"

// Decision is the outcome a Decider returns for an approval request.
type Decision struct {
	Approved bool
	By       string
	Feedback string
	Reason   string // required when not approved
}

// Decider is an injected decision capability. When configured, approval
// requests are decided synchronously instead of waiting for a human.
type Decider interface {
	Decide(gateID string, artifactIDs []string, metadata map[string]interface{}) (Decision, error)
}

// DeciderFunc adapts a plain function to the Decider interface.
type DeciderFunc func(gateID string, artifactIDs []string, metadata map[string]interface{}) (Decision, error)

// Decide implements Decider.
func (f DeciderFunc) Decide(gateID string, artifactIDs []string, metadata map[string]interface{}) (Decision, error) {
	return f(gateID, artifactIDs, metadata)
}

// Options configures an Engine.
type Options struct {
	// AutoApprove makes every approval request record an auto_approved event
	// immediately, without consulting the Decider.
	AutoApprove bool
	// Decider, when set (and AutoApprove is off), decides requests inline.
	// When nil the engine is interactive: requests stay pending until an
	// explicit Approve or Reject call arrives.
	Decider Decider
	// OnApprove and OnReject are invoked after a decision is recorded.
	OnApprove func(g *Gate, e Event)
	OnReject  func(g *Gate, e Event)
}

// Engine tracks the fixed gate catalogue for one project. Gate state and the
// full audit log persist to gates.json in the project directory so decisions
// survive process restarts.
type Engine struct {
	mu    sync.Mutex
	path  string
	opts  Options
	gates []*Gate
}

// persisted is the on-disk shape of the engine's state.
type persisted struct {
	UpdatedAt string  `json:"updated_at"`
	Gates     []*Gate `json:"gates"`
}

// NewEngine loads or creates the gate catalogue for a project directory.
func NewEngine(dir string, opts Options) (*Engine, error) {
	e := &Engine{path: filepath.Join(dir, gatesFile), opts: opts}

	var doc persisted
	if err := fsio.ReadJSON(e.path, &doc); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load gates: %w", err)
		}
		e.gates = catalogue()
		if err := e.save(); err != nil {
			return nil, err
		}
		return e, nil
	}
	e.gates = doc.Gates
	return e, nil
}

// save persists gate state. Callers must hold e.mu or be single-threaded setup.
func (e *Engine) save() error {
	doc := persisted{
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Gates:     e.gates,
	}
	if err := fsio.WriteJSON(e.path, &doc); err != nil {
		return fmt.Errorf("write gates: %w", err)
	}
	return nil
}

// find returns the gate with the given id. Callers must hold e.mu.
func (e *Engine) find(id string) *Gate {
	for _, g := range e.gates {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// RequestApproval submits artifacts to a gate for decision. In auto-approve
// mode the gate is approved immediately; with a Decider the injected function
// decides inline; otherwise the request is recorded as pending and the caller
// returns to the user without blocking.
func (e *Engine) RequestApproval(gateID string, artifactIDs []string, metadata map[string]interface{}) (Status, error) {
	e.mu.Lock()
	g := e.find(gateID)
	if g == nil {
		e.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrNotFound, gateID)
	}
	g.PendingArtifactIDs = append([]string(nil), artifactIDs...)
	g.Status = StatusPending
	if err := e.save(); err != nil {
		e.mu.Unlock()
		return "", err
	}
	e.mu.Unlock()

	if e.opts.AutoApprove {
		ev, err := e.Approve(gateID, AutoActor, DecisionOpts{ArtifactIDs: artifactIDs, Metadata: metadata})
		if err != nil {
			return "", err
		}
		return ev.Status, nil
	}

	if e.opts.Decider != nil {
		d, err := e.opts.Decider.Decide(gateID, artifactIDs, metadata)
		if err != nil {
			return "", fmt.Errorf("gate %s decider: %w", gateID, err)
		}
		if d.Approved {
			ev, err := e.Approve(gateID, d.By, DecisionOpts{ArtifactIDs: artifactIDs, Metadata: metadata, Feedback: d.Feedback})
			if err != nil {
				return "", err
			}
			return ev.Status, nil
		}
		ev, err := e.Reject(gateID, d.By, d.Reason, DecisionOpts{ArtifactIDs: artifactIDs, Metadata: metadata})
		if err != nil {
			return "", err
		}
		return ev.Status, nil
	}

	return StatusPending, nil
}

// DecisionOpts carries the optional fields of an approve/reject call.
type DecisionOpts struct {
	ArtifactIDs []string
	Metadata    map[string]interface{}
	Feedback    string
}

// Approve records an approval event and moves the gate to approved, or
// auto_approved when the actor is AutoActor. The gate's on-approve callback
// fires after the decision is persisted.
func (e *Engine) Approve(gateID, approvedBy string, opts DecisionOpts) (*Event, error) {
	if approvedBy == "" {
		return nil, fmt.Errorf("%w: approved_by is required", ErrValidation)
	}

	status := StatusApproved
	if approvedBy == AutoActor {
		status = StatusAutoApproved
	}

	e.mu.Lock()
	g := e.find(gateID)
	if g == nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, gateID)
	}

	ids := opts.ArtifactIDs
	if len(ids) == 0 {
		ids = append([]string(nil), g.PendingArtifactIDs...)
	}
	ev := Event{
		ID:          uuid.NewString(),
		GateID:      gateID,
		Status:      status,
		DecidedAt:   time.Now().UTC().Format(time.RFC3339),
		DecidedBy:   approvedBy,
		Feedback:    opts.Feedback,
		ArtifactIDs: ids,
		Metadata:    opts.Metadata,
	}
	g.Events = append(g.Events, ev)
	g.Status = status
	if err := e.save(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	snapshot := g.clone()
	e.mu.Unlock()

	if e.opts.OnApprove != nil {
		e.opts.OnApprove(snapshot, ev)
	}
	return &ev, nil
}

// Reject records a rejection event and moves the gate to rejected. A
// non-empty reason is required; rejections without one fail with
// ErrValidation. The on-reject callback fires after the decision is persisted.
func (e *Engine) Reject(gateID, rejectedBy, reason string, opts DecisionOpts) (*Event, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}
	if rejectedBy == "" {
		return nil, fmt.Errorf("%w: rejected_by is required", ErrValidation)
	}

	e.mu.Lock()
	g := e.find(gateID)
	if g == nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, gateID)
	}

	ids := opts.ArtifactIDs
	if len(ids) == 0 {
		ids = append([]string(nil), g.PendingArtifactIDs...)
	}
	ev := Event{
		ID:              uuid.NewString(),
		GateID:          gateID,
		Status:          StatusRejected,
		DecidedAt:       time.Now().UTC().Format(time.RFC3339),
		DecidedBy:       rejectedBy,
		RejectionReason: reason,
		Feedback:        opts.Feedback,
		ArtifactIDs:     ids,
		Metadata:        opts.Metadata,
	}
	g.Events = append(g.Events, ev)
	g.Status = StatusRejected
	if err := e.save(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	snapshot := g.clone()
	e.mu.Unlock()

	if e.opts.OnReject != nil {
		e.opts.OnReject(snapshot, ev)
	}
	return &ev, nil
}

// Reset forces a gate back to pending so a rejected stage can be retried.
// The audit log is never cleared.
func (e *Engine) Reset(gateID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.find(gateID)
	if g == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, gateID)
	}
	g.Status = StatusPending
	g.PendingArtifactIDs = nil
	return e.save()
}

// IsApproved reports whether a gate has cleared (approved or auto_approved).
func (e *Engine) IsApproved(gateID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.find(gateID)
	if g == nil {
		return false
	}
	return g.Status == StatusApproved || g.Status == StatusAutoApproved
}

// CanProceedTo walks the fixed stage order and reports whether all gates
// belonging to stages before the target stage have been decided. The second
// return value lists the blocking gate ids.
func (e *Engine) CanProceedTo(stage string) (bool, []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var blocking []string
	for _, s := range StageOrder {
		if s == stage {
			break
		}
		for _, g := range e.gates {
			if g.Stage == s && g.Status == StatusPending {
				blocking = append(blocking, g.ID)
			}
		}
	}
	return len(blocking) == 0, blocking
}

// Gate returns a copy of the gate with the given id.
func (e *Engine) Gate(gateID string) (*Gate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.find(gateID)
	if g == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, gateID)
	}
	return g.clone(), nil
}

// All returns copies of every gate in catalogue order.
func (e *Engine) All() []*Gate {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Gate, 0, len(e.gates))
	for _, g := range e.gates {
		out = append(out, g.clone())
	}
	return out
}

// Summary is the externally visible shape of gate state.
type Summary struct {
	Gates       map[string]*Gate `json:"gates"`
	Pending     []string         `json:"pending,omitempty"`
	AutoApprove bool             `json:"auto_approve"`
}

// Summarize reports every gate plus the set still pending.
func (e *Engine) Summarize() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	sum := Summary{
		Gates:       make(map[string]*Gate, len(e.gates)),
		AutoApprove: e.opts.AutoApprove,
	}
	for _, g := range e.gates {
		sum.Gates[g.ID] = g.clone()
		if g.Status == StatusPending {
			sum.Pending = append(sum.Pending, g.ID)
		}
	}
	return sum
}
