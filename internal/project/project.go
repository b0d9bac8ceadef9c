// Package project is the external face of one production: it owns the
// project directory, binds a task executor to the director, and re-exposes
// run, approve, reject, resume, and query operations.
package project

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"

	"showrunner/internal/artifact"
	"showrunner/internal/db"
	"showrunner/internal/director"
	"showrunner/internal/gate"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Options configures a project.
type Options struct {
	OutputDir string
	ProjectID string
	Brief     director.Brief
	Executor  director.Executor
	DB        *db.DB // optional audit database
	// AutoApprove makes every gate clear automatically at request time.
	AutoApprove bool
	// Decider, when set, decides gates inline instead of waiting for a human.
	Decider          gate.Decider
	MaxParallelTasks int
	MaxPhaseAttempts int
	RenderHook       func(ctx context.Context, m *artifact.RenderManifest) error
	Progress         io.Writer
}

// Project binds the store, gate engine, and director for one production.
type Project struct {
	id       string
	dir      string
	store    *artifact.Store
	gates    *gate.Engine
	director *director.Director
	db       *db.DB
}

// Open loads or creates the project under <output_dir>/<project_id>/.
func Open(opts Options) (*Project, error) {
	if !idPattern.MatchString(opts.ProjectID) {
		return nil, fmt.Errorf("invalid project id %q", opts.ProjectID)
	}
	dir := filepath.Join(opts.OutputDir, opts.ProjectID)

	store, err := artifact.Open(dir, opts.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	gateOpts := gate.Options{
		AutoApprove: opts.AutoApprove,
		Decider:     opts.Decider,
	}
	if opts.DB != nil {
		audit := opts.DB
		projectID := opts.ProjectID
		log := func(g *gate.Gate, e gate.Event) {
			_ = audit.LogApprovalEvent(projectID, g.ID, string(e.Status), e.DecidedBy, e.RejectionReason, e.ArtifactIDs)
		}
		gateOpts.OnApprove = log
		gateOpts.OnReject = log
	}
	gates, err := gate.NewEngine(dir, gateOpts)
	if err != nil {
		return nil, fmt.Errorf("open gate engine: %w", err)
	}

	dir2, err := director.New(director.Options{
		ProjectID:        opts.ProjectID,
		Dir:              dir,
		Store:            store,
		Gates:            gates,
		Executor:         opts.Executor,
		DB:               opts.DB,
		Brief:            opts.Brief,
		MaxParallelTasks: opts.MaxParallelTasks,
		MaxPhaseAttempts: opts.MaxPhaseAttempts,
		RenderHook:       opts.RenderHook,
		Progress:         opts.Progress,
	})
	if err != nil {
		return nil, fmt.Errorf("open director: %w", err)
	}

	return &Project{
		id:       opts.ProjectID,
		dir:      dir,
		store:    store,
		gates:    gates,
		director: dir2,
		db:       opts.DB,
	}, nil
}

// ID returns the project identifier.
func (p *Project) ID() string { return p.id }

// Dir returns the on-disk project directory.
func (p *Project) Dir() string { return p.dir }

// Store exposes the project's artifact store for read access.
func (p *Project) Store() *artifact.Store { return p.store }

// Gates exposes the project's gate engine for read access.
func (p *Project) Gates() *gate.Engine { return p.gates }

// Run drives the pipeline until it completes, fails, or suspends at a
// pending gate.
func (p *Project) Run(ctx context.Context) (*director.Status, error) {
	return p.director.Run(ctx)
}

// Resume continues a suspended pipeline from its persisted phase pointer.
// It is Run by another name; resumption never restarts completed phases.
func (p *Project) Resume(ctx context.Context) (*director.Status, error) {
	return p.director.Run(ctx)
}

// RunWithAutoApprove drives the pipeline to completion, approving each gate
// the director suspends on with the automated actor. Every auto decision is
// recorded in the audit trail like any other.
func (p *Project) RunWithAutoApprove(ctx context.Context) (*director.Status, error) {
	for {
		status, err := p.director.Run(ctx)
		if err != nil {
			return nil, err
		}
		if status.State.Terminal() || status.PendingGate == "" || status.Error {
			return status, nil
		}
		g, err := p.gates.Gate(status.PendingGate)
		if err != nil {
			return nil, err
		}
		if g.Status != gate.StatusPending {
			return status, nil
		}
		if _, err := p.gates.Approve(status.PendingGate, gate.AutoActor, gate.DecisionOpts{}); err != nil {
			return nil, err
		}
	}
}

// Approve records a human approval on a gate. The decision takes effect on
// the next Run/Resume, which locks the reviewed artifacts and advances.
func (p *Project) Approve(gateID, approvedBy, feedback string) (*gate.Event, error) {
	return p.gates.Approve(gateID, approvedBy, gate.DecisionOpts{Feedback: feedback})
}

// Reject records a rejection; the reason is mandatory. Draft artifacts from
// the rejected stage stay in place for inspection and regeneration.
func (p *Project) Reject(gateID, rejectedBy, reason string) (*gate.Event, error) {
	return p.gates.Reject(gateID, rejectedBy, reason, gate.DecisionOpts{})
}

// RetryPhase re-arms the rejected phase the director is suspended on.
func (p *Project) RetryPhase() error {
	return p.director.RetryPhase()
}

// Status returns the current snapshot without driving the pipeline.
func (p *Project) Status() *director.Status {
	return p.director.Snapshot()
}

// RenderManifest returns the final manifest, failing with ErrRenderNotReady
// until the preconditions hold.
func (p *Project) RenderManifest() (*artifact.RenderManifest, error) {
	return p.store.Manifest()
}
