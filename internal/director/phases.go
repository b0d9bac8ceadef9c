package director

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"showrunner/internal/artifact"
	"showrunner/internal/gate"
)

// createdBy is the actor recorded on artifacts the director writes.
const createdBy = "director"

// newTask registers a pending task on the director's task list.
func (d *Director) newTask(agent, action, sceneID string, params map[string]interface{}) *Task {
	t := &Task{
		ID:      uuid.NewString(),
		Agent:   agent,
		Action:  action,
		SceneID: sceneID,
		Params:  params,
		Status:  TaskPending,
	}
	d.st.Tasks = append(d.st.Tasks, t)
	return t
}

// execute dispatches one task across the agent boundary. The task is terminal
// afterwards: complete with its result, or failed with the error that is then
// propagated to move the director to the error state.
func (d *Director) execute(ctx context.Context, t *Task) error {
	t.Status = TaskRunning
	d.logf("task %s: %s/%s scene=%q", t.ID, t.Agent, t.Action, t.SceneID)

	start := time.Now()
	result, err := d.opts.Executor.Execute(ctx, t)
	t.DurationMs = int(time.Since(start).Milliseconds())

	if err != nil {
		t.Status = TaskFailed
		t.Error = err.Error()
		d.logTaskRun(t)
		return fmt.Errorf("task %s (%s/%s) failed: %w", t.ID, t.Agent, t.Action, err)
	}

	t.Status = TaskComplete
	t.Result = result
	d.logTaskRun(t)
	return nil
}

// logTaskRun records a terminal task in the audit DB, best-effort.
func (d *Director) logTaskRun(t *Task) {
	if d.opts.DB == nil {
		return
	}
	_ = d.opts.DB.LogTaskRun(d.opts.ProjectID, t.ID, t.Agent, t.Action, t.SceneID, string(t.Status), t.Error, t.DurationMs)
}

// awaitApproval records which artifacts are under review, moves to the
// awaiting state, and submits the approval request. In auto-approve or
// decider mode the request is decided before this returns; the run loop then
// observes the decided gate on its next pass.
func (d *Director) awaitApproval(gateID string, awaiting State, artifactIDs []string, metadata map[string]interface{}) error {
	d.st.PendingGate = gateID
	d.st.PendingArtifacts = artifactIDs
	if err := d.setState(awaiting, fmt.Sprintf("requested approval on gate %s", gateID)); err != nil {
		return err
	}

	status, err := d.opts.Gates.RequestApproval(gateID, artifactIDs, metadata)
	if err != nil {
		return err
	}
	d.logf("gate %s: approval requested (%s)", gateID, status)
	return nil
}

// skipGate records an automatic approval for a stage that produced nothing to
// review, so the audit trail shows why the checkpoint cleared without a human.
func (d *Director) skipGate(gateID string, next State, note string) error {
	if _, err := d.opts.Gates.Approve(gateID, gate.AutoActor, gate.DecisionOpts{
		Metadata: map[string]interface{}{"note": note},
	}); err != nil {
		return err
	}
	d.logf("gate %s auto-cleared: %s", gateID, note)
	return d.setState(next, note)
}

// runScripting dispatches the script generator and submits the draft script
// for approval. A retry after rejection versions the previous draft instead
// of starting a new chain.
func (d *Director) runScripting(ctx context.Context) error {
	task := d.newTask(AgentScriptGenerator, ActionWriteScript, "", map[string]interface{}{
		"title": d.st.Brief.Title,
		"topic": d.st.Brief.Topic,
		"notes": d.st.Brief.Notes,
	})
	if err := d.execute(ctx, task); err != nil {
		return err
	}

	var art *artifact.Artifact
	var err error
	if prev := d.opts.Store.Latest(artifact.TypeScript, ""); prev != nil && !prev.Locked() {
		art, err = d.opts.Store.Update(prev.ID, task.Result, createdBy)
	} else {
		art, err = d.opts.Store.Put(artifact.PutOpts{
			Type:      artifact.TypeScript,
			Data:      task.Result,
			CreatedBy: createdBy,
		})
	}
	if err != nil {
		return fmt.Errorf("store script: %w", err)
	}

	return d.awaitApproval(gate.GateScript, StateAwaitingScriptApproval, []string{art.ID}, nil)
}

// lockedScript returns the approved script the later phases read from.
func (d *Director) lockedScript() (*artifact.Artifact, *artifact.Script, error) {
	scripts := d.opts.Store.ByType(artifact.TypeScript, artifact.Filter{Status: artifact.StatusLocked})
	if len(scripts) == 0 {
		return nil, nil, fmt.Errorf("no locked script to work from")
	}
	art := scripts[len(scripts)-1]
	doc, err := artifact.DecodeScript(art)
	if err != nil {
		return nil, nil, err
	}
	return art, doc, nil
}

// runInvestigating dispatches one investigator task per scene flagged
// needs_evidence, fanning out with bounded concurrency. Store writes stay
// serialized behind the store's own lock.
func (d *Director) runInvestigating(ctx context.Context) error {
	if ok, blocking := d.opts.Gates.CanProceedTo(gate.StageEvidence); !ok {
		return fmt.Errorf("cannot investigate, blocked by gates %v", blocking)
	}

	_, doc, err := d.lockedScript()
	if err != nil {
		return err
	}

	var tasks []*Task
	for _, scene := range doc.Scenes {
		if !scene.NeedsEvidence {
			continue
		}
		tasks = append(tasks, d.newTask(AgentInvestigator, ActionFindEvidence, scene.SceneID, map[string]interface{}{
			"scene_id":  scene.SceneID,
			"query":     scene.EvidenceQuery,
			"voiceover": scene.Voiceover,
		}))
	}

	if len(tasks) == 0 {
		return d.skipGate(gate.GateEvidence, StateCapturing, "no scenes require evidence")
	}

	ids, err := d.fanOut(ctx, tasks, func(t *Task) (*artifact.Artifact, error) {
		return d.opts.Store.Put(artifact.PutOpts{
			Type:      artifact.TypeEvidenceURL,
			SceneID:   t.SceneID,
			Data:      t.Result,
			CreatedBy: createdBy,
		})
	})
	if err != nil {
		return err
	}

	return d.awaitApproval(gate.GateEvidence, StateAwaitingEvidenceApproval, ids, nil)
}

// runCapturing dispatches one witness task per locked evidence artifact,
// producing a screenshot scoped to the same scene.
func (d *Director) runCapturing(ctx context.Context) error {
	if ok, blocking := d.opts.Gates.CanProceedTo(gate.StageCapture); !ok {
		return fmt.Errorf("cannot capture, blocked by gates %v", blocking)
	}

	evidence := d.opts.Store.ByType(artifact.TypeEvidenceURL, artifact.Filter{Status: artifact.StatusLocked})
	if len(evidence) == 0 {
		return d.skipGate(gate.GateCapture, StatePackaging, "no evidence to capture")
	}

	var tasks []*Task
	for _, ev := range evidence {
		doc, err := artifact.DecodeEvidence(ev)
		if err != nil {
			return err
		}
		tasks = append(tasks, d.newTask(AgentWitness, ActionCaptureScreenshot, ev.SceneID, map[string]interface{}{
			"scene_id":    ev.SceneID,
			"url":         doc.URL,
			"evidence_id": ev.ID,
		}))
	}

	ids, err := d.fanOut(ctx, tasks, func(t *Task) (*artifact.Artifact, error) {
		data, filePath := splitFilePath(t.Result)
		return d.opts.Store.Put(artifact.PutOpts{
			Type:      artifact.TypeScreenshot,
			SceneID:   t.SceneID,
			Data:      data,
			FilePath:  filePath,
			CreatedBy: createdBy,
		})
	})
	if err != nil {
		return err
	}

	return d.awaitApproval(gate.GateCapture, StateAwaitingCaptureApproval, ids, nil)
}

// fanOut executes independent per-scene tasks with bounded concurrency and
// persists each result via store. It returns the created artifact ids in
// task order. The first failure cancels the remaining tasks and propagates.
func (d *Director) fanOut(ctx context.Context, tasks []*Task, store func(*Task) (*artifact.Artifact, error)) ([]string, error) {
	limit := d.opts.MaxParallelTasks
	if limit < 1 {
		limit = 1
	}

	ids := make([]string, len(tasks))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			if err := d.execute(ctx, t); err != nil {
				return err
			}
			art, err := store(t)
			if err != nil {
				return fmt.Errorf("store result of task %s: %w", t.ID, err)
			}
			mu.Lock()
			ids[i] = art.ID
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// splitFilePath pops the file_path key from an agent result, so the store
// owns the file and the payload doesn't carry a stale external path.
func splitFilePath(result map[string]interface{}) (map[string]interface{}, string) {
	path, _ := result["file_path"].(string)
	if path == "" {
		return result, ""
	}
	data := make(map[string]interface{}, len(result))
	for k, v := range result {
		if k == "file_path" {
			continue
		}
		data[k] = v
	}
	return data, path
}

// runPackaging synthesizes the render manifest purely from locked store
// state. No agent is involved.
func (d *Director) runPackaging() error {
	if ok, blocking := d.opts.Gates.CanProceedTo(gate.StageRender); !ok {
		return fmt.Errorf("cannot package, blocked by gates %v", blocking)
	}

	manifest, err := d.opts.Store.Manifest()
	if err != nil {
		return err
	}

	data, err := toMap(manifest)
	if err != nil {
		return fmt.Errorf("encode render manifest: %w", err)
	}
	art, err := d.opts.Store.Put(artifact.PutOpts{
		Type:      artifact.TypeRenderManifest,
		Data:      data,
		CreatedBy: createdBy,
	})
	if err != nil {
		return fmt.Errorf("store render manifest: %w", err)
	}

	return d.awaitApproval(gate.GateRender, StateAwaitingRenderApproval, []string{art.ID}, nil)
}

// runRendering hands the locked manifest to the render hook, if any. The
// coordinator's responsibility ends at an approved, locked manifest.
func (d *Director) runRendering(ctx context.Context) error {
	if d.opts.RenderHook != nil {
		manifests := d.opts.Store.ByType(artifact.TypeRenderManifest, artifact.Filter{Status: artifact.StatusLocked})
		if len(manifests) == 0 {
			return fmt.Errorf("no locked render manifest to render")
		}
		m, err := artifact.DecodeRenderManifest(manifests[len(manifests)-1])
		if err != nil {
			return err
		}
		if err := d.opts.RenderHook(ctx, m); err != nil {
			return fmt.Errorf("render hook: %w", err)
		}
	}
	return d.setState(StateComplete, "production complete")
}

// toMap converts a struct to the map form artifacts store.
func toMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
