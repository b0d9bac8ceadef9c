package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"showrunner/internal/artifact"
	"showrunner/internal/director"
	"showrunner/internal/gate"
)

// fakeAgents covers the three agent actions with canned results.
func fakeAgents(t *testing.T) director.Executor {
	t.Helper()
	return director.ExecutorFunc(func(ctx context.Context, task *director.Task) (map[string]interface{}, error) {
		switch task.Action {
		case director.ActionWriteScript:
			return map[string]interface{}{
				"title": "Fake Script",
				"scenes": []interface{}{
					map[string]interface{}{"scene_id": "s1", "voiceover": "intro"},
					map[string]interface{}{
						"scene_id": "s2", "needs_evidence": true, "evidence_query": "receipts",
					},
				},
			}, nil
		case director.ActionFindEvidence:
			return map[string]interface{}{"url": "https://evidence.example/" + task.SceneID}, nil
		case director.ActionCaptureScreenshot:
			src := filepath.Join(t.TempDir(), "shot.png")
			if err := os.WriteFile(src, []byte("png"), 0o644); err != nil {
				return nil, err
			}
			return map[string]interface{}{"source_url": task.Params["url"], "file_path": src}, nil
		}
		return nil, fmt.Errorf("unknown action %q", task.Action)
	})
}

func openTestProject(t *testing.T, outputDir, id string) *Project {
	t.Helper()
	p, err := Open(Options{
		OutputDir: outputDir,
		ProjectID: id,
		Brief:     director.Brief{Topic: "exposé"},
		Executor:  fakeAgents(t),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return p
}

func TestOpenRejectsBadIDs(t *testing.T) {
	for _, id := range []string{"", "UPPER", "has space", "/slash", "-leading"} {
		_, err := Open(Options{OutputDir: t.TempDir(), ProjectID: id, Executor: fakeAgents(t)})
		if err == nil {
			t.Errorf("Open(%q) should fail", id)
		}
	}
}

func TestOpenCreatesProjectDir(t *testing.T) {
	out := t.TempDir()
	p := openTestProject(t, out, "expose-42")

	if p.Dir() != filepath.Join(out, "expose-42") {
		t.Errorf("Dir = %q", p.Dir())
	}
	for _, name := range []string{"artifacts.json", "gates.json", "director.json"} {
		if _, err := os.Stat(filepath.Join(p.Dir(), name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestRunWithAutoApproveCompletes(t *testing.T) {
	p := openTestProject(t, t.TempDir(), "expose-42")

	status, err := p.RunWithAutoApprove(context.Background())
	if err != nil {
		t.Fatalf("RunWithAutoApprove: %v", err)
	}
	if status.State != director.StateComplete {
		t.Fatalf("state = %q (%s), want complete", status.State, status.Message)
	}

	// Auto decisions are audited like any other.
	for _, g := range p.Gates().All() {
		if g.Status != gate.StatusAutoApproved {
			t.Errorf("gate %s = %q, want auto_approved", g.ID, g.Status)
		}
	}

	m, err := p.RenderManifest()
	if err != nil {
		t.Fatalf("RenderManifest: %v", err)
	}
	if len(m.RenderQueue) != 2 {
		t.Errorf("RenderQueue has %d scenes, want 2", len(m.RenderQueue))
	}
}

func TestApproveRejectFlow(t *testing.T) {
	p := openTestProject(t, t.TempDir(), "expose-42")

	status, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status.PendingGate != gate.GateScript {
		t.Fatalf("PendingGate = %q, want gate_script", status.PendingGate)
	}

	if _, err := p.Reject(gate.GateScript, "alice", ""); err == nil {
		t.Error("Reject without a reason should fail")
	}
	if _, err := p.Reject(gate.GateScript, "alice", "needs a rewrite"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	status, err = p.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !status.Error {
		t.Error("resume after rejection should report an error status")
	}

	if err := p.RetryPhase(); err != nil {
		t.Fatalf("RetryPhase: %v", err)
	}
	status, err = p.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume after retry: %v", err)
	}
	if status.State != director.StateAwaitingScriptApproval {
		t.Fatalf("state = %q, want awaiting_script_approval", status.State)
	}

	ev, err := p.Approve(gate.GateScript, "alice", "much better")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if ev.Feedback != "much better" {
		t.Errorf("Feedback = %q", ev.Feedback)
	}

	status, err = p.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if status.State != director.StateAwaitingEvidenceApproval {
		t.Errorf("state = %q (%s), want awaiting_evidence_approval", status.State, status.Message)
	}

	script := p.Store().Latest(artifact.TypeScript, "")
	if script.Version != 2 || !script.Locked() {
		t.Errorf("script v%d locked=%v, want locked v2", script.Version, script.Locked())
	}
}

func TestStatusIsReadOnly(t *testing.T) {
	p := openTestProject(t, t.TempDir(), "expose-42")

	status := p.Status()
	if status.State != director.StateIdle {
		t.Errorf("state = %q, want idle", status.State)
	}
	if status.StoreSummary.TotalArtifacts != 0 {
		t.Errorf("TotalArtifacts = %d, want 0", status.StoreSummary.TotalArtifacts)
	}

	// Snapshot must not have driven the pipeline.
	if p.Status().State != director.StateIdle {
		t.Error("Status advanced the director")
	}
}

func TestListProjects(t *testing.T) {
	out := t.TempDir()
	a := openTestProject(t, out, "alpha")
	if _, err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	openTestProject(t, out, "beta")

	// Non-project noise is skipped.
	if err := os.MkdirAll(filepath.Join(out, "not-a-project"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	infos, err := List(out)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List returned %d projects, want 2", len(infos))
	}
	if infos[0].ProjectID != "alpha" || infos[1].ProjectID != "beta" {
		t.Errorf("order = %s, %s, want alpha, beta", infos[0].ProjectID, infos[1].ProjectID)
	}
	if infos[0].State != string(director.StateAwaitingScriptApproval) {
		t.Errorf("alpha state = %q", infos[0].State)
	}
	if infos[0].TotalArtifacts != 1 {
		t.Errorf("alpha artifacts = %d, want 1", infos[0].TotalArtifacts)
	}
	if len(infos[0].PendingGates) != 4 {
		t.Errorf("alpha pending gates = %v, want all 4", infos[0].PendingGates)
	}
	if infos[1].State != string(director.StateIdle) {
		t.Errorf("beta state = %q", infos[1].State)
	}

	if got, err := List(filepath.Join(out, "missing")); err != nil || got != nil {
		t.Errorf("List on missing dir = %v, %v", got, err)
	}
}
