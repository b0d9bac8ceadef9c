package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildProject seeds a store with a two-scene script (one scene needing
// evidence) and returns the store plus the script artifact.
func buildProject(t *testing.T) (*Store, *Artifact) {
	t.Helper()
	s := newTestStore(t)

	data := map[string]interface{}{
		"title": "Exposed",
		"scenes": []interface{}{
			map[string]interface{}{
				"scene_id":         "s1",
				"voiceover":        "intro",
				"visual_type":      "talking_head",
				"duration_seconds": 4.5,
			},
			map[string]interface{}{
				"scene_id":         "s2",
				"voiceover":        "the receipts",
				"visual_type":      "screenshot",
				"duration_seconds": 8.0,
				"needs_evidence":   true,
				"evidence_query":   "court filing",
			},
		},
	}
	script, err := s.Put(PutOpts{Type: TypeScript, Data: data, CreatedBy: "director"})
	if err != nil {
		t.Fatalf("Put script: %v", err)
	}
	return s, script
}

func TestRenderReadyRequiresLockedScript(t *testing.T) {
	s, _ := buildProject(t)

	ready, missing := s.RenderReady()
	if ready {
		t.Error("ready with only a draft script")
	}
	if len(missing) != 1 || missing[0] != "no locked script" {
		t.Errorf("missing = %v, want [no locked script]", missing)
	}
}

func TestRenderReadyRequiresLockedScreenshots(t *testing.T) {
	s, script := buildProject(t)
	if _, err := s.Lock(script.ID, "alice"); err != nil {
		t.Fatalf("Lock script: %v", err)
	}

	ready, missing := s.RenderReady()
	if ready {
		t.Error("ready without a screenshot for scene s2")
	}
	if len(missing) != 1 || !strings.Contains(missing[0], "s2") {
		t.Errorf("missing = %v, want a scene s2 entry", missing)
	}

	// A draft screenshot is not enough.
	shot, err := s.Put(PutOpts{Type: TypeScreenshot, SceneID: "s2",
		Data: map[string]interface{}{"source_url": "https://court.example"}, CreatedBy: "witness"})
	if err != nil {
		t.Fatalf("Put screenshot: %v", err)
	}
	if ready, _ := s.RenderReady(); ready {
		t.Error("ready with only a draft screenshot")
	}

	if _, err := s.Lock(shot.ID, "alice"); err != nil {
		t.Fatalf("Lock screenshot: %v", err)
	}
	ready, missing = s.RenderReady()
	if !ready {
		t.Errorf("not ready after locking screenshot, missing = %v", missing)
	}
}

func TestRenderReadyRejectsMultipleLockedScripts(t *testing.T) {
	s, script := buildProject(t)
	if _, err := s.Lock(script.ID, "alice"); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	other, err := s.Put(PutOpts{Type: TypeScript, Data: map[string]interface{}{
		"scenes": []interface{}{map[string]interface{}{"scene_id": "x1"}},
	}, CreatedBy: "director"})
	if err != nil {
		t.Fatalf("Put second script: %v", err)
	}
	if _, err := s.Lock(other.ID, "alice"); err != nil {
		t.Fatalf("Lock second script: %v", err)
	}

	ready, missing := s.RenderReady()
	if ready {
		t.Error("ready with two locked scripts")
	}
	if len(missing) != 1 || !strings.Contains(missing[0], "exactly one") {
		t.Errorf("missing = %v, want an exactly-one complaint", missing)
	}
}

func TestManifestFailsWhenNotReady(t *testing.T) {
	s, _ := buildProject(t)

	_, err := s.Manifest()
	if !errors.Is(err, ErrRenderNotReady) {
		t.Errorf("err = %v, want ErrRenderNotReady", err)
	}
}

func TestManifestBuildsOrderedQueue(t *testing.T) {
	s, script := buildProject(t)
	locked, err := s.Lock(script.ID, "alice")
	if err != nil {
		t.Fatalf("Lock script: %v", err)
	}

	src := filepath.Join(t.TempDir(), "s2.png")
	if err := os.WriteFile(src, []byte("png"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	shot, err := s.Put(PutOpts{Type: TypeScreenshot, SceneID: "s2",
		Data:     map[string]interface{}{"source_url": "https://court.example"},
		FilePath: src, CreatedBy: "witness"})
	if err != nil {
		t.Fatalf("Put screenshot: %v", err)
	}
	if _, err := s.Lock(shot.ID, "alice"); err != nil {
		t.Fatalf("Lock screenshot: %v", err)
	}

	m, err := s.Manifest()
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}

	if m.ProjectDir != s.Dir() {
		t.Errorf("ProjectDir = %q, want %q", m.ProjectDir, s.Dir())
	}
	if m.ScriptVersion != 1 {
		t.Errorf("ScriptVersion = %d, want 1", m.ScriptVersion)
	}
	if m.LockedAt != locked.LockedAt {
		t.Errorf("LockedAt = %q, want %q", m.LockedAt, locked.LockedAt)
	}
	if len(m.RenderQueue) != 2 {
		t.Fatalf("RenderQueue has %d scenes, want 2", len(m.RenderQueue))
	}

	first, second := m.RenderQueue[0], m.RenderQueue[1]
	if first.SceneID != "s1" || second.SceneID != "s2" {
		t.Errorf("queue order = %s, %s, want s1, s2", first.SceneID, second.SceneID)
	}
	if first.ScreenshotPath != "" {
		t.Errorf("scene s1 ScreenshotPath = %q, want empty", first.ScreenshotPath)
	}
	if second.ScreenshotPath == "" {
		t.Error("scene s2 should carry a screenshot path")
	}
	if second.DurationSeconds != 8.0 {
		t.Errorf("scene s2 duration = %v, want 8.0", second.DurationSeconds)
	}
	for _, sc := range m.RenderQueue {
		if !sc.Locked {
			t.Errorf("scene %s not marked locked", sc.SceneID)
		}
	}
}

func TestDecodeScriptWrongType(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Put(PutOpts{Type: TypeEvidenceURL, SceneID: "s1",
		Data: map[string]interface{}{"url": "https://a"}, CreatedBy: "t"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := DecodeScript(a); !errors.Is(err, ErrValidation) {
		t.Errorf("DecodeScript on evidence: err = %v, want ErrValidation", err)
	}
	if _, err := DecodeEvidence(a); err != nil {
		t.Errorf("DecodeEvidence: %v", err)
	}
}
