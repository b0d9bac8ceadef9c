package artifact

import "fmt"

// RenderManifest is the final locked specification handed to the rendering
// collaborator. It is built exclusively from locked artifacts.
type RenderManifest struct {
	ProjectDir    string        `json:"project_dir"`
	ScriptVersion int           `json:"script_version"`
	LockedAt      string        `json:"locked_at"`
	RenderQueue   []RenderScene `json:"render_queue"`
}

// RenderScene is one entry of the ordered render queue.
type RenderScene struct {
	SceneID         string  `json:"scene_id"`
	Voiceover       string  `json:"voiceover"`
	VisualType      string  `json:"visual_type"`
	ScreenshotPath  string  `json:"screenshot_path,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	Locked          bool    `json:"locked"`
}

// RenderReady reports whether a final render may proceed: exactly one locked
// script must exist, and every scene flagged needs_evidence must have at least
// one locked screenshot scoped to it. The second return value lists what is
// missing, empty when ready.
func (s *Store) RenderReady() (bool, []string) {
	script, missing := s.lockedScript()
	if script == nil {
		return false, missing
	}

	doc, err := DecodeScript(script)
	if err != nil {
		return false, []string{fmt.Sprintf("locked script %s is unreadable: %v", script.ID, err)}
	}

	for _, scene := range doc.Scenes {
		if !scene.NeedsEvidence {
			continue
		}
		shots := s.ByType(TypeScreenshot, Filter{SceneID: scene.SceneID, Status: StatusLocked})
		if len(shots) == 0 {
			missing = append(missing, fmt.Sprintf("scene %s: needs evidence but has no locked screenshot", scene.SceneID))
		}
	}
	return len(missing) == 0, missing
}

// lockedScript returns the single locked script, or nil plus the reason none
// qualifies. A version chain can hold at most one locked script because the
// director only ever locks the approved version.
func (s *Store) lockedScript() (*Artifact, []string) {
	scripts := s.ByType(TypeScript, Filter{Status: StatusLocked})
	switch len(scripts) {
	case 0:
		return nil, []string{"no locked script"}
	case 1:
		return scripts[0], nil
	default:
		return nil, []string{fmt.Sprintf("expected exactly one locked script, found %d", len(scripts))}
	}
}

// Manifest builds the ordered render queue from the locked script's scenes,
// attaching each scene's locked screenshot path. It fails with
// ErrRenderNotReady unless RenderReady holds; it never reads draft data.
func (s *Store) Manifest() (*RenderManifest, error) {
	ready, missing := s.RenderReady()
	if !ready {
		return nil, fmt.Errorf("%w: %v", ErrRenderNotReady, missing)
	}

	script, _ := s.lockedScript()
	doc, err := DecodeScript(script)
	if err != nil {
		return nil, err
	}

	m := &RenderManifest{
		ProjectDir:    s.dir,
		ScriptVersion: script.Version,
		LockedAt:      script.LockedAt,
	}
	for _, scene := range doc.Scenes {
		entry := RenderScene{
			SceneID:         scene.SceneID,
			Voiceover:       scene.Voiceover,
			VisualType:      scene.VisualType,
			DurationSeconds: scene.DurationSeconds,
			Locked:          true,
		}
		if shots := s.ByType(TypeScreenshot, Filter{SceneID: scene.SceneID, Status: StatusLocked}); len(shots) > 0 {
			entry.ScreenshotPath = shots[len(shots)-1].FilePath
		}
		m.RenderQueue = append(m.RenderQueue, entry)
	}
	return m, nil
}
