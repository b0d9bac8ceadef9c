// Package artifact implements the versioned draft/locked store that is the
// single source of truth for every stage output of a production project.
package artifact

import "errors"

// Type identifies what kind of pipeline output an artifact holds.
type Type string

const (
	TypeScript         Type = "script"
	TypeEvidenceURL    Type = "evidence_url"
	TypeScreenshot     Type = "screenshot"
	TypeRenderManifest Type = "render_manifest"
)

// KnownTypes lists every artifact type the store accepts.
var KnownTypes = []Type{TypeScript, TypeEvidenceURL, TypeScreenshot, TypeRenderManifest}

// Status is the lifecycle state of an artifact.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusLocked Status = "locked"
)

// Sentinel errors for store contract violations.
var (
	ErrNotFound       = errors.New("artifact not found")
	ErrImmutable      = errors.New("artifact is locked and immutable")
	ErrValidation     = errors.New("validation failed")
	ErrRenderNotReady = errors.New("project is not render-ready")
)

// Artifact is one versioned, typed unit of pipeline output. Once locked, its
// data, file path, and identity fields never change; corrections create a new
// artifact at version+1 linked back through PreviousVersionID.
type Artifact struct {
	ID                string                 `json:"id"`
	Type              Type                   `json:"type"`
	SceneID           string                 `json:"scene_id,omitempty"` // empty = project-level
	Data              map[string]interface{} `json:"data"`
	FilePath          string                 `json:"file_path,omitempty"`
	Status            Status                 `json:"status"`
	Version           int                    `json:"version"`
	PreviousVersionID string                 `json:"previous_version_id,omitempty"`
	CreatedAt         string                 `json:"created_at"`
	CreatedBy         string                 `json:"created_by"`
	LockedAt          string                 `json:"locked_at,omitempty"`
	LockedBy          string                 `json:"locked_by,omitempty"`
}

// Locked reports whether the artifact is immutable.
func (a *Artifact) Locked() bool {
	return a.Status == StatusLocked
}

// clone returns a deep copy so callers can never mutate the store's index
// through a returned artifact.
func (a *Artifact) clone() *Artifact {
	cp := *a
	cp.Data = cloneMap(a.Data)
	return &cp
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
