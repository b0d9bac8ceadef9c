package artifact

import (
	"encoding/json"
	"fmt"
)

// Script is the typed payload of a TypeScript artifact.
type Script struct {
	Title  string  `json:"title,omitempty"`
	Scenes []Scene `json:"scenes"`
}

// Scene is one scripted scene with its visual plan.
type Scene struct {
	SceneID         string  `json:"scene_id"`
	Voiceover       string  `json:"voiceover,omitempty"`
	VisualType      string  `json:"visual_type,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	NeedsEvidence   bool    `json:"needs_evidence,omitempty"`
	EvidenceQuery   string  `json:"evidence_query,omitempty"`
}

// Evidence is the typed payload of a TypeEvidenceURL artifact.
type Evidence struct {
	URL         string  `json:"url"`
	Title       string  `json:"title,omitempty"`
	Credibility float64 `json:"credibility,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

// Screenshot is the typed payload of a TypeScreenshot artifact. The captured
// image itself lives in store-owned file storage via Artifact.FilePath.
type Screenshot struct {
	SourceURL string `json:"source_url,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// decodePayload round-trips a data map into dst through JSON, so payloads can
// be validated against their type's schema at the store boundary.
func decodePayload(data map[string]interface{}, dst interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// validateData checks a data payload against the schema for its artifact type.
// The store rejects payloads that don't decode rather than persisting opaque
// blobs that fail later at render time.
func validateData(t Type, data map[string]interface{}) error {
	if data == nil {
		return fmt.Errorf("%w: artifact data is required", ErrValidation)
	}
	switch t {
	case TypeScript:
		var s Script
		if err := decodePayload(data, &s); err != nil {
			return fmt.Errorf("%w: script payload: %v", ErrValidation, err)
		}
		if _, ok := data["scenes"]; !ok {
			return fmt.Errorf("%w: script payload missing scenes", ErrValidation)
		}
		seen := make(map[string]bool, len(s.Scenes))
		for i, sc := range s.Scenes {
			if sc.SceneID == "" {
				return fmt.Errorf("%w: scene %d has no scene_id", ErrValidation, i)
			}
			if seen[sc.SceneID] {
				return fmt.Errorf("%w: duplicate scene_id %q", ErrValidation, sc.SceneID)
			}
			seen[sc.SceneID] = true
		}
	case TypeEvidenceURL:
		var e Evidence
		if err := decodePayload(data, &e); err != nil {
			return fmt.Errorf("%w: evidence payload: %v", ErrValidation, err)
		}
		if e.URL == "" {
			return fmt.Errorf("%w: evidence payload missing url", ErrValidation)
		}
	case TypeScreenshot:
		var sc Screenshot
		if err := decodePayload(data, &sc); err != nil {
			return fmt.Errorf("%w: screenshot payload: %v", ErrValidation, err)
		}
	case TypeRenderManifest:
		var m RenderManifest
		if err := decodePayload(data, &m); err != nil {
			return fmt.Errorf("%w: render manifest payload: %v", ErrValidation, err)
		}
	default:
		return fmt.Errorf("%w: unknown artifact type %q", ErrValidation, t)
	}
	return nil
}

// DecodeScript decodes a script artifact's payload.
func DecodeScript(a *Artifact) (*Script, error) {
	if a.Type != TypeScript {
		return nil, fmt.Errorf("%w: artifact %s is %s, not a script", ErrValidation, a.ID, a.Type)
	}
	var s Script
	if err := decodePayload(a.Data, &s); err != nil {
		return nil, fmt.Errorf("decode script %s: %w", a.ID, err)
	}
	return &s, nil
}

// DecodeRenderManifest decodes a render manifest artifact's payload.
func DecodeRenderManifest(a *Artifact) (*RenderManifest, error) {
	if a.Type != TypeRenderManifest {
		return nil, fmt.Errorf("%w: artifact %s is %s, not a render manifest", ErrValidation, a.ID, a.Type)
	}
	var m RenderManifest
	if err := decodePayload(a.Data, &m); err != nil {
		return nil, fmt.Errorf("decode render manifest %s: %w", a.ID, err)
	}
	return &m, nil
}

// DecodeEvidence decodes an evidence artifact's payload.
func DecodeEvidence(a *Artifact) (*Evidence, error) {
	if a.Type != TypeEvidenceURL {
		return nil, fmt.Errorf("%w: artifact %s is %s, not evidence", ErrValidation, a.ID, a.Type)
	}
	var e Evidence
	if err := decodePayload(a.Data, &e); err != nil {
		return nil, fmt.Errorf("decode evidence %s: %w", a.ID, err)
	}
	return &e, nil
}
