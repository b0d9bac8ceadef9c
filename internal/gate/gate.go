// Package gate implements the approval checkpoints between pipeline stages:
// a fixed catalogue of named gates, their current decision, and an append-only
// audit log of every decision ever made.
package gate

import (
	"errors"

	"showrunner/internal/artifact"
)

// Status is the current decision state of a gate.
type Status string

const (
	StatusPending      Status = "pending"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	StatusAutoApproved Status = "auto_approved"
)

// Pipeline stages, in the fixed order gates are walked for CanProceedTo.
const (
	StageScript   = "script"
	StageEvidence = "evidence"
	StageCapture  = "capture"
	StageRender   = "render"
)

// StageOrder is the fixed ordering of pipeline stages.
var StageOrder = []string{StageScript, StageEvidence, StageCapture, StageRender}

// Gate ids, one checkpoint per stage.
const (
	GateScript   = "gate_script"
	GateEvidence = "gate_evidence"
	GateCapture  = "gate_capture"
	GateRender   = "gate_render"
)

// Sentinel errors for gate contract violations.
var (
	ErrNotFound   = errors.New("gate not found")
	ErrValidation = errors.New("validation failed")
)

// Event is one immutable audit record of a gate decision. Events are only
// ever appended, never truncated or rewritten.
type Event struct {
	ID              string                 `json:"id"`
	GateID          string                 `json:"gate_id"`
	Status          Status                 `json:"status"`
	DecidedAt       string                 `json:"decided_at"`
	DecidedBy       string                 `json:"decided_by"`
	Feedback        string                 `json:"feedback,omitempty"`
	RejectionReason string                 `json:"rejection_reason,omitempty"`
	ArtifactIDs     []string               `json:"artifact_ids,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// Gate is a named checkpoint bound to one pipeline stage.
type Gate struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Stage         string          `json:"stage"`
	ArtifactTypes []artifact.Type `json:"artifact_types"`
	Status        Status          `json:"status"`
	// PendingArtifactIDs holds the artifacts awaiting decision after an
	// interactive approval request, so a later approve call without explicit
	// ids records what was actually reviewed.
	PendingArtifactIDs []string `json:"pending_artifact_ids,omitempty"`
	Events             []Event  `json:"events"`
}

// clone returns a copy so callers can't mutate engine state.
func (g *Gate) clone() *Gate {
	cp := *g
	cp.ArtifactTypes = append([]artifact.Type(nil), g.ArtifactTypes...)
	cp.PendingArtifactIDs = append([]string(nil), g.PendingArtifactIDs...)
	cp.Events = append([]Event(nil), g.Events...)
	return &cp
}

// catalogue returns the fixed set of gates for a new project, in stage order.
func catalogue() []*Gate {
	return []*Gate{
		{ID: GateScript, Name: "Script Review", Stage: StageScript, Status: StatusPending,
			ArtifactTypes: []artifact.Type{artifact.TypeScript}},
		{ID: GateEvidence, Name: "Evidence Review", Stage: StageEvidence, Status: StatusPending,
			ArtifactTypes: []artifact.Type{artifact.TypeEvidenceURL}},
		{ID: GateCapture, Name: "Capture Review", Stage: StageCapture, Status: StatusPending,
			ArtifactTypes: []artifact.Type{artifact.TypeScreenshot}},
		{ID: GateRender, Name: "Render Approval", Stage: StageRender, Status: StatusPending,
			ArtifactTypes: []artifact.Type{artifact.TypeRenderManifest}},
	}
}

// GateForStage maps a pipeline stage to its gate id.
func GateForStage(stage string) string {
	switch stage {
	case StageScript:
		return GateScript
	case StageEvidence:
		return GateEvidence
	case StageCapture:
		return GateCapture
	case StageRender:
		return GateRender
	}
	return ""
}
