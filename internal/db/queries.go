package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// PhaseEvent represents a row in the phase_events table.
type PhaseEvent struct {
	ID        int
	ProjectID string
	Event     string
	Phase     string
	Detail    string
	Timestamp string
}

// ApprovalEvent represents a row in the approval_events table.
type ApprovalEvent struct {
	ID          int
	ProjectID   string
	GateID      string
	Status      string
	DecidedBy   string
	Reason      string
	ArtifactIDs []string
	Timestamp   string
}

// TaskRun represents a row in the task_runs table.
type TaskRun struct {
	ID         int
	ProjectID  string
	TaskID     string
	Agent      string
	Action     string
	SceneID    string
	Status     string
	Error      string
	DurationMs int
	Timestamp  string
}

// LogPhaseEvent inserts a phase event.
func (d *DB) LogPhaseEvent(projectID, event, phase, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO phase_events (project_id, event, phase, detail) VALUES (?, ?, ?, ?)`,
		projectID, event, phase, detail,
	)
	if err != nil {
		return fmt.Errorf("log phase event: %w", err)
	}
	return nil
}

// LogApprovalEvent inserts a gate decision.
func (d *DB) LogApprovalEvent(projectID, gateID, status, decidedBy, reason string, artifactIDs []string) error {
	_, err := d.conn.Exec(
		`INSERT INTO approval_events (project_id, gate_id, status, decided_by, reason, artifact_ids) VALUES (?, ?, ?, ?, ?, ?)`,
		projectID, gateID, status, decidedBy, reason, strings.Join(artifactIDs, ","),
	)
	if err != nil {
		return fmt.Errorf("log approval event: %w", err)
	}
	return nil
}

// LogTaskRun inserts a completed or failed task run.
func (d *DB) LogTaskRun(projectID, taskID, agent, action, sceneID, status, errText string, durationMs int) error {
	_, err := d.conn.Exec(
		`INSERT INTO task_runs (project_id, task_id, agent, action, scene_id, status, error, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		projectID, taskID, agent, action, sceneID, status, errText, durationMs,
	)
	if err != nil {
		return fmt.Errorf("log task run: %w", err)
	}
	return nil
}

// PhaseEvents returns the phase history for a project, newest first, capped at limit
// (0 = no cap).
func (d *DB) PhaseEvents(projectID string, limit int) ([]PhaseEvent, error) {
	q := `SELECT id, project_id, event, phase, detail, timestamp
	      FROM phase_events WHERE project_id = ? ORDER BY timestamp DESC, id DESC`
	args := []interface{}{projectID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query phase events: %w", err)
	}
	defer rows.Close()

	var out []PhaseEvent
	for rows.Next() {
		var e PhaseEvent
		var phase, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Event, &phase, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan phase event: %w", err)
		}
		e.Phase = phase.String
		e.Detail = detail.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// ApprovalEvents returns the decision history for a project's gate, oldest first.
// Pass "" for gateID to return all gates.
func (d *DB) ApprovalEvents(projectID, gateID string) ([]ApprovalEvent, error) {
	q := `SELECT id, project_id, gate_id, status, decided_by, reason, artifact_ids, timestamp
	      FROM approval_events WHERE project_id = ?`
	args := []interface{}{projectID}
	if gateID != "" {
		q += " AND gate_id = ?"
		args = append(args, gateID)
	}
	q += " ORDER BY id ASC"

	rows, err := d.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query approval events: %w", err)
	}
	defer rows.Close()

	var out []ApprovalEvent
	for rows.Next() {
		var e ApprovalEvent
		var reason, ids sql.NullString
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.GateID, &e.Status, &e.DecidedBy, &reason, &ids, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan approval event: %w", err)
		}
		e.Reason = reason.String
		if ids.String != "" {
			e.ArtifactIDs = strings.Split(ids.String, ",")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TaskRuns returns task history for a project, newest first.
func (d *DB) TaskRuns(projectID string, limit int) ([]TaskRun, error) {
	q := `SELECT id, project_id, task_id, agent, action, scene_id, status, error, duration_ms, timestamp
	      FROM task_runs WHERE project_id = ? ORDER BY timestamp DESC, id DESC`
	args := []interface{}{projectID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query task runs: %w", err)
	}
	defer rows.Close()

	var out []TaskRun
	for rows.Next() {
		var t TaskRun
		var sceneID, errText sql.NullString
		var durationMs sql.NullInt64
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.TaskID, &t.Agent, &t.Action, &sceneID, &t.Status, &errText, &durationMs, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan task run: %w", err)
		}
		t.SceneID = sceneID.String
		t.Error = errText.String
		t.DurationMs = int(durationMs.Int64)
		out = append(out, t)
	}
	return out, rows.Err()
}
