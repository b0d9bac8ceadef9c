package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"showrunner/internal/artifact"
	"showrunner/internal/gate"
	"showrunner/internal/project"
)

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	infos, err := project.List(s.outputDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": infos})
}

// projectStatus is the read-only composite the status endpoint returns.
type projectStatus struct {
	Project project.Info     `json:"project"`
	Store   artifact.Summary `json:"store_summary"`
	Gates   gate.Summary     `json:"gates_summary"`
}

// openGates opens the project's gate engine, with decision audit wired when
// a database is configured.
func (s *Server) openGates(projectID, dir string) (*gate.Engine, error) {
	opts := gate.Options{}
	if s.db != nil {
		audit := s.db
		log := func(g *gate.Gate, e gate.Event) {
			_ = audit.LogApprovalEvent(projectID, g.ID, string(e.Status), e.DecidedBy, e.RejectionReason, e.ArtifactIDs)
		}
		opts.OnApprove = log
		opts.OnReject = log
	}
	return gate.NewEngine(dir, opts)
}

func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	dir, err := s.projectDir(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	infos, err := project.List(s.outputDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var info project.Info
	for _, i := range infos {
		if i.ProjectID == id {
			info = i
			break
		}
	}

	store, err := artifact.Open(dir, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	gates, err := s.openGates(id, dir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, projectStatus{
		Project: info,
		Store:   store.Summarize(),
		Gates:   gates.Summarize(),
	})
}

func (s *Server) handleGates(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	dir, err := s.projectDir(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	gates, err := s.openGates(id, dir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"gates": gates.All()})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	dir, err := s.projectDir(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	store, err := artifact.Open(dir, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	m, err := store.Manifest()
	if err != nil {
		if errors.Is(err, artifact.ErrRenderNotReady) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// decisionRequest is the body of approve and reject POSTs.
type decisionRequest struct {
	DecidedBy string `json:"decided_by"`
	Feedback  string `json:"feedback,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func (s *Server) decodeDecision(w http.ResponseWriter, r *http.Request) (*decisionRequest, *gate.Engine, string, bool) {
	id := r.PathValue("id")
	gateID := r.PathValue("gate")

	dir, err := s.projectDir(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, nil, "", false
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, nil, "", false
	}

	gates, err := s.openGates(id, dir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return nil, nil, "", false
	}
	return &req, gates, gateID, true
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	req, gates, gateID, ok := s.decodeDecision(w, r)
	if !ok {
		return
	}
	ev, err := gates.Approve(gateID, req.DecidedBy, gate.DecisionOpts{Feedback: req.Feedback})
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, gate.ErrNotFound) {
			code = http.StatusNotFound
		}
		writeError(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	req, gates, gateID, ok := s.decodeDecision(w, r)
	if !ok {
		return
	}
	ev, err := gates.Reject(gateID, req.DecidedBy, req.Reason, gate.DecisionOpts{Feedback: req.Feedback})
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, gate.ErrNotFound) {
			code = http.StatusNotFound
		}
		writeError(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
