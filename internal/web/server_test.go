package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"showrunner/internal/director"
	"showrunner/internal/gate"
	"showrunner/internal/project"
)

// seedProject creates a project under outputDir suspended at the script gate.
func seedProject(t *testing.T, outputDir, id string) {
	t.Helper()
	exec := director.ExecutorFunc(func(ctx context.Context, task *director.Task) (map[string]interface{}, error) {
		return map[string]interface{}{
			"scenes": []interface{}{map[string]interface{}{"scene_id": "s1", "voiceover": "intro"}},
		}, nil
	})
	p, err := project.Open(project.Options{OutputDir: outputDir, ProjectID: id,
		Brief: director.Brief{Topic: "t"}, Executor: exec})
	if err != nil {
		t.Fatalf("project.Open: %v", err)
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	outputDir := t.TempDir()
	seedProject(t, outputDir, "alpha")
	ts := httptest.NewServer(NewServer(outputDir, nil, 0).Handler())
	t.Cleanup(ts.Close)
	return ts, outputDir
}

func getJSON(t *testing.T, url string, dst interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, dst interface{}) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestListProjects(t *testing.T) {
	ts, _ := newTestServer(t)

	var body struct {
		Projects []project.Info `json:"projects"`
	}
	if code := getJSON(t, ts.URL+"/api/projects", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Projects) != 1 || body.Projects[0].ProjectID != "alpha" {
		t.Errorf("projects = %+v", body.Projects)
	}
	if body.Projects[0].State != string(director.StateAwaitingScriptApproval) {
		t.Errorf("state = %q", body.Projects[0].State)
	}
}

func TestProjectStatus(t *testing.T) {
	ts, _ := newTestServer(t)

	var body struct {
		Project project.Info `json:"project"`
		Store   struct {
			TotalArtifacts int `json:"total_artifacts"`
		} `json:"store_summary"`
		Gates struct {
			Pending []string `json:"pending"`
		} `json:"gates_summary"`
	}
	if code := getJSON(t, ts.URL+"/api/projects/alpha", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Project.ProjectID != "alpha" {
		t.Errorf("project = %+v", body.Project)
	}
	if body.Store.TotalArtifacts != 1 {
		t.Errorf("TotalArtifacts = %d, want 1", body.Store.TotalArtifacts)
	}
	if len(body.Gates.Pending) != 4 {
		t.Errorf("pending gates = %v, want all 4", body.Gates.Pending)
	}

	if code := getJSON(t, ts.URL+"/api/projects/ghost", nil); code != http.StatusNotFound {
		t.Errorf("unknown project status = %d, want 404", code)
	}
}

func TestGatesEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var body struct {
		Gates []*gate.Gate `json:"gates"`
	}
	if code := getJSON(t, ts.URL+"/api/projects/alpha/gates", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Gates) != 4 {
		t.Errorf("gates = %d, want 4", len(body.Gates))
	}
}

func TestManifestNotReady(t *testing.T) {
	ts, _ := newTestServer(t)

	if code := getJSON(t, ts.URL+"/api/projects/alpha/manifest", nil); code != http.StatusConflict {
		t.Errorf("status = %d, want 409", code)
	}
}

func TestApproveAndRejectEndpoints(t *testing.T) {
	ts, outputDir := newTestServer(t)

	var ev gate.Event
	code := postJSON(t, ts.URL+"/api/projects/alpha/gates/gate_script/approve",
		`{"decided_by":"alice","feedback":"ship it"}`, &ev)
	if code != http.StatusOK {
		t.Fatalf("approve status = %d", code)
	}
	if ev.Status != gate.StatusApproved || ev.DecidedBy != "alice" {
		t.Errorf("event = %+v", ev)
	}

	// The decision is persisted where the CLI will see it.
	gates, err := gate.NewEngine(outputDir+"/alpha", gate.Options{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if !gates.IsApproved(gate.GateScript) {
		t.Error("approval not persisted to gates.json")
	}

	// Reject requires a reason.
	code = postJSON(t, ts.URL+"/api/projects/alpha/gates/gate_evidence/reject",
		`{"decided_by":"alice"}`, nil)
	if code != http.StatusBadRequest {
		t.Errorf("reject without reason = %d, want 400", code)
	}

	code = postJSON(t, ts.URL+"/api/projects/alpha/gates/gate_evidence/reject",
		`{"decided_by":"alice","reason":"weak sourcing"}`, &ev)
	if code != http.StatusOK {
		t.Fatalf("reject status = %d", code)
	}
	if ev.Status != gate.StatusRejected || ev.RejectionReason != "weak sourcing" {
		t.Errorf("event = %+v", ev)
	}

	// Unknown gate and unknown project 404.
	if code := postJSON(t, ts.URL+"/api/projects/alpha/gates/gate_ghost/approve",
		`{"decided_by":"alice"}`, nil); code != http.StatusNotFound {
		t.Errorf("unknown gate = %d, want 404", code)
	}
	if code := postJSON(t, ts.URL+"/api/projects/ghost/gates/gate_script/approve",
		`{"decided_by":"alice"}`, nil); code != http.StatusNotFound {
		t.Errorf("unknown project = %d, want 404", code)
	}
}

func TestMethodRouting(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/projects", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST to list = %d, want 405", resp.StatusCode)
	}
}
