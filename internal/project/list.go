package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"showrunner/internal/fsio"
)

// Info is the registry view of one project directory.
type Info struct {
	ProjectID      string   `json:"project_id"`
	State          string   `json:"state"`
	Message        string   `json:"message,omitempty"`
	UpdatedAt      string   `json:"updated_at"`
	TotalArtifacts int      `json:"total_artifacts"`
	PendingGates   []string `json:"pending_gates,omitempty"`
}

// List scans the output directory and returns every project, sorted by id.
// Directories without a director state file are skipped.
func List(outputDir string) ([]Info, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", outputDir, err)
	}

	var out []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := peek(filepath.Join(outputDir, entry.Name()), entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		out = append(out, *info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, nil
}

// peek reads the project's state files without constructing a full project.
func peek(dir, id string) (*Info, error) {
	var dst struct {
		State     string `json:"state"`
		Message   string `json:"message"`
		UpdatedAt string `json:"updated_at"`
	}
	if err := fsio.ReadJSON(filepath.Join(dir, "director.json"), &dst); err != nil {
		return nil, err
	}

	info := &Info{
		ProjectID: id,
		State:     dst.State,
		Message:   dst.Message,
		UpdatedAt: dst.UpdatedAt,
	}

	var idx struct {
		Artifacts []struct{} `json:"artifacts"`
	}
	if err := fsio.ReadJSON(filepath.Join(dir, "artifacts.json"), &idx); err == nil {
		info.TotalArtifacts = len(idx.Artifacts)
	}

	var gates struct {
		Gates []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"gates"`
	}
	if err := fsio.ReadJSON(filepath.Join(dir, "gates.json"), &gates); err == nil {
		for _, g := range gates.Gates {
			if g.Status == "pending" {
				info.PendingGates = append(info.PendingGates, g.ID)
			}
		}
	}
	return info, nil
}
