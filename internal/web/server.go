// Package web serves project status over HTTP and accepts remote gate
// decisions, the network twin of the approve/reject CLI commands.
package web

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"showrunner/internal/db"
)

// Server exposes the project registry and gate decision endpoints.
type Server struct {
	outputDir string
	db        *db.DB // optional, used for decision audit rows
	port      int
}

// NewServer creates a Server over the given output directory.
func NewServer(outputDir string, database *db.DB, port int) *Server {
	return &Server{outputDir: outputDir, db: database, port: port}
}

// Handler returns the route table, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("GET /api/projects/{id}", s.handleProjectStatus)
	mux.HandleFunc("GET /api/projects/{id}/gates", s.handleGates)
	mux.HandleFunc("GET /api/projects/{id}/manifest", s.handleManifest)
	mux.HandleFunc("POST /api/projects/{id}/gates/{gate}/approve", s.handleApprove)
	mux.HandleFunc("POST /api/projects/{id}/gates/{gate}/reject", s.handleReject)
	return mux
}

// ListenAndServe blocks serving HTTP on the configured port.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("showrunner status server listening on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

// projectDir validates that a project exists and returns its directory.
func (s *Server) projectDir(id string) (string, error) {
	dir := filepath.Join(s.outputDir, id)
	if _, err := os.Stat(filepath.Join(dir, "director.json")); err != nil {
		return "", fmt.Errorf("project %s not found", id)
	}
	return dir, nil
}
