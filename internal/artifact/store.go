package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"showrunner/internal/fsio"
)

const indexFile = "artifacts.json"

// Store is the durable, versioned record of every stage output for one
// project. All mutation goes through the store under a single mutex, and the
// on-disk index is replaced atomically, so a crash or a concurrent approval
// call can never corrupt project state.
type Store struct {
	mu  sync.Mutex
	dir string
	idx index
}

// index is the single persisted document holding all artifacts for a project.
type index struct {
	ProjectID string      `json:"project_id"`
	UpdatedAt string      `json:"updated_at"`
	Artifacts []*Artifact `json:"artifacts"`
}

// Open loads the artifact store for a project directory, creating the
// directory and an empty index if this is a new project.
func Open(dir, projectID string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "files"), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir files dir: %w", err)
	}

	s := &Store{dir: dir}
	path := filepath.Join(dir, indexFile)
	if err := fsio.ReadJSON(path, &s.idx); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load artifact index: %w", err)
		}
		s.idx = index{ProjectID: projectID}
		if err := s.save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Dir returns the project directory owning this store.
func (s *Store) Dir() string {
	return s.dir
}

// save persists the index. Callers must hold s.mu.
func (s *Store) save() error {
	s.idx.UpdatedAt = now()
	if err := fsio.WriteJSON(filepath.Join(s.dir, indexFile), &s.idx); err != nil {
		return fmt.Errorf("write artifact index: %w", err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// find returns the index entry for id, or nil. Callers must hold s.mu.
func (s *Store) find(id string) *Artifact {
	for _, a := range s.idx.Artifacts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// PutOpts describes a new artifact.
type PutOpts struct {
	Type      Type
	SceneID   string
	Data      map[string]interface{}
	FilePath  string // optional source file, copied into store-owned storage
	CreatedBy string
}

// Put creates a new draft artifact at version 1. Any referenced file is
// copied into store-owned storage keyed by the new artifact id.
func (s *Store) Put(opts PutOpts) (*Artifact, error) {
	if err := validateData(opts.Type, opts.Data); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := &Artifact{
		ID:        uuid.NewString(),
		Type:      opts.Type,
		SceneID:   opts.SceneID,
		Data:      cloneMap(opts.Data),
		Status:    StatusDraft,
		Version:   1,
		CreatedAt: now(),
		CreatedBy: opts.CreatedBy,
	}

	if opts.FilePath != "" {
		owned, err := s.importFile(a.ID, opts.FilePath)
		if err != nil {
			return nil, err
		}
		a.FilePath = owned
	}

	s.idx.Artifacts = append(s.idx.Artifacts, a)
	if err := s.save(); err != nil {
		return nil, err
	}
	return a.clone(), nil
}

// importFile copies src into the store's files directory, keyed by artifact id.
func (s *Store) importFile(id, src string) (string, error) {
	dst := filepath.Join(s.dir, "files", id+filepath.Ext(src))
	if err := fsio.CopyFile(src, dst); err != nil {
		return "", fmt.Errorf("import file for artifact %s: %w", id, err)
	}
	return dst, nil
}

// Update creates a new draft artifact at version+1 linked to the old one.
// The old artifact is left untouched. Updating a locked artifact fails with
// ErrImmutable; corrections to locked output must go through a new version of
// the draft that replaced it.
func (s *Store) Update(id string, data map[string]interface{}, updatedBy string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.find(id)
	if old == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if old.Locked() {
		return nil, fmt.Errorf("%w: %s is locked, create a new version instead", ErrImmutable, id)
	}
	if err := validateData(old.Type, data); err != nil {
		return nil, err
	}

	a := &Artifact{
		ID:                uuid.NewString(),
		Type:              old.Type,
		SceneID:           old.SceneID,
		Data:              cloneMap(data),
		FilePath:          old.FilePath,
		Status:            StatusDraft,
		Version:           old.Version + 1,
		PreviousVersionID: old.ID,
		CreatedAt:         now(),
		CreatedBy:         updatedBy,
	}

	s.idx.Artifacts = append(s.idx.Artifacts, a)
	if err := s.save(); err != nil {
		return nil, err
	}
	return a.clone(), nil
}

// Lock marks an artifact immutable. Locking an already-locked artifact is a
// no-op returning the existing artifact unchanged.
func (s *Store) Lock(id, lockedBy string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.find(id)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if a.Locked() {
		return a.clone(), nil
	}

	a.Status = StatusLocked
	a.LockedAt = now()
	a.LockedBy = lockedBy
	if err := s.save(); err != nil {
		return nil, err
	}
	return a.clone(), nil
}

// Get returns the artifact with the given id.
func (s *Store) Get(id string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.find(id)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a.clone(), nil
}

// Filter narrows ByType results. Zero values match everything.
type Filter struct {
	SceneID string
	Status  Status
}

// ByType returns all artifacts of a type matching the filter, in creation order.
func (s *Store) ByType(t Type, f Filter) []*Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Artifact
	for _, a := range s.idx.Artifacts {
		if a.Type != t {
			continue
		}
		if f.SceneID != "" && a.SceneID != f.SceneID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a.clone())
	}
	return out
}

// Latest returns the artifact with the highest version among those matching,
// or nil if none match. Pass "" for sceneID to match project-level artifacts
// of any scene.
func (s *Store) Latest(t Type, sceneID string) *Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *Artifact
	for _, a := range s.idx.Artifacts {
		if a.Type != t {
			continue
		}
		if sceneID != "" && a.SceneID != sceneID {
			continue
		}
		if best == nil || a.Version > best.Version {
			best = a
		}
	}
	if best == nil {
		return nil
	}
	return best.clone()
}

// All returns every artifact in creation order.
func (s *Store) All() []*Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Artifact, 0, len(s.idx.Artifacts))
	for _, a := range s.idx.Artifacts {
		out = append(out, a.clone())
	}
	return out
}

// TypeCount splits artifact counts by status.
type TypeCount struct {
	Draft  int `json:"draft"`
	Locked int `json:"locked"`
}

// Summary is the externally visible shape of the store's contents.
type Summary struct {
	TotalArtifacts   int                `json:"total_artifacts"`
	ByType           map[Type]TypeCount `json:"by_type"`
	RenderReady      bool               `json:"render_ready"`
	MissingForRender []string           `json:"missing_for_render,omitempty"`
}

// Summarize reports artifact counts and render readiness.
func (s *Store) Summarize() Summary {
	ready, missing := s.RenderReady()

	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{
		ByType:           make(map[Type]TypeCount),
		RenderReady:      ready,
		MissingForRender: missing,
	}
	for _, a := range s.idx.Artifacts {
		sum.TotalArtifacts++
		tc := sum.ByType[a.Type]
		if a.Locked() {
			tc.Locked++
		} else {
			tc.Draft++
		}
		sum.ByType[a.Type] = tc
	}
	return sum
}
