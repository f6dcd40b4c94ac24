// Package cas implements content-addressed artifact storage and stage record persistence.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	dirPerm  = 0o750
	filePerm = 0o644

	recordsFile  = "records.json"
	artifactsDir = "artifacts"
	workDir      = "work"
)

var _ ports.ArtifactStore = (*Store)(nil)

// Store implements ports.ArtifactStore on the local filesystem: a flat JSON
// record index plus one immutable directory per committed artifact, keyed by
// stage name and fingerprint.
type Store struct {
	root   string
	hasher ports.TreeHasher

	mu    sync.RWMutex
	cache map[string]domain.StageRecord
}

// NewStore creates a new Store rooted at the given directory.
func NewStore(root string, hasher ports.TreeHasher) (*Store, error) {
	s := &Store{
		root:   filepath.Clean(root),
		hasher: hasher,
		cache:  make(map[string]domain.StageRecord),
	}
	if err := os.MkdirAll(filepath.Join(s.root, workDir), dirPerm); err != nil {
		return nil, zerr.Wrap(err, "failed to create store directory")
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) recordsPath() string {
	return filepath.Join(s.root, recordsFile)
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.recordsPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, "failed to read stage records")
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.cache); err != nil {
		return zerr.Wrap(err, "failed to unmarshal stage records")
	}

	return nil
}

func (s *Store) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.cache, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal stage records")
	}

	//nolint:gosec // Path is cleaned and provided by trusted caller
	if err := os.WriteFile(s.recordsPath(), data, filePerm); err != nil {
		return zerr.Wrap(err, "failed to write stage records")
	}

	return nil
}

// Record retrieves the stage record for a given stage name.
func (s *Store) Record(stageName string) (*domain.StageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.cache[stageName]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Lookup resolves a record to its on-disk artifact, re-verifying the tree
// digest so a corrupted or half-removed artifact is never reused.
func (s *Store) Lookup(rec *domain.StageRecord) (domain.Artifact, bool) {
	if rec == nil || rec.Path == "" {
		return domain.Artifact{}, false
	}
	if _, err := os.Stat(rec.Path); err != nil {
		return domain.Artifact{}, false
	}

	digest, err := s.hasher.DigestTree(rec.Path)
	if err != nil || digest != rec.Digest {
		return domain.Artifact{}, false
	}

	return domain.Artifact{
		Stage:       domain.NewInternedString(rec.StageName),
		Fingerprint: rec.Fingerprint,
		Root:        rec.Path,
	}, true
}

// Workspace allocates a fresh scratch directory for a stage execution.
func (s *Store) Workspace(stageName string) (string, error) {
	dir, err := os.MkdirTemp(filepath.Join(s.root, workDir), stageName+"-*")
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create workspace"), "stage", stageName)
	}
	return dir, nil
}

// Commit atomically promotes a completed workspace to an immutable artifact.
// The rename is the commit point: an interrupted build leaves only discarded
// workspaces behind, never a partial artifact.
func (s *Store) Commit(stage domain.InternedString, fingerprint, workdir string) (domain.Artifact, error) {
	digest, err := s.hasher.DigestTree(workdir)
	if err != nil {
		return domain.Artifact{}, zerr.With(zerr.Wrap(err, "failed to digest workspace"), "stage", stage.String())
	}

	target := filepath.Join(s.root, artifactsDir, stage.String()+"-"+fingerprint)
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return domain.Artifact{}, zerr.Wrap(err, "failed to create artifacts directory")
	}
	if err := os.RemoveAll(target); err != nil {
		return domain.Artifact{}, zerr.With(zerr.Wrap(err, "failed to clear stale artifact"), "path", target)
	}
	if err := os.Rename(workdir, target); err != nil {
		return domain.Artifact{}, zerr.With(zerr.Wrap(err, "failed to commit artifact"), "stage", stage.String())
	}

	rec := domain.StageRecord{
		StageName:   stage.String(),
		Fingerprint: fingerprint,
		Digest:      digest,
		Path:        target,
		Timestamp:   time.Now(),
	}

	s.mu.Lock()
	s.cache[rec.StageName] = rec
	s.mu.Unlock()

	if err := s.save(); err != nil {
		return domain.Artifact{}, err
	}

	return domain.Artifact{
		Stage:       stage,
		Fingerprint: fingerprint,
		Root:        target,
	}, nil
}

// Discard removes a workspace whose stage did not complete.
func (s *Store) Discard(workdir string) error {
	if err := os.RemoveAll(workdir); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to discard workspace"), "path", workdir)
	}
	return nil
}

// Prune removes all committed artifacts, workspaces and records.
func (s *Store) Prune() error {
	s.mu.Lock()
	s.cache = make(map[string]domain.StageRecord)
	s.mu.Unlock()

	for _, sub := range []string{artifactsDir, workDir} {
		if err := os.RemoveAll(filepath.Join(s.root, sub)); err != nil {
			return zerr.Wrap(err, "failed to prune store")
		}
	}
	if err := os.Remove(s.recordsPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.Wrap(err, "failed to remove stage records")
	}
	return os.MkdirAll(filepath.Join(s.root, workDir), dirPerm)
}
