package ports

import "go.trai.ch/forge/internal/core/domain"

// ArtifactStore persists stage records and committed artifact trees.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type ArtifactStore interface {
	// Record retrieves the stage record for a given stage name.
	// Returns nil, nil if not found.
	Record(stageName string) (*domain.StageRecord, error)

	// Lookup resolves a record to its on-disk artifact, re-verifying the tree
	// digest. Returns false when the artifact is gone or no longer matches.
	Lookup(rec *domain.StageRecord) (domain.Artifact, bool)

	// Workspace allocates a fresh scratch directory for a stage execution.
	Workspace(stageName string) (string, error)

	// Commit atomically promotes a completed workspace to an immutable
	// artifact and records it under the given fingerprint.
	Commit(stage domain.InternedString, fingerprint, workdir string) (domain.Artifact, error)

	// Discard removes a workspace whose stage did not complete.
	Discard(workdir string) error

	// Prune removes all committed artifacts and records.
	Prune() error
}
