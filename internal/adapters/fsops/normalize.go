package fsops

import (
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// Group-writable plus setgid on directories: files written at runtime inherit
// the artifact group even when the numeric user id is reassigned at launch.
const dirExtraBits = fs.FileMode(0o020) | fs.ModeSetgid

// Normalizer applies the runtime identity and permission policy to a final
// artifact tree. The chown syscall is injectable so the policy is testable
// without build-identity privileges.
type Normalizer struct {
	chown func(path string, uid, gid int) error
}

// NewNormalizer creates a Normalizer using os.Lchown.
func NewNormalizer() *Normalizer {
	return &Normalizer{chown: os.Lchown}
}

// NewNormalizerWithChown creates a Normalizer with a custom chown function (used for testing).
func NewNormalizerWithChown(chown func(path string, uid, gid int) error) *Normalizer {
	return &Normalizer{chown: chown}
}

// NormalizeTree recursively sets ownership of every entry under root to the
// runtime identity and adds the group-writable and setgid bits to every
// directory. Symlinks are re-owned but their modes are left alone.
func (n *Normalizer) NormalizeTree(root string, id domain.RuntimeIdentity) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err := n.chown(path, id.UID, id.GID); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to change ownership"), "path", path)
		}

		if !d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to stat directory"), "path", path)
		}
		if err := os.Chmod(path, info.Mode().Perm()|dirExtraBits); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to set directory mode"), "path", path)
		}

		return nil
	})
}
