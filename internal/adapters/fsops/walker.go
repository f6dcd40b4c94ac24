// Package fsops provides filesystem adapters for walking, hashing, copying
// and normalizing artifact trees.
package fsops

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields all files under root in lexical order, skipping VCS
// metadata and any directory or file matching the ignore patterns. A traversal
// failure is yielded as the final pair; callers must stop on it.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if excluded(d.Name(), ignores) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				return nil
			}

			if !yield(path, nil) {
				return filepath.SkipAll
			}

			return nil
		})
		if walkErr != nil {
			yield("", walkErr)
		}
	}
}

// excluded reports whether an entry name matches the built-in VCS exclusions
// or one of the ignore patterns.
func excluded(name string, ignores []string) bool {
	if name == ".git" || name == ".jj" || name == ".svn" {
		return true
	}
	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			return true
		}
	}
	return false
}
