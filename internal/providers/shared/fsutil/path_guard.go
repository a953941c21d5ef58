package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Within reports whether candidate stays inside root once the symlinks of
// both paths are resolved. Components that do not exist yet are compared
// lexically, so future write targets can be checked.
func Within(root string, candidate string) bool {
	resolvedRoot, err := resolveExisting(root)
	if err != nil {
		return false
	}
	resolvedCandidate, err := resolveExisting(candidate)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(resolvedRoot, resolvedCandidate)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// PruneEmptyDirs removes dir and then each empty parent, stopping before root
// or at the first directory that still has entries.
func PruneEmptyDirs(dir string, root string) error {
	stop := filepath.Clean(root)
	current := filepath.Clean(dir)

	for current != stop && Within(stop, current) {
		entries, err := os.ReadDir(current)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return err
		case len(entries) > 0:
			return nil
		default:
			if err := os.Remove(current); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
		current = filepath.Dir(current)
	}
	return nil
}

func resolveExisting(path string) (string, error) {
	current, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	missing := make([]string, 0)
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return filepath.Join(append([]string{current}, missing...)...), nil
		}
		missing = append([]string{filepath.Base(current)}, missing...)
		current = parent
	}
}
