package common

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// WithinDir reports whether candidate stays inside dir once existing
// symlinks on both paths are resolved.
func WithinDir(dir string, candidate string) bool {
	resolvedDir, err := resolveExisting(dir)
	if err != nil {
		return false
	}
	resolvedCandidate, err := resolveExisting(candidate)
	if err != nil {
		return false
	}

	relPath, err := filepath.Rel(resolvedDir, resolvedCandidate)
	if err != nil {
		return false
	}
	return relPath != ".." && !strings.HasPrefix(relPath, ".."+string(filepath.Separator))
}

// resolveExisting follows symlinks along the existing prefix of path and
// keeps the missing suffix as is.
func resolveExisting(path string) (string, error) {
	cleaned, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	current := filepath.VolumeName(cleaned) + string(filepath.Separator)
	parts := strings.FieldsFunc(strings.TrimPrefix(cleaned, current), func(r rune) bool {
		return r == filepath.Separator
	})

	for idx, part := range parts {
		next := filepath.Join(current, part)
		info, err := os.Lstat(next)
		if errors.Is(err, os.ErrNotExist) {
			return filepath.Join(append([]string{next}, parts[idx+1:]...)...), nil
		}
		if err != nil {
			return "", err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			next, err = filepath.EvalSymlinks(next)
			if err != nil {
				return "", err
			}
		}
		current = next
	}
	return filepath.Clean(current), nil
}
