package action

import (
	"os"
	"path/filepath"
	"strings"
)

// IsSafePath reports whether a filesystem path is allowed for file actions.
// A path is safe iff it is relative and its resolution against the current
// working directory stays inside that directory. Symlinks along the way are
// resolved so a link pointing outside the sandbox cannot smuggle an escape.
// Any resolution error fails closed.
func IsSafePath(p string) bool {
	if strings.TrimSpace(p) == "" {
		return false
	}
	if filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return false
	}

	base, err := os.Getwd()
	if err != nil {
		return false
	}
	base, err = filepath.EvalSymlinks(base)
	if err != nil {
		return false
	}

	target := filepath.Clean(filepath.Join(base, p))
	resolved, err := resolveExisting(target)
	if err != nil {
		return false
	}
	return within(base, resolved)
}

// resolveExisting resolves symlinks on the deepest existing ancestor of
// target, then re-appends the non-existent tail. New files must still land
// inside the sandbox even though they cannot be EvalSymlink'd directly.
func resolveExisting(target string) (string, error) {
	resolved, err := filepath.EvalSymlinks(target)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	dir, tail := target, ""
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", err // hit the root without finding an existing ancestor
		}
		tail = filepath.Join(filepath.Base(dir), tail)
		dir = parent
		if resolved, rerr := filepath.EvalSymlinks(dir); rerr == nil {
			return filepath.Join(resolved, tail), nil
		}
	}
}

func within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}
