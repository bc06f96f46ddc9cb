// Package librarian performs the file actions inside the workspace
// sandbox. Every path is re-checked against the sandbox guard before any
// filesystem call, independent of plan validation.
package librarian

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ghost/internal/action"
	"ghost/internal/logging"
)

const (
	// MaxReadChars caps READ_FILE output so a large file cannot blow up
	// the planner context.
	MaxReadChars = 5000

	// MaxFindResults caps FIND output.
	MaxFindResults = 50
)

var errUnsafePath = fmt.Errorf("path escapes the workspace")

// List returns the entries of a directory inside the workspace, one name
// per line, directories suffixed with a slash. An empty dir means the
// workspace root.
func List(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if dir != "." && !action.IsSafePath(dir) {
		return "", fmt.Errorf("list %q: %w", dir, errUnsafePath)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	logging.Librarian("listed %s (%d entries)", dir, len(names))
	return strings.Join(names, "\n"), nil
}

// Read returns the contents of a workspace file, truncated to
// MaxReadChars with an explicit marker so the planner knows it saw a
// partial file.
func Read(path string) (string, error) {
	if !action.IsSafePath(path) {
		return "", fmt.Errorf("read %q: %w", path, errUnsafePath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", path, err)
	}
	content := string(data)
	if len(content) > MaxReadChars {
		content = content[:MaxReadChars] + "\n... [TRUNCATED]"
	}
	logging.Librarian("read %s (%d bytes)", path, len(data))
	return content, nil
}

// Find walks the workspace (or a subdirectory) matching file names
// against a glob pattern. Hidden directories are skipped.
func Find(pattern, dir string) (string, error) {
	if pattern == "" {
		return "", fmt.Errorf("find: empty pattern")
	}
	if dir == "" {
		dir = "."
	}
	if dir != "." && !action.IsSafePath(dir) {
		return "", fmt.Errorf("find in %q: %w", dir, errUnsafePath)
	}

	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		ok, merr := filepath.Match(pattern, d.Name())
		if merr != nil {
			return merr
		}
		if ok {
			matches = append(matches, path)
			if len(matches) >= MaxFindResults {
				return filepath.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("find %q: %w", pattern, err)
	}
	logging.Librarian("find %q in %s: %d matches", pattern, dir, len(matches))
	if len(matches) == 0 {
		return "no files matched " + pattern, nil
	}
	return strings.Join(matches, "\n"), nil
}

// Write creates or replaces a workspace file, creating parent directories
// as needed.
func Write(path, content string) error {
	if !action.IsSafePath(path) {
		return fmt.Errorf("write %q: %w", path, errUnsafePath)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write %q: %w", path, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	logging.Librarian("wrote %s (%d bytes)", path, len(content))
	return nil
}

// Edit replaces the first occurrence of find with replace in a workspace
// file. The find text must exist; a miss is an error so the planner hears
// about a stale edit instead of silently succeeding.
func Edit(path, find, replace string) error {
	if !action.IsSafePath(path) {
		return fmt.Errorf("edit %q: %w", path, errUnsafePath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("edit %q: %w", path, err)
	}
	content := string(data)
	if !strings.Contains(content, find) {
		return fmt.Errorf("edit %q: text to replace not found", path)
	}
	content = strings.Replace(content, find, replace, 1)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("edit %q: %w", path, err)
	}
	logging.Librarian("edited %s", path)
	return nil
}
