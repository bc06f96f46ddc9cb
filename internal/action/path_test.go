package action

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves the test into a fresh sandbox so resolution is predictable.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
	return dir
}

func TestIsSafePath_Relative(t *testing.T) {
	chdir(t)

	assert.True(t, IsSafePath("notes/todo.txt"))
	assert.True(t, IsSafePath("a.txt"))
	assert.True(t, IsSafePath("./nested/deep/file"))
	// Dot-dot that stays inside the sandbox is fine.
	assert.True(t, IsSafePath("sub/../a.txt"))
}

func TestIsSafePath_Escapes(t *testing.T) {
	chdir(t)

	assert.False(t, IsSafePath("../etc/passwd"))
	assert.False(t, IsSafePath("../../anything"))
	assert.False(t, IsSafePath("sub/../../escape"))
	assert.False(t, IsSafePath(""))
	assert.False(t, IsSafePath("   "))
}

func TestIsSafePath_Absolute(t *testing.T) {
	chdir(t)

	if runtime.GOOS == "windows" {
		assert.False(t, IsSafePath(`C:\Windows\System32`))
		assert.False(t, IsSafePath(`C:relative-to-drive`))
	} else {
		assert.False(t, IsSafePath("/etc/passwd"))
	}
}

func TestIsSafePath_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}
	dir := chdir(t)

	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "leak")))

	assert.False(t, IsSafePath("leak/secrets.txt"))
	assert.False(t, IsSafePath("leak"))
}

func TestIsSafePath_NonexistentTargetStillChecked(t *testing.T) {
	chdir(t)

	// New files that would land inside the sandbox are safe even though
	// they do not exist yet.
	assert.True(t, IsSafePath("brand/new/file.txt"))
	assert.False(t, IsSafePath("../brand/new/file.txt"))
}
