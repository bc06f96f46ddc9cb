package brain

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityDefaultsWhenFileMissing(t *testing.T) {
	s := NewIdentityStore(filepath.Join(t.TempDir(), "persona.yaml"))

	id := s.Current()
	assert.Equal(t, "Ghost", id.Name)
	assert.NotEmpty(t, id.Backstory)
}

func TestIdentityLoadsPersonaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	persona := `name: Wraith
voice_style: Dry, sarcastic
backstory: A retired sysadmin spirit.
directives:
  - Keep answers short.
forbidden_behaviors:
  - Never use corporate jargon.
`
	require.NoError(t, os.WriteFile(path, []byte(persona), 0o644))

	s := NewIdentityStore(path)
	id := s.Current()
	assert.Equal(t, "Wraith", id.Name)
	assert.Equal(t, "Dry, sarcastic", id.VoiceStyle)
	assert.Equal(t, []string{"Keep answers short."}, id.Directives)
}

func TestIdentityKeepsDefaultsOnMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [unclosed"), 0o644))

	s := NewIdentityStore(path)
	assert.Equal(t, "Ghost", s.Current().Name)
}

func TestIdentityWatchReloadsOnRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Wraith\n"), 0o644))

	s := NewIdentityStore(path)
	require.Equal(t, "Wraith", s.Current().Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("name: Specter\n"), 0o644))

	assert.Eventually(t, func() bool {
		return s.Current().Name == "Specter"
	}, 5*time.Second, 50*time.Millisecond, "rewritten persona should be picked up")
}

func TestVisionContextTruncation(t *testing.T) {
	slots := &ContextSlots{}
	slots.UpdateVision(map[string]any{
		"active_window": "Browser",
		"elements":      strings.Repeat("x", maxVisionChars+100),
	})

	formatted := slots.formatVision()
	assert.Contains(t, formatted, "[TRUNCATED - UI tree too large]")
	assert.Contains(t, formatted, "=== VISUAL CONTEXT ===")
}

func TestVisionContextEmpty(t *testing.T) {
	slots := &ContextSlots{}
	assert.Contains(t, slots.formatVision(), "No visual data available")

	slots.UpdateVision(map[string]any{"active_window": "Files"})
	slots.ClearVision()
	assert.Contains(t, slots.formatVision(), "No visual data available")
}
