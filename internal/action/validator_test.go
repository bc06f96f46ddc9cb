package action

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }

func TestValidate_RejectsUnknownType(t *testing.T) {
	for _, bad := range []string{"", "EXEC", "SHELL", "click", "DELETE_ALL"} {
		err := Validate([]Action{{Type: Kind(bad)}})
		if bad == "click" {
			// Kind matching is case-insensitive, but a bare CLICK still
			// fails its own field checks.
			require.Error(t, err)
			assert.Contains(t, err.Error(), "CLICK")
			continue
		}
		require.Error(t, err, "type %q must be rejected", bad)
		assert.Contains(t, err.Error(), "invalid type")
	}
}

func TestValidate_NormalizesKindCase(t *testing.T) {
	actions := []Action{
		{Type: "speak", Text: "hello"},
		{Type: "memorize", Key: "editor", Value: "vim"},
		{Type: "Scan"},
	}
	require.NoError(t, Validate(actions))

	assert.Equal(t, KindSpeak, actions[0].Type)
	assert.Equal(t, KindMemorize, actions[1].Type)
	assert.Equal(t, KindScan, actions[2].Type)
	assert.False(t, actions[1].IsPhysical())
}

func TestValidate_ErrorNamesOffendingIndex(t *testing.T) {
	actions := []Action{
		{Type: KindSpeak, Text: "hello"},
		{Type: KindType, Text: strings.Repeat("x", MaxTypeTextLen+1)},
	}
	err := Validate(actions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action 1")
}

func TestValidate_Key(t *testing.T) {
	tests := []struct {
		key string
		ok  bool
	}{
		{"gui", true},
		{"enter", true},
		{"ESCAPE", true}, // case-insensitive
		{"win+r", true},
		{"ctrl+shift+t", true},
		{"ctrl+k", true},
		{"", false},
		{"f13", false},
		{"win+rm", false}, // multi-char non-whitelisted combo part
		{"ctrl+;", false}, // punctuation is not alphanumeric
	}
	for _, tt := range tests {
		err := Validate([]Action{{Type: KindKey, Key: tt.key}})
		if tt.ok {
			assert.NoError(t, err, "key %q", tt.key)
		} else {
			assert.Error(t, err, "key %q", tt.key)
		}
	}
}

func TestValidate_TypeTextBound(t *testing.T) {
	ok := Action{Type: KindType, Text: strings.Repeat("a", MaxTypeTextLen)}
	assert.NoError(t, Validate([]Action{ok}))

	long := Action{Type: KindType, Text: strings.Repeat("a", MaxTypeTextLen+1)}
	assert.Error(t, Validate([]Action{long}))
}

func TestValidate_ClickBounds(t *testing.T) {
	tests := []struct {
		x, y *float64
		ok   bool
	}{
		{fptr(0), fptr(0), true},
		{fptr(10000), fptr(10000), true},
		{fptr(500), fptr(300), true},
		{fptr(-1), fptr(10), false},
		{fptr(10), fptr(10001), false},
		{nil, fptr(10), false},
		{fptr(10), nil, false},
	}
	for _, tt := range tests {
		err := Validate([]Action{{Type: KindClick, X: tt.x, Y: tt.y}})
		if tt.ok {
			assert.NoError(t, err)
		} else {
			assert.Error(t, err)
		}
	}
}

func TestValidate_WaitBounds(t *testing.T) {
	assert.NoError(t, Validate([]Action{{Type: KindWait, Duration: fptr(0)}}))
	assert.NoError(t, Validate([]Action{{Type: KindWait, Duration: fptr(30)}}))
	assert.Error(t, Validate([]Action{{Type: KindWait, Duration: fptr(-0.5)}}))
	assert.Error(t, Validate([]Action{{Type: KindWait, Duration: fptr(31)}}))
	assert.Error(t, Validate([]Action{{Type: KindWait}}))
}

func TestValidate_Speak(t *testing.T) {
	assert.NoError(t, Validate([]Action{{Type: KindSpeak, Text: "hi"}}))
	assert.Error(t, Validate([]Action{{Type: KindSpeak, Text: "   "}}))
	assert.Error(t, Validate([]Action{{Type: KindSpeak, Text: strings.Repeat("a", MaxSpeakTextLen+1)}}))
}

func TestValidate_Memorize(t *testing.T) {
	assert.NoError(t, Validate([]Action{{Type: KindMemorize, Key: "has_resume", Value: "False"}}))
	assert.Error(t, Validate([]Action{{Type: KindMemorize, Value: "x"}}))
	assert.Error(t, Validate([]Action{{Type: KindMemorize, Key: strings.Repeat("k", MaxMemorizeKeyLen+1), Value: "x"}}))
	assert.Error(t, Validate([]Action{{Type: KindMemorize, Key: "k", Value: strings.Repeat("v", MaxMemorizeValLen+1)}}))

	// Nested payload form still validates.
	nested := Action{Type: KindMemorize, Payload: map[string]any{"key": "editor", "value": "vim"}}
	assert.NoError(t, Validate([]Action{nested}))
}

func TestValidate_ScanTakesNoParameters(t *testing.T) {
	assert.NoError(t, Validate([]Action{{Type: KindScan}}))
	assert.Error(t, Validate([]Action{{Type: KindScan, Text: "full"}}))
}

func TestValidate_FileActions(t *testing.T) {
	assert.NoError(t, Validate([]Action{{Type: KindList, Path: "notes"}}))
	assert.Error(t, Validate([]Action{{Type: KindList, Path: ""}}))
	assert.Error(t, Validate([]Action{{Type: KindRead, Path: "../etc/passwd"}}))

	assert.NoError(t, Validate([]Action{{Type: KindSearch, Directory: "src", Pattern: "*.go"}}))
	assert.Error(t, Validate([]Action{{Type: KindSearch, Directory: "src"}}))

	assert.NoError(t, Validate([]Action{{Type: KindWrite, Path: "notes/todo.txt", Content: sptr("hello")}}))
	assert.Error(t, Validate([]Action{{Type: KindWrite, Path: "notes/todo.txt"}}))

	assert.NoError(t, Validate([]Action{{Type: KindEdit, Path: "a.txt", Find: "old", Replace: sptr("")}}))
	assert.Error(t, Validate([]Action{{Type: KindEdit, Path: "a.txt", Find: "", Replace: sptr("new")}}))
	assert.Error(t, Validate([]Action{{Type: KindEdit, Path: "a.txt", Find: "old"}}))
}

func TestValidate_WholeListOrNothing(t *testing.T) {
	actions := []Action{
		{Type: KindKey, Key: "gui"},
		{Type: KindWait, Duration: fptr(0.5)},
		{Type: KindType, Text: "notepad"},
		{Type: KindKey, Key: "enter"},
	}
	assert.NoError(t, Validate(actions))

	actions[2].Text = strings.Repeat("x", MaxTypeTextLen+1)
	assert.Error(t, Validate(actions))
}

func TestAction_JSONRoundTripPreservesPresence(t *testing.T) {
	raw := `{"type":"CLICK","x":500,"y":300}`
	var a Action
	require.NoError(t, json.Unmarshal([]byte(raw), &a))
	require.NotNil(t, a.X)
	assert.Equal(t, 500.0, *a.X)
	assert.NoError(t, Validate([]Action{a}))

	var missing Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"CLICK","x":500}`), &missing))
	assert.Error(t, Validate([]Action{missing}))
}

func TestAction_PayloadFields(t *testing.T) {
	a := Action{Type: KindType, Text: "hello"}
	fields := a.PayloadFields()
	assert.Equal(t, "hello", fields["text"])
	_, hasType := fields["type"]
	assert.False(t, hasType)
}
