// Package action defines the closed action vocabulary Ghost is allowed to
// perform, and the validator that every plan must pass before execution.
// The whitelist is deliberately a compile-time enum: adding a new action
// kind requires touching both the validator and the executor.
package action

import "encoding/json"

// Kind identifies one of the whitelisted action types.
type Kind string

const (
	KindKey      Kind = "KEY"      // press a keyboard key or combo
	KindType     Kind = "TYPE"     // type a text string
	KindClick    Kind = "CLICK"    // click screen coordinates
	KindWait     Kind = "WAIT"     // pause execution
	KindSpeak    Kind = "SPEAK"    // conversational response via TTS
	KindMemorize Kind = "MEMORIZE" // store a fact (mental action, never executed)
	KindScan     Kind = "SCAN"     // capture the full UI tree
	KindList     Kind = "LIST"     // list files in a directory
	KindRead     Kind = "READ"     // read file contents
	KindSearch   Kind = "SEARCH"   // search files by glob pattern
	KindWrite    Kind = "WRITE"    // create or overwrite a file
	KindEdit     Kind = "EDIT"     // find/replace inside a file
)

// Kinds is the full whitelist in documentation order.
var Kinds = []Kind{
	KindKey, KindType, KindClick, KindWait, KindSpeak, KindMemorize,
	KindScan, KindList, KindRead, KindSearch, KindWrite, KindEdit,
}

// Action is a single step emitted by the planner. The field set is the
// union of all kind-specific fields; the validator enforces which ones are
// meaningful for a given kind. Pointer fields distinguish "absent" from
// "zero", which matters for numeric bounds and must-be-a-string checks.
type Action struct {
	Type Kind `json:"type"`

	// KEY
	Key string `json:"key,omitempty"`

	// TYPE / SPEAK
	Text string `json:"text,omitempty"`

	// CLICK
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`

	// WAIT
	Duration *float64 `json:"duration,omitempty"`

	// MEMORIZE (Key is shared with KEY)
	Value string `json:"value,omitempty"`

	// LIST / READ / WRITE / EDIT
	Path string `json:"path,omitempty"`

	// WRITE
	Content *string `json:"content,omitempty"`

	// EDIT
	Find    string  `json:"find,omitempty"`
	Replace *string `json:"replace,omitempty"`

	// SEARCH
	Directory string `json:"directory,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	// Some models nest MEMORIZE fields under a payload object instead of
	// emitting them flat. Kept so the planner can still extract them.
	Payload map[string]any `json:"payload,omitempty"`
}

// IsPhysical reports whether the action affects the external environment
// (keyboard, mouse, screen, filesystem, speaker). MEMORIZE is the only
// mental action: it is fully handled inside the planner.
func (a Action) IsPhysical() bool {
	return a.Type != KindMemorize
}

// MemorizeKey returns the MEMORIZE key, looking through the nested payload
// form when the flat field is empty.
func (a Action) MemorizeKey() string {
	if a.Key != "" {
		return a.Key
	}
	if v, ok := a.Payload["key"].(string); ok {
		return v
	}
	return ""
}

// MemorizeValue returns the MEMORIZE value, flat or nested.
func (a Action) MemorizeValue() string {
	if a.Value != "" {
		return a.Value
	}
	if v, ok := a.Payload["value"].(string); ok {
		return v
	}
	return ""
}

// PayloadFields returns the action's kind-specific fields as a flat map,
// the shape the Kernel expects inside a permission request.
func (a Action) PayloadFields() map[string]any {
	raw, err := json.Marshal(a)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	delete(m, "type")
	return m
}

// Plan is a full structured decision: a label for the intent, the
// human-readable step list, and the ordered actions to perform.
type Plan struct {
	Intent  string   `json:"intent"`
	Plan    []string `json:"plan"`
	Actions []Action `json:"actions"`
}
