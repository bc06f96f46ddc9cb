package action

import (
	"fmt"
	"strings"
)

// Bounds enforced by the validator. These mirror what the prompt documents
// to the model; changing one side without the other invites rejection loops.
const (
	MaxTypeTextLen     = 500
	MaxSpeakTextLen    = 1000
	MaxMemorizeKeyLen  = 100
	MaxMemorizeValLen  = 500
	MaxClickCoordinate = 10000
	MaxWaitSeconds     = 30
)

// safeKeys is the whitelist of keyboard keys the KEY action may press,
// standalone or as parts of a combo such as "win+r".
var safeKeys = map[string]bool{
	"gui": true, "enter": true, "escape": true, "tab": true,
	"backspace": true, "delete": true,
	"up": true, "down": true, "left": true, "right": true,
	"home": true, "end": true, "pageup": true, "pagedown": true,
	"space": true, "ctrl": true, "alt": true, "shift": true,
	"win": true, "windows": true, "return": true,
}

// Validate checks a full action list against the whitelist and per-kind
// bounds. It short-circuits on the first violation and returns an error
// naming the offending index and field; nil means the whole list is
// acceptable. The same function gates fresh plans, cached reflex plans and
// recovery plans: no source is trusted enough to skip it.
//
// Kinds are normalized to uppercase in place, so everything downstream
// (the mental/physical split, the executor dispatch) sees the canonical
// spelling regardless of what the model emitted.
func Validate(actions []Action) error {
	for i, a := range actions {
		kind := Kind(strings.ToUpper(string(a.Type)))
		actions[i].Type = kind

		switch kind {
		case KindKey:
			if err := validateKey(a); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}

		case KindType:
			if len(a.Text) > MaxTypeTextLen {
				return fmt.Errorf("action %d: TYPE text too long (max %d chars)", i, MaxTypeTextLen)
			}

		case KindClick:
			if a.X == nil || a.Y == nil {
				return fmt.Errorf("action %d: CLICK requires numeric x and y coordinates", i)
			}
			if *a.X < 0 || *a.Y < 0 || *a.X > MaxClickCoordinate || *a.Y > MaxClickCoordinate {
				return fmt.Errorf("action %d: CLICK coordinates out of bounds", i)
			}

		case KindWait:
			if a.Duration == nil {
				return fmt.Errorf("action %d: WAIT duration must be numeric", i)
			}
			if *a.Duration < 0 || *a.Duration > MaxWaitSeconds {
				return fmt.Errorf("action %d: WAIT duration out of bounds (0-%ds)", i, MaxWaitSeconds)
			}

		case KindSpeak:
			if strings.TrimSpace(a.Text) == "" {
				return fmt.Errorf("action %d: SPEAK requires non-empty 'text'", i)
			}
			if len(a.Text) > MaxSpeakTextLen {
				return fmt.Errorf("action %d: SPEAK text too long (max %d chars)", i, MaxSpeakTextLen)
			}

		case KindMemorize:
			key, value := a.MemorizeKey(), a.MemorizeValue()
			if strings.TrimSpace(key) == "" {
				return fmt.Errorf("action %d: MEMORIZE requires non-empty 'key'", i)
			}
			if len(key) > MaxMemorizeKeyLen {
				return fmt.Errorf("action %d: MEMORIZE key too long (max %d chars)", i, MaxMemorizeKeyLen)
			}
			if len(value) > MaxMemorizeValLen {
				return fmt.Errorf("action %d: MEMORIZE value too long (max %d chars)", i, MaxMemorizeValLen)
			}

		case KindScan:
			// SCAN is parameterless.
			if err := validateScanBare(a); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}

		case KindList:
			if err := validatePathField(a.Path, "LIST", "path"); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}

		case KindRead:
			if err := validatePathField(a.Path, "READ", "path"); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}

		case KindSearch:
			if err := validatePathField(a.Directory, "SEARCH", "directory"); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
			if strings.TrimSpace(a.Pattern) == "" {
				return fmt.Errorf("action %d: SEARCH requires non-empty 'pattern'", i)
			}

		case KindWrite:
			if err := validatePathField(a.Path, "WRITE", "path"); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
			if a.Content == nil {
				return fmt.Errorf("action %d: WRITE 'content' must be a string", i)
			}

		case KindEdit:
			if err := validatePathField(a.Path, "EDIT", "path"); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
			if a.Find == "" {
				return fmt.Errorf("action %d: EDIT requires non-empty 'find'", i)
			}
			if a.Replace == nil {
				return fmt.Errorf("action %d: EDIT 'replace' must be a string", i)
			}

		default:
			return fmt.Errorf("action %d: invalid type %q (allowed: %v)", i, a.Type, Kinds)
		}
	}
	return nil
}

func validateKey(a Action) error {
	key := strings.ToLower(strings.TrimSpace(a.Key))
	if key == "" {
		return fmt.Errorf("KEY action missing 'key' field")
	}
	if !strings.Contains(key, "+") {
		if !safeKeys[key] {
			return fmt.Errorf("unsafe key %q", key)
		}
		return nil
	}
	// Combos like "win+r" or "ctrl+shift+t": every part must be whitelisted
	// or a single alphanumeric character.
	for _, part := range strings.Split(key, "+") {
		part = strings.TrimSpace(part)
		if safeKeys[part] {
			continue
		}
		if len(part) == 1 && isAlnum(rune(part[0])) {
			continue
		}
		return fmt.Errorf("unsafe key component %q in combo %q", part, key)
	}
	return nil
}

func validateScanBare(a Action) error {
	if a.Key != "" || a.Text != "" || a.X != nil || a.Y != nil || a.Duration != nil ||
		a.Value != "" || a.Path != "" || a.Content != nil || a.Find != "" ||
		a.Replace != nil || a.Directory != "" || a.Pattern != "" {
		return fmt.Errorf("SCAN takes no parameters")
	}
	return nil
}

func validatePathField(p, kind, field string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%s requires non-empty '%s'", kind, field)
	}
	if !IsSafePath(p) {
		return fmt.Errorf("%s %s must be relative and stay inside the sandbox", kind, field)
	}
	return nil
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
