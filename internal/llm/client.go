// Package llm is the client for the local language-model service. The
// planner is the only consumer; it always requests JSON-only completions.
// Unavailability is a first-class outcome: there is no cloud fallback, by
// the offline-only policy.
package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client produces chat completions.
type Client interface {
	// Chat sends the message sequence and returns the raw completion
	// text. When jsonMode is set the service is asked to emit a single
	// JSON object.
	Chat(ctx context.Context, messages []Message, jsonMode bool) (string, error)
}
