// Package memory implements Ghost's durable local fact store: a single
// JSON profile document holding deduplicated key/value facts plus a bounded
// append-only history. It is independent of the Kernel's long-term memory;
// the planner writes to both as a best-effort dual write.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ghost/internal/logging"
)

// MaxHistoryEntries caps the append-only history; oldest entries drop first.
const MaxHistoryEntries = 100

// Fact is one remembered key/value pair with provenance.
type Fact struct {
	Value        string `json:"value"`
	Context      string `json:"context"`
	Timestamp    string `json:"timestamp"`
	UpdatedCount int    `json:"updated_count"`
}

// HistoryEntry records one fact write in arrival order.
type HistoryEntry struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Context   string `json:"context"`
	Timestamp string `json:"timestamp"`
}

type profile struct {
	Facts   map[string]Fact `json:"facts"`
	History []HistoryEntry  `json:"history"`
}

// Store is a file-backed fact store. Every mutation is a read-modify-write
// of the whole document under an internal lock, so concurrent writers from
// different goroutines cannot interleave partial updates.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewStore opens (or lazily creates) the fact store at path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// StoreFact persists key=value with the originating user input as context.
// Writes are idempotent by value: storing an unchanged value is a complete
// no-op, including the history log. Returns whether the fact was new or
// changed.
func (s *Store) StoreFact(key, value, context string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return false, err
	}

	existing, known := p.Facts[key]
	if known && existing.Value == value {
		logging.MemoryDebug("fact already known: %s = %s", key, value)
		return false, nil
	}

	ts := s.now().Format(time.RFC3339)
	p.Facts[key] = Fact{
		Value:        value,
		Context:      context,
		Timestamp:    ts,
		UpdatedCount: existing.UpdatedCount + 1,
	}
	p.History = append(p.History, HistoryEntry{
		Key: key, Value: value, Context: context, Timestamp: ts,
	})
	if len(p.History) > MaxHistoryEntries {
		p.History = p.History[len(p.History)-MaxHistoryEntries:]
	}

	if err := s.save(p); err != nil {
		return false, err
	}
	logging.Memory("stored fact: %s = %s (%d total)", key, value, len(p.Facts))
	return true, nil
}

// Facts returns the current fact map. The returned map is a copy.
func (s *Store) Facts() (map[string]Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Fact, len(p.Facts))
	for k, v := range p.Facts {
		out[k] = v
	}
	return out, nil
}

// History returns the retained write history, oldest first.
func (s *Store) History() ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return nil, err
	}
	return append([]HistoryEntry(nil), p.History...), nil
}

func (s *Store) load() (*profile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &profile{Facts: map[string]Fact{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fact store: %w", err)
	}
	// A zero-byte file (interrupted first write) is an empty store, not
	// a corrupt one.
	if len(data) == 0 {
		return &profile{Facts: map[string]Fact{}}, nil
	}
	var p profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse fact store: %w", err)
	}
	if p.Facts == nil {
		p.Facts = map[string]Fact{}
	}
	return &p, nil
}

func (s *Store) save(p *profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fact store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create fact store dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write fact store: %w", err)
	}
	return nil
}
