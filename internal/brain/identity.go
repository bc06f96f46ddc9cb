// Package brain is Ghost's planner: it turns natural language intent into
// a validated action plan, consulting the Kernel's reflex cache first and
// assembling identity, fact, memory and vision context for the LLM when a
// fresh plan is needed.
package brain

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"ghost/internal/logging"
)

// Identity is Ghost's persona, loaded from persona.yaml. Missing or
// malformed files fall back to defaults; identity problems must never
// stop the agent from answering.
type Identity struct {
	Name       string   `yaml:"name"`
	VoiceStyle string   `yaml:"voice_style"`
	Backstory  string   `yaml:"backstory"`
	Directives []string `yaml:"directives"`
	Forbidden  []string `yaml:"forbidden_behaviors"`
}

func defaultIdentity() Identity {
	return Identity{
		Name:       "Ghost",
		VoiceStyle: "Concise, Professional",
		Backstory:  "You are Ghost, a Sovereign Desktop Agent residing locally on the user's machine.",
		Directives: []string{"You are a Sovereign Desktop Agent."},
		Forbidden:  []string{"Never stay silent when user speaks to you."},
	}
}

// IdentityStore holds the current persona and optionally hot-reloads it
// when persona.yaml changes on disk.
type IdentityStore struct {
	mu       sync.RWMutex
	path     string
	identity Identity
}

// NewIdentityStore loads the persona file once. A missing file is normal
// on first run.
func NewIdentityStore(path string) *IdentityStore {
	s := &IdentityStore{path: path, identity: defaultIdentity()}
	if err := s.reload(); err != nil {
		logging.Brain("persona not loaded, using defaults: %v", err)
	}
	return s
}

// Current returns the active persona.
func (s *IdentityStore) Current() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *IdentityStore) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	id := defaultIdentity()
	if err := yaml.Unmarshal(data, &id); err != nil {
		return err
	}
	if id.Name == "" {
		id.Name = "Ghost"
	}

	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()
	logging.Brain("identity loaded: %s (%s)", id.Name, id.VoiceStyle)
	return nil
}

// Watch hot-reloads the persona when its file changes. Editor save
// patterns fire several events in a burst, so reloads are debounced.
func (s *IdentityStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(s.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(200*time.Millisecond, func() {
					if err := s.reload(); err != nil {
						logging.BrainWarn("persona reload failed: %v", err)
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.BrainWarn("persona watcher: %v", err)
			}
		}
	}()
	return nil
}
