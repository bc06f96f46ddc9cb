package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func initWorkspace(t *testing.T, cfg string) string {
	t.Helper()
	dir := t.TempDir()
	if cfg != "" {
		if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfg), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	t.Cleanup(func() {
		CloseAll()
		workspace, logsDir = "", ""
		config = Config{}
		logLevel = LevelInfo
	})
	return dir
}

func TestInitialize_NoConfigIsProductionMode(t *testing.T) {
	dir := initWorkspace(t, "")
	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if IsDebugMode() {
		t.Error("expected production mode without config")
	}
	// No logs directory should be created.
	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Error("logs directory created in production mode")
	}
}

func TestInitialize_DebugModeWritesFiles(t *testing.T) {
	dir := initWorkspace(t, `{"logging":{"debug_mode":true,"level":"debug"}}`)
	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("expected debug mode")
	}

	Brain("planner online")
	BrainDebug("detail %d", 42)
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	if err != nil {
		t.Fatalf("logs dir missing: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no log files written")
	}

	// The boot banner lands in its own file, so find the brain log by name.
	var brainLog string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_brain.log") {
			brainLog = e.Name()
		}
	}
	if brainLog == "" {
		t.Fatalf("no brain log among %d files", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, "logs", brainLog))
	if err != nil {
		t.Fatal(err)
	}
	if !containsAll(string(data), "planner online", "detail 42") {
		t.Errorf("log file missing expected lines: %s", data)
	}
}

func TestCategoryFilter(t *testing.T) {
	dir := initWorkspace(t, `{"logging":{"debug_mode":true,"categories":{"kernel":false}}}`)
	if err := Initialize(dir); err != nil {
		t.Fatal(err)
	}
	if IsCategoryEnabled(CategoryKernel) {
		t.Error("kernel category should be disabled")
	}
	if !IsCategoryEnabled(CategoryBrain) {
		t.Error("unlisted categories should default to enabled")
	}
	// Writing to a disabled category must be a harmless no-op.
	Kernel("should not appear")
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
