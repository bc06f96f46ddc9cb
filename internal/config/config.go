// Package config loads Ghost's configuration from config.json with safe
// defaults for every missing section or key, and manages the shared
// authentication token used on the Kernel protocol.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ghost/internal/logging"
)

// Config is the full configuration document.
type Config struct {
	System   SystemConfig   `json:"system"`
	Network  NetworkConfig  `json:"network"`
	Vision   VisionConfig   `json:"vision"`
	Delays   DelaysConfig   `json:"delays"`
	Voice    VoiceConfig    `json:"voice"`
	Sentinel SentinelConfig `json:"sentinel"`
	Logging  logging.Config `json:"logging"`
}

// SystemConfig identifies the build and environment.
type SystemConfig struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// NetworkConfig describes the local collaborator endpoints. Everything is
// localhost by policy: the system is offline-only.
type NetworkConfig struct {
	KernelHost     string `json:"kernel_host"`
	KernelPort     int    `json:"kernel_port"`
	KernelTimeoutS int    `json:"kernel_timeout_s"`
	OllamaURL      string `json:"ollama_url"`
	OllamaModel    string `json:"ollama_model"`
	EmbeddingModel string `json:"embedding_model"`
}

// VisionConfig controls the focus-verification retry loop. Fixed-interval
// polling; the retry budget and interval define the timeout window that
// the tests depend on.
type VisionConfig struct {
	RetryLimit   int `json:"retry_limit"`
	RetryDelayMs int `json:"retry_delay_ms"`
}

// DelaysConfig paces physical actions.
type DelaysConfig struct {
	ActionPacingMs int `json:"action_pacing_ms"`
}

// VoiceConfig controls TTS and push-to-talk.
type VoiceConfig struct {
	Enabled      bool   `json:"enabled"`
	PiperBin     string `json:"piper_bin"`
	PiperModel   string `json:"piper_model"`
	WhisperModel string `json:"whisper_model"`
	PollMs       int    `json:"poll_ms"`
}

// SentinelConfig locates the body process.
type SentinelConfig struct {
	Bin      string `json:"bin"`
	TimeoutS int    `json:"timeout_s"`
}

// Default returns the safe defaults used when config.json is absent or a
// key is missing.
func Default() Config {
	return Config{
		System: SystemConfig{Version: "3.0.0", Environment: "development"},
		Network: NetworkConfig{
			KernelHost:     "localhost",
			KernelPort:     5005,
			KernelTimeoutS: 2,
			OllamaURL:      "http://localhost:11434",
			OllamaModel:    "llama3.1",
			EmbeddingModel: "all-minilm",
		},
		Vision: VisionConfig{RetryLimit: 50, RetryDelayMs: 100},
		Delays: DelaysConfig{ActionPacingMs: 100},
		Voice: VoiceConfig{
			Enabled:      true,
			PiperBin:     filepath.Join("bin", "piper", "piper"),
			PiperModel:   filepath.Join("bin", "piper", "en_US-amy-medium.onnx"),
			WhisperModel: "tiny.en",
			PollMs:       50,
		},
		Sentinel: SentinelConfig{
			Bin:      filepath.Join("bin", "sentinel"),
			TimeoutS: 10,
		},
		Logging: logging.Config{Level: "info"},
	}
}

// Load reads config.json from the workspace (falling back to bin/
// config.json, then to defaults). Unmarshalling on top of the defaults
// gives per-key merge semantics: absent keys keep their default values.
func Load(workspace string) (Config, error) {
	cfg := Default()

	path := filepath.Join(workspace, "config.json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Join(workspace, "bin", "config.json")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// KernelTimeout returns the per-transaction Kernel deadline.
func (c Config) KernelTimeout() time.Duration {
	if c.Network.KernelTimeoutS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Network.KernelTimeoutS) * time.Second
}

// RetryDelay returns the focus-verification polling interval.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Vision.RetryDelayMs) * time.Millisecond
}

// ActionPacing returns the delay inserted between physical actions.
func (c Config) ActionPacing() time.Duration {
	return time.Duration(c.Delays.ActionPacingMs) * time.Millisecond
}

// SentinelTimeout returns the per-call deadline for the body bridge.
func (c Config) SentinelTimeout() time.Duration {
	if c.Sentinel.TimeoutS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Sentinel.TimeoutS) * time.Second
}

// VoicePoll returns the push-to-talk hotkey polling interval.
func (c Config) VoicePoll() time.Duration {
	if c.Voice.PollMs <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.Voice.PollMs) * time.Millisecond
}
