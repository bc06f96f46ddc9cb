package voice

import "errors"

// Stub implementations used when voice hardware or models are not
// available. They keep the listener loop wiring intact while capturing
// nothing; the agent simply behaves as text-only.

// StubRecorder never records.
type StubRecorder struct{}

func (StubRecorder) Start() error          { return errors.New("voice hardware unavailable") }
func (StubRecorder) Chunk() error          { return nil }
func (StubRecorder) Stop() (string, error) { return "", nil }

// StubTranscriber hears nothing.
type StubTranscriber struct{}

func (StubTranscriber) Transcribe(string) (string, error) { return "", nil }

// StubHotkey is never pressed.
type StubHotkey struct{}

func (StubHotkey) Pressed() bool { return false }
