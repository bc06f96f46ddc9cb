package voice

import (
	"context"
	"os"
	"strings"
	"time"

	"ghost/internal/logging"
)

// Transcriber converts a recorded audio file to text.
type Transcriber interface {
	Transcribe(audioPath string) (string, error)
}

// Recorder captures microphone audio between Start and Stop. Stop returns
// the path of the finished recording, or an empty string when nothing
// usable was captured.
type Recorder interface {
	Start() error
	Chunk() error
	Stop() (string, error)
}

// Hotkey reports whether the push-to-talk key is currently held.
type Hotkey interface {
	Pressed() bool
}

// Listener runs the push-to-talk loop: poll the hotkey at a fixed
// interval, record while held, transcribe on release, and hand the text
// to the command handler. While the agent is busy thinking or acting the
// mic stays closed so the ghost cannot hear its own voice.
type Listener struct {
	recorder    Recorder
	transcriber Transcriber
	hotkey      Hotkey
	busy        func() bool
	poll        time.Duration
}

func NewListener(rec Recorder, tr Transcriber, hk Hotkey, busy func() bool, poll time.Duration) *Listener {
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	return &Listener{recorder: rec, transcriber: tr, hotkey: hk, busy: busy, poll: poll}
}

// Run blocks until ctx is cancelled. Each completed utterance is passed
// to handle; handle runs on the listener goroutine, so a slow handler
// naturally pauses listening.
func (l *Listener) Run(ctx context.Context, handle func(text string)) {
	logging.Voice("hotkey listener started")
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	recording := false
	for {
		select {
		case <-ctx.Done():
			if recording {
				discardRecording(l.recorder)
			}
			return
		case <-ticker.C:
		}

		if l.busy() {
			// Echo prevention: drop anything captured so far.
			if recording {
				discardRecording(l.recorder)
				recording = false
				logging.VoiceDebug("discarded recording, agent busy")
			}
			continue
		}

		switch {
		case l.hotkey.Pressed() && !recording:
			if err := l.recorder.Start(); err != nil {
				logging.VoiceWarn("recorder start failed: %v", err)
				continue
			}
			recording = true
			logging.Voice("listening")
		case l.hotkey.Pressed() && recording:
			if err := l.recorder.Chunk(); err != nil {
				logging.VoiceWarn("recorder chunk failed: %v", err)
			}
		case !l.hotkey.Pressed() && recording:
			recording = false
			audioPath, err := l.recorder.Stop()
			if err != nil || audioPath == "" {
				logging.VoiceDebug("recording discarded: %v", err)
				continue
			}
			l.processCommand(audioPath, handle)
		}
	}
}

// discardRecording stops an in-flight recording and removes any audio
// file it produced.
func discardRecording(rec Recorder) {
	if path, _ := rec.Stop(); path != "" {
		os.Remove(path)
	}
}

func (l *Listener) processCommand(audioPath string, handle func(text string)) {
	defer os.Remove(audioPath)
	// Re-check just before transcribing: the agent may have started a
	// task while the key was held.
	if l.busy() {
		logging.Voice("brain busy, echo rejected")
		return
	}
	text, err := l.transcriber.Transcribe(audioPath)
	if err != nil {
		logging.VoiceWarn("transcription failed: %v", err)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		logging.VoiceDebug("no speech detected")
		return
	}
	logging.Voice("heard: %q", text)
	handle(text)
}
