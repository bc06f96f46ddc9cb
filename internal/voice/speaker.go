// Package voice holds the spoken I/O path: Piper text-to-speech on the
// way out, push-to-talk recording plus Whisper transcription on the way
// in. Everything here is best effort; a broken audio stack must never
// take down the agent.
package voice

import (
	"os/exec"
	"strings"
	"time"

	"ghost/internal/logging"
)

// Speaker turns text into audible speech.
type Speaker interface {
	Say(text string)
}

// PiperEngine shells out to the piper binary, piping the text to its
// stdin and playing the resulting wav asynchronously.
type PiperEngine struct {
	binPath   string
	modelPath string
	outFile   string

	// play launches the wav player. Swappable for tests.
	play func(wavPath string)
}

func NewPiperEngine(binPath, modelPath string) *PiperEngine {
	return &PiperEngine{
		binPath:   binPath,
		modelPath: modelPath,
		outFile:   "voice_out.wav",
		play:      playAsync,
	}
}

// Say synthesizes and plays text. Errors are logged, never returned; a
// silent ghost is better than a dead one.
func (p *PiperEngine) Say(text string) {
	text = strings.ReplaceAll(text, "\"", "")
	text = strings.ReplaceAll(text, "\n", " ")
	if strings.TrimSpace(text) == "" {
		return
	}

	cmd := exec.Command(p.binPath, "--model", p.modelPath, "--output_file", p.outFile)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		logging.VoiceWarn("piper synthesis failed: %v", err)
		return
	}
	p.play(p.outFile)
}

func playAsync(wavPath string) {
	cmd := exec.Command("aplay", "-q", wavPath)
	if err := cmd.Start(); err != nil {
		logging.VoiceWarn("wav playback failed: %v", err)
		return
	}
	go cmd.Wait()
}

// EstimateSpeechDuration approximates how long spoken text takes to play
// at roughly 12 characters per second, plus a fixed buffer so the mic
// does not reopen mid-sentence.
func EstimateSpeechDuration(text string) time.Duration {
	seconds := float64(len(text))/12.0 + 1.5
	return time.Duration(seconds * float64(time.Second))
}
