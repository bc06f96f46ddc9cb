// Package engine executes validated plans: it serializes utterances
// through a single execution slot, gates every physical action through
// the Kernel's permission check with focus verification, and dispatches
// approved actions to the Sentinel body or the librarian.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"ghost/internal/action"
	"ghost/internal/kernel"
	"ghost/internal/librarian"
	"ghost/internal/logging"
	"ghost/internal/sentinel"
	"ghost/internal/voice"
)

// ErrBusy is returned when an utterance arrives while another one is
// still being processed. Callers drop the input, they do not queue it.
var ErrBusy = errors.New("engine busy")

// Brain is the slice of the planner the engine needs.
type Brain interface {
	Decide(ctx context.Context, userInput string) (action.Plan, error)
	Recover(ctx context.Context, originalIntent, failureReason string) (action.Plan, error)
	UpdateVision(data map[string]any)
	UpdateFile(data map[string]any)
}

// Gatekeeper is the slice of the Kernel client the engine needs.
type Gatekeeper interface {
	RequestPermission(ctx context.Context, req kernel.PermissionRequest) (kernel.PermissionResponse, error)
	InvalidateReflex(ctx context.Context, intent string)
}

// Config tunes the engine's retry and pacing behavior.
type Config struct {
	RetryLimit   int           // focus verification attempts
	RetryDelay   time.Duration // fixed interval between attempts
	ActionPacing time.Duration // pause between consecutive actions
}

// Engine is the executor. One utterance at a time: its execution slot is
// try-acquired, never waited on.
type Engine struct {
	brain      Brain
	body       sentinel.Sentinel
	gatekeeper Gatekeeper
	speaker    voice.Speaker
	cfg        Config

	slot   *semaphore.Weighted
	held   atomic.Bool
	silent atomic.Bool

	// sleep is swappable so tests do not wait out pacing and retries.
	sleep func(time.Duration)
}

func New(b Brain, body sentinel.Sentinel, gk Gatekeeper, speaker voice.Speaker, cfg Config) *Engine {
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 50
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	return &Engine{
		brain:      b,
		body:       body,
		gatekeeper: gk,
		speaker:    speaker,
		cfg:        cfg,
		slot:       semaphore.NewWeighted(1),
		sleep:      time.Sleep,
	}
}

// Busy reports whether an utterance is currently being processed. The
// voice listener polls this to keep the mic closed while Ghost acts.
func (e *Engine) Busy() bool { return e.held.Load() }

// ExecuteIntent runs one utterance end to end: plan, then execute each
// action in order. A second utterance arriving mid-flight is rejected
// with ErrBusy.
func (e *Engine) ExecuteIntent(ctx context.Context, userInput string) error {
	if !e.slot.TryAcquire(1) {
		logging.Exec("brain busy, input rejected: %q", userInput)
		return ErrBusy
	}
	e.held.Store(true)
	defer func() {
		e.held.Store(false)
		e.slot.Release(1)
	}()

	traceID := uuid.NewString()[:8]
	logging.Exec("[%s] thinking: %q", traceID, userInput)

	plan, err := e.brain.Decide(ctx, userInput)
	if err != nil {
		logging.ExecError("[%s] planning failed: %v", traceID, err)
		return err
	}
	logging.Exec("[%s] intent: %s (%d actions)", traceID, plan.Intent, len(plan.Actions))

	e.applyMuteToggle(plan.Intent)

	return e.runPlan(ctx, plan, userInput, traceID, true)
}

// applyMuteToggle flips silent mode when the intent asks for it.
func (e *Engine) applyMuteToggle(intent string) {
	lowered := strings.ToLower(intent)
	switch {
	case strings.Contains(lowered, "unmute"):
		e.silent.Store(false)
		logging.Exec("voice output unmuted")
	case strings.Contains(lowered, "mute"):
		e.silent.Store(true)
		logging.Exec("voice output muted")
	}
}

// runPlan executes a plan's actions sequentially. allowRecovery permits
// one recovery pass after a focus timeout; the recovery plan itself runs
// with recovery disabled so failures cannot cascade.
func (e *Engine) runPlan(ctx context.Context, plan action.Plan, userInput, traceID string, allowRecovery bool) error {
	expectedWindow := ""
	if allowRecovery {
		expectedWindow = expectedWindowFor(plan.Intent)
	}

	for i, act := range plan.Actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !act.IsPhysical() {
			// Mental actions are absorbed by the planner; one slipping
			// through is a bug upstream, skip it.
			logging.ExecWarn("[%s] skipping mental action in executor: %s", traceID, act.Type)
			continue
		}

		switch act.Type {
		case action.KindSpeak:
			e.speak(act.Text)
		case action.KindWait:
			d := 1.0
			if act.Duration != nil {
				d = *act.Duration
			}
			e.sleep(time.Duration(d * float64(time.Second)))
		default:
			verdict := e.requestPermission(ctx, plan.Intent, act, expectedWindow, traceID)
			if !verdict.Approved {
				if verdict.ErrorCode == kernel.ErrCodeFocusTimeout && allowRecovery {
					return e.recover(ctx, userInput, plan.Intent, verdict.Reason, traceID)
				}
				logging.ExecWarn("[%s] action %d blocked: %s", traceID, i, verdict.Reason)
				return fmt.Errorf("kernel blocked %s: %s", act.Type, verdict.Reason)
			}
			if err := e.dispatch(ctx, act); err != nil {
				logging.ExecError("[%s] action %d (%s) failed: %v", traceID, i, act.Type, err)
				return err
			}
		}

		if e.cfg.ActionPacing > 0 && i < len(plan.Actions)-1 {
			e.sleep(e.cfg.ActionPacing)
		}
	}
	return nil
}

func (e *Engine) speak(text string) {
	logging.Exec("ghost says: %s", text)
	if e.silent.Load() || e.speaker == nil {
		return
	}
	e.speaker.Say(text)
	// Echo prevention: wait out the playback before the next action so
	// the mic never hears Ghost's own voice.
	e.sleep(voice.EstimateSpeechDuration(text))
}

// dispatch hands one approved action to the body or the librarian.
// Librarian results are fed back into the planner's file context.
func (e *Engine) dispatch(ctx context.Context, act action.Action) error {
	switch act.Type {
	case action.KindKey:
		return e.body.PressKey(ctx, act.Key)
	case action.KindType:
		return e.body.TypeText(ctx, act.Text)
	case action.KindClick:
		var x, y float64
		if act.X != nil {
			x = *act.X
		}
		if act.Y != nil {
			y = *act.Y
		}
		return e.body.Click(ctx, x, y)
	case action.KindScan:
		tree, err := e.body.ScanFullTree(ctx)
		if err != nil {
			return err
		}
		e.brain.UpdateVision(tree)
		return nil
	case action.KindList:
		listing, err := librarian.List(act.Path)
		if err != nil {
			return err
		}
		e.brain.UpdateFile(map[string]any{"operation": "LIST", "path": act.Path, "result": listing})
		return nil
	case action.KindRead:
		content, err := librarian.Read(act.Path)
		if err != nil {
			return err
		}
		e.brain.UpdateFile(map[string]any{"operation": "READ", "path": act.Path, "result": content})
		return nil
	case action.KindSearch:
		matches, err := librarian.Find(act.Pattern, act.Directory)
		if err != nil {
			return err
		}
		e.brain.UpdateFile(map[string]any{"operation": "SEARCH", "pattern": act.Pattern, "result": matches})
		return nil
	case action.KindWrite:
		var content string
		if act.Content != nil {
			content = *act.Content
		}
		return librarian.Write(act.Path, content)
	case action.KindEdit:
		var replace string
		if act.Replace != nil {
			replace = *act.Replace
		}
		return librarian.Edit(act.Path, act.Find, replace)
	default:
		return fmt.Errorf("no executor for action type %s", act.Type)
	}
}

// requestPermission asks the Kernel to approve one action, retrying at a
// fixed interval while the Kernel reports a focus mismatch. An
// unreachable Kernel fails open with a warning: Ghost keeps working when
// its safety service is down, it just says so.
func (e *Engine) requestPermission(ctx context.Context, intent string, act action.Action, expectedWindow, traceID string) kernel.PermissionResponse {
	req := kernel.PermissionRequest{
		ID:      uuid.NewString(),
		Intent:  intent,
		TraceID: traceID,
		Actions: []kernel.PermissionAction{{
			Type:    string(act.Type),
			Payload: act.PayloadFields(),
		}},
		ExpectedWindow: expectedWindow,
	}

	for attempt := 0; attempt < e.cfg.RetryLimit; attempt++ {
		resp, err := e.gatekeeper.RequestPermission(ctx, req)
		if err != nil {
			if attempt == 0 {
				logging.ExecWarn("[%s] kernel unavailable, proceeding without safety checks", traceID)
			}
			return kernel.PermissionResponse{ID: req.ID, Approved: true, Reason: "Kernel unavailable"}
		}

		if resp.ErrorCode == kernel.ErrCodeFocusMismatch {
			if attempt == 0 {
				logging.Exec("[%s] waiting for focus: %q", traceID, expectedWindow)
			}
			if attempt > 0 && attempt%10 == 0 {
				elapsed := time.Duration(attempt) * e.cfg.RetryDelay
				logging.Exec("[%s] still waiting for focus (%.1fs elapsed)", traceID, elapsed.Seconds())
			}
			e.sleep(e.cfg.RetryDelay)
			continue
		}

		if resp.Approved {
			if expectedWindow != "" && attempt > 0 {
				elapsed := time.Duration(attempt) * e.cfg.RetryDelay
				logging.Exec("[%s] focus confirmed: %q after %.1fs", traceID, expectedWindow, elapsed.Seconds())
			}
			if resp.TrustScore > 0 {
				logging.ExecDebug("[%s] trust score: %.0f", traceID, resp.TrustScore)
			}
		}
		return resp
	}

	logging.ExecWarn("[%s] focus timeout: %q never appeared", traceID, expectedWindow)
	return kernel.PermissionResponse{
		ID:        req.ID,
		Approved:  false,
		Reason:    fmt.Sprintf("Focus verification timeout: %q not detected", expectedWindow),
		ErrorCode: kernel.ErrCodeFocusTimeout,
	}
}

// recover runs the one-shot Plan B after a focus timeout: drop the now
// distrusted reflex, ask the planner for a corrective sequence, execute
// it without further recovery.
func (e *Engine) recover(ctx context.Context, userInput, intent, reason, traceID string) error {
	logging.ExecWarn("[%s] execution failed (%s), attempting recovery", traceID, reason)
	e.gatekeeper.InvalidateReflex(ctx, userInput)

	plan, err := e.brain.Recover(ctx, userInput, reason)
	if err != nil {
		return fmt.Errorf("recovery unavailable after %q: %w", reason, err)
	}
	logging.Exec("[%s] recovery plan: %s (%d actions)", traceID, plan.Intent, len(plan.Actions))
	return e.runPlan(ctx, plan, userInput, traceID, false)
}

var wordRe = regexp.MustCompile(`[a-z]+`)

// windowKeywords maps intent words to the window title the Kernel should
// verify focus against.
var windowKeywords = map[string]string{
	"notepad":    "Notepad",
	"chrome":     "Chrome",
	"browser":    "Chrome",
	"firefox":    "Firefox",
	"edge":       "Edge",
	"explorer":   "File Explorer",
	"calculator": "Calculator",
	"terminal":   "Terminal",
	"cmd":        "Command Prompt",
	"powershell": "PowerShell",
	"vscode":     "Visual Studio Code",
	"code":       "Visual Studio Code",
}

// expectedWindowFor derives the focus-verification target from the
// intent. Launch commands are exempt: focus cannot be enforced on an app
// that has not opened yet.
func expectedWindowFor(intent string) string {
	lowered := strings.ToLower(intent)
	for _, prefix := range []string{"open", "launch", "start", "run"} {
		if strings.HasPrefix(lowered, prefix) {
			return ""
		}
	}
	for _, word := range wordRe.FindAllString(lowered, -1) {
		if window, ok := windowKeywords[word]; ok {
			return window
		}
		if word == "desktop" || word == "start" {
			return "Desktop"
		}
	}
	return ""
}
