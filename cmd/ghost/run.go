package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ghost/internal/brain"
	"ghost/internal/config"
	"ghost/internal/embedding"
	"ghost/internal/engine"
	"ghost/internal/kernel"
	"ghost/internal/llm"
	"ghost/internal/logging"
	"ghost/internal/memory"
	"ghost/internal/sentinel"
	"ghost/internal/voice"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	ghostStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// app holds the wired subsystems for one Ghost process.
type app struct {
	cfg      config.Config
	planner  *brain.Planner
	engine   *engine.Engine
	body     sentinel.Sentinel
	listener *voice.Listener
}

// bootstrap wires the full pipeline inside the workspace sandbox. The
// working directory is changed to the workspace so every relative path,
// including the file-action sandbox, resolves against it.
func bootstrap(ctx context.Context) (*app, error) {
	if err := os.Chdir(workspace); err != nil {
		return nil, fmt.Errorf("enter workspace: %w", err)
	}
	ws, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	if err := logging.Initialize(ws); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	cfg, err := config.Load(ws)
	if err != nil {
		logger.Warn("config problem, using defaults", zap.Error(err))
	}
	logging.Boot("ghost %s (%s) initializing", cfg.System.Version, cfg.System.Environment)

	token, err := config.LoadOrGenerateToken(ws)
	if err != nil {
		return nil, fmt.Errorf("auth token: %w", err)
	}

	kernelClient := kernel.NewClient(cfg.Network.KernelHost, cfg.Network.KernelPort, token, cfg.KernelTimeout())
	fmt.Println(okStyle.Render(fmt.Sprintf("[GHOST] Kernel configured at %s:%d (transactional mode)",
		cfg.Network.KernelHost, cfg.Network.KernelPort)))

	model := llm.NewOllamaClient(cfg.Network.OllamaURL, cfg.Network.OllamaModel)
	model.Warmup(ctx)
	fmt.Println(okStyle.Render("[GHOST] Brain online: " + cfg.Network.OllamaModel))

	embedder := embedding.NewOllamaEngine(cfg.Network.OllamaURL, cfg.Network.EmbeddingModel)

	facts := memory.NewStore(filepath.Join(ws, "data", "user_profile.json"))
	identity := brain.NewIdentityStore(filepath.Join(ws, "persona.yaml"))
	if err := identity.Watch(ctx); err != nil {
		logging.BrainWarn("persona hot-reload disabled: %v", err)
	}

	planner := brain.NewPlanner(kernelClient, model, embedder, facts, identity)

	body, err := sentinel.NewBridge(cfg.Sentinel.Bin, cfg.SentinelTimeout())
	if err != nil {
		return nil, fmt.Errorf("start sentinel: %w", err)
	}
	if err := body.Wake(ctx); err != nil {
		fmt.Println(errStyle.Render("[GHOST] Failed to connect to Sentinel: " + err.Error()))
		logging.ExecError("sentinel wake failed: %v", err)
	} else {
		fmt.Println(okStyle.Render("[GHOST] Vision & Hands connected."))
	}

	var speaker voice.Speaker
	if cfg.Voice.Enabled && !noVoice {
		speaker = voice.NewPiperEngine(cfg.Voice.PiperBin, cfg.Voice.PiperModel)
		fmt.Println(okStyle.Render("[GHOST] Voice online (Piper TTS)."))
	}

	exec := engine.New(planner, body, kernelClient, speaker, engine.Config{
		RetryLimit:   cfg.Vision.RetryLimit,
		RetryDelay:   cfg.RetryDelay(),
		ActionPacing: cfg.ActionPacing(),
	})

	a := &app{cfg: cfg, planner: planner, engine: exec, body: body}
	if cfg.Voice.Enabled && !noVoice {
		// Recorder and transcriber are stubs until real capture hardware
		// is wired in; the listener loop and echo rejection still run.
		a.listener = voice.NewListener(
			voice.StubRecorder{}, voice.StubTranscriber{}, voice.StubHotkey{},
			exec.Busy, cfg.VoicePoll(),
		)
	}
	return a, nil
}

func (a *app) shutdown() {
	fmt.Println(warnStyle.Render("\n[GHOST] Shutting down..."))
	if err := a.body.Kill(); err != nil {
		logging.ExecWarn("sentinel termination: %v", err)
	}
	logging.Boot("ghost shutdown complete")
	logging.CloseAll()
}

// runInteractive is the main REPL: typed commands plus, when enabled,
// the push-to-talk listener in the background.
func runInteractive(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.shutdown()

	fmt.Println(okStyle.Render("\n[GHOST] Ghost is now active."))
	fmt.Println(ghostStyle.Render("[GHOST] Type your command, 'scan' to refresh vision, or 'exit' to quit."))

	g, ctx := errgroup.WithContext(ctx)
	if a.listener != nil {
		g.Go(func() error {
			a.listener.Run(ctx, func(text string) {
				if err := a.engine.ExecuteIntent(ctx, text); err != nil {
					fmt.Println(errStyle.Render("[GHOST] " + err.Error()))
				}
			})
			return nil
		})
	}

	g.Go(func() error {
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print(promptStyle.Render("YOU > "))
			if !scanner.Scan() {
				stop()
				return scanner.Err()
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}
			switch {
			case strings.EqualFold(input, "exit"):
				stop()
				return nil
			case strings.EqualFold(input, "scan"):
				a.manualScan(ctx)
			case strings.HasPrefix(strings.ToLower(input), "debug:"):
				a.handleDebug(input)
			default:
				if err := a.engine.ExecuteIntent(ctx, input); err != nil {
					fmt.Println(errStyle.Render("[GHOST] " + err.Error()))
				}
			}
		}
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return nil // clean signal-driven shutdown
	}
	return err
}

// manualScan refreshes the vision slot outside of a plan.
func (a *app) manualScan(ctx context.Context) {
	fmt.Println(ghostStyle.Render("[EYES] Scanning..."))
	tree, err := a.body.ScanFullTree(ctx)
	if err != nil {
		fmt.Println(errStyle.Render("[EYES] Scan failed: " + err.Error()))
		return
	}
	a.planner.UpdateVision(tree)
	if name, ok := tree["active_window"].(string); ok {
		fmt.Println(okStyle.Render("[EYES] Active window: " + name))
	} else {
		fmt.Println(okStyle.Render(fmt.Sprintf("[EYES] Snapshot captured (%d top-level keys)", len(tree))))
	}
}

// handleDebug serves the debug:* inspection commands.
func (a *app) handleDebug(input string) {
	switch strings.ToLower(strings.TrimPrefix(input, "debug:")) {
	case "facts":
		facts, err := a.planner.Facts()
		if err != nil {
			fmt.Println(errStyle.Render("[DEBUG] " + err.Error()))
			return
		}
		if len(facts) == 0 {
			fmt.Println(ghostStyle.Render("[DEBUG] No facts stored yet."))
			return
		}
		for key, f := range facts {
			fmt.Printf("  %s = %s (updated %d times)\n", key, f.Value, f.UpdatedCount)
		}
	case "identity":
		id := a.planner.Identity()
		fmt.Printf("  name: %s\n  voice: %s\n", id.Name, id.VoiceStyle)
	case "config":
		fmt.Printf("  kernel: %s:%d\n  model: %s\n  retry: %d x %s\n",
			a.cfg.Network.KernelHost, a.cfg.Network.KernelPort,
			a.cfg.Network.OllamaModel, a.cfg.Vision.RetryLimit, a.cfg.RetryDelay())
	default:
		fmt.Println(warnStyle.Render("[DEBUG] Unknown debug command. Try debug:facts, debug:identity, debug:config"))
	}
}

func runUtterance(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.shutdown()

	return a.engine.ExecuteIntent(ctx, strings.Join(args, " "))
}

func showToken(cmd *cobra.Command, args []string) error {
	token, err := config.LoadOrGenerateToken(workspace)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
