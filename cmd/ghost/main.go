package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose   bool
	workspace string
	noVoice   bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ghost",
	Short: "Ghost - Sovereign Desktop Agent",
	Long: `Ghost is a voice-enabled digital proxy that lives on your machine.

It translates natural language intent into validated desktop actions,
checked against a local safety Kernel before anything touches the
keyboard, mouse or filesystem. Everything runs locally: the LLM via
Ollama, TTS via Piper, memory on disk and in the Kernel.

Run without arguments to start the interactive loop.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
}

// runCmd executes a single utterance and exits
var runCmd = &cobra.Command{
	Use:   "run [utterance]",
	Short: "Execute a single utterance through the full pipeline",
	Long: `Processes one natural language command end to end:
  1. Reflex: check the Kernel's cached-plan store
  2. Plan: assemble context and ask the local LLM for an action plan
  3. Validate: every action must pass the whitelist validator
  4. Act: execute with per-action Kernel permission checks`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUtterance,
}

// tokenCmd prints the shared Kernel auth token, generating it on first use
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show (or generate) the Kernel authentication token",
	RunE:  showToken,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory (sandbox root)")
	rootCmd.PersistentFlags().BoolVar(&noVoice, "no-voice", false, "disable TTS and push-to-talk")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
