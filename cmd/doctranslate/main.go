package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-doctranslate/internal/apierr"
	"github.com/alnah/go-doctranslate/internal/chunk"
	"github.com/alnah/go-doctranslate/internal/cli"
	"github.com/alnah/go-doctranslate/internal/config"
	"github.com/alnah/go-doctranslate/internal/document"
	"github.com/alnah/go-doctranslate/internal/export"
	"github.com/alnah/go-doctranslate/internal/interrupt"
	"github.com/alnah/go-doctranslate/internal/lang"
	"github.com/alnah/go-doctranslate/internal/logger"
	"github.com/alnah/go-doctranslate/internal/pipeline"
	"github.com/alnah/go-doctranslate/internal/transform"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitProvider   = 5
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// SIGINT is left to the per-run interrupt handler, which drains first.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	env := cli.DefaultEnv()
	rootCmd := newRootCmd(env)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// newRootCmd wires every subcommand onto env.
func newRootCmd(env *cli.Env) *cobra.Command {
	var (
		logLevel string
		logJSON  bool
	)

	rootCmd := &cobra.Command{
		Use:   "doctranslate",
		Short: "Translate and summarize documents with a language model",
		Long: `Translate and summarize PDF, DOCX and text documents with an
OpenAI-compatible model.

Documents are split into chunks and token-budgeted parts, processed in
parallel and reassembled in order. Results are cached per part, so an
interrupted run resumes where it stopped.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := resolveLogLevel(env, cmd.Flags().Changed("log-level"), logLevel)
			if err != nil {
				return err
			}
			log := logger.NewLogger(&logger.Config{
				Level:      level,
				Output:     env.Stderr,
				JSON:       logJSON,
				TimeFormat: "15:04:05",
			})
			env.Logger = log
			cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, disabled (default: config log-level)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(cli.TranslateCmd(env))
	rootCmd.AddCommand(cli.SummarizeCmd(env))
	rootCmd.AddCommand(cli.RunCmd(env))
	rootCmd.AddCommand(cli.EmailCmd(env))
	rootCmd.AddCommand(cli.ScoreCmd(env))
	rootCmd.AddCommand(cli.FingerprintCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	return rootCmd
}

// resolveLogLevel picks the flag value when set, else the configured level.
// A broken config file must not block "config set", so load errors fall
// back to the default level and are reported by the command itself.
func resolveLogLevel(env *cli.Env, flagSet bool, flagValue string) (logger.LogLevel, error) {
	if flagSet {
		level, err := logger.ParseLevel(flagValue)
		if err != nil {
			return "", fmt.Errorf("%w: %w", config.ErrInvalidValue, err)
		}
		return level, nil
	}
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return logger.InfoLevel, nil
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return logger.InfoLevel, nil
	}
	return level, nil
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Interrupts: a drained run or an aborted context.
	if errors.Is(err, context.Canceled) || errors.Is(err, pipeline.ErrDrained) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	// Cobra doesn't expose typed errors, so we check for known error message patterns.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, cli.ErrAPIKeyMissing) || errors.Is(err, chunk.ErrTokenizer) ||
		errors.Is(err, cli.ErrCacheUnavailable) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4).
	if errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, cli.ErrEmptyDocument) ||
		errors.Is(err, cli.ErrStdoutFormat) || errors.Is(err, document.ErrUnsupportedFormat) ||
		errors.Is(err, document.ErrExtraction) || errors.Is(err, chunk.ErrInvalidBudget) ||
		errors.Is(err, lang.ErrInvalid) || errors.Is(err, transform.ErrUnknownMode) ||
		errors.Is(err, transform.ErrUnknownTone) || errors.Is(err, transform.ErrEmptyInput) ||
		errors.Is(err, export.ErrUnknownFormat) || errors.Is(err, export.ErrOutputExists) ||
		errors.Is(err, config.ErrInvalidKey) || errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrNotDirectory) || errors.Is(err, config.ErrNotWritable) {
		return ExitValidation
	}

	// Provider errors (ExitProvider = 5).
	if apierr.IsProvider(err) {
		return ExitProvider
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// These patterns are stable across Cobra versions (tested with v1.8+).
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
