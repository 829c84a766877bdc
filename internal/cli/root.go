// Package cli defines the command-line interface for lumen.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/phanxgames/lumen/internal/logging"
)

const (
	// defaultConfigPath is the default path to the page manifest.
	defaultConfigPath = "lumen.yaml"
)

// Options stores global CLI options shared between commands.
type Options struct {
	ConfigPath string
	LogLevel   logging.Level
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	return execute(args, logger, os.Stdout)
}

func execute(args []string, logger *slog.Logger, out io.Writer) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts := &Options{
		ConfigPath: defaultConfigPath,
		LogLevel:   logging.LevelInfo,
	}

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)

	return rootCmd.Execute()
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lumen",
		Short:         "lumen drives declarative scroll and pointer animations",
		Long:          "lumen loads a page manifest (elements, reveals, timelines, toggles, cart and particles), simulates it against a virtual clock or plays it in a window.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.ParseLevel(cmd.Flag("log-level").Value.String())
			opts.LogLevel = level
			logger = logging.NewLogger(cmd.ErrOrStderr(), level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath, "Path to the page manifest")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newCheckCommand(opts),
		newPlanCommand(opts),
		newSampleCommand(opts),
		newSimulateCommand(opts),
		newPlayCommand(opts),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
