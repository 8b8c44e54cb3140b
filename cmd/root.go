package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwbudde/greywolf/internal/config"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configPath string
	logger     *slog.Logger

	// cfg is loaded before any subcommand runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "greywolf",
	Short: "Grey Wolf Optimizer for box-constrained minimization",
	Long: `greywolf minimizes continuous functions inside a search box with the
Grey Wolf Optimizer. It runs single optimizations and benchmark trials from
the command line, or serves optimization jobs over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Logging.Level = logLevel
		}
		cfg = loaded

		opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (GREYWOLF_* environment variables override it)")
}

// settings returns the loaded configuration, or the defaults when a command
// function is called without going through the root command.
func settings() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

// interruptContext is cancelled on Ctrl-C.
func interruptContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := context.Background()
	if cmd != nil && cmd.Context() != nil {
		parent = cmd.Context()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
