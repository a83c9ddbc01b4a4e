// Command churnscope evaluates churn classifiers from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/paveg/churnscope/internal/config"
	"github.com/spf13/cobra"
)

// app holds state shared by every subcommand once the root command's
// pre-run hook has loaded configuration.
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "churnscope",
		Short: "Evaluate bank customer churn classifiers",
		Long: `churnscope scores held-out customers with a fitted churn model and reports
the confusion matrix, precision and recall at a cutoff, the ROC curve with
its AUC, and the cutoff that maximizes Youden's index.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (.yaml, .yml or .json)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "console", "log format (console, json)")

	rootCmd.AddCommand(a.evaluateCmd())
	rootCmd.AddCommand(a.runCmd())
	rootCmd.AddCommand(a.exploreCmd())
	rootCmd.AddCommand(a.historyCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	if a.cfgFile != "" {
		loaded, err := config.LoadFromFile(a.cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	a.cfg = config.LoadFromEnv(cfg)

	level := a.logLevel
	if a.cfg.VerboseLogging && !cmd.Flags().Changed("log-level") {
		level = "debug"
	}
	logger, err := setupLogging(level, a.logFormat, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.logger = logger
	slog.SetDefault(logger)
	return nil
}

func setupLogging(level, format string, w io.Writer) (*slog.Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	opts := &slog.HandlerOptions{Level: slogLevel}

	var handler slog.Handler
	switch format {
	case "console":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	return slog.New(handler), nil
}
