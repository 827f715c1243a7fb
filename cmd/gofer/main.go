// Package main is the gofer CLI entry point and command registration hub.
// Every command here only loads config, dials or listens on the stream
// socket, and speaks the JSON-RPC protocol — business logic lives in
// internal/, not here.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	workspace  string
	verbose    bool

	// logger is the CLI's structured output logger, separate from
	// internal/logging's file-based daemon telemetry: it's what a human
	// running `gofer status` or `gofer call` sees on stderr.
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gofer",
	Short: "gofer - project-aware code-intelligence daemon",
	Long: `gofer is a long-running, project-aware code-intelligence daemon.
It serves hybrid dense+keyword search, an edit plane with transactions
and a trash store, and sandboxed patch verification over a local JSON-RPC
stream socket.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to gofer config YAML (default: <workspace>/.gofer/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level CLI logging")

	rootCmd.AddCommand(
		serveCmd,
		projectCmd,
		reindexCmd,
		statusCmd,
		callCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
