package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gofer-dev/gofer/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gofer daemon, listening on its JSON-RPC stream socket",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := loadApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting gofer daemon", zap.String("socket", app.Context.SocketPath), zap.String("workspace", app.Root))
	logging.Boot("gofer serving on %s (workspace=%s)", app.Context.SocketPath, app.Root)
	if err := app.Context.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("gofer daemon stopped")
	return nil
}
