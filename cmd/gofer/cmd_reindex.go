package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Ask the daemon to walk the workspace tree and refresh its index",
	RunE:  runReindex,
}

func runReindex(cmd *cobra.Command, args []string) error {
	root, err := resolveWorkspace()
	if err != nil {
		return err
	}
	logger.Info("requesting reindex", zap.String("workspace", root))
	result, err := call(root, "tools/call", map[string]any{"name": "reindex", "arguments": map[string]any{}})
	if err != nil {
		return err
	}
	return printJSON(result)
}
