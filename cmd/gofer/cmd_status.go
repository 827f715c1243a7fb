package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registered projects and daemon health",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	root, err := resolveWorkspace()
	if err != nil {
		return err
	}
	logger.Debug("querying daemon status")
	result, err := call(root, "status", nil)
	if err != nil {
		return err
	}
	return printJSON(result)
}
