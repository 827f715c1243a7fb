package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var callArgsJSON string

var callCmd = &cobra.Command{
	Use:   "call <verb>",
	Short: "Invoke a single tool verb against the running daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  runCall,
}

func init() {
	callCmd.Flags().StringVar(&callArgsJSON, "args", "{}", "JSON object of tool arguments")
}

func runCall(cmd *cobra.Command, args []string) error {
	root, err := resolveWorkspace()
	if err != nil {
		return err
	}

	var toolArgs map[string]any
	if err := json.Unmarshal([]byte(callArgsJSON), &toolArgs); err != nil {
		return fmt.Errorf("parse --args as JSON: %w", err)
	}

	logger.Info("invoking tool verb", zap.String("verb", args[0]))
	result, err := call(root, "tools/call", map[string]any{"name": args[0], "arguments": toolArgs})
	if err != nil {
		return err
	}
	return printJSON(result)
}
