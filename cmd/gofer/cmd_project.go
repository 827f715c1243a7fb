package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects registered with a running gofer daemon",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a project root with the daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectAdd,
}

var projectActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Activate a registered project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectActivate,
}

func init() {
	projectCmd.AddCommand(projectAddCmd, projectActivateCmd)
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	root, err := resolveWorkspace()
	if err != nil {
		return err
	}
	logger.Info("registering project", zap.String("path", args[0]))
	result, err := call(root, "register", map[string]any{"root": args[0]})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runProjectActivate(cmd *cobra.Command, args []string) error {
	root, err := resolveWorkspace()
	if err != nil {
		return err
	}
	logger.Info("activating project", zap.String("id", args[0]))
	result, err := call(root, "activate", map[string]any{"id": args[0]})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}
