package shell

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofer-dev/gofer/internal/logging"
	"github.com/gofer-dev/gofer/internal/tools"
)

// GitDiffTool returns a tool for viewing the working tree diff.
func GitDiffTool() *tools.Tool {
	return &tools.Tool{
		Name:        "git_diff",
		Description: "Show the git diff for a path or the whole working tree",
		Category:    tools.CategoryGit,
		Priority:    70,
		Execute:     executeGitDiff,
		Schema: tools.ToolSchema{
			Required: []string{},
			Properties: map[string]tools.Property{
				"working_dir": {
					Type:        "string",
					Description: "Repository directory (default: current directory)",
				},
				"path": {
					Type:        "string",
					Description: "Restrict the diff to this file or directory",
				},
				"staged": {
					Type:        "boolean",
					Description: "Show the staged (--cached) diff instead of the working tree",
					Default:     false,
				},
				"ref": {
					Type:        "string",
					Description: "Diff against this ref instead of HEAD",
				},
			},
		},
	}
}

func executeGitDiff(ctx context.Context, args map[string]any) (any, error) {
	workingDir, _ := args["working_dir"].(string)
	if workingDir == "" {
		workingDir = "."
	}

	gitArgs := []string{"diff"}
	if staged, ok := args["staged"].(bool); ok && staged {
		gitArgs = append(gitArgs, "--cached")
	}
	if ref, ok := args["ref"].(string); ok && ref != "" {
		gitArgs = append(gitArgs, ref)
	}
	if path, ok := args["path"].(string); ok && path != "" {
		gitArgs = append(gitArgs, "--", path)
	}

	logging.ToolsDebug("git_diff: dir=%s args=%v", workingDir, gitArgs)
	return runGit(ctx, workingDir, gitArgs, 30*time.Second)
}

// GitLogTool returns a tool for viewing commit history.
func GitLogTool() *tools.Tool {
	return &tools.Tool{
		Name:        "git_log",
		Description: "Show recent commit history for a path or the whole repository",
		Category:    tools.CategoryGit,
		Priority:    65,
		Execute:     executeGitLog,
		Schema: tools.ToolSchema{
			Required: []string{},
			Properties: map[string]tools.Property{
				"working_dir": {
					Type:        "string",
					Description: "Repository directory (default: current directory)",
				},
				"path": {
					Type:        "string",
					Description: "Restrict history to this file or directory",
				},
				"max_count": {
					Type:        "integer",
					Description: "Maximum number of commits to return (default: 20)",
					Default:     20,
				},
			},
		},
	}
}

func executeGitLog(ctx context.Context, args map[string]any) (any, error) {
	workingDir, _ := args["working_dir"].(string)
	if workingDir == "" {
		workingDir = "."
	}

	maxCount := 20
	if mc, ok := tools.ArgInt(args, "max_count"); ok && mc > 0 {
		maxCount = mc
	}

	gitArgs := []string{"log", fmt.Sprintf("--max-count=%d", maxCount), "--pretty=format:%H\t%an\t%ad\t%s", "--date=iso-strict"}
	if path, ok := args["path"].(string); ok && path != "" {
		gitArgs = append(gitArgs, "--", path)
	}

	logging.ToolsDebug("git_log: dir=%s args=%v", workingDir, gitArgs)
	return runGit(ctx, workingDir, gitArgs, 30*time.Second)
}

// GitOperationTool returns a tool for a small set of explicitly allow-listed
// write operations (add, commit, checkout, branch, reset, stash). It never runs push,
// fetch, or remote-touching subcommands; those stay out of the verb surface
// entirely.
func GitOperationTool() *tools.Tool {
	return &tools.Tool{
		Name:        "git_operation",
		Description: "Run an allow-listed local git operation (add, commit, checkout, branch, reset, stash)",
		Category:    tools.CategoryGit,
		Priority:    40,
		Heavy:       true,
		Execute:     executeGitOperation,
		Schema: tools.ToolSchema{
			Required: []string{"operation"},
			Properties: map[string]tools.Property{
				"working_dir": {
					Type:        "string",
					Description: "Repository directory (default: current directory)",
				},
				"operation": {
					Type:        "string",
					Description: "One of: add, commit, checkout, branch, reset, stash",
					Enum:        []any{"add", "commit", "checkout", "branch", "reset", "stash"},
				},
				"args": {
					Type:        "array",
					Description: "Arguments to pass to the git subcommand",
					Items:       &tools.PropertyItems{Type: "string"},
				},
			},
		},
	}
}

var gitAllowedOperations = map[string]bool{
	"add": true, "commit": true, "checkout": true,
	"branch": true, "reset": true, "stash": true,
}

func executeGitOperation(ctx context.Context, args map[string]any) (any, error) {
	operation, _ := args["operation"].(string)
	if !gitAllowedOperations[operation] {
		return "", fmt.Errorf("operation %q is not allow-listed for git_operation", operation)
	}

	workingDir, _ := args["working_dir"].(string)
	if workingDir == "" {
		workingDir = "."
	}

	gitArgs := []string{operation}
	if raw, ok := args["args"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				gitArgs = append(gitArgs, s)
			}
		}
	}

	logging.ToolsDebug("git_operation: dir=%s args=%v", workingDir, gitArgs)
	result, err := runGit(ctx, workingDir, gitArgs, 60*time.Second)
	if err != nil {
		logging.Tools("git_operation %s failed: %v", operation, err)
	} else {
		logging.Tools("git_operation %s completed", operation)
	}
	return result, err
}

func runGit(ctx context.Context, workingDir string, gitArgs []string, timeout time.Duration) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := execCommandContext(execCtx, "git", gitArgs...)
	cmd.Dir = workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := strings.TrimRight(stdout.String(), "\n")

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return output, fmt.Errorf("git %s timed out after %v", gitArgs[0], timeout)
		}
		return output, fmt.Errorf("git %s failed: %w\n%s", gitArgs[0], err, stderr.String())
	}

	return output, nil
}
