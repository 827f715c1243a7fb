// Package editplane registers the transaction-manager verbs
// (begin_transaction, add_operation, commit_transaction,
// rollback_transaction, list_transactions) against the tool dispatcher,
// wiring it to internal/txn.Manager.
package editplane

import (
	"context"
	"fmt"

	"github.com/gofer-dev/gofer/internal/diff"
	"github.com/gofer-dev/gofer/internal/tools"
	"github.com/gofer-dev/gofer/internal/txn"
)

// RegisterAll registers every transaction verb against registry, backed by
// mgr.
func RegisterAll(registry *tools.Registry, mgr *txn.Manager) error {
	allTools := []*tools.Tool{
		beginTransactionTool(mgr),
		addOperationTool(mgr),
		commitTransactionTool(mgr),
		rollbackTransactionTool(mgr),
		listTransactionsTool(mgr),
	}
	for _, t := range allTools {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func beginTransactionTool(mgr *txn.Manager) *tools.Tool {
	return &tools.Tool{
		Name:        "begin_transaction",
		Description: "Start a new staged multi-file transaction",
		Category:    tools.CategoryTransaction,
		Priority:    70,
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{"id": {Type: "string", Description: "Optional explicit transaction id"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			tx, err := mgr.Begin(tools.ArgString(args, "id"))
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": tx.ID, "status": string(tx.Status)}, nil
		},
	}
}

func addOperationTool(mgr *txn.Manager) *tools.Tool {
	return &tools.Tool{
		Name:        "add_operation",
		Description: "Stage a write/patch/append/move/create-dir/delete-safe operation against an active transaction",
		Category:    tools.CategoryTransaction,
		Priority:    70,
		Schema: tools.ToolSchema{
			Required: []string{"transaction_id", "type", "path"},
			Properties: map[string]tools.Property{
				"transaction_id": {Type: "string"},
				"type":           {Type: "string", Enum: []any{"write_file", "patch_file", "append_file", "move_file", "create_dir", "delete_safe"}},
				"path":           {Type: "string"},
				"args":           {Type: "object", Description: "Operation-specific parameters (e.g. content, search_string, replace_string, destination)"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			txID := tools.ArgString(args, "transaction_id")
			opType := tools.ArgString(args, "type")
			path := tools.ArgString(args, "path")
			if txID == "" || opType == "" || path == "" {
				return nil, fmt.Errorf("%w: transaction_id, type, path", tools.ErrMissingRequiredArg)
			}
			opArgs, _ := args["args"].(map[string]any)

			op, err := mgr.AddOperation(txID, txn.OpType(opType), path, opArgs)
			if err != nil {
				return nil, err
			}
			return map[string]any{"operation_id": op.ID, "conflict": op.Conflict}, nil
		},
	}
}

func commitTransactionTool(mgr *txn.Manager) *tools.Tool {
	return &tools.Tool{
		Name:        "commit_transaction",
		Description: "Apply every staged operation in a transaction, rolling back on the first failure",
		Category:    tools.CategoryTransaction,
		Priority:    80,
		Schema: tools.ToolSchema{
			Required:   []string{"transaction_id"},
			Properties: map[string]tools.Property{"transaction_id": {Type: "string"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			txID := tools.ArgString(args, "transaction_id")
			if txID == "" {
				return nil, fmt.Errorf("%w: transaction_id", tools.ErrMissingRequiredArg)
			}

			result, err := mgr.Commit(txID)
			if err != nil {
				var ce *txn.CommitError
				if asCommitError(err, &ce) {
					return map[string]any{
						"status":         "failed",
						"failed_op_id":   ce.FailedOpID,
						"failed_op_index": ce.FailedOpIndex,
						"error":          ce.Err.Error(),
						"files_changed":  []string{},
					}, nil
				}
				return nil, err
			}
			return map[string]any{
				"status":             "committed",
				"operations_applied": result.OperationsApplied,
				"files_changed":      result.FilesChanged,
				"diffs":              summarizeDiffs(result.Diffs),
			}, nil
		},
	}
}

// fileDiffSummary is the hunk-level shape returned to the client for each
// file touched by a content-rewriting operation (write_file, append_file,
// patch_file). move_file and delete_safe don't rewrite a path's content in
// place, so they're summarized only by files_changed.
type fileDiffSummary struct {
	Path    string `json:"path"`
	Added   int    `json:"lines_added"`
	Removed int    `json:"lines_removed"`
	Hunks   int    `json:"hunks"`
}

func summarizeDiffs(diffs []*diff.FileDiff) []fileDiffSummary {
	out := make([]fileDiffSummary, 0, len(diffs))
	for _, fd := range diffs {
		summary := fileDiffSummary{Path: fd.NewPath, Hunks: len(fd.Hunks)}
		for _, hunk := range fd.Hunks {
			for _, line := range hunk.Lines {
				switch line.Type {
				case diff.LineAdded:
					summary.Added++
				case diff.LineRemoved:
					summary.Removed++
				}
			}
		}
		out = append(out, summary)
	}
	return out
}

func asCommitError(err error, target **txn.CommitError) bool {
	ce, ok := err.(*txn.CommitError)
	if !ok {
		return false
	}
	*target = ce
	return true
}

func rollbackTransactionTool(mgr *txn.Manager) *tools.Tool {
	return &tools.Tool{
		Name:        "rollback_transaction",
		Description: "Discard a transaction's staged operations without applying them",
		Category:    tools.CategoryTransaction,
		Priority:    70,
		Schema: tools.ToolSchema{
			Required:   []string{"transaction_id"},
			Properties: map[string]tools.Property{"transaction_id": {Type: "string"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			txID := tools.ArgString(args, "transaction_id")
			if txID == "" {
				return nil, fmt.Errorf("%w: transaction_id", tools.ErrMissingRequiredArg)
			}
			if err := mgr.Rollback(txID); err != nil {
				return nil, err
			}
			return map[string]any{"status": "rolled_back"}, nil
		},
	}
}

func listTransactionsTool(mgr *txn.Manager) *tools.Tool {
	return &tools.Tool{
		Name:        "list_transactions",
		Description: "List transactions, most recently created first",
		Category:    tools.CategoryTransaction,
		Priority:    60,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"transactions": mgr.List()}, nil
		},
	}
}
