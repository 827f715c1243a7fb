// Package tools implements the verb dispatcher: the single place every
// verb gofer's server exposes through tools/call bottoms out in. Each verb
// is registered as a Tool; the Registry resolves a verb name to a Tool,
// checks that the arguments its schema marks as required are present, and
// executes it.
package tools

import (
	"context"
)

// ToolCategory groups verbs by the area of the daemon they belong to. It
// lets callers request one slice of the surface (e.g. only code-quality
// verbs) through Registry.GetByCategory without naming each verb.
type ToolCategory string

const (
	// CategorySearch covers hybrid search and symbol lookup.
	CategorySearch ToolCategory = "search"

	// CategoryDiagnostics covers compiler/linter diagnostics retrieval.
	CategoryDiagnostics ToolCategory = "diagnostics"

	// CategoryIndex covers index management (reindex, index status).
	CategoryIndex ToolCategory = "index"

	// CategoryGit covers git-aware verbs (blame, log, diff against HEAD).
	CategoryGit ToolCategory = "git"

	// CategoryFile covers direct file operations (read, write, move).
	CategoryFile ToolCategory = "file"

	// CategoryTrash covers the soft-delete trash store.
	CategoryTrash ToolCategory = "trash"

	// CategoryTransaction covers the staged multi-file transaction manager.
	CategoryTransaction ToolCategory = "transaction"

	// CategoryQuality covers code-quality verbs (impacted tests, lint).
	CategoryQuality ToolCategory = "quality"

	// CategoryCAS covers the content-addressable scratch buffer store.
	CategoryCAS ToolCategory = "cas"

	// CategorySandbox covers sandboxed patch verification.
	CategorySandbox ToolCategory = "sandbox"

	// CategoryLangService covers language-service meta-verbs.
	CategoryLangService ToolCategory = "langservice"

	// CategoryCore covers daemon-level verbs: health, metrics, context
	// bundling, project registration.
	CategoryCore ToolCategory = "core"
)

// Property describes a single parameter for a verb's JSON schema.
type Property struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Default     any            `json:"default,omitempty"`
	Enum        []any          `json:"enum,omitempty"`
	Items       *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// ToolSchema is the JSON schema gofer advertises to callers via tools/list.
// Of it, only Required is checked before a verb executes; property types
// and enums are not validated.
type ToolSchema struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature every verb implementation satisfies. The
// result is any JSON-marshalable value; the server layer's tools/call
// handler wraps it in an MCP-style text content block.
type ExecuteFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool is one verb gofer's dispatcher can execute.
type Tool struct {
	Name        string
	Description string
	Category    ToolCategory
	Execute     ExecuteFunc
	Schema      ToolSchema

	// Priority orders tools within a category in GetByCategory's result.
	// Higher is listed first; default 50. tools/list output is not ordered.
	Priority int

	// Heavy marks a verb subject to the process-wide cooldown gate (e.g.
	// reindex, sandboxed verification) rather than only the per-connection
	// rate limiter.
	Heavy bool
}

// Validate checks that the tool definition is usable.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// WithPriority returns a copy of the tool with the given priority.
func (t *Tool) WithPriority(priority int) *Tool {
	cp := *t
	cp.Priority = priority
	return &cp
}

// ToolResult wraps a verb's execution outcome with timing metadata.
type ToolResult struct {
	ToolName   string
	Result     any
	Error      error
	DurationMs int64
}

// IsSuccess returns true if the verb executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}
