// Package sandboxtool registers the "verify_patch" verb against the tool
// dispatcher, wiring it to internal/verify.Verifier.
package sandboxtool

import (
	"context"
	"fmt"

	"github.com/gofer-dev/gofer/internal/tools"
	"github.com/gofer-dev/gofer/internal/verify"
)

// RegisterAll registers verify_patch against registry, backed by verifier,
// sandboxing candidate files against repoRoot.
func RegisterAll(registry *tools.Registry, verifier *verify.Verifier, repoRoot string) error {
	return registry.Register(verifyPatchTool(verifier, repoRoot))
}

func verifyPatchTool(verifier *verify.Verifier, repoRoot string) *tools.Tool {
	return &tools.Tool{
		Name:        "verify_patch",
		Description: "Check a candidate file's contents for compiler/linter diagnostics in an isolated overlay, without mutating the workspace",
		Category:    tools.CategorySandbox,
		Priority:    60,
		Heavy:       true,
		Schema: tools.ToolSchema{
			Required: []string{"path", "content"},
			Properties: map[string]tools.Property{
				"path":    {Type: "string", Description: "Workspace-relative path the candidate content belongs to"},
				"content": {Type: "string", Description: "Full candidate file contents"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			path := tools.ArgString(args, "path")
			content := tools.ArgString(args, "content")
			if path == "" {
				return nil, fmt.Errorf("%w: path", tools.ErrMissingRequiredArg)
			}

			result, err := verifier.Verify(ctx, repoRoot, path, []byte(content))
			if err != nil {
				return nil, err
			}
			return result, nil
		},
	}
}
