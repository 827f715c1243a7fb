// Package fileselecttool registers the "select_files" verb against the
// tool dispatcher, wiring it to internal/fileselect.Selector.
package fileselecttool

import (
	"context"
	"fmt"

	"github.com/gofer-dev/gofer/internal/fileselect"
	"github.com/gofer-dev/gofer/internal/tools"
)

// RegisterAll registers the select_files verb against registry, backed by
// selector.
func RegisterAll(registry *tools.Registry, selector *fileselect.Selector) error {
	return registry.Register(selectFilesTool(selector))
}

func selectFilesTool(selector *fileselect.Selector) *tools.Tool {
	return &tools.Tool{
		Name:        "select_files",
		Description: "Score and rank candidate files for a query by adaptive-weighted vector, path, symbol, and summary match, modulated by recency and size",
		Category:    tools.CategorySearch,
		Priority:    85,
		Schema: tools.ToolSchema{
			Required: []string{"query"},
			Properties: map[string]tools.Property{
				"query":     {Type: "string"},
				"limit":     {Type: "integer", Default: 10},
				"min_score": {Type: "number", Default: 0},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			query := tools.ArgString(args, "query")
			if query == "" {
				return nil, fmt.Errorf("%w: query", tools.ErrMissingRequiredArg)
			}

			params := fileselect.Params{
				Query: query,
				Limit: tools.ArgIntOr(args, "limit", 10),
			}
			if minScore, ok := args["min_score"].(float64); ok {
				params.MinScore = minScore
			}

			return selector.Select(ctx, params)
		},
	}
}
