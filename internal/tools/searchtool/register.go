// Package searchtool registers the "search" verb against the tool
// dispatcher, wiring it to internal/search.Engine.
package searchtool

import (
	"context"
	"fmt"

	"github.com/gofer-dev/gofer/internal/search"
	"github.com/gofer-dev/gofer/internal/tools"
)

// RegisterAll registers the search verb against registry, backed by engine.
func RegisterAll(registry *tools.Registry, engine *search.Engine) error {
	return registry.Register(searchTool(engine))
}

func searchTool(engine *search.Engine) *tools.Tool {
	return &tools.Tool{
		Name:        "search",
		Description: "Hybrid dense+keyword search over the indexed workspace, fused by Reciprocal Rank Fusion",
		Category:    tools.CategorySearch,
		Priority:    90,
		Schema: tools.ToolSchema{
			Required: []string{"query"},
			Properties: map[string]tools.Property{
				"query":        {Type: "string"},
				"limit":        {Type: "integer", Default: 10},
				"path_filter":  {Type: "string"},
				"glob":         {Type: "string"},
				"min_score":    {Type: "number", Default: 0},
				"with_preview": {Type: "boolean", Default: false},
				"with_context": {Type: "boolean", Default: false},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			query := tools.ArgString(args, "query")
			if query == "" {
				return nil, fmt.Errorf("%w: query", tools.ErrMissingRequiredArg)
			}

			params := search.Params{
				Query:       query,
				Limit:       tools.ArgIntOr(args, "limit", 10),
				PathFilter:  tools.ArgString(args, "path_filter"),
				Glob:        tools.ArgString(args, "glob"),
				WithPreview: tools.ArgBool(args, "with_preview", false),
				WithContext: tools.ArgBool(args, "with_context", false),
			}
			if minScore, ok := args["min_score"].(float64); ok {
				params.MinScore = minScore
			}

			return engine.Search(ctx, params)
		},
	}
}
