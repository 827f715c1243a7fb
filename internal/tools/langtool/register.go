// Package langtool exposes the langservice.Registry as two dispatcher
// verbs — lang_tools_list and lang_tools_call — the meta-verbs spec.md §9
// describes for reaching a per-language capability without the dispatcher
// calling back into itself.
package langtool

import (
	"context"
	"fmt"

	"github.com/gofer-dev/gofer/internal/langservice"
	"github.com/gofer-dev/gofer/internal/tools"
)

// RegisterAll registers lang_tools_list and lang_tools_call against registry.
func RegisterAll(registry *tools.Registry, langs *langservice.Registry) error {
	allTools := []*tools.Tool{
		langToolsListTool(langs),
		langToolsCallTool(langs),
	}
	for _, t := range allTools {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func langToolsListTool(langs *langservice.Registry) *tools.Tool {
	return &tools.Tool{
		Name:        "lang_tools_list",
		Description: "List the capabilities a registered language service exposes",
		Category:    tools.CategoryLangService,
		Priority:    40,
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{
				"language": {Type: "string", Description: "Language name (e.g. \"go\"); omitted lists every registered service"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			language, _ := args["language"].(string)
			if language == "" {
				out := make(map[string]any)
				for _, svc := range langs.List() {
					out[svc.Language()] = svc.Tools()
				}
				return map[string]any{"services": out}, nil
			}
			svc, err := langs.Get(language)
			if err != nil {
				return nil, err
			}
			return map[string]any{"language": language, "tools": svc.Tools()}, nil
		},
	}
}

func langToolsCallTool(langs *langservice.Registry) *tools.Tool {
	return &tools.Tool{
		Name:        "lang_tools_call",
		Description: "Invoke one capability of a registered language service",
		Category:    tools.CategoryLangService,
		Priority:    40,
		Schema: tools.ToolSchema{
			Required: []string{"language", "tool"},
			Properties: map[string]tools.Property{
				"language": {Type: "string", Description: "Language name (e.g. \"go\")"},
				"tool":      {Type: "string", Description: "Capability name from lang_tools_list"},
				"args":      {Type: "object", Description: "Capability-specific arguments"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			language, _ := args["language"].(string)
			toolName, _ := args["tool"].(string)
			if language == "" || toolName == "" {
				return nil, fmt.Errorf("langtool: lang_tools_call requires %q and %q", "language", "tool")
			}
			svc, err := langs.Get(language)
			if err != nil {
				return nil, err
			}
			callArgs, _ := args["args"].(map[string]any)
			text, err := svc.Call(ctx, toolName, callArgs)
			if err != nil {
				return nil, err
			}
			return map[string]any{"result": text}, nil
		},
	}
}
