// Package contexttool registers the context_bundle verb, which assembles a
// single text bundle out of an explicit file list or a search query,
// generalizing internal/retrieval's tiered context builder from
// "SWE-bench issue text" to "search query or explicit file list."
package contexttool

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gofer-dev/gofer/internal/langservice"
	"github.com/gofer-dev/gofer/internal/retrieval"
	"github.com/gofer-dev/gofer/internal/tools"
)

// skeletonThresholdBytes is the size above which a file's full content is
// replaced by a declarations-only skeleton when a language service can
// produce one.
const skeletonThresholdBytes = 4096

// defaultTokenBudget bounds total bundle size when the caller doesn't set
// one explicitly; bytes are used as a conservative token proxy (roughly
// 4 bytes/token), matching the teacher's own rough token-estimation style
// elsewhere in the pack (no tokenizer dependency is wired in).
const defaultTokenBudget = 8000

// RegisterAll registers context_bundle against registry.
func RegisterAll(registry *tools.Registry, builder *retrieval.TieredContextBuilder, langs *langservice.Registry) error {
	return registry.Register(contextBundleTool(builder, langs))
}

func contextBundleTool(builder *retrieval.TieredContextBuilder, langs *langservice.Registry) *tools.Tool {
	return &tools.Tool{
		Name:        "context_bundle",
		Description: "Assemble a text bundle of relevant files from an explicit path list or a search query",
		Category:    tools.CategoryCore,
		Priority:    70,
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{
				"paths":        {Type: "array", Description: "Explicit file paths to include"},
				"query":        {Type: "string", Description: "Search query used to discover relevant files via the tiered context builder"},
				"token_budget": {Type: "integer", Description: "Approximate byte budget for the assembled bundle", Default: defaultTokenBudget},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			budget := tools.ArgIntOr(args, "token_budget", defaultTokenBudget)
			paths := tools.ArgStringSlice(args, "paths")
			query := tools.ArgString(args, "query")

			var files []retrieval.ContextFile
			if len(paths) > 0 {
				for _, p := range paths {
					files = append(files, retrieval.ContextFile{FilePath: p, Tier: 1, RelevanceScore: 1.0, SelectionReason: "explicitly requested"})
				}
			} else if query != "" {
				tc, err := builder.BuildContext(ctx, query)
				if err != nil {
					return nil, fmt.Errorf("contexttool: build context: %w", err)
				}
				files = tc.Files
			} else {
				return nil, fmt.Errorf("contexttool: context_bundle requires %q or %q", "paths", "query")
			}

			sort.SliceStable(files, func(i, j int) bool { return files[i].Tier < files[j].Tier })

			sections, spent := assembleSections(files, langs, budget)
			return map[string]any{
				"files":       sections,
				"bytes_used":  spent,
				"token_budget": budget,
				"truncated":   len(sections) < len(files),
			}, nil
		},
	}
}

type section struct {
	Path     string `json:"path"`
	Tier     int    `json:"tier"`
	Size     int    `json:"size"`
	Lines    int    `json:"lines"`
	Skeleton bool   `json:"skeleton"`
	Content  string `json:"content"`
}

func assembleSections(files []retrieval.ContextFile, langs *langservice.Registry, budget int) ([]section, int) {
	var out []section
	spent := 0

	for _, f := range files {
		info, err := os.Stat(f.FilePath)
		if err != nil {
			continue
		}
		if spent >= budget {
			break
		}

		content, skeleton := renderFile(f.FilePath, info.Size(), langs)
		if remaining := budget - spent; len(content) > remaining {
			content = content[:remaining]
		}

		out = append(out, section{
			Path:     f.FilePath,
			Tier:     f.Tier,
			Size:     int(info.Size()),
			Lines:    strings.Count(content, "\n") + 1,
			Skeleton: skeleton,
			Content:  content,
		})
		spent += len(content)
	}

	return out, spent
}

// renderFile returns either the file's full content, or — when the file
// exceeds skeletonThresholdBytes and a language service can produce one —
// a declarations-only skeleton.
func renderFile(path string, size int64, langs *langservice.Registry) (string, bool) {
	if size > skeletonThresholdBytes && langs != nil {
		if language := languageOf(path); language != "" {
			if svc, err := langs.Get(language); err == nil {
				if text, err := svc.Call(context.Background(), "list_declarations", map[string]any{"path": path}); err == nil && text != "" {
					return text, true
				}
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), false
}

func languageOf(path string) string {
	if strings.HasSuffix(path, ".go") {
		return "go"
	}
	return ""
}
