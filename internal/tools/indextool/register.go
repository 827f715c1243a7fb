// Package indextool registers index-management verbs (reindex,
// index_status) against the tool dispatcher. The actual parser/indexer
// pipeline is an external collaborator (out of scope per spec.md §1);
// this package walks the project tree, upserting a File row per regular
// file, and reports progress through a daemon.ProgressTracker so the
// server's $/progress notifications have something real to sample.
package indextool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofer-dev/gofer/internal/daemon"
	"github.com/gofer-dev/gofer/internal/store"
	"github.com/gofer-dev/gofer/internal/tools"
)

// RegisterAll registers reindex and index_status against registry.
func RegisterAll(registry *tools.Registry, st *store.Store, progress *daemon.ProgressTracker, root string) error {
	allTools := []*tools.Tool{
		reindexTool(st, progress, root),
		indexStatusTool(st),
	}
	for _, t := range allTools {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func reindexTool(st *store.Store, progress *daemon.ProgressTracker, root string) *tools.Tool {
	return &tools.Tool{
		Name:        "reindex",
		Description: "Walk the project tree and refresh the file table, reporting progress via $/progress",
		Category:    tools.CategoryIndex,
		Priority:    80,
		Heavy:       true,
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{
				"_meta": {Type: "object", Description: "Optional {progressToken} to receive $/progress notifications"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			token := progressTokenFromMeta(args)

			var paths []string
			err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					if d.Name() == ".git" || d.Name() == ".gofer" || d.Name() == "node_modules" {
						return filepath.SkipDir
					}
					return nil
				}
				paths = append(paths, path)
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("indextool: walk %s: %w", root, err)
			}

			for i, p := range paths {
				info, statErr := os.Stat(p)
				if statErr != nil {
					continue
				}
				rel, relErr := filepath.Rel(root, p)
				if relErr != nil {
					rel = p
				}
				if upsertErr := st.UpsertFile(store.File{
					Path:      rel,
					Language:  languageOf(rel),
					Size:      info.Size(),
					ModTime:   info.ModTime(),
					IndexedAt: info.ModTime(),
				}); upsertErr != nil {
					return nil, fmt.Errorf("indextool: upsert %s: %w", rel, upsertErr)
				}

				if token != "" {
					progress.Update(daemon.ProgressEvent{
						Token:    token,
						Progress: i + 1,
						Total:    len(paths),
						Message:  rel,
					})
				}
			}

			return map[string]any{"status": "success", "files_indexed": len(paths)}, nil
		},
	}
}

func indexStatusTool(st *store.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "index_status",
		Description: "Report the number of indexed files and symbols",
		Category:    tools.CategoryIndex,
		Priority:    60,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			files, err := st.CountFiles()
			if err != nil {
				return nil, err
			}
			symbols, err := st.CountSymbols()
			if err != nil {
				return nil, err
			}
			return map[string]any{"files": files, "symbols": symbols}, nil
		},
	}
}

func progressTokenFromMeta(args map[string]any) string {
	meta, ok := args["_meta"].(map[string]any)
	if !ok {
		return ""
	}
	tok, _ := meta["progressToken"].(string)
	return tok
}

func languageOf(path string) string {
	switch filepath.Ext(path) {
	case ".go":
		return "go"
	case ".rs":
		return "rust"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".py":
		return "python"
	default:
		return ""
	}
}
