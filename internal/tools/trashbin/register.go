// Package trashbin registers the soft-delete verbs (delete_safe,
// list_trash, restore, purge_trash) against the tool dispatcher, wiring it
// to internal/trash.Store.
package trashbin

import (
	"context"
	"fmt"

	"github.com/gofer-dev/gofer/internal/tools"
	"github.com/gofer-dev/gofer/internal/trash"
)

// RegisterAll registers every trash verb against registry, backed by store.
func RegisterAll(registry *tools.Registry, store *trash.Store) error {
	allTools := []*tools.Tool{
		deleteSafeTool(store),
		listTrashTool(store),
		restoreTool(store),
		purgeTrashTool(store),
	}
	for _, t := range allTools {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func deleteSafeTool(store *trash.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "delete_safe",
		Description: "Move a file or directory into the trash instead of deleting it",
		Category:    tools.CategoryTrash,
		Priority:    70,
		Schema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path":   {Type: "string"},
				"reason": {Type: "string"},
				"tags":   {Type: "array", Items: &tools.PropertyItems{Type: "string"}},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			path := tools.ArgString(args, "path")
			if path == "" {
				return nil, fmt.Errorf("%w: path", tools.ErrMissingRequiredArg)
			}
			reason := tools.ArgString(args, "reason")
			tags := tools.ArgStringSlice(args, "tags")

			meta, err := store.DeleteSafe(path, reason, tags)
			if err != nil {
				return map[string]any{"status": trash.StatusError, "error": err.Error()}, nil
			}
			return map[string]any{"status": trash.StatusSuccess, "uuid": meta.UUID, "size": meta.Size}, nil
		},
	}
}

func listTrashTool(store *trash.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "list_trash",
		Description: "List trash entries, sorted by UUID descending",
		Category:    tools.CategoryTrash,
		Priority:    60,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			entries, err := store.List()
			if err != nil {
				return nil, err
			}
			return map[string]any{"entries": entries}, nil
		},
	}
}

func restoreTool(store *trash.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "restore",
		Description: "Restore a trash entry to its original path, or an explicit target",
		Category:    tools.CategoryTrash,
		Priority:    70,
		Schema: tools.ToolSchema{
			Required: []string{"uuid"},
			Properties: map[string]tools.Property{
				"uuid":   {Type: "string"},
				"target": {Type: "string", Description: "Optional destination path; defaults to the original path"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			id := tools.ArgString(args, "uuid")
			if id == "" {
				return nil, fmt.Errorf("%w: uuid", tools.ErrMissingRequiredArg)
			}
			target := tools.ArgString(args, "target")

			dest, err := store.Restore(id, target)
			if err != nil {
				return map[string]any{"status": trash.StatusConflict, "error": err.Error()}, nil
			}
			return map[string]any{"status": trash.StatusSuccess, "path": dest}, nil
		},
	}
}

func purgeTrashTool(store *trash.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "purge_trash",
		Description: "Permanently delete one trash entry, or all entries if uuid is omitted",
		Category:    tools.CategoryTrash,
		Priority:    50,
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{"uuid": {Type: "string"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			id := tools.ArgString(args, "uuid")
			count, freed, err := store.Purge(id)
			if err != nil {
				return nil, err
			}
			return map[string]any{"count": count, "freed_bytes": freed}, nil
		},
	}
}
