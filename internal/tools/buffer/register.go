// Package buffer registers the content-addressable scratch buffer verbs
// (extract_to_hash, content_to_hash, replace_with_hash, insert_from_hash,
// list_buffers, clear_buffer) against the tool dispatcher, wiring it to
// internal/cas.Store.
package buffer

import (
	"context"
	"fmt"

	"github.com/gofer-dev/gofer/internal/cas"
	"github.com/gofer-dev/gofer/internal/tools"
)

// RegisterAll registers every CAS verb against registry, backed by store.
func RegisterAll(registry *tools.Registry, store *cas.Store) error {
	allTools := []*tools.Tool{
		extractToHashTool(store),
		contentToHashTool(store),
		replaceWithHashTool(store),
		insertFromHashTool(store),
		listBuffersTool(store),
		clearBufferTool(store),
	}
	for _, t := range allTools {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func extractToHashTool(store *cas.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "extract_to_hash",
		Description: "Extract a line range from a file into a content-addressable buffer, optionally cutting it from the file",
		Category:    tools.CategoryCAS,
		Priority:    70,
		Schema: tools.ToolSchema{
			Required: []string{"path", "start_line", "end_line"},
			Properties: map[string]tools.Property{
				"path":       {Type: "string", Description: "File to extract from"},
				"start_line": {Type: "integer", Description: "1-based inclusive start line"},
				"end_line":   {Type: "integer", Description: "1-based inclusive end line"},
				"cut":        {Type: "boolean", Description: "Remove the extracted range from the file", Default: false},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			path := tools.ArgString(args, "path")
			if path == "" {
				return nil, fmt.Errorf("%w: path", tools.ErrMissingRequiredArg)
			}
			start, ok1 := tools.ArgInt(args, "start_line")
			end, ok2 := tools.ArgInt(args, "end_line")
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: start_line, end_line", tools.ErrMissingRequiredArg)
			}
			cut := tools.ArgBool(args, "cut", false)

			buf, err := store.Extract(ctx, path, start, end, cut)
			if err != nil {
				return nil, err
			}
			action := "copied"
			if cut {
				action = "cut"
			}
			return map[string]any{"hash_id": buf.HashID, "lines": len(buf.Lines), "action": action}, nil
		},
	}
}

func contentToHashTool(store *cas.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "content_to_hash",
		Description: "Store arbitrary content in a content-addressable buffer",
		Category:    tools.CategoryCAS,
		Priority:    70,
		Schema: tools.ToolSchema{
			Required:   []string{"content"},
			Properties: map[string]tools.Property{"content": {Type: "string", Description: "Content to store"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			content := tools.ArgString(args, "content")
			buf, err := store.Content(ctx, []byte(content))
			if err != nil {
				return nil, err
			}
			return map[string]any{"hash_id": buf.HashID, "lines": len(buf.Lines)}, nil
		},
	}
}

func replaceWithHashTool(store *cas.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "replace_with_hash",
		Description: "Replace a line range in a file with a buffer's content",
		Category:    tools.CategoryCAS,
		Priority:    70,
		Schema: tools.ToolSchema{
			Required: []string{"path", "start_line", "end_line", "hash_id"},
			Properties: map[string]tools.Property{
				"path":       {Type: "string"},
				"start_line": {Type: "integer"},
				"end_line":   {Type: "integer"},
				"hash_id":    {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			path := tools.ArgString(args, "path")
			hashID := tools.ArgString(args, "hash_id")
			start, ok1 := tools.ArgInt(args, "start_line")
			end, ok2 := tools.ArgInt(args, "end_line")
			if path == "" || hashID == "" || !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: path, start_line, end_line, hash_id", tools.ErrMissingRequiredArg)
			}
			if err := store.Replace(ctx, path, start, end, hashID); err != nil {
				return nil, err
			}
			return map[string]any{"status": "success"}, nil
		},
	}
}

func insertFromHashTool(store *cas.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "insert_from_hash",
		Description: "Insert a buffer's content at a line number in a file",
		Category:    tools.CategoryCAS,
		Priority:    70,
		Schema: tools.ToolSchema{
			Required: []string{"path", "line", "hash_id"},
			Properties: map[string]tools.Property{
				"path":    {Type: "string"},
				"line":    {Type: "integer"},
				"hash_id": {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			path := tools.ArgString(args, "path")
			hashID := tools.ArgString(args, "hash_id")
			line, ok := tools.ArgInt(args, "line")
			if path == "" || hashID == "" || !ok {
				return nil, fmt.Errorf("%w: path, line, hash_id", tools.ErrMissingRequiredArg)
			}
			if err := store.Insert(ctx, path, line, hashID); err != nil {
				return nil, err
			}
			return map[string]any{"status": "success"}, nil
		},
	}
}

func listBuffersTool(store *cas.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "list_buffers",
		Description: "List live content-addressable buffers",
		Category:    tools.CategoryCAS,
		Priority:    60,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			infos, total := store.List()
			return map[string]any{"buffers": infos, "total_bytes": total}, nil
		},
	}
}

func clearBufferTool(store *cas.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "clear_buffer",
		Description: "Clear one buffer by hash, or all buffers if hash_id is omitted",
		Category:    tools.CategoryCAS,
		Priority:    60,
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{"hash_id": {Type: "string", Description: "Buffer to clear; omit to clear all"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			hashID := tools.ArgString(args, "hash_id")
			n := store.Clear(hashID)
			return map[string]any{"cleared": n}, nil
		},
	}
}
