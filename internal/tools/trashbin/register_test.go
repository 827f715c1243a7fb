package trashbin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gofer-dev/gofer/internal/tools"
	"github.com/gofer-dev/gofer/internal/trash"
)

func TestDeleteSafeListRestore(t *testing.T) {
	base := t.TempDir()
	trashDir := filepath.Join(base, "trash")
	require.NoError(t, os.MkdirAll(trashDir, 0755))
	store := trash.New(trashDir)

	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, store))

	path := filepath.Join(base, "doomed.txt")
	require.NoError(t, os.WriteFile(path, []byte("bye"), 0644))

	ctx := context.Background()
	res, err := registry.Execute(ctx, "r1", "delete_safe", map[string]any{"path": path, "reason": "cleanup"})
	require.NoError(t, err)
	out := res.Result.(map[string]any)
	require.Equal(t, trash.StatusSuccess, out["status"])
	id := out["uuid"].(string)
	require.NoFileExists(t, path)

	listRes, err := registry.Execute(ctx, "r2", "list_trash", nil)
	require.NoError(t, err)
	entries := listRes.Result.(map[string]any)["entries"]
	require.NotNil(t, entries)

	restoreRes, err := registry.Execute(ctx, "r3", "restore", map[string]any{"uuid": id})
	require.NoError(t, err)
	require.Equal(t, trash.StatusSuccess, restoreRes.Result.(map[string]any)["status"])
	require.FileExists(t, path)
}

func TestPurgeTrash(t *testing.T) {
	base := t.TempDir()
	trashDir := filepath.Join(base, "trash")
	require.NoError(t, os.MkdirAll(trashDir, 0755))
	store := trash.New(trashDir)
	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, store))

	path := filepath.Join(base, "doomed.txt")
	require.NoError(t, os.WriteFile(path, []byte("bye"), 0644))

	ctx := context.Background()
	_, err := registry.Execute(ctx, "r1", "delete_safe", map[string]any{"path": path})
	require.NoError(t, err)

	res, err := registry.Execute(ctx, "r2", "purge_trash", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Result.(map[string]any)["count"])
}
