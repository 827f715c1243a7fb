package buffer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gofer-dev/gofer/internal/cas"
	"github.com/gofer-dev/gofer/internal/tools"
)

func TestRegisterAllAndRoundTrip(t *testing.T) {
	registry := tools.NewRegistry()
	store := cas.New(time.Hour)
	require.NoError(t, RegisterAll(registry, store))

	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("l1\nl2\nl3\nl4"), 0644))

	ctx := context.Background()
	res, err := registry.Execute(ctx, "r1", "extract_to_hash", map[string]any{
		"path": path, "start_line": float64(2), "end_line": float64(3),
	})
	require.NoError(t, err)
	out := res.Result.(map[string]any)
	hashID := out["hash_id"].(string)
	require.NotEmpty(t, hashID)

	require.NoError(t, os.WriteFile(path, []byte("l1\nXX\nYY\nl4"), 0644))

	_, err = registry.Execute(ctx, "r2", "replace_with_hash", map[string]any{
		"path": path, "start_line": float64(2), "end_line": float64(3), "hash_id": hashID,
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "l1\nl2\nl3\nl4", string(content))
}

func TestClearBufferThenUseFails(t *testing.T) {
	registry := tools.NewRegistry()
	store := cas.New(time.Hour)
	require.NoError(t, RegisterAll(registry, store))

	ctx := context.Background()
	res, err := registry.Execute(ctx, "r1", "content_to_hash", map[string]any{"content": "hello"})
	require.NoError(t, err)
	hashID := res.Result.(map[string]any)["hash_id"].(string)

	_, err = registry.Execute(ctx, "r2", "clear_buffer", map[string]any{"hash_id": hashID})
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	_, err = registry.Execute(ctx, "r3", "replace_with_hash", map[string]any{
		"path": path, "start_line": float64(1), "end_line": float64(1), "hash_id": hashID,
	})
	require.ErrorIs(t, err, cas.ErrInvalidParams)
}
