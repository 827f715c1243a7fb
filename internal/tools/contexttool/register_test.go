package contexttool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gofer-dev/gofer/internal/langservice"
	"github.com/gofer-dev/gofer/internal/retrieval"
	"github.com/gofer-dev/gofer/internal/tools"
)

func TestContextBundleExplicitPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n\nfunc Foo() {}\n"), 0644))

	builder := retrieval.NewTieredContextBuilder(retrieval.DefaultTieredContextConfig(dir))
	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, builder, nil))

	res, err := registry.Execute(context.Background(), "r1", "context_bundle", map[string]any{
		"paths": []any{path},
	})
	require.NoError(t, err)
	out := res.Result.(map[string]any)
	files := out["files"].([]section)
	require.Len(t, files, 1)
	require.Contains(t, files[0].Content, "func Foo")
}

func TestContextBundleSkeletonizesLargeGoFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.go")
	var b strings.Builder
	b.WriteString("package big\n\n")
	for i := 0; i < 500; i++ {
		b.WriteString(fmt.Sprintf("func F%d() {}\n", i))
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))

	builder := retrieval.NewTieredContextBuilder(retrieval.DefaultTieredContextConfig(dir))
	langs := langservice.NewRegistry()
	langs.Register(langservice.NewGoService())

	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, builder, langs))

	res, err := registry.Execute(context.Background(), "r1", "context_bundle", map[string]any{
		"paths": []any{path},
	})
	require.NoError(t, err)
	out := res.Result.(map[string]any)
	files := out["files"].([]section)
	require.Len(t, files, 1)
	require.True(t, files[0].Skeleton)
}

func TestContextBundleRequiresPathsOrQuery(t *testing.T) {
	builder := retrieval.NewTieredContextBuilder(retrieval.DefaultTieredContextConfig(t.TempDir()))
	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, builder, nil))

	_, err := registry.Execute(context.Background(), "r1", "context_bundle", map[string]any{})
	require.Error(t, err)
}
