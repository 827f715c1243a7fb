package langtool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gofer-dev/gofer/internal/langservice"
	"github.com/gofer-dev/gofer/internal/tools"
)

func newRegistry(t *testing.T) (*tools.Registry, string) {
	t.Helper()
	langs := langservice.NewRegistry()
	langs.Register(langservice.NewGoService())

	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, langs))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package widgets\n\nfunc Foo() {}\n"), 0644))
	return registry, filepath.Join(dir, "a.go")
}

func TestLangToolsListShowsGoCapabilities(t *testing.T) {
	registry, _ := newRegistry(t)
	res, err := registry.Execute(context.Background(), "r1", "lang_tools_list", map[string]any{"language": "go"})
	require.NoError(t, err)
	out := res.Result.(map[string]any)
	require.Equal(t, "go", out["language"])
}

func TestLangToolsCallInvokesPackageName(t *testing.T) {
	registry, path := newRegistry(t)
	res, err := registry.Execute(context.Background(), "r1", "lang_tools_call", map[string]any{
		"language": "go",
		"tool":     "package_name",
		"args":     map[string]any{"path": path},
	})
	require.NoError(t, err)
	out := res.Result.(map[string]any)
	require.Equal(t, "widgets", out["result"])
}

func TestLangToolsCallUnknownLanguageFails(t *testing.T) {
	registry, _ := newRegistry(t)
	_, err := registry.Execute(context.Background(), "r1", "lang_tools_call", map[string]any{
		"language": "rust",
		"tool":     "package_name",
	})
	require.Error(t, err)
}
