package langservice

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleSrc = `package sample

type Widget struct{}

func (w *Widget) Name() string { return "widget" }

func Helper() int { return 1 }
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	require.NoError(t, os.WriteFile(path, []byte(sampleSrc), 0644))
	return path
}

func TestRegistryGetUnknownLanguage(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("rust")
	require.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestGoServicePackageName(t *testing.T) {
	path := writeSample(t)
	svc := NewGoService()
	out, err := svc.Call(context.Background(), "package_name", map[string]any{"path": path})
	require.NoError(t, err)
	require.Equal(t, "sample", out)
}

func TestGoServiceListDeclarations(t *testing.T) {
	path := writeSample(t)
	svc := NewGoService()
	out, err := svc.Call(context.Background(), "list_declarations", map[string]any{"path": path})
	require.NoError(t, err)
	require.Contains(t, out, "type Widget")
	require.Contains(t, out, "func (*Widget) Name")
	require.Contains(t, out, "func Helper")
}

func TestGoServiceCallMissingPath(t *testing.T) {
	svc := NewGoService()
	_, err := svc.Call(context.Background(), "package_name", map[string]any{})
	require.Error(t, err)
}

func TestRegistryRegisterAndList(t *testing.T) {
	r := NewRegistry()
	r.Register(NewGoService())
	svc, err := r.Get("go")
	require.NoError(t, err)
	require.Equal(t, "go", svc.Language())
	require.Len(t, r.List(), 1)
}
