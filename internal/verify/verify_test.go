package verify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnknownExtensionSkipped(t *testing.T) {
	root := t.TempDir()
	v := New(time.Millisecond)

	result, err := v.Verify(context.Background(), root, "README.md", []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, StatusSkipped, result.Status)
}

func TestCooldownSkipsSecondCall(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 1\n"), 0644))

	v := New(time.Hour)
	ctx := context.Background()

	_, err := v.Verify(ctx, root, "a.py", []byte("x = 1\n"))
	require.NoError(t, err)

	result, err := v.Verify(ctx, root, "a.py", []byte("x = 2\n"))
	require.NoError(t, err)
	require.Equal(t, StatusSkipped, result.Status)
}

func TestBuildOverlaySymlinksSiblingsAndWritesCandidate(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg", "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "sub", "mod.py"), []byte("old"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "unrelated.txt"), []byte("keep me"), 0644))

	overlay, cleanup, err := buildOverlay(root, "pkg/sub/mod.py", []byte("new contents"), "python")
	require.NoError(t, err)
	defer cleanup()

	content, err := os.ReadFile(filepath.Join(overlay, "pkg", "sub", "mod.py"))
	require.NoError(t, err)
	require.Equal(t, "new contents", string(content))

	sibling, err := os.ReadFile(filepath.Join(overlay, "unrelated.txt"))
	require.NoError(t, err)
	require.Equal(t, "keep me", string(sibling))

	originalContent, err := os.ReadFile(filepath.Join(root, "pkg", "sub", "mod.py"))
	require.NoError(t, err)
	require.Equal(t, "old", string(originalContent), "original workspace file must not be mutated")
}

func TestParseTSCLine(t *testing.T) {
	d, ok := parseTSCLine("src/app.ts(12,5): error TS2322: Type 'string' is not assignable to type 'number'.")
	require.True(t, ok)
	require.Equal(t, "src/app.ts", d.File)
	require.Equal(t, 12, d.Line)
	require.Equal(t, 5, d.Column)
	require.Equal(t, "error", d.Severity)
}

func TestFilterDiagnosticsKeepsSuffixMatchesAndNoSpanRustErrors(t *testing.T) {
	diags := []Diagnostic{
		{File: "/tmp/overlay/src/lib.rs", Message: "unused import"},
		{File: "/tmp/overlay/src/other.rs", Message: "irrelevant"},
		{File: "", Message: "link error"},
	}
	filtered := filterDiagnostics(diags, "src/lib.rs", "rust")
	require.Len(t, filtered, 2)
}
