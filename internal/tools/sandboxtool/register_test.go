package sandboxtool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gofer-dev/gofer/internal/tools"
	"github.com/gofer-dev/gofer/internal/verify"
)

func TestVerifyPatchUnknownExtensionSkipped(t *testing.T) {
	root := t.TempDir()
	verifier := verify.New(time.Millisecond)
	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, verifier, root))

	res, err := registry.Execute(context.Background(), "r1", "verify_patch", map[string]any{
		"path": "notes.txt", "content": "hello",
	})
	require.NoError(t, err)
	result := res.Result.(*verify.Result)
	require.Equal(t, verify.StatusSkipped, result.Status)
}

func TestVerifyPatchMissingPathFails(t *testing.T) {
	root := t.TempDir()
	verifier := verify.New(time.Millisecond)
	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, verifier, root))

	_, err := registry.Execute(context.Background(), "r1", "verify_patch", map[string]any{"content": "x"})
	require.Error(t, err)
}
