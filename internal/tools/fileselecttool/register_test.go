package fileselecttool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gofer-dev/gofer/internal/fileselect"
	"github.com/gofer-dev/gofer/internal/store"
	"github.com/gofer-dev/gofer/internal/tools"
)

func TestSelectFilesRequiresQuery(t *testing.T) {
	st, err := store.Open(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, fileselect.New(st, nil)))

	_, err = registry.Execute(context.Background(), "r1", "select_files", map[string]any{})
	require.ErrorIs(t, err, tools.ErrMissingRequiredArg)
}

func TestSelectFilesDegradesWithoutEmbedder(t *testing.T) {
	st, err := store.Open(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, fileselect.New(st, nil)))

	res, err := registry.Execute(context.Background(), "r1", "select_files", map[string]any{"query": "where is this defined"})
	require.NoError(t, err)
	out := res.Result.(*fileselect.Result)
	require.True(t, out.Degraded)
}
