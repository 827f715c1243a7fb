package searchtool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gofer-dev/gofer/internal/cache"
	"github.com/gofer-dev/gofer/internal/search"
	"github.com/gofer-dev/gofer/internal/store"
	"github.com/gofer-dev/gofer/internal/tools"
)

func TestSearchToolFindsKeywordMatch(t *testing.T) {
	st, err := store.Open(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.UpsertFile(store.File{Path: "a.go"}))
	_, err = st.IndexChunk(ctx, store.Chunk{FilePath: "a.go", StartLine: 1, Content: "func ParseConfig() {}"}, nil)
	require.NoError(t, err)

	engine := search.New(st, nil, nil, cache.New(time.Minute, 100))
	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, engine))

	res, err := registry.Execute(ctx, "r1", "search", map[string]any{"query": "ParseConfig", "limit": float64(5)})
	require.NoError(t, err)
	result := res.Result.(*search.Result)
	require.Equal(t, 1, result.TotalResults)
}

func TestSearchToolRejectsEmptyQuery(t *testing.T) {
	st, err := store.Open(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	engine := search.New(st, nil, nil, cache.New(time.Minute, 100))
	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, engine))

	_, err = registry.Execute(context.Background(), "r1", "search", map[string]any{"query": ""})
	require.Error(t, err)
}
