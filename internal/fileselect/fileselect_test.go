package fileselect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gofer-dev/gofer/internal/store"
)

// fakeEmbedder returns a fixed embedding regardless of input text, enough
// to drive cosine similarity against hand-seeded chunk vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
	def     []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.def, nil
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int { return 3 }
func (f *fakeEmbedder) Name() string    { return "fake" }

func newTestSelector(t *testing.T) (*Selector, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	embedder := &fakeEmbedder{def: []float32{1, 0, 0}}
	return New(st, embedder), st
}

func TestSelectRejectsEmptyQuery(t *testing.T) {
	sel, _ := newTestSelector(t)
	_, err := sel.Select(context.Background(), Params{Query: "  "})
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSelectDegradesWithoutEmbedder(t *testing.T) {
	st, err := store.Open(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sel := New(st, nil)
	result, err := sel.Select(context.Background(), Params{Query: "where is the server defined"})
	require.NoError(t, err)
	require.True(t, result.Degraded)
	require.Empty(t, result.Results)
}

func TestSelectRanksCandidateByCombinedScore(t *testing.T) {
	sel, st := newTestSelector(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertFile(store.File{
		Path: "internal/server/server.go", Size: 2000, ModTime: time.Now(), Summary: "starts the listen loop",
	}))
	require.NoError(t, st.UpsertFile(store.File{
		Path: "internal/other/unrelated.go", Size: 2000, ModTime: time.Now().Add(-120 * 24 * time.Hour),
	}))
	_, err := st.IndexChunk(ctx, store.Chunk{FilePath: "internal/server/server.go", StartLine: 1, Content: "func StartServer() error { return nil }"}, []float32{1, 0, 0})
	require.NoError(t, err)
	_, err = st.IndexChunk(ctx, store.Chunk{FilePath: "internal/other/unrelated.go", StartLine: 1, Content: "func unrelated() {}"}, []float32{0, 1, 0})
	require.NoError(t, err)
	require.NoError(t, st.UpsertSymbol(store.Symbol{FilePath: "internal/server/server.go", Name: "StartServer", Kind: "func", Line: 1}))

	result, err := sel.Select(ctx, Params{Query: "where is server defined", Limit: 5})
	require.NoError(t, err)
	require.False(t, result.Degraded)
	require.Equal(t, "symbol", result.Intent)
	require.NotEmpty(t, result.Results)
	require.Equal(t, "internal/server/server.go", result.Results[0].Path)
	require.Greater(t, result.Results[0].Score, result.Results[len(result.Results)-1].Score)
}

func TestIntentWeightsByQueryShape(t *testing.T) {
	_, intent := intentWeights("where is this symbol defined")
	require.Equal(t, "symbol", intent)

	_, intent = intentWeights("how does this work")
	require.Equal(t, "summary", intent)

	_, intent = intentWeights("internal/server/server.go")
	require.Equal(t, "path", intent)

	_, intent = intentWeights("connection pooling")
	require.Equal(t, "balanced", intent)
}

func TestScorePathRewardsExactStemAndCloseTypos(t *testing.T) {
	exact := scorePath([]string{"server"}, "internal/server/server.go")
	typo := scorePath([]string{"servr"}, "internal/server/server.go")
	unrelated := scorePath([]string{"widget"}, "internal/server/server.go")

	require.Greater(t, exact, typo)
	require.Greater(t, typo, unrelated)
}

func TestLevenshteinDistance(t *testing.T) {
	require.Equal(t, 0, levenshtein("server", "server"))
	require.Equal(t, 1, levenshtein("server", "servr"))
	require.Equal(t, 3, levenshtein("server", "srevr"))
}

func TestNormalizeKeywordsStripsInflections(t *testing.T) {
	norm := normalizeKeywords([]string{"Parsing", "indexed", "handlers"})
	require.Equal(t, []string{"pars", "index", "handler"}, norm)
}
