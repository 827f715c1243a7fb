package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGetFile(t *testing.T) {
	s := openTestStore(t)
	f := File{Path: "main.go", Language: "go", Size: 42, ModTime: time.Now(), Summary: "entrypoint", IndexedAt: time.Now()}
	require.NoError(t, s.UpsertFile(f))

	got, err := s.GetFile("main.go")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "go", got.Language)

	missing, err := s.GetFile("nope.go")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestUpsertSymbolAndList(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertFile(File{Path: "a.go"}))
	require.NoError(t, s.UpsertSymbol(Symbol{FilePath: "a.go", Name: "Foo", Kind: "func", Line: 10}))
	require.NoError(t, s.UpsertSymbol(Symbol{FilePath: "a.go", Name: "Bar", Kind: "type", Line: 20}))

	syms, err := s.ListSymbols("", "", 0, 10)
	require.NoError(t, err)
	require.Len(t, syms, 2)

	funcsOnly, err := s.ListSymbols("", "func", 0, 10)
	require.NoError(t, err)
	require.Len(t, funcsOnly, 1)
	require.Equal(t, "Foo", funcsOnly[0].Name)
}

func TestKeywordSearch(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertFile(File{Path: "handler.go"}))
	ctx := context.Background()
	_, err := s.IndexChunk(ctx, Chunk{FilePath: "handler.go", StartLine: 1, Content: "func HandleRequest(w http.ResponseWriter) {}"}, nil)
	require.NoError(t, err)
	_, err = s.IndexChunk(ctx, Chunk{FilePath: "handler.go", StartLine: 20, Content: "func unrelated() {}"}, nil)
	require.NoError(t, err)

	hits, err := s.KeywordSearch(ctx, []string{"HandleRequest"}, 5, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "handler.go", hits[0].FilePath)
}

func TestVectorSearchBruteForce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertFile(File{Path: "a.go"}))
	require.NoError(t, s.UpsertFile(File{Path: "b.go"}))

	_, err := s.IndexChunk(ctx, Chunk{FilePath: "a.go", StartLine: 1, Content: "alpha"}, []float32{1, 0, 0})
	require.NoError(t, err)
	_, err = s.IndexChunk(ctx, Chunk{FilePath: "b.go", StartLine: 1, Content: "beta"}, []float32{0, 1, 0})
	require.NoError(t, err)

	hits, err := s.VectorSearch(ctx, []float32{1, 0, 0}, 2, "")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, "a.go", hits[0].FilePath)
	require.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestCacheBlobExpiry(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutCacheBlob("k1", []byte("payload"), time.Now().Add(time.Hour)))

	blob, err := s.GetCacheBlob("k1")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), blob)

	require.NoError(t, s.PutCacheBlob("k2", []byte("expired"), time.Now().Add(-time.Hour)))
	blob, err = s.GetCacheBlob("k2")
	require.NoError(t, err)
	require.Nil(t, blob)
}
