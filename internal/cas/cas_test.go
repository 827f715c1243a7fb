package cas

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExtractReplaceRoundTrip(t *testing.T) {
	path := writeTempFile(t, "l1\nl2\nl3\nl4\n")
	s := New(time.Hour)
	ctx := context.Background()

	buf, err := s.Extract(ctx, path, 2, 3, false)
	require.NoError(t, err)
	require.Equal(t, []string{"l2", "l3"}, buf.Lines)

	require.NoError(t, os.WriteFile(path, []byte("l1\nXXXX\nYYYY\nl4\n"), 0644))

	require.NoError(t, s.Replace(ctx, path, 2, 3, buf.HashID))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "l1\nl2\nl3\nl4\n", string(content))
}

func TestExtractOutOfRange(t *testing.T) {
	path := writeTempFile(t, "l1\nl2\n")
	s := New(time.Hour)

	_, err := s.Extract(context.Background(), path, 1, 10, false)
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestExtractCut(t *testing.T) {
	path := writeTempFile(t, "l1\nl2\nl3\n")
	s := New(time.Hour)

	_, err := s.Extract(context.Background(), path, 2, 2, true)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "l1\nl3\n", string(content))
}

func TestContentAndClear(t *testing.T) {
	s := New(time.Hour)
	buf, err := s.Content(context.Background(), []byte("hello\nworld"))
	require.NoError(t, err)

	infos, total := s.List()
	require.Len(t, infos, 1)
	require.Positive(t, total)

	n := s.Clear(buf.HashID)
	require.Equal(t, 1, n)

	_, _, err2 := lookupErr(s, buf.HashID)
	require.Error(t, err2)
}

func lookupErr(s *Store, hashID string) (string, int, error) {
	buf, err := s.lookup(hashID)
	if err != nil {
		return "", 0, err
	}
	return buf.HashID, len(buf.Lines), nil
}

func TestExpiredBufferFailsOnUse(t *testing.T) {
	path := writeTempFile(t, "l1\nl2\n")
	s := New(10 * time.Millisecond)

	buf, err := s.Extract(context.Background(), path, 1, 1, false)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	err = s.Insert(context.Background(), path, 0, buf.HashID)
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestInsertAtBeginning(t *testing.T) {
	path := writeTempFile(t, "l2\nl3\n")
	s := New(time.Hour)

	buf, err := s.Content(context.Background(), []byte("l1"))
	require.NoError(t, err)

	require.NoError(t, s.Insert(context.Background(), path, 0, buf.HashID))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "l1\nl2\nl3\n", string(content))
}
