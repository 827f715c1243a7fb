package txn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBeginRejectsDuplicateID(t *testing.T) {
	m := New(t.TempDir())
	_, err := m.Begin("tx1")
	require.NoError(t, err)

	_, err = m.Begin("tx1")
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestCommitAppliesWriteAndPatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello world")

	m := New(root)
	tx, err := m.Begin("")
	require.NoError(t, err)

	_, err = m.AddOperation(tx.ID, OpWrite, "b.txt", map[string]any{"content": "new file"})
	require.NoError(t, err)
	_, err = m.AddOperation(tx.ID, OpPatch, "a.txt", map[string]any{"search_string": "hello", "replace_string": "goodbye"})
	require.NoError(t, err)

	result, err := m.Commit(tx.ID)
	require.NoError(t, err)
	require.Equal(t, 2, result.OperationsApplied)
	require.ElementsMatch(t, []string{"b.txt", "a.txt"}, result.FilesChanged)
	require.Len(t, result.Diffs, 2)

	content, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "goodbye world", string(content))

	content, err = os.ReadFile(filepath.Join(root, "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "new file", string(content))

	got, err := m.Get(tx.ID)
	require.NoError(t, err)
	require.Equal(t, Committed, got.Status)
}

func TestCommitRollsBackOnFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "original")

	m := New(root)
	tx, err := m.Begin("")
	require.NoError(t, err)

	_, err = m.AddOperation(tx.ID, OpWrite, "a.txt", map[string]any{"content": "overwritten"})
	require.NoError(t, err)
	_, err = m.AddOperation(tx.ID, OpPatch, "missing.txt", map[string]any{"search_string": "x", "replace_string": "y"})
	require.NoError(t, err)

	_, err = m.Commit(tx.ID)
	require.Error(t, err)

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	require.Equal(t, 1, commitErr.FailedOpIndex)

	content, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "original", string(content), "first operation should have been restored")

	got, err := m.Get(tx.ID)
	require.NoError(t, err)
	require.Equal(t, Failed, got.Status)
}

func TestRollbackDiscardsStagedOps(t *testing.T) {
	m := New(t.TempDir())
	tx, err := m.Begin("")
	require.NoError(t, err)

	_, err = m.AddOperation(tx.ID, OpCreateDir, "newdir", nil)
	require.NoError(t, err)

	require.NoError(t, m.Rollback(tx.ID))

	_, err = m.Commit(tx.ID)
	require.ErrorIs(t, err, ErrNotActive)
}

func TestAddOperationFlagsConflictButStillStages(t *testing.T) {
	m := New(t.TempDir())
	tx, err := m.Begin("")
	require.NoError(t, err)

	op, err := m.AddOperation(tx.ID, OpPatch, "does-not-exist.txt", map[string]any{"search_string": "a", "replace_string": "b"})
	require.NoError(t, err)
	require.NotEmpty(t, op.Conflict)
	require.Equal(t, OpStaged, op.Status)
}

func TestListTransactionsSortedByRecency(t *testing.T) {
	m := New(t.TempDir())
	_, err := m.Begin("tx1")
	require.NoError(t, err)
	_, err = m.Begin("tx2")
	require.NoError(t, err)

	txns := m.List()
	require.Len(t, txns, 2)
	require.Equal(t, "tx2", txns[0].ID)
}

func TestCommitEmptyTransactionFails(t *testing.T) {
	m := New(t.TempDir())
	tx, err := m.Begin("")
	require.NoError(t, err)

	_, err = m.Commit(tx.ID)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestCommitDeleteSafeMovesToTrash(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doomed.txt", "bye")

	m := New(root)
	tx, err := m.Begin("")
	require.NoError(t, err)

	_, err = m.AddOperation(tx.ID, OpDeleteSafe, "doomed.txt", map[string]any{"reason": "cleanup"})
	require.NoError(t, err)

	result, err := m.Commit(tx.ID)
	require.NoError(t, err)
	require.Equal(t, 1, result.OperationsApplied)
	require.NoFileExists(t, filepath.Join(root, "doomed.txt"))
}
