package bptree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinMergesDisjointTrees(t *testing.T) {
	dir := t.TempDir()
	t1, err := Open(filepath.Join(dir, "a.db"), 4, 4)
	require.NoError(t, err)
	defer t1.Close()
	t2, err := Open(filepath.Join(dir, "b.db"), 4, 4)
	require.NoError(t, err)
	defer t2.Close()

	for _, k := range []int64{1, 3, 5} {
		require.NoError(t, t1.Insert(k, valueFor(k)))
	}
	for _, k := range []int64{2, 4, 6} {
		require.NoError(t, t2.Insert(k, valueFor(k)))
	}

	out, err := Join(t1, t2, filepath.Join(dir, "out.db"))
	require.NoError(t, err)
	defer out.Close()
	require.NoError(t, out.Verify())

	entries, err := out.ScanAll()
	require.NoError(t, err)
	require.Len(t, entries, 6)
	for i, k := range []int64{1, 2, 3, 4, 5, 6} {
		require.Equal(t, k, entries[i].Key)
	}
}

func TestJoinLeftTreeWinsOnDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	t1, err := Open(filepath.Join(dir, "a.db"), 4, 4)
	require.NoError(t, err)
	defer t1.Close()
	t2, err := Open(filepath.Join(dir, "b.db"), 4, 4)
	require.NoError(t, err)
	defer t2.Close()

	require.NoError(t, t1.Insert(1, []byte("left")))
	require.NoError(t, t2.Insert(1, []byte("right")))

	out, err := Join(t1, t2, filepath.Join(dir, "out.db"))
	require.NoError(t, err)
	defer out.Close()

	v, found, _, err := out.Find(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("left"), trimValue(v))
}
