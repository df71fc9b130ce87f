package bptree

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func valueFor(key int64) []byte {
	return []byte(fmt.Sprintf("%d", key))
}

func openTestTree(t *testing.T, leafOrder, internalOrder int32) *Tree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.db")
	tree, err := Open(path, leafOrder, internalOrder)
	require.NoError(t, err)
	t.Cleanup(func() { tree.Close() })
	return tree
}

func TestInsertThenFindOnFreshTree(t *testing.T) {
	tree := openTestTree(t, 0, 0)

	require.NoError(t, tree.Insert(7, valueFor(7)))

	v, found, _, err := tree.Find(7)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, valueFor(7), trimValue(v))
}

func TestInsertUpsertOverwritesValue(t *testing.T) {
	tree := openTestTree(t, 0, 0)

	require.NoError(t, tree.Insert(1, []byte("first")))
	require.NoError(t, tree.Insert(1, []byte("second")))

	v, found, _, err := tree.Find(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("second"), trimValue(v))

	stats, err := tree.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.KeyCount)
}

func TestLeafFillAndSplit(t *testing.T) {
	// L=4: a leaf holds up to 3 keys before splitting.
	tree := openTestTree(t, 4, 4)

	for _, k := range []int64{10, 20, 30} {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}
	stats, err := tree.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.LeafCount)

	require.NoError(t, tree.Insert(40, valueFor(40)))

	stats, err = tree.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.LeafCount)
	require.Equal(t, 1, stats.InternalCount)
	require.NoError(t, tree.Verify())

	for _, k := range []int64{10, 20, 30, 40} {
		v, found, _, err := tree.Find(k)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, valueFor(k), trimValue(v))
	}
}

func TestScenarioFromSpecConcreteWalkthrough(t *testing.T) {
	tree := openTestTree(t, 4, 4)

	for _, k := range []int64{10, 20, 30, 40, 5, 15, 25, 35, 45} {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}
	require.NoError(t, tree.Verify())

	stats, err := tree.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 9, stats.KeyCount)

	entries, err := tree.ScanAll()
	require.NoError(t, err)
	require.Len(t, entries, 9)
	for i := 1; i < len(entries); i++ {
		require.Less(t, entries[i-1].Key, entries[i].Key)
	}
}

func TestFindOnEmptyTree(t *testing.T) {
	tree := openTestTree(t, 0, 0)

	_, found, leaf, err := tree.Find(1)
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, leaf)
}

func TestReopenRetainsKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	tree, err := Open(path, 4, 4)
	require.NoError(t, err)

	for _, k := range []int64{10, 20, 30, 40, 5, 15, 25, 35, 45} {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}
	require.NoError(t, tree.Close())

	reopened, err := Open(path, 0, 0)
	require.NoError(t, err)
	defer reopened.Close()

	for _, k := range []int64{10, 20, 30, 40, 5, 15, 25, 35, 45} {
		v, found, _, err := reopened.Find(k)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, valueFor(k), trimValue(v))
	}
}

func TestRandomInsertMatchesVerify(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	rng := rand.New(rand.NewSource(1))

	keys := rng.Perm(200)
	for _, k := range keys {
		require.NoError(t, tree.Insert(int64(k), valueFor(int64(k))))
	}
	require.NoError(t, tree.Verify())

	stats, err := tree.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 200, stats.KeyCount)
}

func trimValue(v [120]byte) []byte {
	i := 0
	for i < len(v) && v[i] != 0 {
		i++
	}
	return v[:i]
}
