package bptree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeleteOnlyKeyEmptiesTree(t *testing.T) {
	tree := openTestTree(t, 0, 0)

	require.NoError(t, tree.Insert(1, valueFor(1)))
	require.NoError(t, tree.Delete(1))

	require.True(t, tree.IsEmpty())
	_, found, _, err := tree.Find(1)
	require.NoError(t, err)
	require.False(t, found)

	free, err := tree.pg.FreeListPages()
	require.NoError(t, err)
	require.Contains(t, free, int64(3))
}

func TestDeleteAbsentKeyIsNoop(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	require.NoError(t, tree.Insert(1, valueFor(1)))

	require.NoError(t, tree.Delete(999))

	v, found, _, err := tree.Find(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, valueFor(1), trimValue(v))
}

func TestDeleteForcesCoalesceAndDropsHeight(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	for _, k := range []int64{10, 20, 30, 40} {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}
	stats, err := tree.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.Height)

	require.NoError(t, tree.Delete(40))
	require.NoError(t, tree.Delete(30))
	require.NoError(t, tree.Verify())

	stats, err = tree.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Height)
	require.EqualValues(t, 2, stats.KeyCount)
}

func TestDestroyClearsRootAndFreesAllPages(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	for _, k := range []int64{10, 20, 30, 40, 5, 15, 25, 35, 45} {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}

	before, err := tree.Stats()
	require.NoError(t, err)
	require.Greater(t, before.InternalCount+before.LeafCount, 0)

	require.NoError(t, tree.Destroy())
	require.True(t, tree.IsEmpty())

	after, err := tree.Stats()
	require.NoError(t, err)
	require.Equal(t, after.NumPages-1, after.FreePages)
}

func TestRandomInsertThenDeleteToEmpty(t *testing.T) {
	const leafOrder, internalOrder int32 = 4, 4
	tree := openTestTree(t, leafOrder, internalOrder)
	rng := rand.New(rand.NewSource(7))

	n := 10 * int(leafOrder) * int(internalOrder)
	keys := rng.Perm(n)
	for _, k := range keys {
		require.NoError(t, tree.Insert(int64(k), valueFor(int64(k))))
	}
	require.NoError(t, tree.Verify())

	deleteOrder := rng.Perm(n)
	for _, k := range deleteOrder {
		require.NoError(t, tree.Delete(int64(k)))
	}

	require.True(t, tree.IsEmpty())
	entries, err := tree.ScanAll()
	require.NoError(t, err)
	require.Empty(t, entries)

	stats, err := tree.Stats()
	require.NoError(t, err)
	require.Equal(t, stats.NumPages-1, stats.FreePages)
}

func TestFindReturnsMostRecentValueAcrossInsertsAndDeletes(t *testing.T) {
	tree := openTestTree(t, 4, 4)

	require.NoError(t, tree.Insert(1, []byte("a")))
	require.NoError(t, tree.Insert(1, []byte("b")))
	v, found, _, err := tree.Find(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("b"), trimValue(v))

	require.NoError(t, tree.Delete(1))
	_, found, _, err = tree.Find(1)
	require.NoError(t, err)
	require.False(t, found)
}

func TestPageRoundTripThroughPager(t *testing.T) {
	tree := openTestTree(t, 4, 4)
	require.NoError(t, tree.Insert(1, valueFor(1)))

	h, err := tree.pg.LoadHeader()
	require.NoError(t, err)

	page, err := tree.pg.LoadPage(h.RootPgn)
	require.NoError(t, err)
	require.NoError(t, tree.pg.StorePage(page))

	reloaded, err := tree.pg.LoadPage(h.RootPgn)
	require.NoError(t, err)
	require.Equal(t, page.Keys, reloaded.Keys)
	require.Equal(t, page.Values, reloaded.Values)
}
