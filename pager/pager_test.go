package pager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenOrCreateInitializesFreeList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")

	p, err := OpenOrCreate(path, 0, 0)
	require.NoError(t, err)
	defer p.Close()

	h, err := p.LoadHeader()
	require.NoError(t, err)
	require.Equal(t, int64(InitPageCount), h.NumPages)
	require.Equal(t, int64(InitPageCount-1), h.FreePgn)
	require.Equal(t, NoPage, h.RootPgn)
	require.Equal(t, DefaultLeafOrder, h.LeafOrder)
	require.Equal(t, DefaultInternalOrder, h.InternalOrder)

	pages, err := p.FreeListPages()
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2, 1}, pages)
}

func TestOpenOrCreateRejectsBadOrders(t *testing.T) {
	_, err := OpenOrCreate(filepath.Join(t.TempDir(), "tree.db"), 2, 0)
	require.ErrorIs(t, err, ErrBadOrder)

	_, err = OpenOrCreate(filepath.Join(t.TempDir(), "tree.db"), 0, 250)
	require.ErrorIs(t, err, ErrBadOrder)
}

func TestReopenPreservesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")

	p, err := OpenOrCreate(path, 4, 4)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	p2, err := OpenOrCreate(path, 0, 0)
	require.NoError(t, err)
	defer p2.Close()

	h, err := p2.LoadHeader()
	require.NoError(t, err)
	require.Equal(t, int32(4), h.LeafOrder)
	require.Equal(t, int32(4), h.InternalOrder)
}

func TestAllocateAndFreeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	p, err := OpenOrCreate(path, 0, 0)
	require.NoError(t, err)
	defer p.Close()

	h, err := p.LoadHeader()
	require.NoError(t, err)

	pg, err := p.Allocate(&h)
	require.NoError(t, err)
	require.Equal(t, int64(3), pg.Pgn)

	pg.IsLeaf = true
	pg.ParentPgn = NoPage
	pg.RightSibling = NoPage
	pg.Keys = []int64{42}
	var v [ValueSize]byte
	copy(v[:], "hello")
	pg.Values = [][ValueSize]byte{v}
	pg.NumKeys = 1
	require.NoError(t, p.StorePage(pg))

	reloaded, err := p.LoadPage(3)
	require.NoError(t, err)
	require.True(t, reloaded.IsLeaf)
	require.Equal(t, []int64{42}, reloaded.Keys)
	require.Equal(t, v, reloaded.Values[0])

	require.NoError(t, p.Free(&h, 3))
	pages, err := p.FreeListPages()
	require.NoError(t, err)
	require.Equal(t, int64(3), pages[0])
}

func TestAllocateGrowsFileWhenFreeListExhausted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	p, err := OpenOrCreate(path, 0, 0)
	require.NoError(t, err)
	defer p.Close()

	h, err := p.LoadHeader()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := p.Allocate(&h)
		require.NoError(t, err)
	}
	require.Equal(t, NoPage, h.FreePgn)
	require.Equal(t, int64(InitPageCount), h.NumPages)

	_, err = p.Allocate(&h)
	require.NoError(t, err)
	require.Equal(t, int64(InitPageCount*2), h.NumPages)
}

func TestInternalPageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	p, err := OpenOrCreate(path, 0, 0)
	require.NoError(t, err)
	defer p.Close()

	h, err := p.LoadHeader()
	require.NoError(t, err)

	pg, err := p.Allocate(&h)
	require.NoError(t, err)
	pg.IsLeaf = false
	pg.ParentPgn = NoPage
	pg.Keys = []int64{10, 20}
	pg.ChildPgns = []int64{1, 2, 3}
	pg.NumKeys = 2
	require.NoError(t, p.StorePage(pg))

	reloaded, err := p.LoadPage(pg.Pgn)
	require.NoError(t, err)
	require.False(t, reloaded.IsLeaf)
	require.Equal(t, []int64{10, 20}, reloaded.Keys)
	require.Equal(t, []int64{1, 2, 3}, reloaded.ChildPgns)
}
