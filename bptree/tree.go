// Package bptree implements the B+ tree engine that sits atop pager: find,
// insert, delete, destroy, and structural rebalancing. It never touches raw
// bytes — every page access goes through a *pager.Pager.
package bptree

import (
	"fmt"

	"github.com/askorykh/bptreefs/pager"
)

// Tree is a handle on one open B+ tree file. A Tree is not safe for
// concurrent use by multiple goroutines; callers needing that must
// serialize access behind their own lock (see SPEC_FULL's concurrency
// notes — this mirrors the single-exclusive-lock posture of the source
// system rather than building internal locking into the engine).
type Tree struct {
	pg *pager.Pager
	h  pager.Header
}

// Open opens path, creating it with the given orders if absent. Passing 0
// for either order selects the pager's package defaults.
func Open(path string, leafOrder, internalOrder int32) (*Tree, error) {
	pg, err := pager.OpenOrCreate(path, leafOrder, internalOrder)
	if err != nil {
		return nil, err
	}
	h, err := pg.LoadHeader()
	if err != nil {
		pg.Close()
		return nil, err
	}
	return &Tree{pg: pg, h: h}, nil
}

// Close closes the underlying file.
func (t *Tree) Close() error {
	return t.pg.Close()
}

// LeafOrder and InternalOrder report the bounds fixed at file creation.
func (t *Tree) LeafOrder() int32     { return t.h.LeafOrder }
func (t *Tree) InternalOrder() int32 { return t.h.InternalOrder }

// IsEmpty reports whether the tree currently has no root.
func (t *Tree) IsEmpty() bool { return t.h.RootPgn == pager.NoPage }

// Find performs the §4.2.1 descent. It returns the value and true on a hit,
// or false (with leaf set to the page that would hold key) on a miss. leaf
// is nil when the tree is empty.
func (t *Tree) Find(key int64) (value [pager.ValueSize]byte, found bool, leaf *pager.Page, err error) {
	if t.h.RootPgn == pager.NoPage {
		return value, false, nil, nil
	}

	pgn := t.h.RootPgn
	for {
		pg, err := t.pg.LoadPage(pgn)
		if err != nil {
			return value, false, nil, err
		}
		if pg.IsLeaf {
			idx, ok := findKeyIndex(pg.Keys, key)
			if ok {
				return pg.Values[idx], true, pg, nil
			}
			return value, false, pg, nil
		}
		i := childIndexForKey(pg.Keys, key)
		pgn = pg.ChildPgns[i]
	}
}

// Insert performs the §4.2.2 upsert: overwrite in place on an exact-key
// hit, otherwise insert in sorted position, splitting leaves (and
// propagating splits up through parents) as needed.
func (t *Tree) Insert(key int64, value []byte) error {
	if len(value) > pager.ValueSize {
		return fmt.Errorf("bptree: insert %d: %w", key, ErrValueTooLarge)
	}
	var v [pager.ValueSize]byte
	copy(v[:], value)

	if t.h.RootPgn == pager.NoPage {
		leaf, err := t.pg.Allocate(&t.h)
		if err != nil {
			return err
		}
		leaf.IsLeaf = true
		leaf.ParentPgn = pager.NoPage
		leaf.RightSibling = pager.NoPage
		leaf.NumKeys = 1
		leaf.Keys = []int64{key}
		leaf.Values = [][pager.ValueSize]byte{v}
		if err := t.pg.StorePage(leaf); err != nil {
			return err
		}
		t.h.RootPgn = leaf.Pgn
		return t.pg.StoreHeader(&t.h)
	}

	_, found, leaf, err := t.Find(key)
	if err != nil {
		return err
	}
	if found {
		idx, _ := findKeyIndex(leaf.Keys, key)
		leaf.Values[idx] = v
		return t.pg.StorePage(leaf)
	}

	idx, _ := findKeyIndex(leaf.Keys, key)
	if leaf.NumKeys < t.h.LeafOrder-1 {
		leaf.Keys = insertInt64At(leaf.Keys, idx, key)
		leaf.Values = insertValueAt(leaf.Values, idx, v)
		leaf.NumKeys++
		return t.pg.StorePage(leaf)
	}

	return t.splitLeaf(leaf, idx, key, v)
}

// splitLeaf implements §4.2.2 step 5: rebuild the full L-length sorted run
// in a temporary buffer, split it across the old leaf and a freshly
// allocated sibling, splice the sibling into the leaf chain, and propagate
// the new separator upward.
func (t *Tree) splitLeaf(old *pager.Page, insertAt int, key int64, value [pager.ValueSize]byte) error {
	L := t.h.LeafOrder

	tmpKeys := make([]int64, 0, L)
	tmpKeys = append(tmpKeys, old.Keys[:insertAt]...)
	tmpKeys = append(tmpKeys, key)
	tmpKeys = append(tmpKeys, old.Keys[insertAt:]...)

	tmpValues := make([][pager.ValueSize]byte, 0, L)
	tmpValues = append(tmpValues, old.Values[:insertAt]...)
	tmpValues = append(tmpValues, value)
	tmpValues = append(tmpValues, old.Values[insertAt:]...)

	split := ceilHalf(L - 1)

	newLeaf, err := t.pg.Allocate(&t.h)
	if err != nil {
		return err
	}

	newLeaf.IsLeaf = true
	newLeaf.ParentPgn = old.ParentPgn
	newLeaf.RightSibling = old.RightSibling
	newLeaf.Keys = append([]int64(nil), tmpKeys[split:]...)
	newLeaf.Values = append([][pager.ValueSize]byte(nil), tmpValues[split:]...)
	newLeaf.NumKeys = int32(len(newLeaf.Keys))

	old.Keys = append(old.Keys[:0], tmpKeys[:split]...)
	old.Values = append(old.Values[:0], tmpValues[:split]...)
	old.NumKeys = int32(len(old.Keys))
	old.RightSibling = newLeaf.Pgn

	if err := t.pg.StorePage(newLeaf); err != nil {
		return err
	}
	if err := t.pg.StorePage(old); err != nil {
		return err
	}

	return t.insertIntoParent(old, newLeaf.Keys[0], newLeaf)
}

// insertIntoParent implements §4.2.2's parent-promotion step, recursing
// upward through splits as needed.
func (t *Tree) insertIntoParent(old *pager.Page, k int64, newPage *pager.Page) error {
	if old.ParentPgn == pager.NoPage {
		root, err := t.pg.Allocate(&t.h)
		if err != nil {
			return err
		}
		root.IsLeaf = false
		root.ParentPgn = pager.NoPage
		root.Keys = []int64{k}
		root.ChildPgns = []int64{old.Pgn, newPage.Pgn}
		root.NumKeys = 1

		old.ParentPgn = root.Pgn
		newPage.ParentPgn = root.Pgn

		if err := t.pg.StorePage(root); err != nil {
			return err
		}
		if err := t.pg.StorePage(old); err != nil {
			return err
		}
		if err := t.pg.StorePage(newPage); err != nil {
			return err
		}
		t.h.RootPgn = root.Pgn
		return t.pg.StoreHeader(&t.h)
	}

	parent, err := t.pg.LoadPage(old.ParentPgn)
	if err != nil {
		return err
	}
	leftIndex := indexOfChild(parent.ChildPgns, old.Pgn)

	if parent.NumKeys < t.h.InternalOrder-1 {
		parent.Keys = insertInt64At(parent.Keys, leftIndex, k)
		parent.ChildPgns = insertInt64At(parent.ChildPgns, leftIndex+1, newPage.Pgn)
		parent.NumKeys++
		newPage.ParentPgn = parent.Pgn
		if err := t.pg.StorePage(newPage); err != nil {
			return err
		}
		return t.pg.StorePage(parent)
	}

	return t.splitInternal(parent, leftIndex, k, newPage)
}

// splitInternal implements §4.2.2's internal-split case: build the I-key,
// (I+1)-child temporary run, promote the middle key rather than keeping it
// in either half, and recurse upward.
func (t *Tree) splitInternal(parent *pager.Page, leftIndex int, k int64, newChild *pager.Page) error {
	I := t.h.InternalOrder

	tmpKeys := make([]int64, 0, I)
	tmpKeys = append(tmpKeys, parent.Keys[:leftIndex]...)
	tmpKeys = append(tmpKeys, k)
	tmpKeys = append(tmpKeys, parent.Keys[leftIndex:]...)

	tmpChildren := make([]int64, 0, I+1)
	tmpChildren = append(tmpChildren, parent.ChildPgns[:leftIndex+1]...)
	tmpChildren = append(tmpChildren, newChild.Pgn)
	tmpChildren = append(tmpChildren, parent.ChildPgns[leftIndex+1:]...)

	split := ceilHalf(I)
	promoted := tmpKeys[split-1]
	newChildIndex := leftIndex + 1

	newPage, err := t.pg.Allocate(&t.h)
	if err != nil {
		return err
	}
	newPage.IsLeaf = false
	newPage.ParentPgn = parent.ParentPgn
	newPage.Keys = append([]int64(nil), tmpKeys[split:]...)
	newPage.ChildPgns = append([]int64(nil), tmpChildren[split:]...)
	newPage.NumKeys = int32(len(newPage.Keys))

	parent.Keys = append(parent.Keys[:0], tmpKeys[:split-1]...)
	parent.ChildPgns = append(parent.ChildPgns[:0], tmpChildren[:split]...)
	parent.NumKeys = int32(len(parent.Keys))

	// newChild's parent pointer, as set by its own split, still names the
	// page being split here, which is wrong if it landed in newPage; set
	// it according to which half of the split it landed in. Every OTHER
	// child that moved to newPage already had the correct parent pointer
	// for the old parent and needs rewriting to newPage; children that
	// stayed in parent need no change (except newChild, handled above).
	if int32(newChildIndex) < split {
		newChild.ParentPgn = parent.Pgn
	} else {
		newChild.ParentPgn = newPage.Pgn
	}
	if err := t.pg.StorePage(newChild); err != nil {
		return err
	}

	for _, c := range newPage.ChildPgns {
		if c == newChild.Pgn {
			continue
		}
		child, err := t.pg.LoadPage(c)
		if err != nil {
			return err
		}
		child.ParentPgn = newPage.Pgn
		if err := t.pg.StorePage(child); err != nil {
			return err
		}
	}

	if err := t.pg.StorePage(newPage); err != nil {
		return err
	}
	if err := t.pg.StorePage(parent); err != nil {
		return err
	}

	return t.insertIntoParent(parent, promoted, newPage)
}
