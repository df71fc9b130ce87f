package bptree

import "github.com/askorykh/bptreefs/pager"

// Delete implements §4.2.3: find the leaf, no-op if the key is absent,
// otherwise remove it and rebalance.
func (t *Tree) Delete(key int64) error {
	if t.h.RootPgn == pager.NoPage {
		return nil
	}
	_, found, leaf, err := t.Find(key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return t.deleteEntry(leaf, key, pager.NoPage)
}

// deleteEntry implements the §4.2.3 algorithm of the same name: remove the
// entry, write the page, and either adjust the root, stop (page still
// within bounds), or rebalance against a sibling.
func (t *Tree) deleteEntry(page *pager.Page, key int64, childPgn int64) error {
	if page.IsLeaf {
		idx, found := findKeyIndex(page.Keys, key)
		if found {
			page.Keys = removeInt64At(page.Keys, idx)
			page.Values = removeValueAt(page.Values, idx)
			page.NumKeys--
		}
	} else {
		idx, found := findKeyIndex(page.Keys, key)
		if found {
			page.Keys = removeInt64At(page.Keys, idx)
			page.NumKeys--
		}
		ci := indexOfChild(page.ChildPgns, childPgn)
		if ci >= 0 {
			page.ChildPgns = removeInt64At(page.ChildPgns, ci)
		}
	}
	if err := t.pg.StorePage(page); err != nil {
		return err
	}

	if page.Pgn == t.h.RootPgn {
		return t.adjustRoot(page)
	}

	var min int32
	if page.IsLeaf {
		min = leafMinKeys(t.h.LeafOrder)
	} else {
		min = internalMinKeys(t.h.InternalOrder)
	}
	if page.NumKeys >= min {
		return nil
	}

	parent, err := t.pg.LoadPage(page.ParentPgn)
	if err != nil {
		return err
	}

	pageIndex := indexOfChild(parent.ChildPgns, page.Pgn)
	neighborIndex := pageIndex - 1
	kPrimeIndex := neighborIndex
	if kPrimeIndex < 0 {
		kPrimeIndex = 0
	}
	kPrime := parent.Keys[kPrimeIndex]

	var neighborPgn int64
	if neighborIndex == -1 {
		neighborPgn = parent.ChildPgns[1]
	} else {
		neighborPgn = parent.ChildPgns[neighborIndex]
	}
	neighbor, err := t.pg.LoadPage(neighborPgn)
	if err != nil {
		return err
	}

	var capacity int32
	if page.IsLeaf {
		capacity = t.h.LeafOrder
	} else {
		capacity = t.h.InternalOrder - 1
	}

	if neighbor.NumKeys+page.NumKeys < capacity {
		return t.coalesce(page, neighbor, neighborIndex, parent, kPrime)
	}
	return t.redistribute(page, neighbor, neighborIndex, kPrimeIndex, kPrime, parent)
}

// adjustRoot implements §4.2.3's adjust_root: collapse the tree by one
// level if the root emptied out, or clear it entirely if the root was a
// now-empty leaf.
func (t *Tree) adjustRoot(root *pager.Page) error {
	if root.NumKeys > 0 {
		return nil
	}

	if !root.IsLeaf {
		newRootPgn := root.ChildPgns[0]
		newRoot, err := t.pg.LoadPage(newRootPgn)
		if err != nil {
			return err
		}
		newRoot.ParentPgn = pager.NoPage
		if err := t.pg.StorePage(newRoot); err != nil {
			return err
		}
		if err := t.pg.Free(&t.h, root.Pgn); err != nil {
			return err
		}
		t.h.RootPgn = newRootPgn
		return t.pg.StoreHeader(&t.h)
	}

	if err := t.pg.Free(&t.h, root.Pgn); err != nil {
		return err
	}
	t.h.RootPgn = pager.NoPage
	return t.pg.StoreHeader(&t.h)
}

// coalesce implements §4.2.3's coalesce: merge an undersized page into its
// surviving sibling (always the left of the pair), pull the separator down
// into the survivor for internal pages, and recurse the deletion upward to
// remove the separator from the parent.
func (t *Tree) coalesce(page, neighbor *pager.Page, neighborIndex int, parent *pager.Page, kPrime int64) error {
	survivor, deleted := neighbor, page
	if neighborIndex == -1 {
		survivor, deleted = page, neighbor
	}

	if survivor.IsLeaf {
		survivor.Keys = append(survivor.Keys, deleted.Keys...)
		survivor.Values = append(survivor.Values, deleted.Values...)
		survivor.NumKeys = int32(len(survivor.Keys))
		survivor.RightSibling = deleted.RightSibling
	} else {
		survivor.Keys = append(survivor.Keys, kPrime)
		survivor.Keys = append(survivor.Keys, deleted.Keys...)
		survivor.ChildPgns = append(survivor.ChildPgns, deleted.ChildPgns...)
		survivor.NumKeys = int32(len(survivor.Keys))

		for _, c := range deleted.ChildPgns {
			child, err := t.pg.LoadPage(c)
			if err != nil {
				return err
			}
			child.ParentPgn = survivor.Pgn
			if err := t.pg.StorePage(child); err != nil {
				return err
			}
		}
	}

	if err := t.pg.StorePage(survivor); err != nil {
		return err
	}

	if err := t.deleteEntry(parent, kPrime, deleted.Pgn); err != nil {
		return err
	}

	return t.pg.Free(&t.h, deleted.Pgn)
}

// redistribute implements §4.2.3's redistribute: move exactly one entry
// across the separator from the neighbor into the undersized page,
// rotating the separator key through the parent.
//
// The right-neighbor leaf case reads neighbor.Keys[1] for the new
// separator before shifting neighbor's entries left, matching §9's
// documented off-by-one: after the shift what was index 1 becomes index 0,
// so reading it first and writing it as the separator is correct, whereas
// reading it after the shift would read the wrong (already-shifted) slot.
func (t *Tree) redistribute(page, neighbor *pager.Page, neighborIndex int, kPrimeIndex int, kPrime int64, parent *pager.Page) error {
	if neighborIndex != -1 {
		// Neighbor is to the left: take its last entry.
		if page.IsLeaf {
			lastKey := neighbor.Keys[len(neighbor.Keys)-1]
			lastVal := neighbor.Values[len(neighbor.Values)-1]
			page.Keys = insertInt64At(page.Keys, 0, lastKey)
			page.Values = insertValueAt(page.Values, 0, lastVal)
			neighbor.Keys = neighbor.Keys[:len(neighbor.Keys)-1]
			neighbor.Values = neighbor.Values[:len(neighbor.Values)-1]
			parent.Keys[kPrimeIndex] = page.Keys[0]
		} else {
			lastChild := neighbor.ChildPgns[len(neighbor.ChildPgns)-1]
			lastKey := neighbor.Keys[len(neighbor.Keys)-1]
			page.Keys = insertInt64At(page.Keys, 0, kPrime)
			page.ChildPgns = insertInt64At(page.ChildPgns, 0, lastChild)
			neighbor.Keys = neighbor.Keys[:len(neighbor.Keys)-1]
			neighbor.ChildPgns = neighbor.ChildPgns[:len(neighbor.ChildPgns)-1]
			parent.Keys[kPrimeIndex] = lastKey

			movedChild, err := t.pg.LoadPage(lastChild)
			if err != nil {
				return err
			}
			movedChild.ParentPgn = page.Pgn
			if err := t.pg.StorePage(movedChild); err != nil {
				return err
			}
		}
	} else {
		// Neighbor is the right sibling: take its first entry.
		if page.IsLeaf {
			firstKey := neighbor.Keys[0]
			firstVal := neighbor.Values[0]
			page.Keys = append(page.Keys, firstKey)
			page.Values = append(page.Values, firstVal)
			newSeparator := neighbor.Keys[1]
			neighbor.Keys = removeInt64At(neighbor.Keys, 0)
			neighbor.Values = removeValueAt(neighbor.Values, 0)
			parent.Keys[kPrimeIndex] = newSeparator
		} else {
			firstChild := neighbor.ChildPgns[0]
			page.Keys = append(page.Keys, kPrime)
			page.ChildPgns = append(page.ChildPgns, firstChild)
			parent.Keys[kPrimeIndex] = neighbor.Keys[0]
			neighbor.Keys = removeInt64At(neighbor.Keys, 0)
			neighbor.ChildPgns = removeInt64At(neighbor.ChildPgns, 0)

			movedChild, err := t.pg.LoadPage(firstChild)
			if err != nil {
				return err
			}
			movedChild.ParentPgn = page.Pgn
			if err := t.pg.StorePage(movedChild); err != nil {
				return err
			}
		}
	}

	page.NumKeys++
	neighbor.NumKeys--

	if err := t.pg.StorePage(page); err != nil {
		return err
	}
	if err := t.pg.StorePage(neighbor); err != nil {
		return err
	}
	return t.pg.StorePage(parent)
}
