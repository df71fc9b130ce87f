package bptree

import "github.com/askorykh/bptreefs/pager"

// Cursor walks the leaf chain in ascending key order starting from a given
// position. It is an additive convenience built on top of the leaf-chain
// invariant (§3.3 invariant 4); the source system exposes no range-scan
// API, but the chain makes one nearly free, so this ports the style of
// vqlite's leaf cursor (seek to a leaf, walk right_sibling pointers)
// rather than re-deriving one from scratch.
type Cursor struct {
	t    *Tree
	leaf *pager.Page
	idx  int
}

// Entry is one key/value pair yielded by a Cursor.
type Entry struct {
	Key   int64
	Value [pager.ValueSize]byte
}

// Scan returns a Cursor positioned at the first key >= start. If the tree
// is empty, the returned cursor yields nothing.
func (t *Tree) Scan(start int64) (*Cursor, error) {
	if t.h.RootPgn == pager.NoPage {
		return &Cursor{t: t}, nil
	}

	pgn := t.h.RootPgn
	for {
		pg, err := t.pg.LoadPage(pgn)
		if err != nil {
			return nil, err
		}
		if pg.IsLeaf {
			idx := childIndexForKeyGE(pg.Keys, start)
			return &Cursor{t: t, leaf: pg, idx: idx}, nil
		}
		i := childIndexForKey(pg.Keys, start)
		pgn = pg.ChildPgns[i]
	}
}

// childIndexForKeyGE returns the first index whose key is >= target.
func childIndexForKeyGE(keys []int64, target int64) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if keys[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Next advances the cursor and returns the next entry, or ok=false when
// the leaf chain is exhausted.
func (c *Cursor) Next() (entry Entry, ok bool, err error) {
	for c.leaf != nil {
		if c.idx < int(c.leaf.NumKeys) {
			entry = Entry{Key: c.leaf.Keys[c.idx], Value: c.leaf.Values[c.idx]}
			c.idx++
			return entry, true, nil
		}
		if c.leaf.RightSibling == pager.NoPage {
			c.leaf = nil
			return entry, false, nil
		}
		next, err := c.t.pg.LoadPage(c.leaf.RightSibling)
		if err != nil {
			return entry, false, err
		}
		c.leaf = next
		c.idx = 0
	}
	return entry, false, nil
}

// ScanAll drains a fresh Scan from the minimum possible key into a slice,
// for callers that want the whole tree's contents at once (diagnostics,
// Join's merge step).
func (t *Tree) ScanAll() ([]Entry, error) {
	cur, err := t.Scan(minInt64)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for {
		e, ok, err := cur.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

const minInt64 = -1 << 63
