package bptree

import (
	"fmt"

	"github.com/askorykh/bptreefs/pager"
)

// Stats summarizes the tree's shape, used by tests asserting §8's boundary
// properties.
type Stats struct {
	NumPages      int64
	FreePages     int64
	Height        int
	LeafCount     int
	InternalCount int
	KeyCount      int64
}

// Stats walks the tree once to count pages, height, and keys, and counts
// the free list once.
func (t *Tree) Stats() (Stats, error) {
	s := Stats{NumPages: t.h.NumPages}

	free, err := t.pg.FreeListPages()
	if err != nil {
		return s, err
	}
	s.FreePages = int64(len(free))

	if t.h.RootPgn == pager.NoPage {
		return s, nil
	}

	height, err := t.walkStats(t.h.RootPgn, 1, &s)
	if err != nil {
		return s, err
	}
	s.Height = height
	return s, nil
}

func (t *Tree) walkStats(pgn int64, depth int, s *Stats) (int, error) {
	pg, err := t.pg.LoadPage(pgn)
	if err != nil {
		return 0, err
	}
	if pg.IsLeaf {
		s.LeafCount++
		s.KeyCount += int64(pg.NumKeys)
		return depth, nil
	}
	s.InternalCount++
	maxDepth := depth
	for _, c := range pg.ChildPgns {
		d, err := t.walkStats(c, depth+1, s)
		if err != nil {
			return 0, err
		}
		if d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth, nil
}

// Verify checks every structural invariant in §3.3 by walking the tree
// from the root, and cross-checks the leaf-chain traversal against the
// root-descent traversal (§8's first two testable properties). It returns
// the first violation found, wrapped in ErrCorrupt.
func (t *Tree) Verify() error {
	if t.h.RootPgn == pager.NoPage {
		return nil
	}

	seen := make(map[int64]bool)
	if err := t.verifyPage(t.h.RootPgn, pager.NoPage, nil, nil, seen); err != nil {
		return err
	}

	free, err := t.pg.FreeListPages()
	if err != nil {
		return err
	}
	for _, f := range free {
		if seen[f] {
			return fmt.Errorf("page %d reachable from root and on free list: %w", f, ErrCorrupt)
		}
	}
	total := int64(len(seen) + len(free) + 1) // +1 for the header page
	if total != t.h.NumPages {
		return fmt.Errorf("reachable(%d)+free(%d)+header != num_pages(%d): %w", len(seen), len(free), t.h.NumPages, ErrCorrupt)
	}

	descent, err := t.keysByDescent()
	if err != nil {
		return err
	}
	chain, err := t.ScanAll()
	if err != nil {
		return err
	}
	if len(descent) != len(chain) {
		return fmt.Errorf("descent found %d keys, leaf chain found %d: %w", len(descent), len(chain), ErrCorrupt)
	}
	for i := range descent {
		if descent[i] != chain[i].Key {
			return fmt.Errorf("descent/chain key mismatch at position %d: %w", i, ErrCorrupt)
		}
		if i > 0 && chain[i-1].Key >= chain[i].Key {
			return fmt.Errorf("leaf chain out of order at position %d: %w", i, ErrCorrupt)
		}
	}

	return nil
}

// verifyPage checks ordering, routing, and parent-pointer invariants for
// one subtree, recording every visited page number in seen.
func (t *Tree) verifyPage(pgn int64, parentPgn int64, lowKey, highKey *int64, seen map[int64]bool) error {
	if seen[pgn] {
		return fmt.Errorf("page %d reachable via two paths: %w", pgn, ErrCorrupt)
	}
	seen[pgn] = true

	pg, err := t.pg.LoadPage(pgn)
	if err != nil {
		return err
	}
	if pg.ParentPgn != parentPgn {
		return fmt.Errorf("page %d has parent_pgn %d, expected %d: %w", pgn, pg.ParentPgn, parentPgn, ErrCorrupt)
	}
	minKeys, maxKeys := leafMinKeys(t.h.LeafOrder), t.h.LeafOrder-1
	if !pg.IsLeaf {
		minKeys, maxKeys = internalMinKeys(t.h.InternalOrder), t.h.InternalOrder-1
	}
	if parentPgn == pager.NoPage {
		minKeys = 1
	}
	if pg.NumKeys < minKeys || pg.NumKeys > maxKeys {
		return fmt.Errorf("page %d has %d keys, outside [%d,%d]: %w", pgn, pg.NumKeys, minKeys, maxKeys, ErrCorrupt)
	}
	for i := 1; i < len(pg.Keys); i++ {
		if pg.Keys[i-1] >= pg.Keys[i] {
			return fmt.Errorf("page %d keys not strictly ascending at %d: %w", pgn, i, ErrCorrupt)
		}
	}
	for _, k := range pg.Keys {
		if lowKey != nil && k < *lowKey {
			return fmt.Errorf("page %d key %d below subtree bound %d: %w", pgn, k, *lowKey, ErrCorrupt)
		}
		if highKey != nil && k >= *highKey {
			return fmt.Errorf("page %d key %d at/above subtree bound %d: %w", pgn, k, *highKey, ErrCorrupt)
		}
	}

	if pg.IsLeaf {
		return nil
	}

	if len(pg.ChildPgns) != len(pg.Keys)+1 {
		return fmt.Errorf("internal page %d has %d children for %d keys: %w", pgn, len(pg.ChildPgns), len(pg.Keys), ErrCorrupt)
	}
	for i, child := range pg.ChildPgns {
		var lo, hi *int64
		if i > 0 {
			lo = &pg.Keys[i-1]
		} else {
			lo = lowKey
		}
		if i < len(pg.Keys) {
			hi = &pg.Keys[i]
		} else {
			hi = highKey
		}
		if err := t.verifyPage(child, pgn, lo, hi, seen); err != nil {
			return err
		}
	}
	return nil
}

// keysByDescent collects every key via an in-order walk of the tree
// structure (as opposed to the leaf chain), for Verify's cross-check.
func (t *Tree) keysByDescent() ([]int64, error) {
	if t.h.RootPgn == pager.NoPage {
		return nil, nil
	}
	var out []int64
	if err := t.collectInOrder(t.h.RootPgn, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Tree) collectInOrder(pgn int64, out *[]int64) error {
	pg, err := t.pg.LoadPage(pgn)
	if err != nil {
		return err
	}
	if pg.IsLeaf {
		*out = append(*out, pg.Keys...)
		return nil
	}
	for _, child := range pg.ChildPgns {
		if err := t.collectInOrder(child, out); err != nil {
			return err
		}
	}
	return nil
}
