package bptree

import "github.com/askorykh/bptreefs/pager"

// Destroy implements §4.2.4: a post-order traversal that frees every
// reachable page, then clears root_pgn. It is idempotent on an already
// empty tree.
func (t *Tree) Destroy() error {
	if t.h.RootPgn == pager.NoPage {
		return nil
	}
	if err := t.destroyPage(t.h.RootPgn); err != nil {
		return err
	}
	t.h.RootPgn = pager.NoPage
	return t.pg.StoreHeader(&t.h)
}

func (t *Tree) destroyPage(pgn int64) error {
	page, err := t.pg.LoadPage(pgn)
	if err != nil {
		return err
	}
	if !page.IsLeaf {
		for _, child := range page.ChildPgns {
			if err := t.destroyPage(child); err != nil {
				return err
			}
		}
	}
	return t.pg.Free(&t.h, pgn)
}
