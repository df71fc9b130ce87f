package bptree

import "github.com/askorykh/bptreefs/pager"

// RootPgn exposes the current root page number (pager.NoPage when empty),
// for diagnostic traversal by callers like the shell's tree-printing
// commands.
func (t *Tree) RootPgn() int64 { return t.h.RootPgn }

// LoadDiagnosticPage loads one page by number for read-only inspection. It
// performs no structural bookkeeping and must not be used to mutate a page
// that is later passed to StorePage-driving internals.
func (t *Tree) LoadDiagnosticPage(pgn int64) (*pager.Page, error) {
	return t.pg.LoadPage(pgn)
}
