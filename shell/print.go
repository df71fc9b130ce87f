package shell

import (
	"fmt"
	"io"

	"github.com/askorykh/bptreefs/bptree"
)

// printBreadthFirst implements the `t` command: one line per tree level,
// internal pages shown as their separator keys, leaves shown as their
// key lists.
func printBreadthFirst(out io.Writer, t *bptree.Tree) error {
	root := t.RootPgn()
	if root < 0 {
		fmt.Fprintln(out, "(empty)")
		return nil
	}

	level := []int64{root}
	depth := 0
	for len(level) > 0 {
		var next []int64
		fmt.Fprintf(out, "level %d:", depth)
		for _, pgn := range level {
			pg, err := t.LoadDiagnosticPage(pgn)
			if err != nil {
				return err
			}
			if pg.IsLeaf {
				fmt.Fprintf(out, " [pgn=%d keys=%v]", pg.Pgn, pg.Keys)
			} else {
				fmt.Fprintf(out, " [pgn=%d keys=%v]", pg.Pgn, pg.Keys)
				next = append(next, pg.ChildPgns...)
			}
		}
		fmt.Fprintln(out)
		level = next
		depth++
	}
	return nil
}
