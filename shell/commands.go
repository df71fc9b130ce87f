package shell

import (
	"fmt"
	"os"
	"strings"

	"github.com/askorykh/bptreefs/bptree"
	"github.com/askorykh/bptreefs/internal/config"
)

func (s *shellState) cmdOpen(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "usage: o <path> [leaf_order] [internal_order]")
		return
	}
	var leaf, internal int32
	if len(args) >= 2 {
		v, err := parseInt32(args[1])
		if err != nil {
			fmt.Fprintf(s.out, "error: bad leaf_order %q: %v\n", args[1], err)
			return
		}
		leaf = v
	}
	if len(args) >= 3 {
		v, err := parseInt32(args[2])
		if err != nil {
			fmt.Fprintf(s.out, "error: bad internal_order %q: %v\n", args[2], err)
			return
		}
		internal = v
	}

	orders, err := config.Resolve(leaf, internal)
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}

	if s.tree != nil {
		s.tree.Close()
		s.tree = nil
	}

	tree, err := bptree.Open(args[0], orders.Leaf, orders.Internal)
	if err != nil {
		fmt.Fprintf(s.out, "error opening %s: %v\n", args[0], err)
		return
	}
	s.tree = tree
	s.path = args[0]
	if s.verbose {
		fmt.Fprintf(s.out, "[%s] opened %s (leaf_order=%d internal_order=%d)\n", s.runID, args[0], tree.LeafOrder(), tree.InternalOrder())
	} else {
		fmt.Fprintf(s.out, "opened %s\n", args[0])
	}
}

func (s *shellState) cmdClose() {
	if !s.requireOpen() {
		return
	}
	if err := s.tree.Close(); err != nil {
		fmt.Fprintf(s.out, "error closing: %v\n", err)
	}
	s.tree = nil
	fmt.Fprintln(s.out, "closed")
}

func (s *shellState) cmdInsert(args []string) {
	if !s.requireOpen() {
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(s.out, "usage: i <key> [value]")
		return
	}
	key, err := parseInt64(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "error: bad key %q: %v\n", args[0], err)
		return
	}
	value := args[0]
	if len(args) > 1 {
		value = strings.Join(args[1:], " ")
	}
	if err := s.tree.Insert(key, []byte(value)); err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	if s.verbose {
		fmt.Fprintf(s.out, "[%s] inserted %d = %q\n", s.runID, key, value)
	} else {
		fmt.Fprintln(s.out, "OK")
	}
}

func (s *shellState) cmdDelete(args []string) {
	if !s.requireOpen() {
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(s.out, "usage: d <key>")
		return
	}
	key, err := parseInt64(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "error: bad key %q: %v\n", args[0], err)
		return
	}
	if err := s.tree.Delete(key); err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "OK")
}

func (s *shellState) cmdFind(args []string, withPath bool) {
	if !s.requireOpen() {
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(s.out, "usage: f <key>")
		return
	}
	key, err := parseInt64(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "error: bad key %q: %v\n", args[0], err)
		return
	}
	value, found, leaf, err := s.tree.Find(key)
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	if !found {
		fmt.Fprintf(s.out, "%d: not found\n", key)
		return
	}
	fmt.Fprintf(s.out, "%d: %q\n", key, trimValue(value[:]))
	if withPath && leaf != nil {
		fmt.Fprintf(s.out, "  leaf pgn=%d parent_pgn=%d\n", leaf.Pgn, leaf.ParentPgn)
		path := []int64{leaf.Pgn}
		for pgn := leaf.ParentPgn; pgn >= 0; {
			pg, err := s.tree.LoadDiagnosticPage(pgn)
			if err != nil {
				fmt.Fprintf(s.out, "error: %v\n", err)
				return
			}
			path = append([]int64{pgn}, path...)
			pgn = pg.ParentPgn
		}
		fmt.Fprintf(s.out, "  path (root to leaf): %v\n", path)
	}
}

func (s *shellState) cmdPrintLeaves() {
	if !s.requireOpen() {
		return
	}
	entries, err := s.tree.ScanAll()
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	for _, e := range entries {
		fmt.Fprintf(s.out, "%d: %q\n", e.Key, trimValue(e.Value[:]))
	}
}

func (s *shellState) cmdPrintTree() {
	if !s.requireOpen() {
		return
	}
	if err := printBreadthFirst(s.out, s.tree); err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
}

func (s *shellState) cmdDestroy() {
	if !s.requireOpen() {
		return
	}
	if err := s.tree.Destroy(); err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "OK")
}

func (s *shellState) cmdExecute(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "usage: e <file>")
		return
	}
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "error opening script %s: %v\n", args[0], err)
		return
	}
	defer f.Close()

	sub := &shellState{tree: s.tree, path: s.path, verbose: s.verbose, out: s.out, runID: s.runID}
	sub.runScanner(f, s.out)
	s.tree = sub.tree
	s.path = sub.path
}

func (s *shellState) cmdJoin(args []string) {
	if len(args) < 3 {
		fmt.Fprintln(s.out, "usage: j <path1> <path2> <out_path>")
		return
	}
	t1, err := bptree.Open(args[0], 0, 0)
	if err != nil {
		fmt.Fprintf(s.out, "error opening %s: %v\n", args[0], err)
		return
	}
	defer t1.Close()
	t2, err := bptree.Open(args[1], 0, 0)
	if err != nil {
		fmt.Fprintf(s.out, "error opening %s: %v\n", args[1], err)
		return
	}
	defer t2.Close()

	out, err := bptree.Join(t1, t2, args[2])
	if err != nil {
		fmt.Fprintf(s.out, "error joining: %v\n", err)
		return
	}
	defer out.Close()
	fmt.Fprintf(s.out, "joined into %s\n", args[2])
}

func trimValue(v []byte) []byte {
	i := 0
	for i < len(v) && v[i] != 0 {
		i++
	}
	return v[:i]
}
