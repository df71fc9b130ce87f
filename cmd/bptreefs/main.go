// Command bptreefs is the entry point for the B+ tree REPL: it wires
// command-line flags into internal/config, opens the tree file named on
// the command line (if any), and hands off to the shell loop.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/askorykh/bptreefs/bptree"
	"github.com/askorykh/bptreefs/internal/config"
	"github.com/askorykh/bptreefs/shell"
)

func main() {
	path := flag.String("path", "", "tree file to open at startup (optional; use the o command otherwise)")
	leaf := flag.Int("leaf-order", 0, "leaf order (0 selects the default)")
	internal := flag.Int("internal-order", 0, "internal order (0 selects the default)")
	flag.Parse()

	fmt.Println("bptreefs — single-file B+ tree shell")
	fmt.Println("type ? for help, q to quit")

	var tree *bptree.Tree
	if *path != "" {
		orders, err := config.Resolve(int32(*leaf), int32(*internal))
		if err != nil {
			log.Fatalf("bptreefs: %v", err)
		}
		opened, err := bptree.Open(*path, orders.Leaf, orders.Internal)
		if err != nil {
			log.Fatalf("bptreefs: opening %s: %v", *path, err)
		}
		tree = opened
		fmt.Printf("opened %s\n", *path)
	}

	os.Exit(shell.RunWithTree(tree, *path, os.Stdin, os.Stdout))
}
