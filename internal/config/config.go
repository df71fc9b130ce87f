// Package config resolves the leaf/internal order pair shared by the
// cmd/bptreefs flags and the shell's open command, so both surfaces apply
// the same bounds and the same defaults.
package config

import (
	"fmt"

	"github.com/askorykh/bptreefs/pager"
)

// Orders is a resolved, validated (leaf_order, internal_order) pair.
type Orders struct {
	Leaf     int32
	Internal int32
}

// Resolve validates leaf and internal against the pager's bounds,
// substituting the package defaults for zero values. It is the single
// place both entry points call before opening a tree, so a bad order is
// rejected identically whether it arrived via a command-line flag or a
// shell "o" command argument.
func Resolve(leaf, internal int32) (Orders, error) {
	if leaf == 0 {
		leaf = pager.DefaultLeafOrder
	}
	if internal == 0 {
		internal = pager.DefaultInternalOrder
	}
	if leaf < pager.MinLeafOrder || leaf > pager.MaxLeafOrder {
		return Orders{}, fmt.Errorf("config: leaf order %d outside [%d,%d]: %w", leaf, pager.MinLeafOrder, pager.MaxLeafOrder, pager.ErrBadOrder)
	}
	if internal < pager.MinInternalOrder || internal > pager.MaxInternalOrder {
		return Orders{}, fmt.Errorf("config: internal order %d outside [%d,%d]: %w", internal, pager.MinInternalOrder, pager.MaxInternalOrder, pager.ErrBadOrder)
	}
	return Orders{Leaf: leaf, Internal: internal}, nil
}
