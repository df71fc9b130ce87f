package bptree

import "github.com/askorykh/bptreefs/pager"

// ceilHalf implements the spec's ceil_half(n) = (n+1)/2 integer division.
func ceilHalf(n int32) int32 {
	return (n + 1) / 2
}

// leafMinKeys and internalMinKeys are the order-derived occupancy floors
// from §3.3 invariant 1.
func leafMinKeys(leafOrder int32) int32     { return ceilHalf(leafOrder - 1) }
func internalMinKeys(internalOrder int32) int32 { return ceilHalf(internalOrder) - 1 }

// findKeyIndex returns the position of key within a strictly ascending
// slice, and whether it was found. When not found, the returned index is
// the insertion point that keeps the slice sorted.
func findKeyIndex(keys []int64, key int64) (idx int, found bool) {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if keys[mid] < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(keys) && keys[lo] == key {
		return lo, true
	}
	return lo, false
}

// childIndexForKey picks the smallest i such that key < keys[i], or
// len(keys) if none — the descent rule from §4.2.1.
func childIndexForKey(keys []int64, key int64) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if key < keys[mid] {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// indexOfChild locates pgn among an internal page's child pointers.
func indexOfChild(childPgns []int64, pgn int64) int {
	for i, c := range childPgns {
		if c == pgn {
			return i
		}
	}
	return -1
}

// insertInt64At inserts v into s at position i, shifting the tail right.
func insertInt64At(s []int64, i int, v int64) []int64 {
	s = append(s, 0)
	copy(s[i+1:], s[i:len(s)-1])
	s[i] = v
	return s
}

// removeInt64At deletes the element at position i, shifting the tail left.
func removeInt64At(s []int64, i int) []int64 {
	copy(s[i:], s[i+1:])
	return s[:len(s)-1]
}

// insertValueAt inserts v into s at position i, shifting the tail right.
func insertValueAt(s [][pager.ValueSize]byte, i int, v [pager.ValueSize]byte) [][pager.ValueSize]byte {
	var zero [pager.ValueSize]byte
	s = append(s, zero)
	copy(s[i+1:], s[i:len(s)-1])
	s[i] = v
	return s
}

// removeValueAt deletes the element at position i, shifting the tail left.
func removeValueAt(s [][pager.ValueSize]byte, i int) [][pager.ValueSize]byte {
	copy(s[i:], s[i+1:])
	return s[:len(s)-1]
}
