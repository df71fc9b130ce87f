package bptree

import "errors"

var (
	// ErrNotFound names the absence of a key. No operation in this package
	// returns it: Find reports absence via a boolean and Delete of an absent
	// key is a no-op; callers built on top of them may return it.
	ErrNotFound = errors.New("bptree: key not found")

	// ErrValueTooLarge is returned by Insert when the supplied value
	// exceeds pager.ValueSize bytes.
	ErrValueTooLarge = errors.New("bptree: value exceeds maximum payload size")

	// ErrEmptyTree names the state where root_pgn is -1. No operation in
	// this package returns it: Find, Scan, Stats, Verify and Destroy all
	// treat an empty tree as a normal case.
	ErrEmptyTree = errors.New("bptree: tree is empty")

	// ErrCorrupt is returned by Verify, and may be wrapped by internal
	// operations that detect a structural invariant violation while
	// traversing a page.
	ErrCorrupt = errors.New("bptree: structural invariant violated")
)
