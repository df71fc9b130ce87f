// Package pager owns the on-disk file that backs a B+ tree: fixed-size
// pages, the header page, and the intrusive free-page list. It never
// interprets key/value semantics — that is the bptree package's job.
package pager

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
)

const (
	// PageSize is the fixed size, in bytes, of every page in the file.
	PageSize = 4096

	// ValueSize is the fixed payload size of a leaf entry's value.
	ValueSize = 120

	// treePageHeaderSize is the fixed header every tree page carries
	// before its entry slots begin.
	treePageHeaderSize = 128

	// leafEntrySize is (int64 key, byte[120] value).
	leafEntrySize = 8 + ValueSize

	// internalEntrySize is (int64 key, int64 child_pgn).
	internalEntrySize = 8 + 8

	// InitPageCount is the number of pages a freshly created file reserves:
	// page 0 (header) plus three threaded free pages.
	InitPageCount = 4

	// DefaultLeafOrder and DefaultInternalOrder are used by OpenOrCreate
	// when the caller passes 0 for either order.
	DefaultLeafOrder     int32 = 32
	DefaultInternalOrder int32 = 249

	MinLeafOrder int32 = 3
	MaxLeafOrder int32 = 32

	MinInternalOrder int32 = 3
	MaxInternalOrder int32 = 249

	// NoPage is the sentinel page number meaning "none".
	NoPage int64 = -1

	// HeaderPgn is the fixed page number of the header page.
	HeaderPgn int64 = 0
)

var (
	// ErrBadOrder is returned when leaf_order/internal_order fall outside
	// their allowed bounds.
	ErrBadOrder = errors.New("pager: order out of bounds")

	// ErrShortPage signals a page read that did not return a full
	// PageSize block — a truncated or corrupt file.
	ErrShortPage = errors.New("pager: short page read")

	// ErrCorruptPage signals an in-memory Page whose slice lengths
	// disagree with its NumKeys field.
	ErrCorruptPage = errors.New("pager: inconsistent page fields")
)

// Header is the decoded contents of page 0.
type Header struct {
	FreePgn       int64
	RootPgn       int64
	NumPages      int64
	LeafOrder     int32
	InternalOrder int32
}

// Page is the in-memory view of a tree page, tagged by IsLeaf. Leaves carry
// Values and RightSibling; internals carry ChildPgns (length NumKeys+1).
type Page struct {
	Pgn       int64
	ParentPgn int64
	IsLeaf    bool
	NumKeys   int32

	Keys []int64

	// Leaf-only fields.
	Values       [][ValueSize]byte
	RightSibling int64

	// Internal-only field. ChildPgns[i] for i < NumKeys is the subtree
	// holding keys < Keys[i]; ChildPgns[NumKeys] is the rightmost child.
	ChildPgns []int64
}

// Pager owns the open file handle for one tree. All methods are safe for
// concurrent use by a single goroutine at a time; callers that share a
// Pager across goroutines must serialize access behind their own lock (see
// the concurrency notes in the doc of bptree.Tree).
type Pager struct {
	mu            sync.Mutex
	f             *os.File
	leafOrder     int32
	internalOrder int32
}

// OpenOrCreate opens path if it exists, or creates it as a fresh,
// self-describing B+ tree file with the given orders. Passing 0 for either
// order selects its package default.
func OpenOrCreate(path string, leafOrder, internalOrder int32) (*Pager, error) {
	if leafOrder == 0 {
		leafOrder = DefaultLeafOrder
	}
	if internalOrder == 0 {
		internalOrder = DefaultInternalOrder
	}
	if leafOrder < MinLeafOrder || leafOrder > MaxLeafOrder {
		return nil, fmt.Errorf("pager: leaf order %d outside [%d,%d]: %w", leafOrder, MinLeafOrder, MaxLeafOrder, ErrBadOrder)
	}
	if internalOrder < MinInternalOrder || internalOrder > MaxInternalOrder {
		return nil, fmt.Errorf("pager: internal order %d outside [%d,%d]: %w", internalOrder, MinInternalOrder, MaxInternalOrder, ErrBadOrder)
	}

	if _, err := os.Stat(path); err == nil {
		return openExisting(path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("pager: stat %s: %w", path, err)
	}

	return create(path, leafOrder, internalOrder)
}

func openExisting(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pager: open %s: %w", path, err)
	}
	p := &Pager{f: f}
	h, err := p.LoadHeader()
	if err != nil {
		f.Close()
		return nil, err
	}
	p.leafOrder = h.LeafOrder
	p.internalOrder = h.InternalOrder
	return p, nil
}

func create(path string, leafOrder, internalOrder int32) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pager: create %s: %w", path, err)
	}

	p := &Pager{f: f, leafOrder: leafOrder, internalOrder: internalOrder}

	if err := f.Truncate(int64(InitPageCount) * PageSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("pager: reserve initial pages: %w", err)
	}

	if err := threadFreePages(f, 1, InitPageCount); err != nil {
		f.Close()
		return nil, err
	}

	h := Header{
		FreePgn:       InitPageCount - 1,
		RootPgn:       NoPage,
		NumPages:      InitPageCount,
		LeafOrder:     leafOrder,
		InternalOrder: internalOrder,
	}
	if err := p.StoreHeader(&h); err != nil {
		f.Close()
		return nil, err
	}
	return p, nil
}

// threadFreePages writes the next-pointer chain into pages [from, to): the
// lowest-numbered page gets -1, every subsequent page points at its
// predecessor, so the chain's head (to-1) pops pages in descending order.
func threadFreePages(f *os.File, from, to int64) error {
	for i := from; i < to; i++ {
		next := NoPage
		if i > from {
			next = i - 1
		}
		buf := make([]byte, PageSize)
		binary.LittleEndian.PutUint64(buf[0:8], uint64(next))
		if _, err := f.WriteAt(buf, i*PageSize); err != nil {
			return fmt.Errorf("pager: thread free page %d: %w", i, err)
		}
	}
	return nil
}

// Close closes the underlying file.
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.f.Close()
}

// LeafOrder and InternalOrder report the bounds fixed when the file was
// created; they never change thereafter.
func (p *Pager) LeafOrder() int32     { return p.leafOrder }
func (p *Pager) InternalOrder() int32 { return p.internalOrder }

// LoadHeader reads and decodes page 0.
func (p *Pager) LoadHeader() (Header, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadHeaderLocked()
}

func (p *Pager) loadHeaderLocked() (Header, error) {
	buf := make([]byte, PageSize)
	if _, err := p.f.ReadAt(buf, HeaderPgn*PageSize); err != nil {
		return Header{}, fmt.Errorf("pager: read header: %w", err)
	}
	return Header{
		FreePgn:       int64(binary.LittleEndian.Uint64(buf[0:8])),
		RootPgn:       int64(binary.LittleEndian.Uint64(buf[8:16])),
		NumPages:      int64(binary.LittleEndian.Uint64(buf[16:24])),
		LeafOrder:     int32(binary.LittleEndian.Uint32(buf[24:28])),
		InternalOrder: int32(binary.LittleEndian.Uint32(buf[28:32])),
	}, nil
}

// StoreHeader encodes and writes h to page 0, zero-padding the remainder.
func (p *Pager) StoreHeader(h *Header) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.storeHeaderLocked(h)
}

func (p *Pager) storeHeaderLocked(h *Header) error {
	buf := make([]byte, PageSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(h.FreePgn))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.RootPgn))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.NumPages))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(h.LeafOrder))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(h.InternalOrder))
	if _, err := p.f.WriteAt(buf, HeaderPgn*PageSize); err != nil {
		return fmt.Errorf("pager: write header: %w", err)
	}
	return nil
}

// LoadPage reads and decodes one page.
func (p *Pager) LoadPage(pgn int64) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadPageLocked(pgn)
}

func (p *Pager) loadPageLocked(pgn int64) (*Page, error) {
	buf := make([]byte, PageSize)
	n, err := p.f.ReadAt(buf, pgn*PageSize)
	if err != nil {
		return nil, fmt.Errorf("pager: read page %d: %w", pgn, err)
	}
	if n != PageSize {
		return nil, fmt.Errorf("pager: read page %d: %w", pgn, ErrShortPage)
	}
	return decodePage(pgn, buf)
}

// StorePage encodes and writes pg at its own page number.
func (p *Pager) StorePage(pg *Page) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.storePageLocked(pg)
}

func (p *Pager) storePageLocked(pg *Page) error {
	buf, err := encodePage(pg)
	if err != nil {
		return err
	}
	if _, err := p.f.WriteAt(buf, pg.Pgn*PageSize); err != nil {
		return fmt.Errorf("pager: write page %d: %w", pg.Pgn, err)
	}
	return nil
}

// Allocate pops the free-list head, doubling the file first if the list is
// empty, and returns an uninitialized page stub bearing the popped page
// number. h is mutated in place to reflect FreePgn/NumPages and persisted,
// so that callers threading h through a larger operation (e.g. bptree's
// insert-with-split, which may need to change RootPgn in the same header
// right after allocating) always see a consistent in-memory header rather
// than losing an update to a header reload performed internally here.
func (p *Pager) Allocate(h *Header) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h.FreePgn == NoPage {
		if err := p.growLocked(h); err != nil {
			return nil, err
		}
	}

	pgn := h.FreePgn
	buf := make([]byte, 8)
	if _, err := p.f.ReadAt(buf, pgn*PageSize); err != nil {
		return nil, fmt.Errorf("pager: read free page %d: %w", pgn, err)
	}
	h.FreePgn = int64(binary.LittleEndian.Uint64(buf))
	if err := p.storeHeaderLocked(h); err != nil {
		return nil, err
	}
	return &Page{Pgn: pgn}, nil
}

// growLocked doubles the file's page count and threads the new upper half
// into the free list, with the new tail becoming h.FreePgn. Must be called
// with p.mu held.
func (p *Pager) growLocked(h *Header) error {
	old := h.NumPages
	newTotal := old * 2

	if err := p.f.Truncate(newTotal * PageSize); err != nil {
		return fmt.Errorf("pager: grow to %d pages: %w", newTotal, err)
	}
	if err := threadFreePages(p.f, old, newTotal); err != nil {
		return err
	}

	h.NumPages = newTotal
	h.FreePgn = newTotal - 1
	return nil
}

// Free pushes pgn onto the free-list head. Like Allocate, it mutates and
// persists h in place rather than reloading the header from disk, so a
// caller that both frees a page and changes another header field (e.g.
// adjust_root freeing the old root while setting a new root_pgn) cannot
// have one update silently overwrite the other.
func (p *Pager) Free(h *Header, pgn int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf := make([]byte, PageSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(h.FreePgn))
	if _, err := p.f.WriteAt(buf, pgn*PageSize); err != nil {
		return fmt.Errorf("pager: free page %d: %w", pgn, err)
	}
	h.FreePgn = pgn
	return p.storeHeaderLocked(h)
}

// FreeListPages returns every page number currently on the free chain, in
// pop order. It is intended for diagnostics and tests (§8's free-list
// invariant), not for the hot path: it performs one I/O per chain link.
func (p *Pager) FreeListPages() ([]int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, err := p.loadHeaderLocked()
	if err != nil {
		return nil, err
	}

	var pages []int64
	for pgn := h.FreePgn; pgn != NoPage; {
		pages = append(pages, pgn)
		buf := make([]byte, 8)
		if _, err := p.f.ReadAt(buf, pgn*PageSize); err != nil {
			return nil, fmt.Errorf("pager: read free page %d: %w", pgn, err)
		}
		pgn = int64(binary.LittleEndian.Uint64(buf))
	}
	return pages, nil
}

func encodePage(pg *Page) ([]byte, error) {
	buf := make([]byte, PageSize)

	binary.LittleEndian.PutUint64(buf[0:8], uint64(pg.ParentPgn))
	var isLeaf uint32
	if pg.IsLeaf {
		isLeaf = 1
	}
	binary.LittleEndian.PutUint32(buf[8:12], isLeaf)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(pg.NumKeys))

	if pg.IsLeaf {
		if len(pg.Keys) != int(pg.NumKeys) || len(pg.Values) != int(pg.NumKeys) {
			return nil, fmt.Errorf("pager: encode leaf page %d: %w", pg.Pgn, ErrCorruptPage)
		}
		binary.LittleEndian.PutUint64(buf[120:128], uint64(pg.RightSibling))
		for i := 0; i < int(pg.NumKeys); i++ {
			off := treePageHeaderSize + i*leafEntrySize
			binary.LittleEndian.PutUint64(buf[off:off+8], uint64(pg.Keys[i]))
			copy(buf[off+8:off+8+ValueSize], pg.Values[i][:])
		}
		return buf, nil
	}

	if len(pg.Keys) != int(pg.NumKeys) || len(pg.ChildPgns) != int(pg.NumKeys)+1 {
		return nil, fmt.Errorf("pager: encode internal page %d: %w", pg.Pgn, ErrCorruptPage)
	}
	binary.LittleEndian.PutUint64(buf[120:128], uint64(pg.ChildPgns[pg.NumKeys]))
	for i := 0; i < int(pg.NumKeys); i++ {
		off := treePageHeaderSize + i*internalEntrySize
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(pg.Keys[i]))
		binary.LittleEndian.PutUint64(buf[off+8:off+16], uint64(pg.ChildPgns[i]))
	}
	return buf, nil
}

func decodePage(pgn int64, buf []byte) (*Page, error) {
	if len(buf) != PageSize {
		return nil, fmt.Errorf("pager: decode page %d: %w", pgn, ErrShortPage)
	}

	pg := &Page{
		Pgn:       pgn,
		ParentPgn: int64(binary.LittleEndian.Uint64(buf[0:8])),
		IsLeaf:    binary.LittleEndian.Uint32(buf[8:12]) != 0,
		NumKeys:   int32(binary.LittleEndian.Uint32(buf[12:16])),
	}

	if pg.IsLeaf {
		pg.RightSibling = int64(binary.LittleEndian.Uint64(buf[120:128]))
		pg.Keys = make([]int64, pg.NumKeys)
		pg.Values = make([][ValueSize]byte, pg.NumKeys)
		for i := 0; i < int(pg.NumKeys); i++ {
			off := treePageHeaderSize + i*leafEntrySize
			pg.Keys[i] = int64(binary.LittleEndian.Uint64(buf[off : off+8]))
			copy(pg.Values[i][:], buf[off+8:off+8+ValueSize])
		}
		return pg, nil
	}

	rightmost := int64(binary.LittleEndian.Uint64(buf[120:128]))
	pg.Keys = make([]int64, pg.NumKeys)
	pg.ChildPgns = make([]int64, pg.NumKeys+1)
	for i := 0; i < int(pg.NumKeys); i++ {
		off := treePageHeaderSize + i*internalEntrySize
		pg.Keys[i] = int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		pg.ChildPgns[i] = int64(binary.LittleEndian.Uint64(buf[off+8 : off+16]))
	}
	pg.ChildPgns[pg.NumKeys] = rightmost
	return pg, nil
}
