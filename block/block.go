// Package block implements the large temporary-table block: a
// fixed-size buffer that packs tuples growing from its low end and
// non-inlined objects growing from its high end, swappable to disk and
// reloaded at a different address.
package block

import (
	"fmt"

	"github.com/ltt-engine/blockstore/schema"
)

// BlockSize is the fixed size, in bytes, of every block's storage.
const BlockSize = 8 * 1024 * 1024

// Block is a fixed-size, self-contained buffer holding packed tuples
// and the non-inlined objects they reference. See stringref.go for how
// string refs survive a release/reload cycle at a different address.
type Block struct {
	id     ID
	schema *schema.TupleSchema

	storage  []byte // nil when not resident
	baseAddr uint32 // simulated address storage currently lives at

	tupleInsertionPoint      int // grows upward from 0
	nonInlinedInsertionPoint int // grows downward from BlockSize
	activeTupleCount         int

	pinned bool
	stored bool
}

// New creates a block ready for inserts: pinned, resident, empty,
// backed by a freshly allocated buffer.
func New(id ID, s *schema.TupleSchema) *Block {
	return Adopt(id, s, make([]byte, BlockSize))
}

// Adopt creates a block backed by caller-provided storage, exactly
// BlockSize bytes. The cache uses this to hand blocks an arena-backed
// buffer instead of each block allocating its own, the way
// manager/cache/fixed_size_buffer.go's pool carves one big allocation
// into fixed slices.
func Adopt(id ID, s *schema.TupleSchema, storage []byte) *Block {
	if len(storage) != BlockSize {
		panic(fmt.Sprintf("block %s: adopted storage is %d bytes, want %d", id, len(storage), BlockSize))
	}
	return &Block{
		id:                       id,
		schema:                   s,
		storage:                  storage,
		baseAddr:                 allocateBaseAddr(),
		nonInlinedInsertionPoint: BlockSize,
		pinned:                   true,
	}
}

func (b *Block) ID() ID                    { return b.id }
func (b *Block) Schema() *schema.TupleSchema { return b.schema }
func (b *Block) ActiveTupleCount() int     { return b.activeTupleCount }
func (b *Block) IsResident() bool          { return b.storage != nil }
func (b *Block) IsStored() bool            { return b.stored }
func (b *Block) IsPinned() bool            { return b.pinned }

// AllocatedTupleMemory returns the number of bytes currently occupied
// by tuples in the inline region.
func (b *Block) AllocatedTupleMemory() int { return b.tupleInsertionPoint }

// AllocatedPoolMemory returns the number of bytes currently occupied
// by non-inlined objects in the high region.
func (b *Block) AllocatedPoolMemory() int { return BlockSize - b.nonInlinedInsertionPoint }

// Pin marks the block as in use; it may not be evicted while pinned.
func (b *Block) Pin() {
	if b.pinned {
		panic(fmt.Sprintf("block %s: double pin", b.id))
	}
	b.pinned = true
}

// Unpin releases the pin, making the block eligible for eviction.
func (b *Block) Unpin() {
	if !b.pinned {
		panic(fmt.Sprintf("block %s: unpin while not pinned", b.id))
	}
	b.pinned = false
}

func (b *Block) requireResident() {
	if !b.IsResident() {
		panic(fmt.Sprintf("block %s: operation requires resident storage", b.id))
	}
}

// Insert copies a source tuple's inline body and every non-inlined
// object it owns into this block. It returns false, leaving the block
// unchanged, if the remaining gap cannot hold the tuple plus its
// non-inlined payload.
func (b *Block) Insert(src Source) bool {
	b.requireResident()

	view := src.View()
	rowWidth := b.schema.RowWidth()

	total := 0
	for _, off := range b.schema.StringRefOffsets() {
		ref := decodeStringRef(view[1+off : 1+off+stringRefSize])
		total += int(ref.Length)
	}

	if b.nonInlinedInsertionPoint-b.tupleInsertionPoint < rowWidth+total {
		return false
	}

	row := make([]byte, rowWidth)
	copy(row, view)

	for _, off := range b.schema.StringRefOffsets() {
		ref := decodeStringRef(view[1+off : 1+off+stringRefSize])
		if ref.IsNil() {
			continue
		}
		obj := src.NonInlined(off)
		b.nonInlinedInsertionPoint -= len(obj)
		copy(b.storage[b.nonInlinedInsertionPoint:], obj)
		encodeStringRef(row[1+off:1+off+stringRefSize], StringRef{
			Offset: b.baseAddr + uint32(b.nonInlinedInsertionPoint),
			Length: uint32(len(obj)),
		})
	}

	copy(b.storage[b.tupleInsertionPoint:b.tupleInsertionPoint+rowWidth], row)
	b.tupleInsertionPoint += rowWidth
	b.activeTupleCount++
	return true
}

// CopyNonInlined copies src's entire non-inlined region verbatim into
// the corresponding high bytes of this block. This block's non-inlined
// region must be empty; used ahead of a batch of InsertRelocating
// calls (the Alternative Phase 1 sort strategy).
func (b *Block) CopyNonInlined(src *Block) {
	b.requireResident()
	src.requireResident()
	if b.nonInlinedInsertionPoint != BlockSize {
		panic(fmt.Sprintf("block %s: copy_non_inlined requires an empty non-inlined region", b.id))
	}
	n := BlockSize - src.nonInlinedInsertionPoint
	copy(b.storage[BlockSize-n:], src.storage[src.nonInlinedInsertionPoint:])
	b.nonInlinedInsertionPoint = BlockSize - n
}

// InsertRelocating copies only src's inline body, rewriting every
// string ref as though the non-inlined region src's refs point into
// had already been copied wholesale into this block at the same
// offsets (via a prior CopyNonInlined). The delta applied is this
// block's own baseAddr minus origBase, the base the source refs are
// expressed against.
func (b *Block) InsertRelocating(src Source, origBase uint32) bool {
	b.requireResident()

	view := src.View()
	rowWidth := b.schema.RowWidth()

	if b.nonInlinedInsertionPoint-b.tupleInsertionPoint < rowWidth {
		return false
	}

	row := make([]byte, rowWidth)
	copy(row, view)

	delta := b.baseAddr - origBase
	for _, off := range b.schema.StringRefOffsets() {
		ref := decodeStringRef(row[1+off : 1+off+stringRefSize])
		if ref.IsNil() {
			continue
		}
		ref.Offset += delta
		encodeStringRef(row[1+off:1+off+stringRefSize], ref)
	}

	copy(b.storage[b.tupleInsertionPoint:b.tupleInsertionPoint+rowWidth], row)
	b.tupleInsertionPoint += rowWidth
	b.activeTupleCount++
	return true
}

// Allocate reserves n bytes at the top of the non-inlined region and
// returns their offset within storage. It does not check the gap; the
// caller must already have checked it is large enough. Insert does the
// same bookkeeping inline and does not call Allocate.
func (b *Block) Allocate(n int) int {
	b.requireResident()
	b.nonInlinedInsertionPoint -= n
	return b.nonInlinedInsertionPoint
}

// ReleaseData relinquishes ownership of storage, marking the block
// stored. It returns the buffer and the base address it was resident
// at, both of which the caller (the cache's topend) must hand back
// unchanged to SetData on reload. The block must be unpinned.
func (b *Block) ReleaseData() (buf []byte, origBase uint32) {
	if b.pinned {
		panic(fmt.Sprintf("block %s: release_data while pinned", b.id))
	}
	b.requireResident()
	buf, origBase = b.storage, b.baseAddr
	b.storage = nil
	b.stored = true
	return buf, origBase
}

// SetData installs buf as storage at a freshly assigned simulated
// address and walks every active tuple, adding (new base - origBase)
// to each string ref so it still dereferences correctly.
func (b *Block) SetData(origBase uint32, buf []byte) {
	if len(buf) != BlockSize {
		panic(fmt.Sprintf("block %s: set_data buffer is %d bytes, want %d", b.id, len(buf), BlockSize))
	}
	b.storage = buf
	b.baseAddr = allocateBaseAddr()
	delta := b.baseAddr - origBase

	rowWidth := b.schema.RowWidth()
	for pos := 0; pos < b.tupleInsertionPoint; pos += rowWidth {
		for _, off := range b.schema.StringRefOffsets() {
			slot := b.storage[pos+1+off : pos+1+off+stringRefSize]
			ref := decodeStringRef(slot)
			if ref.IsNil() {
				continue
			}
			ref.Offset += delta
			encodeStringRef(slot, ref)
		}
	}
}

// ClearForTest resets a block to empty without reallocating storage,
// matching LargeTempTableBlock::clearForTest in the system this design
// is adapted from: a fast reset for reusing one buffer across cases.
func (b *Block) ClearForTest() {
	b.requireResident()
	b.tupleInsertionPoint = 0
	b.nonInlinedInsertionPoint = BlockSize
	b.activeTupleCount = 0
	b.stored = false
}

// BaseAddr returns the simulated address this block's storage is
// currently resident at, needed by InsertRelocating callers (the sort
// package's Alternative Phase 1) as the origBase argument when
// relocating tuples copied out of this block.
func (b *Block) BaseAddr() uint32 { return b.baseAddr }

// RawTupleBytes returns the raw status-byte-plus-inline-body bytes of
// slot idx, shared with the block's storage. It exists for callers
// (the sort package's in-place quicksort) that need to move tuples
// around within a block without touching non-inlined data.
func (b *Block) RawTupleBytes(idx int) []byte {
	w := b.schema.RowWidth()
	return b.storage[idx*w : idx*w+w]
}

// Tuple returns a reference to the tuple at the given slot index
// (0-based, in insertion order). Used by the iterator and directly by
// tests; panics if idx is out of range.
func (b *Block) Tuple(idx int) TupleRef {
	if idx < 0 || idx >= b.activeTupleCount {
		panic(fmt.Sprintf("block %s: tuple index %d out of range [0,%d)", b.id, idx, b.activeTupleCount))
	}
	return TupleRef{block: b, pos: idx * b.schema.RowWidth()}
}
