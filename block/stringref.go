package block

import (
	"encoding/binary"
	"sync/atomic"
)

// stringRefSize is the on-disk width of a StringRef: a 4-byte offset
// plus a 4-byte length. Must stay in sync with schema.StringRefSize.
const stringRefSize = 4 + 4

// StringRef is a fixed-width handle embedded in a tuple's inline body
// that points at a non-inlined object in the same block's non-inlined
// region. Offset is not a plain slice index into storage: it is
// base-relative, base being whatever pseudo base address the block's
// storage was assigned when the object was written (see baseAddr on
// Block). That keeps set_data's relocation pass — "add
// new_base - orig_base to every string ref" — expressible as the
// literal arithmetic spec.md describes, entirely in terms of uint32
// values rather than unsafe.Pointer, which a moving Go GC could
// invalidate.
//
// Arithmetic on Offset is modular over uint32: baseAddr values wrap,
// but since a ref is only ever dereferenced relative to the base of
// the block it was written against, wraparound is harmless.
type StringRef struct {
	Offset uint32
	Length uint32
}

// IsNil reports whether the ref points at nothing (a null non-inlined
// column).
func (r StringRef) IsNil() bool { return r.Length == 0 && r.Offset == 0 }

func encodeStringRef(dst []byte, r StringRef) {
	binary.LittleEndian.PutUint32(dst[0:4], r.Offset)
	binary.LittleEndian.PutUint32(dst[4:8], r.Length)
}

func decodeStringRef(src []byte) StringRef {
	return StringRef{
		Offset: binary.LittleEndian.Uint32(src[0:4]),
		Length: binary.LittleEndian.Uint32(src[4:8]),
	}
}

// nextBaseAddr hands out simulated base addresses, one per residency
// (block creation, or a reload via SetData), so that a block's notion
// of "the address this buffer currently lives at" changes in an
// observable way across a release/reload cycle even though no real
// memory address changed.
var nextBaseAddr atomic.Uint32

func init() {
	// Start away from zero so a freshly zeroed StringRef unambiguously
	// means "no reference" (see StringRef.IsNil).
	nextBaseAddr.Store(BlockSize)
}

func allocateBaseAddr() uint32 {
	return nextBaseAddr.Add(BlockSize)
}
