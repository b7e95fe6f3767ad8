package schema

import "fmt"

// StringRefSize is the on-disk width of a StringRef: a 4-byte offset
// plus a 4-byte length. See block.StringRef for the runtime type; it is
// duplicated here as a constant only so TupleSchema can lay out inline
// offsets without importing the block package (which in turn borrows
// this package).
const StringRefSize = 4 + 4

// maxNullableColumns bounds how many columns of a single schema may be
// declared Nullable: the status byte has one bit reserved for
// "tuple active" and devotes the remaining 7 bits to a null bitmap.
const maxNullableColumns = 7

// TupleSchema is the immutable, precomputed layout of a tuple: column
// order, inline byte offsets, which offsets hold a StringRef (for the
// relocation walk), and which bit of the status byte each nullable
// column's null flag occupies. A TupleSchema is built once and shared
// read-only by every block that stores tuples of this shape.
type TupleSchema struct {
	columns []Column

	tupleLength int // L: sum of all inline widths

	inlineOffsets []int // per-column offset within the inline body
	refOffsets    []int // inline offsets that hold a StringRef, in column order
	nullBit       []int // per-column index into the status byte's null bitmap, -1 if not nullable
}

// NewTupleSchema computes the inline layout for the given columns and
// returns the immutable descriptor. It panics if more than 7 columns
// are marked Nullable, since the status byte cannot express more.
func NewTupleSchema(columns []Column) *TupleSchema {
	s := &TupleSchema{
		columns:       append([]Column(nil), columns...),
		inlineOffsets: make([]int, len(columns)),
		nullBit:       make([]int, len(columns)),
	}

	offset := 0
	nextBit := 1 // bit 0 of the status byte is reserved for "active"
	for i, col := range columns {
		s.inlineOffsets[i] = offset
		if col.Type == ColumnVarchar {
			s.refOffsets = append(s.refOffsets, offset)
		}
		offset += col.Type.InlineWidth()

		if col.Nullable {
			if nextBit > maxNullableColumns {
				panic(fmt.Sprintf("schema: at most %d nullable columns are supported, got one more at column %q", maxNullableColumns, col.Name))
			}
			s.nullBit[i] = nextBit
			nextBit++
		} else {
			s.nullBit[i] = -1
		}
	}
	s.tupleLength = offset

	return s
}

// TupleLength returns L, the size in bytes of the inline body
// (excluding the one-byte status header).
func (s *TupleSchema) TupleLength() int { return s.tupleLength }

// RowWidth returns L+1, the size of one slot in a block's tuple
// region: the status byte plus the inline body.
func (s *TupleSchema) RowWidth() int { return s.tupleLength + 1 }

// ColumnCount returns the number of columns in the schema.
func (s *TupleSchema) ColumnCount() int { return len(s.columns) }

// Column returns the i'th column descriptor.
func (s *TupleSchema) Column(i int) Column { return s.columns[i] }

// InlineOffset returns the byte offset of column i within the inline
// body (i.e. not counting the status byte).
func (s *TupleSchema) InlineOffset(i int) int { return s.inlineOffsets[i] }

// NullBit returns the status-byte bit index for column i's null flag,
// or -1 if the column is not nullable.
func (s *TupleSchema) NullBit(i int) int { return s.nullBit[i] }

// StringRefOffsets returns the inline-body offsets, in column order,
// that hold a StringRef. Used by the relocation walk after a block is
// reloaded at a new address, and by the non-inlined size computation
// for an incoming tuple.
func (s *TupleSchema) StringRefOffsets() []int { return s.refOffsets }
