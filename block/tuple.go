package block

import (
	"encoding/binary"
	"math"

	"github.com/ltt-engine/blockstore/schema"
)

// statusActive marks bit 0 of a tuple's status byte. The remaining
// bits hold the schema's null bitmap (schema.TupleSchema.NullBit).
const statusActive = 1 << 0

// TupleView is the raw status-byte-plus-inline-body bytes of one
// tuple slot: schema.RowWidth() bytes, shared with whatever storage
// backs it. Block.Insert and Block.InsertRelocating read a source
// tuple through it. The sort driver's three-memcpy swap moves the same
// bytes via Block.RawTupleBytes; it only ever needs to move inline
// bytes around — non-inlined data travels unmodified because string
// refs carry it along.
type TupleView []byte

// Active reports whether the tuple's slot is in use. Only meaningful
// for views taken directly off a block; a freshly built
// StandaloneTuple is active as soon as SetActive is called.
func (v TupleView) Active() bool { return v[0]&statusActive != 0 }

// Source is anything Block.Insert or Block.InsertRelocating can copy a
// tuple from: a StandaloneTuple built by a caller assembling a row
// field by field, or a TupleRef read out of another block.
type Source interface {
	// View returns the status byte plus inline body, RowWidth() bytes.
	View() TupleView
	// NonInlined returns the bytes of the non-inlined object referenced
	// by the StringRef at the given inline-body offset. offset must be
	// one of the source's schema.StringRefOffsets().
	NonInlined(inlineOffset int) []byte
}

// StandaloneTuple is scratch storage for one tuple, fully owned and
// not resident in any block: a single allocate-and-fill scratch row
// used by test fixtures and the benchmark driver to assemble rows. It
// is built field by field via the Set* methods, then
// used as a Source for Block.Insert.
type StandaloneTuple struct {
	schema *schema.TupleSchema
	body   []byte
	blobs  map[int][]byte // inline offset -> owned non-inlined bytes
}

// NewStandaloneTuple allocates an all-zero tuple for the given schema.
func NewStandaloneTuple(s *schema.TupleSchema) *StandaloneTuple {
	return &StandaloneTuple{
		schema: s,
		body:   make([]byte, s.RowWidth()),
		blobs:  make(map[int][]byte),
	}
}

// SetActive marks the tuple as occupied. Insert copies the status byte
// as it is; it neither sets nor checks this bit.
func (t *StandaloneTuple) SetActive() { t.body[0] |= statusActive }

// SetNull marks column i's value absent. The column must be nullable.
func (t *StandaloneTuple) SetNull(i int) {
	bit := t.schema.NullBit(i)
	if bit < 0 {
		panic("block: column is not nullable")
	}
	t.body[0] |= 1 << uint(bit)
}

func (t *StandaloneTuple) clearNull(i int) {
	bit := t.schema.NullBit(i)
	if bit >= 0 {
		t.body[0] &^= 1 << uint(bit)
	}
}

func (t *StandaloneTuple) inlineSlice(i int) []byte {
	off := 1 + t.schema.InlineOffset(i)
	width := t.schema.Column(i).Type.InlineWidth()
	return t.body[off : off+width]
}

// SetInt8, SetInt16, SetInt32, SetInt64 write a fixed-width integer
// column. The column must declare a matching ColumnType.
func (t *StandaloneTuple) SetInt8(i int, v int8) {
	t.clearNull(i)
	t.inlineSlice(i)[0] = byte(v)
}

func (t *StandaloneTuple) SetInt16(i int, v int16) {
	t.clearNull(i)
	binary.LittleEndian.PutUint16(t.inlineSlice(i), uint16(v))
}

func (t *StandaloneTuple) SetInt32(i int, v int32) {
	t.clearNull(i)
	binary.LittleEndian.PutUint32(t.inlineSlice(i), uint32(v))
}

func (t *StandaloneTuple) SetInt64(i int, v int64) {
	t.clearNull(i)
	binary.LittleEndian.PutUint64(t.inlineSlice(i), uint64(v))
}

// SetFloat32 and SetFloat64 write a fixed-width float column.
func (t *StandaloneTuple) SetFloat32(i int, v float32) {
	t.clearNull(i)
	binary.LittleEndian.PutUint32(t.inlineSlice(i), math.Float32bits(v))
}

func (t *StandaloneTuple) SetFloat64(i int, v float64) {
	t.clearNull(i)
	binary.LittleEndian.PutUint64(t.inlineSlice(i), math.Float64bits(v))
}

// SetString writes a non-inlined varchar column. The actual bytes are
// held by the StandaloneTuple itself (via NonInlined); the StringRef
// written into the inline body carries only the length, since the
// offset is meaningless until a destination block copies the object
// into its own non-inlined region and rewrites it.
func (t *StandaloneTuple) SetString(i int, v string) {
	t.clearNull(i)
	off := t.schema.InlineOffset(i)
	blob := []byte(v)
	t.blobs[off] = blob
	encodeStringRef(t.inlineSlice(i), StringRef{Length: uint32(len(blob))})
}

func (t *StandaloneTuple) View() TupleView { return TupleView(t.body) }

func (t *StandaloneTuple) NonInlined(inlineOffset int) []byte {
	return t.blobs[inlineOffset]
}

// TupleRef refers to one tuple slot resident in a Block. Unlike
// StandaloneTuple it owns no storage of its own: every accessor reads
// straight out of the owning block's buffer, dereferencing
// non-inlined columns through the block's current base address. Go
// has no const-correctness, so the same type backs both the mutable
// Iterator and the read-only ConstIterator; callers of the latter are
// expected not to use TupleRef as an InsertRelocating source.
type TupleRef struct {
	block *Block
	pos   int // offset of the status byte within block.storage
}

func (t TupleRef) View() TupleView {
	w := t.block.schema.RowWidth()
	return TupleView(t.block.storage[t.pos : t.pos+w])
}

func (t TupleRef) inlineSlice(i int) []byte {
	off := 1 + t.pos + t.block.schema.InlineOffset(i)
	width := t.block.schema.Column(i).Type.InlineWidth()
	return t.block.storage[off : off+width]
}

// IsNull reports whether column i is absent in this tuple.
func (t TupleRef) IsNull(i int) bool {
	bit := t.block.schema.NullBit(i)
	if bit < 0 {
		return false
	}
	return t.block.storage[t.pos]&(1<<uint(bit)) != 0
}

// Int64 reads column i as a 64-bit integer, widening Int8/Int16/Int32
// columns with sign extension.
func (t TupleRef) Int64(i int) int64 {
	b := t.inlineSlice(i)
	switch t.block.schema.Column(i).Type {
	case schema.ColumnInt8:
		return int64(int8(b[0]))
	case schema.ColumnInt16:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case schema.ColumnInt32:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	case schema.ColumnInt64:
		return int64(binary.LittleEndian.Uint64(b))
	default:
		panic("block: column is not an integer type")
	}
}

// Float64 reads column i as a 64-bit float, widening a Float32 column.
func (t TupleRef) Float64(i int) float64 {
	b := t.inlineSlice(i)
	switch t.block.schema.Column(i).Type {
	case schema.ColumnFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case schema.ColumnFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		panic("block: column is not a float type")
	}
}

// String reads column i's non-inlined bytes, dereferencing the
// StringRef through the owning block's current base address.
func (t TupleRef) String(i int) string {
	ref := decodeStringRef(t.inlineSlice(i))
	if ref.IsNil() {
		return ""
	}
	local := ref.Offset - t.block.baseAddr
	return string(t.block.storage[local : local+ref.Length])
}

// NonInlined returns the raw bytes of the non-inlined object
// referenced by the StringRef at the given inline-body offset,
// satisfying Source for copy_non_inlined / insert_relocating.
func (t TupleRef) NonInlined(inlineOffset int) []byte {
	ref := decodeStringRef(t.block.storage[1+t.pos+inlineOffset : 1+t.pos+inlineOffset+stringRefSize])
	if ref.IsNil() {
		return nil
	}
	local := ref.Offset - t.block.baseAddr
	return t.block.storage[local : local+ref.Length]
}
