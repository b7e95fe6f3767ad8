// Package schema describes the immutable shape of tuples stored in a
// block: column count, types, and which columns are stored inline vs.
// by reference to a non-inlined object. A schema is borrowed by every
// block that uses it and outlives any of them.
package schema

// ColumnType identifies the wire representation of a single column.
type ColumnType uint8

const (
	ColumnInt8 ColumnType = iota
	ColumnInt16
	ColumnInt32
	ColumnInt64
	ColumnFloat32
	ColumnFloat64
	// ColumnVarchar columns are never stored inline: the inline body
	// holds a StringRef pointing at the actual bytes elsewhere in the
	// same block.
	ColumnVarchar
)

func (t ColumnType) String() string {
	switch t {
	case ColumnInt8:
		return "Int8"
	case ColumnInt16:
		return "Int16"
	case ColumnInt32:
		return "Int32"
	case ColumnInt64:
		return "Int64"
	case ColumnFloat32:
		return "Float32"
	case ColumnFloat64:
		return "Float64"
	case ColumnVarchar:
		return "Varchar"
	default:
		return "Unknown"
	}
}

// InlineWidth returns the number of bytes this column occupies in the
// inline tuple body: the scalar's own size for fixed-width columns, or
// the size of a StringRef for non-inlined columns.
func (t ColumnType) InlineWidth() int {
	switch t {
	case ColumnInt8:
		return 1
	case ColumnInt16:
		return 2
	case ColumnInt32, ColumnFloat32:
		return 4
	case ColumnInt64, ColumnFloat64:
		return 8
	case ColumnVarchar:
		return StringRefSize
	default:
		panic("schema: unknown column type " + t.String())
	}
}

// Column describes one field of a tuple.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}
