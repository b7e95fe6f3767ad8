package block

import "fmt"

// Iterator is a mutable random-access cursor over a block's tuples, in
// insertion order. It is invalidated by any subsequent Insert on the
// same block, since an End taken before the insert no longer marks one
// past the last tuple.
type Iterator struct {
	block *Block
	pos   int // current slot index
}

// ConstIterator is the read-only counterpart of Iterator. It shares
// the same cursor arithmetic; the distinction from Iterator is
// documentary, since Go has no way to enforce constness on the
// TupleRef it hands back.
type ConstIterator struct {
	block *Block
	pos   int
}

// Begin returns an iterator positioned at the block's first tuple.
func Begin(b *Block) Iterator { return Iterator{block: b, pos: 0} }

// End returns an iterator positioned one past the block's last tuple.
func End(b *Block) Iterator { return Iterator{block: b, pos: b.activeTupleCount} }

// ConstBegin and ConstEnd are the ConstIterator equivalents of Begin
// and End.
func ConstBegin(b *Block) ConstIterator { return ConstIterator{block: b, pos: 0} }
func ConstEnd(b *Block) ConstIterator   { return ConstIterator{block: b, pos: b.activeTupleCount} }

// AsConst converts a mutable iterator into a read-only one. There is
// no conversion the other way.
func (it Iterator) AsConst() ConstIterator { return ConstIterator{block: it.block, pos: it.pos} }

// Tuple returns a reference to the tuple at the cursor's current
// position.
func (it Iterator) Tuple() TupleRef { return it.block.Tuple(it.pos) }
func (it ConstIterator) Tuple() TupleRef { return it.block.Tuple(it.pos) }

// At returns a reference to the tuple n slots ahead of the cursor,
// without moving it.
func (it Iterator) At(n int) TupleRef      { return it.block.Tuple(it.pos + n) }
func (it ConstIterator) At(n int) TupleRef { return it.block.Tuple(it.pos + n) }

// Next advances the cursor by one slot and returns the new position.
func (it Iterator) Next() Iterator      { return Iterator{block: it.block, pos: it.pos + 1} }
func (it ConstIterator) Next() ConstIterator { return ConstIterator{block: it.block, pos: it.pos + 1} }

// Prev moves the cursor back by one slot and returns the new position.
func (it Iterator) Prev() Iterator      { return Iterator{block: it.block, pos: it.pos - 1} }
func (it ConstIterator) Prev() ConstIterator { return ConstIterator{block: it.block, pos: it.pos - 1} }

// Plus and Minus implement random-access cursor arithmetic (the
// operator+ / operator- family of the templated iterator this design
// generalizes).
func (it Iterator) Plus(n int) Iterator  { return Iterator{block: it.block, pos: it.pos + n} }
func (it Iterator) Minus(n int) Iterator { return Iterator{block: it.block, pos: it.pos - n} }

func (it ConstIterator) Plus(n int) ConstIterator  { return ConstIterator{block: it.block, pos: it.pos + n} }
func (it ConstIterator) Minus(n int) ConstIterator { return ConstIterator{block: it.block, pos: it.pos - n} }

// Diff returns the number of slots between it and other (it - other).
func (it Iterator) Diff(other Iterator) int { return it.pos - other.pos }
func (it ConstIterator) Diff(other ConstIterator) int { return it.pos - other.pos }

// Pos exposes the cursor's slot index, e.g. for building diagnostics.
func (it Iterator) Pos() int      { return it.pos }
func (it ConstIterator) Pos() int { return it.pos }

// Equal and Less compare cursors over the same block; they are the
// only ordering relations provided (there is no Greater, LessOrEqual
// or GreaterOrEqual). Equal panics when the cursors are over different
// blocks; Less compares slot indices only and does not check the block.
func (it Iterator) Equal(other Iterator) bool { return it.sameBlock(other) && it.pos == other.pos }
func (it Iterator) Less(other Iterator) bool  { return it.pos < other.pos }

func (it ConstIterator) Equal(other ConstIterator) bool {
	return it.sameBlock(other) && it.pos == other.pos
}
func (it ConstIterator) Less(other ConstIterator) bool { return it.pos < other.pos }

func (it Iterator) sameBlock(other Iterator) bool {
	if it.block != other.block {
		panic(fmt.Sprintf("block: comparing iterators over different blocks (%s vs %s)", it.block.id, other.block.id))
	}
	return true
}

func (it ConstIterator) sameBlock(other ConstIterator) bool {
	if it.block != other.block {
		panic(fmt.Sprintf("block: comparing iterators over different blocks (%s vs %s)", it.block.id, other.block.id))
	}
	return true
}
