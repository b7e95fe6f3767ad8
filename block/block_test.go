package block

import (
	"testing"

	"github.com/google/uuid"
	"github.com/ltt-engine/blockstore/schema"
)

func testSchema() *schema.TupleSchema {
	return schema.NewTupleSchema([]schema.Column{
		{Name: "id", Type: schema.ColumnInt64},
		{Name: "name", Type: schema.ColumnVarchar},
		{Name: "score", Type: schema.ColumnInt32, Nullable: true},
	})
}

func insertRow(t *testing.T, b *Block, s *schema.TupleSchema, id int64, name string, score int32, scoreNull bool) bool {
	t.Helper()
	row := NewStandaloneTuple(s)
	row.SetActive()
	row.SetInt64(0, id)
	row.SetString(1, name)
	if scoreNull {
		row.SetNull(2)
	} else {
		row.SetInt32(2, score)
	}
	return b.Insert(row)
}

func TestBlockInsertAndRead(t *testing.T) {
	s := testSchema()
	b := New(uuid.New(), s)

	if ok := insertRow(t, b, s, 1, "alice", 10, false); !ok {
		t.Fatal("insert 1 failed")
	}
	if ok := insertRow(t, b, s, 2, "bob", 0, true); !ok {
		t.Fatal("insert 2 failed")
	}

	if got, want := b.ActiveTupleCount(), 2; got != want {
		t.Fatalf("ActiveTupleCount() = %d, want %d", got, want)
	}

	r0 := b.Tuple(0)
	if got := r0.Int64(0); got != 1 {
		t.Errorf("tuple 0 id = %d, want 1", got)
	}
	if got := r0.String(1); got != "alice" {
		t.Errorf("tuple 0 name = %q, want %q", got, "alice")
	}
	if r0.IsNull(2) {
		t.Error("tuple 0 score should not be null")
	}
	if got := r0.Int64(2); got != 10 {
		t.Errorf("tuple 0 score = %d, want 10", got)
	}

	r1 := b.Tuple(1)
	if got := r1.String(1); got != "bob" {
		t.Errorf("tuple 1 name = %q, want %q", got, "bob")
	}
	if !r1.IsNull(2) {
		t.Error("tuple 1 score should be null")
	}
}

func TestBlockInsertFillsAndOverflows(t *testing.T) {
	s := testSchema()
	b := New(uuid.New(), s)

	count := 0
	for insertRow(t, b, s, int64(count), "xxxxxxxxxx", int32(count), false) {
		count++
	}

	if count == 0 {
		t.Fatal("expected at least one tuple to fit")
	}
	if got := b.ActiveTupleCount(); got != count {
		t.Fatalf("ActiveTupleCount() = %d, want %d", got, count)
	}

	// The block is now full: one more insert must fail and leave state
	// unchanged.
	before := b.ActiveTupleCount()
	if insertRow(t, b, s, 999, "overflow", 0, false) {
		t.Fatal("expected insert to fail once the block is full")
	}
	if got := b.ActiveTupleCount(); got != before {
		t.Fatalf("ActiveTupleCount() changed after failed insert: %d != %d", got, before)
	}
}

func TestBlockPinUnpin(t *testing.T) {
	s := testSchema()
	b := New(uuid.New(), s)

	if !b.IsPinned() {
		t.Fatal("a newly created block must start pinned")
	}

	b.Unpin()
	if b.IsPinned() {
		t.Fatal("Unpin did not clear pinned")
	}

	b.Pin()
	if !b.IsPinned() {
		t.Fatal("Pin did not set pinned")
	}
}

func TestBlockUnpinWhileUnpinnedPanics(t *testing.T) {
	s := testSchema()
	b := New(uuid.New(), s)
	b.Unpin()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double unpin")
		}
	}()
	b.Unpin()
}

func TestBlockDoublePinPanics(t *testing.T) {
	s := testSchema()
	b := New(uuid.New(), s)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double pin")
		}
	}()
	b.Pin()
}

func TestBlockRelocationRoundTrip(t *testing.T) {
	s := testSchema()
	b := New(uuid.New(), s)

	insertRow(t, b, s, 1, "alice", 10, false)
	insertRow(t, b, s, 2, "bob", 20, false)

	b.Unpin()
	buf, origBase := b.ReleaseData()
	if b.IsResident() {
		t.Fatal("block should not be resident after ReleaseData")
	}
	if !b.IsStored() {
		t.Fatal("block should be marked stored after ReleaseData")
	}

	// Simulate a reload into a fresh buffer at a different address: a
	// plain copy, since buf already holds the exact persisted bytes.
	reloaded := make([]byte, BlockSize)
	copy(reloaded, buf)
	b.SetData(origBase, reloaded)

	if !b.IsResident() {
		t.Fatal("block should be resident after SetData")
	}

	r0 := b.Tuple(0)
	if got := r0.String(1); got != "alice" {
		t.Errorf("after relocation tuple 0 name = %q, want %q", got, "alice")
	}
	r1 := b.Tuple(1)
	if got := r1.String(1); got != "bob" {
		t.Errorf("after relocation tuple 1 name = %q, want %q", got, "bob")
	}
}

func TestBlockClearForTest(t *testing.T) {
	s := testSchema()
	b := New(uuid.New(), s)

	insertRow(t, b, s, 1, "alice", 10, false)
	b.ClearForTest()

	if got := b.ActiveTupleCount(); got != 0 {
		t.Fatalf("ActiveTupleCount() after ClearForTest = %d, want 0", got)
	}
	if got := b.AllocatedPoolMemory(); got != 0 {
		t.Fatalf("AllocatedPoolMemory() after ClearForTest = %d, want 0", got)
	}
	if b.IsStored() {
		t.Fatal("ClearForTest should clear the stored flag")
	}
}
