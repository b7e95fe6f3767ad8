package cache

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/ltt-engine/blockstore/block"
	"github.com/ltt-engine/blockstore/schema"
)

// memTopend is a Topend test double backed by an in-memory map, used
// so cache tests don't touch the filesystem.
type memTopend struct {
	mu      sync.Mutex
	stored  map[block.ID][]byte
	origBase map[block.ID]uint32
}

func newMemTopend() *memTopend {
	return &memTopend{
		stored:   make(map[block.ID][]byte),
		origBase: make(map[block.ID]uint32),
	}
}

func (m *memTopend) Persist(id block.ID, origBase uint32, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.stored[id] = cp
	m.origBase[id] = origBase
	return nil
}

func (m *memTopend) Load(id block.ID) (uint32, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.stored[id]
	if !ok {
		return 0, nil, errors.New("memtopend: not found")
	}
	return m.origBase[id], payload, nil
}

func (m *memTopend) Delete(id block.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stored, id)
	delete(m.origBase, id)
	return nil
}

func testSchema() *schema.TupleSchema {
	return schema.NewTupleSchema([]schema.Column{
		{Name: "id", Type: schema.ColumnInt64},
		{Name: "name", Type: schema.ColumnVarchar},
	})
}

func insertRow(t *testing.T, b *block.Block, s *schema.TupleSchema, id int64, name string) bool {
	t.Helper()
	row := block.NewStandaloneTuple(s)
	row.SetActive()
	row.SetInt64(0, id)
	row.SetString(1, name)
	return b.Insert(row)
}

func TestLRUCacheNewBlockIsPinnedAndResident(t *testing.T) {
	c := NewLRUCache(2, newMemTopend())
	s := testSchema()

	b, err := c.NewBlock(s)
	if err != nil {
		t.Fatalf("NewBlock() error = %v", err)
	}
	if !b.IsPinned() {
		t.Error("a freshly created block must be pinned")
	}
	if !b.IsResident() {
		t.Error("a freshly created block must be resident")
	}
}

func TestLRUCacheFetchUnknownErrors(t *testing.T) {
	c := NewLRUCache(2, newMemTopend())
	if _, err := c.Fetch(uuid.New()); err == nil {
		t.Fatal("Fetch of an unknown id should error")
	}
}

func TestLRUCacheEvictsLRUOnExhaustion(t *testing.T) {
	top := newMemTopend()
	c := NewLRUCache(1, top)
	s := testSchema()

	b1, err := c.NewBlock(s)
	if err != nil {
		t.Fatalf("NewBlock() #1 error = %v", err)
	}
	insertRow(t, b1, s, 1, "alice")
	id1 := b1.ID()
	if err := c.Unpin(id1); err != nil {
		t.Fatalf("Unpin() error = %v", err)
	}

	// The pool has only one slot: creating a second block must evict
	// the first to the topend.
	b2, err := c.NewBlock(s)
	if err != nil {
		t.Fatalf("NewBlock() #2 error = %v", err)
	}
	insertRow(t, b2, s, 2, "bob")

	if b1.IsResident() {
		t.Fatal("block 1 should have been evicted")
	}
	if _, _, err := top.Load(id1); err != nil {
		t.Fatalf("evicted block was not persisted to topend: %v", err)
	}

	// Block 2 must be unpinned too, or the single slot holds a pinned
	// block and there is nothing to evict when block 1 is fetched back.
	if err := c.Unpin(b2.ID()); err != nil {
		t.Fatalf("Unpin() #2 error = %v", err)
	}

	refetched, err := c.Fetch(id1)
	if err != nil {
		t.Fatalf("Fetch() after eviction error = %v", err)
	}
	if !refetched.IsResident() {
		t.Fatal("Fetch() should restore residency")
	}
	if got := refetched.Tuple(0).String(1); got != "alice" {
		t.Errorf("refetched tuple name = %q, want %q", got, "alice")
	}
}

func TestLRUCacheNoFreeSlotWhenAllPinned(t *testing.T) {
	c := NewLRUCache(1, newMemTopend())
	s := testSchema()

	if _, err := c.NewBlock(s); err != nil {
		t.Fatalf("NewBlock() #1 error = %v", err)
	}
	// The sole block is still pinned, so there is nothing to evict.
	if _, err := c.NewBlock(s); !errors.Is(err, ErrNoFreeSlot) {
		t.Fatalf("NewBlock() #2 error = %v, want ErrNoFreeSlot", err)
	}
}

func TestLRUCacheDestroy(t *testing.T) {
	top := newMemTopend()
	c := NewLRUCache(2, top)
	s := testSchema()

	b, err := c.NewBlock(s)
	if err != nil {
		t.Fatalf("NewBlock() error = %v", err)
	}
	id := b.ID()
	if err := c.Unpin(id); err != nil {
		t.Fatalf("Unpin() error = %v", err)
	}
	if err := c.Destroy(id); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if _, err := c.Fetch(id); err == nil {
		t.Fatal("Fetch() after Destroy() should error")
	}
}
