package sort

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ltt-engine/blockstore/block"
	"github.com/ltt-engine/blockstore/cache"
	"github.com/ltt-engine/blockstore/schema"
)

// memTopend is an in-memory Topend test double, same shape as the one
// the cache package tests itself against.
type memTopend struct {
	stored map[block.ID][]byte
	base   map[block.ID]uint32
}

func newMemTopend() *memTopend {
	return &memTopend{stored: map[block.ID][]byte{}, base: map[block.ID]uint32{}}
}

var errMemTopendNotFound = errors.New("memtopend: not found")

func (m *memTopend) Persist(id block.ID, origBase uint32, payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.stored[id] = cp
	m.base[id] = origBase
	return nil
}

func (m *memTopend) Load(id block.ID) (uint32, []byte, error) {
	p, ok := m.stored[id]
	if !ok {
		return 0, nil, errMemTopendNotFound
	}
	return m.base[id], p, nil
}

func (m *memTopend) Delete(id block.ID) error {
	delete(m.stored, id)
	delete(m.base, id)
	return nil
}

// trackingCache wraps a Cache and records the id of every block it
// creates, so the test can walk MergeRuns' output without the Cache
// interface needing a "list blocks owned by table" operation.
type trackingCache struct {
	cache.Cache
	created []block.ID
}

func (t *trackingCache) NewBlock(s *schema.TupleSchema) (*block.Block, error) {
	b, err := t.Cache.NewBlock(s)
	if err == nil {
		t.created = append(t.created, b.ID())
	}
	return b, err
}

// TestMergeRunsElevenBlocks mirrors the mergeSortedBlocks scenario:
// fill and sort eleven blocks of varying size, wrap each as a Run, and
// confirm the k-way merge produces every tuple in a single globally
// sorted sequence.
func TestMergeRunsElevenBlocks(t *testing.T) {
	s := testSchema()
	c := cache.NewLRUCache(32, newMemTopend())
	inputTable := uuid.New()
	outputTable := uuid.New()

	const numBlocks = 11
	var runs []*Run
	totalTuples := 0

	for i := 0; i < numBlocks; i++ {
		b, err := c.NewBlock(s)
		if err != nil {
			t.Fatalf("NewBlock() error = %v", err)
		}
		n := 5 + i
		fillRandom(t, b, s, n, 10)
		totalTuples += n

		SortBlock(b, firstFieldLess)

		id := b.ID()
		if err := c.Unpin(id); err != nil {
			t.Fatalf("Unpin() error = %v", err)
		}

		run, err := NewRun(c, inputTable, id)
		if err != nil {
			t.Fatalf("NewRun() error = %v", err)
		}
		runs = append(runs, run)
	}

	tc := &trackingCache{Cache: c}
	merged, err := MergeRuns(tc, outputTable, runs, firstFieldLess)
	if err != nil {
		t.Fatalf("MergeRuns() error = %v", err)
	}
	if merged != totalTuples {
		t.Fatalf("MergeRuns() merged %d tuples, want %d", merged, totalTuples)
	}

	var prev string
	have := 0
	for _, id := range tc.created {
		b, err := c.Fetch(id)
		if err != nil {
			t.Fatalf("Fetch(%s) error = %v", id, err)
		}
		for j := 0; j < b.ActiveTupleCount(); j++ {
			cur := b.Tuple(j).String(0)
			if have > 0 && prev > cur {
				t.Fatalf("merged output not sorted: %q before %q", prev, cur)
			}
			prev = cur
			have++
		}
	}
	if have != totalTuples {
		t.Fatalf("walked %d merged tuples, want %d", have, totalTuples)
	}
}
