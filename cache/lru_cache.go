package cache

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ltt-engine/blockstore/block"
	"github.com/ltt-engine/blockstore/schema"
	"github.com/ltt-engine/blockstore/topend"
)

type entry struct {
	blk   *block.Block
	table block.TableID

	bufID    uint16
	resident bool

	// doubly linked list over unpinned entries, oldest-first; uuid.Nil
	// is the list-end sentinel.
	prev, next block.ID
	linked     bool
}

// LRUCache is the in-process Cache implementation: a bufferPool backs
// resident block storage, and an LRU list over unpinned entries
// decides what gets evicted to the Topend collaborator when the pool
// runs dry.
type LRUCache struct {
	mu sync.Mutex

	entries map[block.ID]*entry
	pool    *bufferPool
	topend  topend.Topend

	lruHead, lruTail block.ID
	lruLen           int
}

// NewLRUCache builds a cache with room for slots resident blocks at
// once, evicting to top as needed.
func NewLRUCache(slots int, top topend.Topend) *LRUCache {
	return &LRUCache{
		entries: make(map[block.ID]*entry),
		pool:    newBufferPool(slots),
		topend:  top,
	}
}

// NewBlock creates a new, pinned, empty, resident block.
func (c *LRUCache) NewBlock(s *schema.TupleSchema) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, bufID, err := c.acquireBuffer()
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	blk := block.Adopt(id, s, buf)

	c.entries[id] = &entry{blk: blk, bufID: bufID, resident: true}
	slog.Info("cache: block created", "id", id)
	return blk, nil
}

// Fetch returns id's block pinned and resident, reloading it from the
// topend collaborator first if it had been evicted.
func (c *LRUCache) Fetch(id block.ID) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("cache: unknown block %s", id)
	}

	c.unlinkLRU(id, e)

	if !e.resident {
		buf, bufID, err := c.acquireBuffer()
		if err != nil {
			return nil, err
		}

		origBase, payload, err := c.topend.Load(id)
		if err != nil {
			c.pool.put(bufID)
			return nil, fmt.Errorf("cache: load block %s: %w", id, err)
		}
		copy(buf, payload)
		e.blk.SetData(origBase, buf)
		e.bufID = bufID
		e.resident = true
		slog.Info("cache: block fetched from topend", "id", id)
	}

	e.blk.Pin()
	return e.blk, nil
}

// Unpin releases the pin, making the block eligible for eviction.
func (c *LRUCache) Unpin(id block.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return fmt.Errorf("cache: unknown block %s", id)
	}
	e.blk.Unpin()
	c.linkLRU(id, e)
	return nil
}

// Disown reassigns id from one temp table to another without copying
// its payload.
func (c *LRUCache) Disown(id block.ID, from, to block.TableID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return fmt.Errorf("cache: unknown block %s", id)
	}
	if e.table != uuid.Nil && e.table != from {
		return fmt.Errorf("cache: block %s is owned by %s, not %s", id, e.table, from)
	}
	e.table = to
	return nil
}

// Destroy releases a block for good: its buffer slot (if resident)
// goes back to the pool and its persisted copy (if any) is deleted.
func (c *LRUCache) Destroy(id block.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil
	}
	c.unlinkLRU(id, e)
	if e.resident {
		c.pool.put(e.bufID)
	}
	delete(c.entries, id)

	return c.topend.Delete(id)
}

// acquireBuffer returns a free buffer, evicting the least-recently-used
// unpinned block if the pool is exhausted.
func (c *LRUCache) acquireBuffer() ([]byte, uint16, error) {
	if buf, id, ok := c.pool.get(); ok {
		return buf, id, nil
	}
	if !c.evictOne() {
		return nil, 0, ErrNoFreeSlot
	}
	if buf, id, ok := c.pool.get(); ok {
		return buf, id, nil
	}
	return nil, 0, ErrNoFreeSlot
}

// evictOne persists and releases the oldest unpinned resident block.
// It reports whether anything was evicted.
func (c *LRUCache) evictOne() bool {
	if c.lruLen == 0 {
		return false
	}
	id := c.lruHead
	e := c.entries[id]
	c.unlinkLRU(id, e)

	payload, origBase := e.blk.ReleaseData()
	if err := c.topend.Persist(id, origBase, payload); err != nil {
		slog.Error("cache: evict persist failed, block contents lost", "id", id, "error", err)
	}
	c.pool.put(e.bufID)
	e.resident = false
	slog.Info("cache: block evicted", "id", id)
	return true
}

func (c *LRUCache) linkLRU(id block.ID, e *entry) {
	e.prev = c.lruTail
	e.next = uuid.Nil
	e.linked = true
	if c.lruLen == 0 {
		c.lruHead = id
	} else {
		c.entries[c.lruTail].next = id
	}
	c.lruTail = id
	c.lruLen++
}

func (c *LRUCache) unlinkLRU(id block.ID, e *entry) {
	if !e.linked {
		return
	}
	if e.prev != uuid.Nil {
		c.entries[e.prev].next = e.next
	} else {
		c.lruHead = e.next
	}
	if e.next != uuid.Nil {
		c.entries[e.next].prev = e.prev
	} else {
		c.lruTail = e.prev
	}
	e.linked = false
	c.lruLen--
}
