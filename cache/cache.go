// Package cache implements the block cache: creation, pinned fetch,
// unpin, disown between temp tables, and LRU-over-unpinned eviction to
// a Topend collaborator.
package cache

import (
	"errors"

	"github.com/ltt-engine/blockstore/block"
	"github.com/ltt-engine/blockstore/schema"
)

// ErrNoFreeSlot is returned when every resident-buffer slot is pinned
// and none can be evicted to make room for a new or reloaded block.
var ErrNoFreeSlot = errors.New("cache: no free slot")

// Cache is the contract the block and sort packages consume.
type Cache interface {
	NewBlock(s *schema.TupleSchema) (*block.Block, error)
	Fetch(id block.ID) (*block.Block, error)
	Unpin(id block.ID) error
	Disown(id block.ID, from, to block.TableID) error
	Destroy(id block.ID) error
}
