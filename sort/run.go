package sort

import (
	"github.com/ltt-engine/blockstore/block"
	"github.com/ltt-engine/blockstore/cache"
)

// Run drives one pinned, already-sorted block through the k-way
// merge: a thin cursor plus the cache so Close can give the block back
// once every tuple has been consumed, the way LttSortRun pairs an
// iterator with the source table it reads from and discards.
type Run struct {
	cache cache.Cache
	table block.TableID
	blk   *block.Block

	it  block.Iterator
	end block.Iterator
}

// NewRun fetches id (pinned, resident) from the temp table identified
// by table and positions a cursor at its first tuple. id's block must
// already be sorted by the same comparator the merge will use.
func NewRun(c cache.Cache, table block.TableID, id block.ID) (*Run, error) {
	b, err := c.Fetch(id)
	if err != nil {
		return nil, err
	}
	return &Run{
		cache: c,
		table: table,
		blk:   b,
		it:    block.Begin(b),
		end:   block.End(b),
	}, nil
}

// Current returns the raw bytes of the tuple the cursor is on.
func (r *Run) Current() block.TupleView { return r.it.Tuple().View() }

func (r *Run) currentRef() block.TupleRef { return r.it.Tuple() }

// Advance moves the cursor to the run's next tuple, reporting whether
// one remains.
func (r *Run) Advance() bool {
	r.it = r.it.Next()
	return r.it.Diff(r.end) < 0
}

// Close discards the run's source block: every tuple it held has been
// consumed by the merge, so there is nothing left worth keeping.
func (r *Run) Close() error {
	return r.cache.Destroy(r.blk.ID())
}
