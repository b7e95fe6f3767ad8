package sort

import (
	"container/heap"
	"fmt"

	"github.com/ltt-engine/blockstore/block"
	"github.com/ltt-engine/blockstore/cache"
)

// runHeap is a container/heap min-heap of runs ordered by their
// current tuple: the smallest current tuple across all runs always
// pops first, which is what a k-way merge needs on every step.
type runHeap struct {
	runs []*Run
	less Comparator
}

func (h runHeap) Len() int { return len(h.runs) }
func (h runHeap) Less(i, j int) bool {
	return h.less(h.runs[i].currentRef(), h.runs[j].currentRef())
}
func (h runHeap) Swap(i, j int) { h.runs[i], h.runs[j] = h.runs[j], h.runs[i] }

func (h *runHeap) Push(x any) { h.runs = append(h.runs, x.(*Run)) }
func (h *runHeap) Pop() any {
	old := h.runs
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	h.runs = old[:n-1]
	return r
}

// MergeRuns performs the external sort's Phase 2: a k-way merge of
// already-sorted runs, writing the merged tuples into freshly created
// blocks owned by the out temp table. It returns the total number of
// tuples written. Every run is closed (its source block destroyed) by
// the time MergeRuns returns, successfully or not; on success every run
// has also been fully consumed.
func MergeRuns(c cache.Cache, out block.TableID, runs []*Run, less Comparator) (int, error) {
	if len(runs) == 0 {
		return 0, nil
	}

	h := &runHeap{runs: append([]*Run(nil), runs...), less: less}
	heap.Init(h)

	// cur is the run popped off h and not yet pushed back or closed. On
	// an early return it and every run still in h are closed here.
	var cur *Run
	defer func() {
		if cur != nil {
			cur.Close()
		}
		for _, r := range h.runs {
			r.Close()
		}
	}()

	schema := runs[0].blk.Schema()

	var noTable block.TableID

	finish := func(b *block.Block) error {
		if err := c.Disown(b.ID(), noTable, out); err != nil {
			return fmt.Errorf("sort: merge runs: disown output block: %w", err)
		}
		return c.Unpin(b.ID())
	}

	dst, err := c.NewBlock(schema)
	if err != nil {
		return 0, fmt.Errorf("sort: merge runs: %w", err)
	}

	total := 0
	for h.Len() > 0 {
		r := heap.Pop(h).(*Run)
		cur = r
		tuple := r.currentRef()

		if !dst.Insert(tuple) {
			if err := finish(dst); err != nil {
				return total, err
			}
			dst, err = c.NewBlock(schema)
			if err != nil {
				return total, fmt.Errorf("sort: merge runs: %w", err)
			}
			if !dst.Insert(tuple) {
				return total, fmt.Errorf("sort: merge runs: tuple does not fit in an empty block")
			}
		}
		total++

		if r.Advance() {
			heap.Push(h, r)
		} else if err := r.Close(); err != nil {
			return total, fmt.Errorf("sort: merge runs: close exhausted run: %w", err)
		}
		cur = nil
	}

	if err := finish(dst); err != nil {
		return total, err
	}

	return total, nil
}
