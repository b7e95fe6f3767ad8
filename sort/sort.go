// Package sort implements the external sort driver: an in-place
// introspective quicksort for one resident block, an alternative
// sort-and-repack strategy, and a cache-aware k-way merge over sorted
// runs. Imported as blocksort where it would otherwise shadow the
// standard library's sort package.
package sort

import (
	stdsort "sort"

	"github.com/ltt-engine/blockstore/block"
)

// Comparator reports whether a is ordered strictly before b. It must
// be a strict weak ordering.
type Comparator func(a, b block.TupleRef) bool

// SortBlock sorts b's tuples in place: an introspective quicksort with
// a Lomuto partition on the last element, tail-call elimination on the
// larger of the two partitions, and a specialized insertion sort at
// sizes 2, 3 and 4. Only inline bodies move; non-inlined data is never
// touched, since string refs carry it along.
func SortBlock(b *block.Block, less Comparator) {
	q := &quicksorter{less: less, scratch: make([]byte, b.Schema().RowWidth())}
	q.sort(b, 0, b.ActiveTupleCount())
}

type quicksorter struct {
	less    Comparator
	scratch []byte
}

func (q *quicksorter) sort(b *block.Block, lo, hi int) {
	for {
		switch hi - lo {
		case 0, 1:
			return
		case 2:
			q.insertionSort(b, lo, 2)
			return
		case 3:
			q.insertionSort(b, lo, 3)
			return
		case 4:
			q.insertionSort(b, lo, 4)
			return
		}

		pivot := hi - 1
		i := lo - 1
		for j := lo; j < hi-1; j++ {
			if q.less(b.Tuple(j), b.Tuple(pivot)) {
				i++
				q.swap(b, i, j)
			}
		}
		i++
		if q.less(b.Tuple(pivot), b.Tuple(i)) {
			q.swap(b, pivot, i)
		}

		// pivot is now at slot i, in its final sorted position.
		// Recurse on the smaller side, iterate on the larger.
		if i-lo > hi-(i+1) {
			q.sort(b, i+1, hi)
			hi = i
		} else {
			q.sort(b, lo, i)
			lo = i + 1
		}
	}
}

func (q *quicksorter) insertionSort(b *block.Block, lo, n int) {
	for i := 1; i < n; i++ {
		j := i
		for j > 0 && q.less(b.Tuple(lo+j), b.Tuple(lo+j-1)) {
			q.swap(b, lo+j-1, lo+j)
			j--
		}
	}
}

func (q *quicksorter) swap(b *block.Block, i, j int) {
	if i == j {
		return
	}
	bi := b.RawTupleBytes(i)
	bj := b.RawTupleBytes(j)
	copy(q.scratch, bi)
	copy(bi, bj)
	copy(bj, q.scratch)
}

// SortBlockRepack is the Alternative Phase 1 strategy: build a vector
// of tuple handles from src, sort the handles with a general-purpose
// sort, copy src's non-inlined region into dst wholesale, then
// re-insert each tuple into dst via InsertRelocating. Produces
// identical ordered output to SortBlock; dst must be empty.
func SortBlockRepack(dst, src *block.Block, less Comparator) error {
	n := src.ActiveTupleCount()
	handles := make([]block.TupleRef, n)
	for i := 0; i < n; i++ {
		handles[i] = src.Tuple(i)
	}

	stdsort.Slice(handles, func(i, j int) bool { return less(handles[i], handles[j]) })

	dst.CopyNonInlined(src)

	origBase := src.BaseAddr()
	for _, h := range handles {
		if !dst.InsertRelocating(h, origBase) {
			return errFull
		}
	}
	return nil
}
