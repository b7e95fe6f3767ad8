package cache

import "github.com/ltt-engine/blockstore/block"

// bufferPool hands out block.BlockSize-sized slices carved from one
// contiguous arena allocation, so the cache's resident buffers come
// from a single allocation rather than one make([]byte, BlockSize)
// per block, mirroring manager/cache/fixed_size_buffer.go's
// FixedSizeBufferPool.
type bufferPool struct {
	buffers [][]byte
	free    chan uint16
}

func newBufferPool(n int) *bufferPool {
	arena := make([]byte, n*block.BlockSize)

	buffers := make([][]byte, n)
	for i := 0; i < n; i++ {
		start := i * block.BlockSize
		end := start + block.BlockSize
		buffers[i] = arena[start:end:end] // full slice expression
	}

	free := make(chan uint16, n)
	for i := 0; i < n; i++ {
		free <- uint16(i)
	}

	return &bufferPool{buffers: buffers, free: free}
}

// get returns a free buffer and its slot id, or ok=false if none are
// free.
func (p *bufferPool) get() ([]byte, uint16, bool) {
	select {
	case id := <-p.free:
		return p.buffers[id], id, true
	default:
		return nil, 0, false
	}
}

func (p *bufferPool) put(id uint16) {
	p.free <- id
}
