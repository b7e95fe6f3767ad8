package sort

import "errors"

// errFull is returned by SortBlockRepack when dst cannot hold every
// tuple from src, which should never happen given dst starts empty
// and src's inline region already fit in one block of the same size.
var errFull = errors.New("sort: repack target block is full")
