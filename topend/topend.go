// Package topend persists and restores block payloads once the cache
// evicts them, the collaborator spec.md's Block Cache component hands
// off to after calling block.ReleaseData.
package topend

import (
	"errors"

	"github.com/ltt-engine/blockstore/block"
)

var (
	// ErrBlockNotFound is returned by Load when no persisted copy
	// exists for the given id.
	ErrBlockNotFound = errors.New("topend: block not found")
	// ErrCorruptHeader is returned by Load when the persisted header
	// does not match the id it was loaded for, or is truncated.
	ErrCorruptHeader = errors.New("topend: corrupt block header")
)

// Topend persists and restores a block's full BlockSize payload
// verbatim, along with the simulated base address the payload's
// string refs were expressed against when it was written, so the
// caller can replay relocation via block.SetData.
type Topend interface {
	Persist(id block.ID, origBase uint32, payload []byte) error
	Load(id block.ID) (origBase uint32, payload []byte, err error)
	Delete(id block.ID) error
}
