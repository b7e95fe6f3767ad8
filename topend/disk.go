package topend

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/sync/singleflight"

	"github.com/ltt-engine/blockstore/bits"
	"github.com/ltt-engine/blockstore/block"
	fileio "github.com/ltt-engine/blockstore/io"
)

// headerSize is the on-disk width of the fixed header written ahead of
// every block's BlockSize payload: a 16-byte id plus the 4-byte
// simulated base address the payload's string refs were expressed
// against at persist time.
const headerSize = 16 + 4

// DiskTopend is the disk-backed Topend: one file per block under dir,
// singleflight-deduped Load so concurrent fetches of the same evicted
// block only hit the filesystem once, following
// manager/meta/slab_manager.go's loadGroup.
type DiskTopend struct {
	dir       string
	loadGroup singleflight.Group
}

// NewDiskTopend returns a DiskTopend rooted at dir. The directory must
// already exist.
func NewDiskTopend(dir string) *DiskTopend {
	return &DiskTopend{dir: dir}
}

func (t *DiskTopend) pathFor(id block.ID) string {
	return filepath.Join(t.dir, id.String()+".blk")
}

// Persist writes id's full BlockSize payload to disk, preceded by a
// fixed header recording id and origBase for Load to validate and
// return.
func (t *DiskTopend) Persist(id block.ID, origBase uint32, payload []byte) error {
	if len(payload) != block.BlockSize {
		return fmt.Errorf("topend: persist payload is %d bytes, want %d", len(payload), block.BlockSize)
	}

	header := make([]byte, headerSize)
	w := bits.NewEncodeBuffer(header, binary.LittleEndian)
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return fmt.Errorf("topend: marshal id %s: %w", id, err)
	}
	if _, err := w.Write(idBytes); err != nil {
		return fmt.Errorf("topend: encode header for %s: %w", id, err)
	}
	w.PutUint32(origBase)

	fr := fileio.NewFileReader(t.pathFor(id))
	if err := fr.Open(false); err != nil {
		return fmt.Errorf("topend: open %s for write: %w", id, err)
	}
	defer fr.Close()

	if err := fr.WriteAt(header, 0, len(header)); err != nil {
		return fmt.Errorf("topend: write header for %s: %w", id, err)
	}
	if err := fr.WriteAt(payload, headerSize, len(payload)); err != nil {
		return fmt.Errorf("topend: write payload for %s: %w", id, err)
	}

	slog.Info("topend: block persisted", "id", id, "origBase", origBase, "bytes", len(payload))
	return nil
}

type loadResult struct {
	origBase uint32
	payload  []byte
}

// Load restores id's payload and the base address it was persisted
// against. Concurrent Load calls for the same id share one disk read.
func (t *DiskTopend) Load(id block.ID) (uint32, []byte, error) {
	v, err, _ := t.loadGroup.Do(id.String(), func() (interface{}, error) {
		return t.load(id)
	})
	if err != nil {
		return 0, nil, err
	}
	loaded := v.(loadResult)
	return loaded.origBase, loaded.payload, nil
}

func (t *DiskTopend) load(id block.ID) (loadResult, error) {
	path := t.pathFor(id)
	if _, statErr := os.Stat(path); statErr != nil {
		return loadResult{}, ErrBlockNotFound
	}

	fr := fileio.NewFileReader(path)
	if err := fr.Open(true); err != nil {
		return loadResult{}, fmt.Errorf("topend: open %s for read: %w", id, err)
	}
	defer fr.Close()

	header := make([]byte, headerSize)
	if err := fr.ReadAt(header, 0, len(header)); err != nil {
		return loadResult{}, fmt.Errorf("%w: %v", ErrCorruptHeader, err)
	}

	r := bits.NewReader(bytes.NewReader(header), binary.LittleEndian)
	storedID, err := r.ReadUUID()
	if err != nil || storedID != id {
		slog.Error("topend: corrupt header", "path", path, "want_id", id, "header", spew.Sdump(header))
		return loadResult{}, ErrCorruptHeader
	}
	origBase := r.MustReadU32()

	payload := make([]byte, block.BlockSize)
	if err := fr.ReadAt(payload, headerSize, len(payload)); err != nil {
		return loadResult{}, fmt.Errorf("topend: read payload for %s: %w", id, err)
	}

	slog.Info("topend: block loaded", "id", id, "origBase", origBase)
	return loadResult{origBase: origBase, payload: payload}, nil
}

// Delete removes id's persisted file, if any.
func (t *DiskTopend) Delete(id block.ID) error {
	if err := os.Remove(t.pathFor(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("topend: delete %s: %w", id, err)
	}
	return nil
}
