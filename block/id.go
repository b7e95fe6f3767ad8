package block

import "github.com/google/uuid"

// ID uniquely identifies a block. IDs are assigned by the cache, never
// by the block itself.
type ID = uuid.UUID

// TableID identifies the temporary table a block currently belongs to,
// used by the cache's Disown to move a block between tables without
// copying its payload.
type TableID = uuid.UUID
