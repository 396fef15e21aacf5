// Package archive persists sealed, encoded chunk streams (internal/format)
// to cold-tier object storage, and serves random-range reads back out of
// them via a seekable zstd framing so a single chunk can be fetched
// without downloading the whole archive object.
package archive

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by a Backend's Get/Size when the named object
// does not exist.
var ErrNotFound = errors.New("archive: object not found")

// Key identifies an archived object within a backend's bucket/container.
// Keys are opaque strings; use ObjectKey to derive one for a chunk.
type Key string

// ObjectKey derives the archive object key for a sealed stream covering
// the given entity path and chunk ID, grouping archived streams by
// entity so a cold-tier listing can be scoped to one entity's history.
func ObjectKey(entityPath string, chunkID fmt.Stringer) Key {
	return Key(entityPath + "/" + chunkID.String() + ".zst")
}

// Backend is the minimal object-storage surface the archive tier needs:
// whole-object put, ranged get, size lookup, and delete. Every concrete
// backend (S3, Azure Blob, GCS) implements this against its own SDK
// client.
type Backend interface {
	// Put uploads data under key, overwriting any existing object.
	Put(ctx context.Context, key Key, data []byte) error

	// Get fetches the byte range [offset, offset+length) of the object
	// named key. length <= 0 fetches the rest of the object.
	Get(ctx context.Context, key Key, offset, length int64) ([]byte, error)

	// Size reports the total size in bytes of the object named key,
	// without downloading its contents.
	Size(ctx context.Context, key Key) (int64, error)

	// Delete removes the object named key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key Key) error
}
