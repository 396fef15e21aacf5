package archive

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rerun-io/rerun-sub034/internal/chunk"
	"github.com/rerun-io/rerun-sub034/internal/format"
)

// maxConcurrentUploads bounds how many sealed streams an Uploader pushes
// to the backend at once, so a large batch doesn't open one connection
// per chunk.
const maxConcurrentUploads = 8

// Uploader seals and pushes chunk streams to a Backend, fanning batches
// out across a bounded number of concurrent uploads.
type Uploader struct {
	backend Backend
}

// NewUploader returns an Uploader that persists sealed streams to backend.
func NewUploader(backend Backend) *Uploader {
	return &Uploader{backend: backend}
}

// UploadChunk wraps payload, the caller's already encoded bytes for c,
// in one uncompressed frame (via internal/format), seals that in a
// zstd-seekable stream, then uploads it under c's entity/chunk-ID key. It returns the key the chunk was
// stored under.
func (u *Uploader) UploadChunk(ctx context.Context, c *chunk.Chunk, payload []byte) (Key, error) {
	var framed bytes.Buffer
	if err := format.WriteFrame(&framed, payload, format.CompressionNone); err != nil {
		return "", fmt.Errorf("archive: frame chunk %s: %w", c.ID(), err)
	}

	var sealed bytes.Buffer
	if err := SealStream(&sealed, &framed); err != nil {
		return "", fmt.Errorf("archive: seal chunk %s: %w", c.ID(), err)
	}

	key := ObjectKey(c.Entity().String(), c.ID())
	if err := u.backend.Put(ctx, key, sealed.Bytes()); err != nil {
		return "", fmt.Errorf("archive: upload chunk %s: %w", c.ID(), err)
	}
	return key, nil
}

// UploadBatch uploads entries in parallel, bounded by
// maxConcurrentUploads concurrent backend calls. It returns the keys in
// input order, or the first error encountered (which cancels the rest
// of the batch).
func (u *Uploader) UploadBatch(ctx context.Context, entries []ChunkPayload) ([]Key, error) {
	keys := make([]Key, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)

	for i, entry := range entries {
		g.Go(func() error {
			key, err := u.UploadChunk(gctx, entry.Chunk, entry.Payload)
			if err != nil {
				return err
			}
			keys[i] = key
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return keys, nil
}

// ChunkPayload pairs a chunk with its already-encoded column payload,
// the unit UploadBatch fans out across concurrent uploads.
type ChunkPayload struct {
	Chunk   *chunk.Chunk
	Payload []byte
}
