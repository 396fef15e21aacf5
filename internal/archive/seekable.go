package archive

import (
	"context"
	"fmt"
	"io"

	seekable "github.com/SaveTheRbtz/zstd-seekable-format-go/pkg"
	"github.com/klauspost/compress/zstd"
)

// SealFrameBytes is the uncompressed size of each seek-point frame
// written by SealStream. Smaller frames mean finer-grained random
// access at the cost of worse compression ratio across frame
// boundaries.
const SealFrameBytes = 1 << 20

// SealStream compresses the encoded chunk stream read from r into a
// zstd-seekable stream written to w, split into SealFrameBytes frames
// so a later RangeReader can decode an arbitrary byte range of the
// original stream without reading the whole archive object.
func SealStream(w io.Writer, r io.Reader) error {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("archive: zstd encoder: %w", err)
	}
	defer enc.Close()

	sw, err := seekable.NewWriter(w, enc)
	if err != nil {
		return fmt.Errorf("archive: seekable writer: %w", err)
	}

	buf := make([]byte, SealFrameBytes)
	for {
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			if _, err := sw.Write(buf[:n]); err != nil {
				return fmt.Errorf("archive: seekable write: %w", err)
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("archive: read stream to seal: %w", readErr)
		}
	}
	return sw.Close()
}

// backendReaderAt adapts a Backend's ranged Get into an io.ReaderAt, so
// the seekable reader only pulls the compressed frames it actually
// needs rather than the whole archive object.
type backendReaderAt struct {
	ctx     context.Context
	backend Backend
	key     Key
}

func (r backendReaderAt) ReadAt(p []byte, off int64) (int, error) {
	data, err := r.backend.Get(r.ctx, r.key, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// RangeReader provides random-access reads over the decoded contents of
// a sealed stream stored in a Backend.
type RangeReader struct {
	dec *zstd.Decoder
	sr  io.ReadSeekCloser
}

// OpenRangeReader opens key in backend for random-range reads. The
// returned reader fetches and decompresses only the frames a given
// ReadAt call actually touches.
func OpenRangeReader(ctx context.Context, backend Backend, key Key) (*RangeReader, error) {
	size, err := backend.Size(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("archive: size %s: %w", key, err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("archive: zstd decoder: %w", err)
	}

	ra := io.NewSectionReader(backendReaderAt{ctx: ctx, backend: backend, key: key}, 0, size)
	sr, err := seekable.NewReader(ra, dec)
	if err != nil {
		dec.Close()
		return nil, fmt.Errorf("archive: seekable reader %s: %w", key, err)
	}

	return &RangeReader{dec: dec, sr: sr}, nil
}

// ReadAt reads len(p) decoded bytes starting at offset off in the
// original (pre-compression) stream.
func (r *RangeReader) ReadAt(p []byte, off int64) (int, error) {
	if _, err := r.sr.Seek(off, io.SeekStart); err != nil {
		return 0, fmt.Errorf("archive: seek to %d: %w", off, err)
	}
	return io.ReadFull(r.sr, p)
}

func (r *RangeReader) Close() error {
	err := r.sr.Close()
	r.dec.Close()
	return err
}
