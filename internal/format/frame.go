package format

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// frameLengthPrefixSize is the size of the two uint64 length fields that
// precede every frame's payload.
const frameLengthPrefixSize = 16

var (
	// ErrUnexpectedEOF is returned when a stream ends in the middle of a
	// frame, as opposed to cleanly between frames (io.EOF).
	ErrUnexpectedEOF = errors.New("format: unexpected end of stream mid-frame")
	// ErrDecompression is returned when a compressed frame's payload
	// fails to decompress, or decompresses to the wrong length.
	ErrDecompression = errors.New("format: frame decompression failed")
	// ErrFrameTooLarge guards against a corrupt length prefix causing an
	// unbounded allocation.
	ErrFrameTooLarge = errors.New("format: frame length exceeds maximum")
)

// MaxFrameBytes bounds a single frame's uncompressed size. A length
// prefix claiming more than this is treated as stream corruption rather
// than trusted outright.
const MaxFrameBytes = 1 << 30

// WriteFrame compresses payload per compression and writes it to w as
// one length-prefixed frame: 8 bytes uncompressed length, 8 bytes
// compressed length, then the (possibly compressed) bytes.
func WriteFrame(w io.Writer, payload []byte, compression CompressionKind) error {
	var compressed []byte
	switch compression {
	case CompressionNone:
		compressed = payload
	case CompressionLZ4Block:
		buf := make([]byte, lz4.CompressBlockBound(len(payload)))
		var c lz4.Compressor
		n, err := c.CompressBlock(payload, buf)
		if err != nil {
			return fmt.Errorf("format: lz4 compress: %w", err)
		}
		if n == 0 && len(payload) > 0 {
			// Incompressible input: lz4 signals this by returning 0.
			// Fall back to storing it uncompressed, flagged by a
			// compressed length equal to the uncompressed length only
			// when compression is none; here we still must indicate
			// "stored raw" so mark compressed length 0.
			compressed = nil
		} else {
			compressed = buf[:n]
		}
	default:
		return fmt.Errorf("format: unknown compression kind %d", compression)
	}

	var prefix [frameLengthPrefixSize]byte
	binary.LittleEndian.PutUint64(prefix[0:8], uint64(len(payload)))
	binary.LittleEndian.PutUint64(prefix[8:16], uint64(len(compressed)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	if len(compressed) > 0 {
		if _, err := w.Write(compressed); err != nil {
			return err
		}
	} else if len(payload) > 0 {
		// Incompressible block stored raw: re-use the uncompressed length slot.
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and returns its
// decompressed payload. It returns io.EOF (unwrapped, checkable with
// errors.Is) if the stream ended cleanly before any frame data, or
// ErrUnexpectedEOF if it ended partway through a frame.
func ReadFrame(r io.Reader, compression CompressionKind) ([]byte, error) {
	var prefix [frameLengthPrefixSize]byte
	n, err := io.ReadFull(r, prefix[:])
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedEOF, err)
	}

	uncompressedLen := binary.LittleEndian.Uint64(prefix[0:8])
	compressedLen := binary.LittleEndian.Uint64(prefix[8:16])
	if uncompressedLen > MaxFrameBytes || compressedLen > MaxFrameBytes {
		return nil, ErrFrameTooLarge
	}

	storedLen := compressedLen
	if storedLen == 0 && uncompressedLen > 0 {
		storedLen = uncompressedLen // incompressible block stored raw
	}

	stored := make([]byte, storedLen)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedEOF, err)
	}

	if compression == CompressionNone || compressedLen == 0 {
		return stored, nil
	}

	out := make([]byte, uncompressedLen)
	n2, err := lz4.UncompressBlock(stored, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	if uint64(n2) != uncompressedLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrDecompression, uncompressedLen, n2)
	}
	return out, nil
}
