// Package format implements the encoded log format: a file header
// declaring compression and serialization options, followed by a stream
// of length-prefixed, optionally compressed, MessagePack-encoded chunk
// frames.
package format

import (
	"errors"
	"fmt"
)

// magic identifies a file as this format's encoded log stream.
var magic = [4]byte{'C', 'T', 'L', 'S'}

// CompressionKind selects how each frame's payload is compressed.
type CompressionKind byte

const (
	// CompressionNone stores frame payloads uncompressed.
	CompressionNone CompressionKind = iota
	// CompressionLZ4Block compresses each frame payload independently
	// with LZ4 block compression (no frame format, no dictionary).
	CompressionLZ4Block
)

func (k CompressionKind) String() string {
	switch k {
	case CompressionNone:
		return "none"
	case CompressionLZ4Block:
		return "lz4-block"
	default:
		return "unknown"
	}
}

// SerializerKind selects the wire encoding used for each chunk payload.
type SerializerKind byte

const (
	// SerializerMessagePack encodes chunk payloads with MessagePack.
	SerializerMessagePack SerializerKind = iota
)

func (k SerializerKind) String() string {
	switch k {
	case SerializerMessagePack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// versionAlphaFlag marks a version as an alpha release. An alpha and a
// non-alpha version are never compatible with each other.
const versionAlphaFlag byte = 1 << 0

// Version is the four-byte semantic version carried in the file header.
type Version struct {
	Major byte
	Minor byte
	Patch byte
	Alpha bool
}

// CurrentVersion is the version this package writes.
var CurrentVersion = Version{Major: 0, Minor: 1, Patch: 0, Alpha: true}

func (v Version) flags() byte {
	if v.Alpha {
		return versionAlphaFlag
	}
	return 0
}

func (v Version) String() string {
	suffix := ""
	if v.Alpha {
		suffix = "-alpha"
	}
	return fmt.Sprintf("%d.%d.%d%s", v.Major, v.Minor, v.Patch, suffix)
}

// IsCompatibleWith reports whether a stream written with v can be read
// by a decoder built for want. Two versions are compatible when their
// alpha flags agree, and: if want is a 0.x version, v must share its
// minor number; otherwise v must share its major number. This mirrors
// the conservative policy of a pre-1.0 library, where minor bumps in the
// 0.x series are allowed to break the wire format but major-stable
// releases are not.
func (v Version) IsCompatibleWith(want Version) bool {
	if v.Alpha != want.Alpha {
		return false
	}
	if want.Major == 0 {
		return v.Major == 0 && v.Minor == want.Minor
	}
	return v.Major == want.Major
}

const (
	// headerSize is the file header's fixed encoded length in bytes.
	headerSize = 4 /* magic */ + 4 /* version */ + 1 /* compression */ + 1 /* serializer */ + 2 /* reserved */
)

var (
	// ErrHeaderTooSmall is returned when a buffer is too short to hold a file header.
	ErrHeaderTooSmall = errors.New("format: header too small")
	// ErrBadMagic is returned when a stream's magic bytes don't match this format.
	ErrBadMagic = errors.New("format: bad magic bytes")
	// ErrOldVersion is returned when a stream's version differs from the
	// decoder's but is compatible with it, and the VersionPolicy allows
	// decoding to proceed anyway (a warning, not a hard failure).
	ErrOldVersion = errors.New("format: stream version differs from this decoder's")
	// ErrIncompatibleVersion is returned when a stream's version cannot
	// be read by this decoder at all.
	ErrIncompatibleVersion = errors.New("format: incompatible stream version")
)

// FileHeader is the fixed-size header at the start of every encoded log
// stream.
type FileHeader struct {
	Version     Version
	Compression CompressionKind
	Serializer  SerializerKind
}

// NewFileHeader builds a FileHeader using the package's current version.
func NewFileHeader(compression CompressionKind, serializer SerializerKind) FileHeader {
	return FileHeader{Version: CurrentVersion, Compression: compression, Serializer: serializer}
}

// Encode writes the file header to its fixed-size binary form.
func (h FileHeader) Encode() [headerSize]byte {
	var buf [headerSize]byte
	copy(buf[0:4], magic[:])
	buf[4] = h.Version.Major
	buf[5] = h.Version.Minor
	buf[6] = h.Version.Patch
	buf[7] = h.Version.flags()
	buf[8] = byte(h.Compression)
	buf[9] = byte(h.Serializer)
	return buf
}

// DecodeFileHeader parses a file header from buf, which must be at least
// headerSize bytes. It returns ErrBadMagic if the stream isn't this
// format at all; it never checks version compatibility itself, since
// that check depends on a caller-chosen VersionPolicy (see Decoder).
func DecodeFileHeader(buf []byte) (FileHeader, error) {
	if len(buf) < headerSize {
		return FileHeader{}, ErrHeaderTooSmall
	}
	if [4]byte(buf[0:4]) != magic {
		return FileHeader{}, ErrBadMagic
	}
	return FileHeader{
		Version: Version{
			Major: buf[4],
			Minor: buf[5],
			Patch: buf[6],
			Alpha: buf[7]&versionAlphaFlag != 0,
		},
		Compression: CompressionKind(buf[8]),
		Serializer:  SerializerKind(buf[9]),
	}, nil
}

// HeaderSize is the fixed encoded size of a FileHeader, in bytes.
func HeaderSize() int { return headerSize }

// VersionPolicy governs how a Decoder reacts to a stream whose version
// doesn't match CurrentVersion.
type VersionPolicy int

const (
	// VersionPolicyWarn decodes compatible streams of another version, surfacing
	// ErrOldVersion to the caller as a non-fatal signal rather than
	// aborting.
	VersionPolicyWarn VersionPolicy = iota
	// VersionPolicyError refuses to decode any stream whose version
	// isn't exactly CurrentVersion.
	VersionPolicyError
)

// CheckVersion applies policy to a stream's header version against want
// (normally CurrentVersion). It returns nil if the stream should be
// decoded with no caveat, ErrOldVersion if it should be decoded but the
// caller should be told, or ErrIncompatibleVersion/a policy-driven error
// if it must not be decoded.
func CheckVersion(policy VersionPolicy, got, want Version) error {
	if got == want {
		return nil
	}
	if !got.IsCompatibleWith(want) {
		return fmt.Errorf("%w: stream is %s, decoder is %s", ErrIncompatibleVersion, got, want)
	}
	switch policy {
	case VersionPolicyError:
		return fmt.Errorf("%w: stream is %s, decoder is %s", ErrIncompatibleVersion, got, want)
	default:
		return fmt.Errorf("%w: stream is %s, decoder is %s", ErrOldVersion, got, want)
	}
}
