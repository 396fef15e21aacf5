// Package chunk implements the columnar data model: row identifiers,
// entity paths, component descriptors, time primitives, and the
// immutable Chunk type built from them.
package chunk

import (
	"encoding/base32"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RowID uniquely and totally orders every row ever inserted into a store.
// The high 64 bits are a producer-local wall-clock timestamp in
// nanoseconds; the low 64 bits are a per-producer counter that only
// resets when the clock advances. Comparing two RowIDs as big-endian
// 128-bit integers gives their insertion order.
type RowID [16]byte

// Compare returns -1, 0, or 1 as a orders before, equal to, or after b.
func (a RowID) Compare(b RowID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether a orders strictly before b.
func (a RowID) Less(b RowID) bool { return a.Compare(b) < 0 }

func (a RowID) String() string {
	return fmt.Sprintf("%016x-%016x", a.high(), a.low())
}

func (a RowID) high() uint64 {
	var h uint64
	for i := range 8 {
		h = h<<8 | uint64(a[i])
	}
	return h
}

func (a RowID) low() uint64 {
	var l uint64
	for i := 8; i < 16; i++ {
		l = l<<8 | uint64(a[i])
	}
	return l
}

func putRowID(high, low uint64) RowID {
	var id RowID
	for i := 7; i >= 0; i-- {
		id[i] = byte(high)
		high >>= 8
	}
	for i := 15; i >= 8; i-- {
		id[i] = byte(low)
		low >>= 8
	}
	return id
}

// RowIDProducer generates strictly monotonically increasing RowIDs for a
// single producer. Concurrent use is safe. Within the same nanosecond the
// low-order counter is incremented instead of reusing zero, so two calls
// in the same tick never collide.
type RowIDProducer struct {
	mu       sync.Mutex
	lastTime uint64
	counter  uint64
}

// NewRowIDProducer returns a producer ready to generate RowIDs.
func NewRowIDProducer() *RowIDProducer {
	return &RowIDProducer{}
}

// Next returns the next RowID from this producer, guaranteed to be
// strictly greater than every RowID this producer has returned before.
func (p *RowIDProducer) Next() RowID {
	now := uint64(time.Now().UnixNano()) //nolint:gosec // time is always positive

	p.mu.Lock()
	defer p.mu.Unlock()

	if now <= p.lastTime {
		p.counter++
	} else {
		p.lastTime = now
		p.counter = 0
	}
	return putRowID(p.lastTime, p.counter)
}

// chunkIDEncoding is base32hex (RFC 4648) lowercase without padding.
// Alphabet 0-9a-v preserves lexicographic sort order.
var chunkIDEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// ChunkID uniquely identifies a chunk. It is a UUIDv7 (16 bytes) whose
// string representation is 26-char lowercase base32hex, lexicographically
// sortable by creation time.
type ChunkID [16]byte

// NewChunkID creates a ChunkID from a new UUIDv7. UUIDv7 embeds a
// millisecond timestamp and guarantees monotonically increasing IDs.
func NewChunkID() ChunkID {
	return ChunkID(uuid.Must(uuid.NewV7()))
}

// ParseChunkID parses a 26-character base32hex string into a ChunkID.
func ParseChunkID(value string) (ChunkID, error) {
	if len(value) != 26 {
		return ChunkID{}, fmt.Errorf("invalid chunk ID length: %d (want 26)", len(value))
	}
	decoded, err := chunkIDEncoding.DecodeString(strings.ToUpper(value))
	if err != nil {
		return ChunkID{}, fmt.Errorf("invalid chunk ID: %w", err)
	}
	var id ChunkID
	copy(id[:], decoded)
	return id, nil
}

// String returns the 26-character lowercase base32hex representation.
func (id ChunkID) String() string {
	return strings.ToLower(chunkIDEncoding.EncodeToString(id[:]))
}

// Time returns the creation time encoded in the UUIDv7 ChunkID.
func (id ChunkID) Time() time.Time {
	ms := int64(id[0])<<40 | int64(id[1])<<32 | int64(id[2])<<24 |
		int64(id[3])<<16 | int64(id[4])<<8 | int64(id[5])
	return time.UnixMilli(ms)
}

// EntityPath identifies a logical entity in the store's namespace, e.g.
// "world/camera/image". Parts are stored pre-split to avoid repeated
// string splitting on the hot insert/query path, and the path's hash is
// precomputed once at construction.
type EntityPath struct {
	parts []string
	full  string
	hash  uint64
}

// NewEntityPath builds an EntityPath from its slash-separated parts.
func NewEntityPath(parts ...string) EntityPath {
	full := strings.Join(parts, "/")
	h := fnv.New64a()
	_, _ = h.Write([]byte(full))
	cp := make([]string, len(parts))
	copy(cp, parts)
	return EntityPath{parts: cp, full: full, hash: h.Sum64()}
}

// ParseEntityPath splits a slash-separated string into an EntityPath.
func ParseEntityPath(s string) EntityPath {
	s = strings.Trim(s, "/")
	if s == "" {
		return NewEntityPath()
	}
	return NewEntityPath(strings.Split(s, "/")...)
}

// Parts returns the path's components. The returned slice must not be
// mutated by the caller.
func (p EntityPath) Parts() []string { return p.parts }

// Hash returns the path's precomputed 64-bit hash, suitable as a map key
// or index bucket selector.
func (p EntityPath) Hash() uint64 { return p.hash }

// IsDescendantOf reports whether p is strictly nested under ancestor.
func (p EntityPath) IsDescendantOf(ancestor EntityPath) bool {
	if len(p.parts) <= len(ancestor.parts) {
		return false
	}
	for i, part := range ancestor.parts {
		if p.parts[i] != part {
			return false
		}
	}
	return true
}

func (p EntityPath) String() string { return "/" + p.full }

// Equal reports whether two entity paths refer to the same path.
func (p EntityPath) Equal(other EntityPath) bool { return p.full == other.full }

// ComponentDescriptor identifies the column kind stored against an
// entity: which archetype produced it, which field of that archetype it
// fills, and the wire type of its values. Two descriptors that compare
// equal address the same column in a chunk.
type ComponentDescriptor struct {
	ArchetypeName  string
	ArchetypeField string
	ComponentType  string
}

// Hash returns a stable hash of the descriptor, used as an index key.
func (d ComponentDescriptor) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(d.ArchetypeName))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(d.ArchetypeField))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(d.ComponentType))
	return h.Sum64()
}

func (d ComponentDescriptor) String() string {
	return fmt.Sprintf("%s:%s#%s", d.ArchetypeName, d.ArchetypeField, d.ComponentType)
}

// TimeKind distinguishes the three supported timeline representations.
// All three share an int64 wire representation; the kind only affects
// formatting and step semantics (e.g. Sequence steps by 1, DurationNs and
// TimestampNs step by wall-clock nanoseconds).
type TimeKind int

const (
	// Sequence is a monotonically increasing logical counter (e.g. frame number).
	Sequence TimeKind = iota
	// DurationNs is a duration since some epoch, in nanoseconds.
	DurationNs
	// TimestampNs is an absolute Unix timestamp, in nanoseconds.
	TimestampNs
)

func (k TimeKind) String() string {
	switch k {
	case Sequence:
		return "sequence"
	case DurationNs:
		return "duration_ns"
	case TimestampNs:
		return "timestamp_ns"
	default:
		return "unknown"
	}
}

// Timeline names one axis of time a store indexes rows by, e.g. "frame"
// (Sequence) or "log_time" (TimestampNs). A chunk's TimePoint may carry a
// value on any number of timelines, including zero (a static row).
type Timeline struct {
	Name string
	Kind TimeKind
}

// NewTimeline constructs a Timeline.
func NewTimeline(name string, kind TimeKind) Timeline {
	return Timeline{Name: name, Kind: kind}
}

func (t Timeline) String() string { return t.Name }

const (
	// TimeMin is the smallest representable time value on any timeline.
	TimeMin int64 = -1 << 62
	// TimeMax is the largest representable time value on any timeline.
	TimeMax int64 = 1 << 62
	// TimeStatic is the sentinel time value for static (timeless) data.
	// It compares before TimeMin so static overrides always sort first
	// within a per-component stream, per the latest-at override rule.
	TimeStatic int64 = -1 << 63
)

// TimePoint maps each timeline a row carries a value on to that value.
// An empty TimePoint marks a static row: one that is visible at every
// point in every timeline until superseded by a newer static row.
type TimePoint map[Timeline]int64

// IsStatic reports whether the time point carries no timeline values.
func (tp TimePoint) IsStatic() bool { return len(tp) == 0 }

// Clone returns an independent copy of the time point.
func (tp TimePoint) Clone() TimePoint {
	if tp == nil {
		return nil
	}
	cp := make(TimePoint, len(tp))
	for k, v := range tp {
		cp[k] = v
	}
	return cp
}

// TimeRange is an inclusive [Min, Max] interval on one timeline. The
// sentinel values TimeMin/TimeMax/TimeStatic may appear at either bound
// to express open-ended or static-only ranges.
type TimeRange struct {
	Min int64
	Max int64
}

// NewTimeRange builds a TimeRange, normalizing inverted bounds.
func NewTimeRange(min, max int64) TimeRange {
	if min > max {
		min, max = max, min
	}
	return TimeRange{Min: min, Max: max}
}

// EverythingRange spans every representable time value on a timeline.
func EverythingRange() TimeRange { return TimeRange{Min: TimeMin, Max: TimeMax} }

// StaticRange contains only the static sentinel.
func StaticRange() TimeRange { return TimeRange{Min: TimeStatic, Max: TimeStatic} }

// Contains reports whether t falls within the range, inclusive.
func (r TimeRange) Contains(t int64) bool { return t >= r.Min && t <= r.Max }

// Intersects reports whether r and other overlap.
func (r TimeRange) Intersects(other TimeRange) bool {
	return r.Min <= other.Max && other.Min <= r.Max
}

// Union returns the smallest range containing both r and other.
func (r TimeRange) Union(other TimeRange) TimeRange {
	return TimeRange{Min: min(r.Min, other.Min), Max: max(r.Max, other.Max)}
}
