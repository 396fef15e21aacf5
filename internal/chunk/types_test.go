package chunk

import (
	"testing"
	"time"
)

func TestNewChunkIDUnique(t *testing.T) {
	a := NewChunkID()
	b := NewChunkID()
	if a == b {
		t.Fatal("expected distinct IDs")
	}
}

func TestChunkIDStringRoundTrip(t *testing.T) {
	id := NewChunkID()
	s := id.String()
	parsed, err := ParseChunkID(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Fatalf("expected %s, got %s", id, parsed)
	}
}

func TestChunkIDStringLength(t *testing.T) {
	id := NewChunkID()
	s := id.String()
	if len(s) != 26 {
		t.Fatalf("expected 26-char string, got %d: %q", len(s), s)
	}
}

func TestChunkIDMonotonicity(t *testing.T) {
	// UUIDv7 IDs should be monotonically increasing.
	ids := make([]ChunkID, 100)
	for i := range ids {
		ids[i] = NewChunkID()
	}
	for i := 1; i < len(ids); i++ {
		if ids[i].String() <= ids[i-1].String() {
			t.Fatalf("ID %d (%s) <= ID %d (%s)", i, ids[i], i-1, ids[i-1])
		}
	}
}

func TestChunkIDTimeExtraction(t *testing.T) {
	before := time.Now().Truncate(time.Millisecond)
	id := NewChunkID()
	after := time.Now().Truncate(time.Millisecond).Add(time.Millisecond)

	got := id.Time()
	if got.Before(before) || got.After(after) {
		t.Fatalf("time %v outside expected range [%v, %v]", got, before, after)
	}
}

func TestParseChunkIDValid(t *testing.T) {
	known := NewChunkID()
	s := known.String()
	parsed, err := ParseChunkID(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != known {
		t.Fatalf("expected %s, got %s", known, parsed)
	}
}

func TestParseChunkIDInvalid(t *testing.T) {
	cases := []string{
		"",
		"short",
		"toolongstringfortesting!!!!!", // too long
		"!!!!!!!!!!!!!!!!!!!!!!!!!!", // 26 chars but invalid base32hex
	}
	for _, input := range cases {
		_, err := ParseChunkID(input)
		if err == nil {
			t.Fatalf("expected error for %q, got nil", input)
		}
	}
}

func TestChunkIDZero(t *testing.T) {
	zero := ChunkID{}
	s := zero.String()
	if len(s) != 26 {
		t.Fatalf("expected 26 chars, got %d: %q", len(s), s)
	}
	parsed, err := ParseChunkID(s)
	if err != nil {
		t.Fatalf("parse zero: %v", err)
	}
	if parsed != zero {
		t.Fatalf("expected zero ID, got %s", parsed)
	}
}

func TestChunkIDBase32HexCharset(t *testing.T) {
	id := NewChunkID()
	s := id.String()
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'v')) {
			t.Fatalf("unexpected character %q in %q", string(c), s)
		}
	}
}

func TestRowIDProducerMonotonic(t *testing.T) {
	p := NewRowIDProducer()
	prev := p.Next()
	for range 10000 {
		next := p.Next()
		if !prev.Less(next) {
			t.Fatalf("expected %s < %s", prev, next)
		}
		prev = next
	}
}

func TestRowIDProducerConcurrent(t *testing.T) {
	p := NewRowIDProducer()
	const goroutines, perGoroutine = 8, 500
	ids := make(chan RowID, goroutines*perGoroutine)
	done := make(chan struct{})
	for range goroutines {
		go func() {
			for range perGoroutine {
				ids <- p.Next()
			}
			done <- struct{}{}
		}()
	}
	for range goroutines {
		<-done
	}
	close(ids)
	seen := make(map[RowID]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate RowID %s", id)
		}
		seen[id] = true
	}
	if len(seen) != goroutines*perGoroutine {
		t.Fatalf("expected %d unique IDs, got %d", goroutines*perGoroutine, len(seen))
	}
}

func TestRowIDCompare(t *testing.T) {
	p := NewRowIDProducer()
	a := p.Next()
	b := p.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("expected a < b")
	}
	if a.Compare(a) != 0 {
		t.Fatalf("expected a == a")
	}
	if b.Compare(a) <= 0 {
		t.Fatalf("expected b > a")
	}
}

func TestEntityPathParseAndParts(t *testing.T) {
	p := ParseEntityPath("/world/camera/image")
	want := []string{"world", "camera", "image"}
	got := p.Parts()
	if len(got) != len(want) {
		t.Fatalf("expected %d parts, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("part %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if p.String() != "/world/camera/image" {
		t.Fatalf("unexpected string form: %q", p.String())
	}
}

func TestEntityPathEqualAndHash(t *testing.T) {
	a := NewEntityPath("world", "camera")
	b := ParseEntityPath("world/camera")
	if !a.Equal(b) {
		t.Fatalf("expected equal paths")
	}
	if a.Hash() != b.Hash() {
		t.Fatalf("expected equal hash for equal paths")
	}
	c := NewEntityPath("world", "lidar")
	if a.Equal(c) {
		t.Fatalf("expected different paths to compare unequal")
	}
}

func TestEntityPathIsDescendantOf(t *testing.T) {
	parent := NewEntityPath("world", "camera")
	child := NewEntityPath("world", "camera", "image")
	if !child.IsDescendantOf(parent) {
		t.Fatalf("expected child to descend from parent")
	}
	if parent.IsDescendantOf(child) {
		t.Fatalf("parent should not descend from child")
	}
	if parent.IsDescendantOf(parent) {
		t.Fatalf("a path is not its own descendant")
	}
}

func TestComponentDescriptorHashAndString(t *testing.T) {
	a := ComponentDescriptor{ArchetypeName: "Points3D", ArchetypeField: "positions", ComponentType: "Position3D"}
	b := ComponentDescriptor{ArchetypeName: "Points3D", ArchetypeField: "positions", ComponentType: "Position3D"}
	if a.Hash() != b.Hash() {
		t.Fatalf("expected identical descriptors to hash equally")
	}
	c := ComponentDescriptor{ArchetypeName: "Points3D", ArchetypeField: "colors", ComponentType: "Color"}
	if a.Hash() == c.Hash() {
		t.Fatalf("expected different descriptors to hash differently")
	}
	if a.String() == "" {
		t.Fatalf("expected non-empty string form")
	}
}

func TestTimePointStatic(t *testing.T) {
	var tp TimePoint
	if !tp.IsStatic() {
		t.Fatalf("nil time point should be static")
	}
	tl := NewTimeline("frame", Sequence)
	tp = TimePoint{tl: 10}
	if tp.IsStatic() {
		t.Fatalf("non-empty time point should not be static")
	}
	cp := tp.Clone()
	cp[tl] = 20
	if tp[tl] != 10 {
		t.Fatalf("clone mutation leaked into original")
	}
}

func TestTimeRangeContainsAndIntersects(t *testing.T) {
	r := NewTimeRange(10, 20)
	if !r.Contains(10) || !r.Contains(20) || !r.Contains(15) {
		t.Fatalf("expected 10,15,20 to be contained in [10,20]")
	}
	if r.Contains(9) || r.Contains(21) {
		t.Fatalf("expected 9,21 to be outside [10,20]")
	}
	other := NewTimeRange(20, 30)
	if !r.Intersects(other) {
		t.Fatalf("expected [10,20] to intersect [20,30] at the boundary")
	}
	disjoint := NewTimeRange(100, 200)
	if r.Intersects(disjoint) {
		t.Fatalf("expected [10,20] not to intersect [100,200]")
	}
}

func TestTimeRangeNormalizesInvertedBounds(t *testing.T) {
	r := NewTimeRange(20, 10)
	if r.Min != 10 || r.Max != 20 {
		t.Fatalf("expected normalized range [10,20], got [%d,%d]", r.Min, r.Max)
	}
}

func TestTimeRangeUnion(t *testing.T) {
	a := NewTimeRange(10, 20)
	b := NewTimeRange(15, 30)
	u := a.Union(b)
	if u.Min != 10 || u.Max != 30 {
		t.Fatalf("expected union [10,30], got [%d,%d]", u.Min, u.Max)
	}
}
