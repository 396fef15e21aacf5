package chunk

import "testing"

var scalarDesc = ComponentDescriptor{ArchetypeName: "Scalar", ArchetypeField: "value", ComponentType: "Float64"}

func scalarColumn(values []float64) *Column {
	offsets := make([]uint32, len(values)+1)
	for i := range values {
		offsets[i+1] = uint32(i + 1)
	}
	return &Column{Descriptor: scalarDesc, Type: ValueFloat64, Offsets: offsets, Float64Data: values}
}

func newTestChunk(t *testing.T, entity EntityPath, rowIDs []RowID, timelines map[Timeline][]int64, values []float64) *Chunk {
	t.Helper()
	c, err := NewChunk(NewChunkID(), entity, rowIDs, timelines, map[ComponentDescriptor]*Column{scalarDesc: scalarColumn(values)})
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	return c
}

func TestNewChunkRejectsEmptyRows(t *testing.T) {
	if _, err := NewChunk(NewChunkID(), NewEntityPath("a"), nil, nil, nil); err != ErrEmptyChunk {
		t.Fatalf("expected ErrEmptyChunk, got %v", err)
	}
}

func TestNewChunkRejectsDuplicateRowID(t *testing.T) {
	producer := NewRowIDProducer()
	id := producer.Next()
	_, err := NewChunk(NewChunkID(), NewEntityPath("a"), []RowID{id, id}, nil, nil)
	if err == nil {
		t.Fatal("expected an error for duplicate row IDs")
	}
}

func TestNewChunkRejectsMismatchedTimelineLength(t *testing.T) {
	producer := NewRowIDProducer()
	tl := NewTimeline("frame", Sequence)
	rowIDs := []RowID{producer.Next(), producer.Next()}
	_, err := NewChunk(NewChunkID(), NewEntityPath("a"), rowIDs, map[Timeline][]int64{tl: {1}}, nil)
	if err == nil {
		t.Fatal("expected an error for a timeline with too few values")
	}
}

func TestChunkSortByRowIDReordersRows(t *testing.T) {
	producer := NewRowIDProducer()
	entity := NewEntityPath("a")
	high, low := producer.Next(), producer.Next()

	c := newTestChunk(t, entity, []RowID{high, low}, nil, []float64{1, 2})
	if c.IsSortedByRowID() {
		t.Fatal("expected the unsorted construction order to be reported unsorted")
	}

	sorted := c.SortByRowID()
	if !sorted.IsSortedByRowID() {
		t.Fatal("expected SortByRowID's result to report itself sorted")
	}
	if sorted.RowIDs()[0] != low || sorted.RowIDs()[1] != high {
		t.Fatalf("expected ascending row ID order, got %v", sorted.RowIDs())
	}
	if sorted.Column(scalarDesc).Cell(0).Float64[0] != 2 {
		t.Fatalf("expected the column to move with its row, got %v", sorted.Column(scalarDesc).Cell(0))
	}
}

func TestChunkSortByTimeMissingTimelineReturnsUnchanged(t *testing.T) {
	producer := NewRowIDProducer()
	entity := NewEntityPath("a")
	c := newTestChunk(t, entity, []RowID{producer.Next()}, nil, []float64{1})

	_, ok := c.SortByTime(NewTimeline("frame", Sequence))
	if ok {
		t.Fatal("expected ok=false for a timeline the chunk doesn't carry")
	}
}

func TestChunkSliceOutOfRangePanics(t *testing.T) {
	producer := NewRowIDProducer()
	entity := NewEntityPath("a")
	c := newTestChunk(t, entity, []RowID{producer.Next()}, nil, []float64{1})

	defer func() {
		if recover() == nil {
			t.Fatal("expected Slice out of range to panic")
		}
	}()
	c.Slice(0, 5)
}

func TestConcatRejectsEntityMismatch(t *testing.T) {
	producer := NewRowIDProducer()
	a := newTestChunk(t, NewEntityPath("a"), []RowID{producer.Next()}, nil, []float64{1})
	b := newTestChunk(t, NewEntityPath("b"), []RowID{producer.Next()}, nil, []float64{2})

	if _, err := Concat(a, b); err != ErrEntityMismatch {
		t.Fatalf("expected ErrEntityMismatch, got %v", err)
	}
}

func TestConcatRejectsStaticnessMismatch(t *testing.T) {
	producer := NewRowIDProducer()
	tl := NewTimeline("frame", Sequence)
	entity := NewEntityPath("a")

	static := newTestChunk(t, entity, []RowID{producer.Next()}, nil, []float64{1})
	temporal := newTestChunk(t, entity, []RowID{producer.Next()}, map[Timeline][]int64{tl: {5}}, []float64{2})

	if _, err := Concat(static, temporal); err != ErrStaticnessMismatch {
		t.Fatalf("expected ErrStaticnessMismatch, got %v", err)
	}
}

func TestConcatRejectsTimelineMissingFromOneInput(t *testing.T) {
	producer := NewRowIDProducer()
	entity := NewEntityPath("a")
	frame := NewTimeline("frame", Sequence)
	clock := NewTimeline("clock", Sequence)

	a := newTestChunk(t, entity, []RowID{producer.Next()}, map[Timeline][]int64{frame: {1}}, []float64{1})
	b := newTestChunk(t, entity, []RowID{producer.Next()}, map[Timeline][]int64{frame: {2}, clock: {2}}, []float64{2})

	if _, err := Concat(a, b); err == nil {
		t.Fatal("expected an error when a timeline is missing from one input chunk")
	}
}

func TestConcatMergesRowsAndRecomputesSortedness(t *testing.T) {
	producer := NewRowIDProducer()
	entity := NewEntityPath("a")
	tl := NewTimeline("frame", Sequence)

	a := newTestChunk(t, entity, []RowID{producer.Next()}, map[Timeline][]int64{tl: {1}}, []float64{10})
	b := newTestChunk(t, entity, []RowID{producer.Next()}, map[Timeline][]int64{tl: {2}}, []float64{20})

	merged, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if merged.Len() != 2 {
		t.Fatalf("expected 2 merged rows, got %d", merged.Len())
	}
	values, ok := merged.TimeValues(tl)
	if !ok || values[0] != 1 || values[1] != 2 {
		t.Fatalf("expected concatenated time values [1,2], got %v (ok=%v)", values, ok)
	}
}

func TestConcatFillsMissingColumnWithAbsentPlaceholders(t *testing.T) {
	producer := NewRowIDProducer()
	entity := NewEntityPath("a")

	withCol := newTestChunk(t, entity, []RowID{producer.Next()}, nil, []float64{1})
	noColRowID := producer.Next()
	noCol, err := NewChunk(NewChunkID(), entity, []RowID{noColRowID}, nil, nil)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}

	merged, err := Concat(withCol, noCol)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	col := merged.Column(scalarDesc)
	if col == nil {
		t.Fatal("expected the merged chunk to still carry the column the other input lacked")
	}
	if !col.IsRowValid(0) {
		t.Fatal("expected row 0 (from the chunk that had the column) to remain valid")
	}
	if col.IsRowValid(1) {
		t.Fatal("expected row 1 (from the chunk that never had the column) to be marked absent, not just empty")
	}
}

func TestDensifyDropsAbsentRowsButKeepsExplicitEmptyOnes(t *testing.T) {
	producer := NewRowIDProducer()
	entity := NewEntityPath("a")
	rowIDs := []RowID{producer.Next(), producer.Next(), producer.Next()}

	col := &Column{
		Descriptor:  scalarDesc,
		Type:        ValueFloat64,
		Offsets:     []uint32{0, 0, 0, 1},
		Float64Data: []float64{9},
		Valid:       []bool{false, true, true},
	}
	c, err := NewChunk(NewChunkID(), entity, rowIDs, nil, map[ComponentDescriptor]*Column{scalarDesc: col})
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}

	dense := c.Densify(scalarDesc)
	if dense.Len() != 2 {
		t.Fatalf("expected the absent row dropped and the other two kept, got %d rows", dense.Len())
	}
	if !dense.Column(scalarDesc).Cell(0).IsEmpty() {
		t.Fatal("expected the first surviving row to still be an explicit empty value")
	}
	if dense.Column(scalarDesc).Cell(1).Float64[0] != 9 {
		t.Fatalf("expected the second surviving row to carry 9, got %v", dense.Column(scalarDesc).Cell(1))
	}
}

func TestDensifyMissingColumnIsEmpty(t *testing.T) {
	producer := NewRowIDProducer()
	entity := NewEntityPath("a")
	c := newTestChunk(t, entity, []RowID{producer.Next()}, nil, []float64{1})

	dense := c.Densify(ComponentDescriptor{ArchetypeName: "Other", ArchetypeField: "x", ComponentType: "Float64"})
	if dense.Len() != 0 {
		t.Fatalf("expected a zero-length result for a descriptor the chunk never carried, got %d", dense.Len())
	}
}
