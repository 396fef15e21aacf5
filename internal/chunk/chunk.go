package chunk

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrMismatchedRowCount is returned when a chunk's columns or time
	// arrays don't all agree on the number of rows.
	ErrMismatchedRowCount = errors.New("chunk: mismatched row count")
	// ErrDuplicateRowID is returned when a chunk's row IDs are not unique.
	ErrDuplicateRowID = errors.New("chunk: duplicate row id")
	// ErrInvalidTimeColumn is returned when a chunk mixes static and
	// temporal rows, which the data model forbids: a chunk is either
	// entirely static (no timelines) or entirely temporal (every row
	// has a value on every declared timeline).
	ErrInvalidTimeColumn = errors.New("chunk: invalid time column")
	// ErrEmptyChunk is returned by constructors given zero rows.
	ErrEmptyChunk = errors.New("chunk: cannot construct from zero rows")
	// ErrEntityMismatch is returned by Concat when chunks address different entities.
	ErrEntityMismatch = errors.New("chunk: entity path mismatch")
	// ErrStaticnessMismatch is returned by Concat when one chunk is static and the other temporal.
	ErrStaticnessMismatch = errors.New("chunk: cannot concat a static chunk with a temporal one")
)

// Chunk is an immutable, column-oriented batch of rows for a single
// entity. A chunk is either static (every row has an empty TimePoint and
// the chunk carries no timeline data) or temporal (every row carries a
// value on every one of the chunk's declared timelines). Mixing the two
// within one chunk is rejected at construction.
//
// Once constructed, a Chunk's data is never mutated; all transformations
// (Sort, Slice, Densify, Concat) return a new Chunk.
type Chunk struct {
	id     ChunkID
	entity EntityPath

	rowIDs    []RowID
	timelines map[Timeline][]int64 // nil/empty for a static chunk
	columns   map[ComponentDescriptor]*Column

	sortedByRowID bool
}

// NewChunk constructs a Chunk, validating the invariants described on the
// type. timelines maps each of the chunk's time axes to one int64 value
// per row, in row order; pass nil/empty for a static chunk.
func NewChunk(
	id ChunkID,
	entity EntityPath,
	rowIDs []RowID,
	timelines map[Timeline][]int64,
	columns map[ComponentDescriptor]*Column,
) (*Chunk, error) {
	if len(rowIDs) == 0 {
		return nil, ErrEmptyChunk
	}

	n := len(rowIDs)

	seen := make(map[RowID]struct{}, n)
	for _, id := range rowIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRowID, id)
		}
		seen[id] = struct{}{}
	}

	for tl, values := range timelines {
		if len(values) != n {
			return nil, fmt.Errorf("%w: timeline %s has %d values, want %d", ErrMismatchedRowCount, tl, len(values), n)
		}
	}

	for desc, col := range columns {
		if err := col.Validate(); err != nil {
			return nil, fmt.Errorf("column %s: %w", desc, err)
		}
		if col.NumRows() != n {
			return nil, fmt.Errorf("%w: column %s has %d rows, want %d", ErrMismatchedRowCount, desc, col.NumRows(), n)
		}
	}

	rowIDsCopy := make([]RowID, n)
	copy(rowIDsCopy, rowIDs)

	var timelinesCopy map[Timeline][]int64
	if len(timelines) > 0 {
		timelinesCopy = make(map[Timeline][]int64, len(timelines))
		for tl, values := range timelines {
			vc := make([]int64, len(values))
			copy(vc, values)
			timelinesCopy[tl] = vc
		}
	}

	columnsCopy := make(map[ComponentDescriptor]*Column, len(columns))
	for desc, col := range columns {
		columnsCopy[desc] = col.Clone()
	}

	return &Chunk{
		id:            id,
		entity:        entity,
		rowIDs:        rowIDsCopy,
		timelines:     timelinesCopy,
		columns:       columnsCopy,
		sortedByRowID: isSortedByRowID(rowIDsCopy),
	}, nil
}

func isSortedByRowID(rowIDs []RowID) bool {
	for i := 1; i < len(rowIDs); i++ {
		if rowIDs[i].Less(rowIDs[i-1]) {
			return false
		}
	}
	return true
}

// ID returns the chunk's identity.
func (c *Chunk) ID() ChunkID { return c.id }

// Entity returns the entity path this chunk carries data for.
func (c *Chunk) Entity() EntityPath { return c.entity }

// Len returns the number of rows in the chunk.
func (c *Chunk) Len() int { return len(c.rowIDs) }

// IsEmpty reports whether the chunk has zero rows. NewChunk never
// produces one, but a Slice(n, n) of a chunk can.
func (c *Chunk) IsEmpty() bool { return len(c.rowIDs) == 0 }

// IsStatic reports whether this is a static (timeless) chunk.
func (c *Chunk) IsStatic() bool { return len(c.timelines) == 0 }

// Timelines returns the set of timelines this chunk carries data on. Empty for a static chunk.
func (c *Chunk) Timelines() []Timeline {
	out := make([]Timeline, 0, len(c.timelines))
	for tl := range c.timelines {
		out = append(out, tl)
	}
	return out
}

// RowIDs returns the chunk's row IDs in storage order. The returned
// slice must not be mutated.
func (c *Chunk) RowIDs() []RowID { return c.rowIDs }

// RowIDRange returns the [min, max] of the chunk's row IDs.
func (c *Chunk) RowIDRange() (min, max RowID) {
	min, max = c.rowIDs[0], c.rowIDs[0]
	for _, id := range c.rowIDs[1:] {
		if id.Less(min) {
			min = id
		}
		if max.Less(id) {
			max = id
		}
	}
	return min, max
}

// TimeRange returns the [min, max] time value the chunk carries on tl.
// The second return is false if the chunk doesn't carry that timeline.
func (c *Chunk) TimeRange(tl Timeline) (TimeRange, bool) {
	values, ok := c.timelines[tl]
	if !ok || len(values) == 0 {
		return TimeRange{}, false
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return NewTimeRange(lo, hi), true
}

// TimeValues returns the raw per-row values for a timeline, in row
// order. The second return is false if the chunk doesn't carry tl.
func (c *Chunk) TimeValues(tl Timeline) ([]int64, bool) {
	values, ok := c.timelines[tl]
	return values, ok
}

// Column returns the column for a component descriptor, or nil if the
// chunk carries no data for it.
func (c *Chunk) Column(desc ComponentDescriptor) *Column { return c.columns[desc] }

// ComponentDescriptors returns every component this chunk carries data for.
func (c *Chunk) ComponentDescriptors() []ComponentDescriptor {
	out := make([]ComponentDescriptor, 0, len(c.columns))
	for desc := range c.columns {
		out = append(out, desc)
	}
	return out
}

// IsSortedByRowID reports whether the chunk's rows are already in
// ascending row-ID order. This is computed once at construction and
// cached; SortByRowID uses it to return an already sorted chunk unchanged.
func (c *Chunk) IsSortedByRowID() bool { return c.sortedByRowID }

// permute returns a new Chunk with rows reordered according to order
// (order[i] is the source row index that should land at destination i).
func (c *Chunk) permute(order []int) *Chunk {
	n := len(order)
	newRowIDs := make([]RowID, n)
	for i, src := range order {
		newRowIDs[i] = c.rowIDs[src]
	}

	var newTimelines map[Timeline][]int64
	if len(c.timelines) > 0 {
		newTimelines = make(map[Timeline][]int64, len(c.timelines))
		for tl, values := range c.timelines {
			nv := make([]int64, n)
			for i, src := range order {
				nv[i] = values[src]
			}
			newTimelines[tl] = nv
		}
	}

	newColumns := make(map[ComponentDescriptor]*Column, len(c.columns))
	for desc, col := range c.columns {
		newColumns[desc] = permuteColumn(col, order)
	}

	return &Chunk{
		id:            c.id,
		entity:        c.entity,
		rowIDs:        newRowIDs,
		timelines:     newTimelines,
		columns:       newColumns,
		sortedByRowID: isSortedByRowID(newRowIDs),
	}
}

func permuteColumn(col *Column, order []int) *Column {
	newOffsets := make([]uint32, len(order)+1)
	total := uint32(0)
	for i, src := range order {
		newOffsets[i] = total
		total += uint32(col.RowLen(src))
	}
	newOffsets[len(order)] = total

	out := &Column{Descriptor: col.Descriptor, Type: col.Type, Offsets: newOffsets}
	if col.Valid != nil {
		newValid := make([]bool, len(order))
		for i, src := range order {
			newValid[i] = col.Valid[src]
		}
		out.Valid = newValid
	}
	switch col.Type {
	case ValueInt64:
		out.Int64Data = make([]int64, 0, total)
		for _, src := range order {
			out.Int64Data = append(out.Int64Data, col.Int64Data[col.Offsets[src]:col.Offsets[src+1]]...)
		}
	case ValueFloat64:
		out.Float64Data = make([]float64, 0, total)
		for _, src := range order {
			out.Float64Data = append(out.Float64Data, col.Float64Data[col.Offsets[src]:col.Offsets[src+1]]...)
		}
	case ValueString:
		out.StringData = make([]string, 0, total)
		for _, src := range order {
			out.StringData = append(out.StringData, col.StringData[col.Offsets[src]:col.Offsets[src+1]]...)
		}
	case ValueBool:
		out.BoolData = make([]bool, 0, total)
		for _, src := range order {
			out.BoolData = append(out.BoolData, col.BoolData[col.Offsets[src]:col.Offsets[src+1]]...)
		}
	case ValueBytes:
		out.BytesData = make([][]byte, 0, total)
		for _, src := range order {
			out.BytesData = append(out.BytesData, col.BytesData[col.Offsets[src]:col.Offsets[src+1]]...)
		}
	}
	return out
}

// SortByRowID returns a chunk with rows reordered into ascending row-ID
// order. If the chunk is already sorted, it is returned unchanged.
func (c *Chunk) SortByRowID() *Chunk {
	if c.sortedByRowID {
		return c
	}
	order := make([]int, c.Len())
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return c.rowIDs[order[i]].Less(c.rowIDs[order[j]]) })
	return c.permute(order)
}

// SortByTime returns a chunk with rows reordered into ascending order on
// tl, with row ID as the tiebreaker for equal time values. Returns the
// chunk unchanged, with ok=false, if it doesn't carry tl.
func (c *Chunk) SortByTime(tl Timeline) (sorted *Chunk, ok bool) {
	values, present := c.timelines[tl]
	if !present {
		return c, false
	}
	order := make([]int, c.Len())
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if values[a] != values[b] {
			return values[a] < values[b]
		}
		return c.rowIDs[a].Less(c.rowIDs[b])
	})
	return c.permute(order), true
}

// Slice returns the sub-chunk covering rows [start, end). Panics if the
// bounds are out of range, matching slice semantics.
func (c *Chunk) Slice(start, end int) *Chunk {
	if start < 0 || end > c.Len() || start > end {
		panic(fmt.Sprintf("chunk: slice [%d:%d) out of range for length %d", start, end, c.Len()))
	}
	newRowIDs := make([]RowID, end-start)
	copy(newRowIDs, c.rowIDs[start:end])

	var newTimelines map[Timeline][]int64
	if len(c.timelines) > 0 {
		newTimelines = make(map[Timeline][]int64, len(c.timelines))
		for tl, values := range c.timelines {
			nv := make([]int64, end-start)
			copy(nv, values[start:end])
			newTimelines[tl] = nv
		}
	}

	newColumns := make(map[ComponentDescriptor]*Column, len(c.columns))
	for desc, col := range c.columns {
		newColumns[desc] = col.Slice(start, end)
	}

	return &Chunk{
		id:            c.id,
		entity:        c.entity,
		rowIDs:        newRowIDs,
		timelines:     newTimelines,
		columns:       newColumns,
		sortedByRowID: isSortedByRowID(newRowIDs),
	}
}

// Densify returns the sub-chunk containing only rows that ever logged a
// value for desc, preserving row order — including rows that logged an
// explicit empty value, which still count as having one. If the chunk
// doesn't carry desc at all, the result is empty (length 0, still a
// valid Chunk data-wise but callers should treat a zero-length densify
// result as "nothing here").
func (c *Chunk) Densify(desc ComponentDescriptor) *Chunk {
	col := c.columns[desc]
	if col == nil {
		return c.permute(nil)
	}
	order := make([]int, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		if col.densifyRow(i) {
			order = append(order, i)
		}
	}
	return c.permute(order)
}

// Concat concatenates chunks for the same entity, in the given order,
// into a single chunk. All inputs must be static or all temporal
// (matching), and must address the same entity. The result's row order
// is the concatenation of inputs' row orders; its IsSortedByRowID is
// recomputed, not assumed.
func Concat(chunks ...*Chunk) (*Chunk, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyChunk
	}
	first := chunks[0]
	totalRows := 0
	for _, c := range chunks {
		if !c.entity.Equal(first.entity) {
			return nil, ErrEntityMismatch
		}
		if c.IsStatic() != first.IsStatic() {
			return nil, ErrStaticnessMismatch
		}
		totalRows += c.Len()
	}

	rowIDs := make([]RowID, 0, totalRows)
	for _, c := range chunks {
		rowIDs = append(rowIDs, c.rowIDs...)
	}

	var timelines map[Timeline][]int64
	if !first.IsStatic() {
		timelineSet := map[Timeline]struct{}{}
		for _, c := range chunks {
			for tl := range c.timelines {
				timelineSet[tl] = struct{}{}
			}
		}
		timelines = make(map[Timeline][]int64, len(timelineSet))
		for tl := range timelineSet {
			values := make([]int64, 0, totalRows)
			for _, c := range chunks {
				v, ok := c.timelines[tl]
				if !ok {
					return nil, fmt.Errorf("%w: timeline %s missing from one input chunk", ErrInvalidTimeColumn, tl)
				}
				values = append(values, v...)
			}
			timelines[tl] = values
		}
	}

	descSet := map[ComponentDescriptor]struct{}{}
	for _, c := range chunks {
		for desc := range c.columns {
			descSet[desc] = struct{}{}
		}
	}
	columns := make(map[ComponentDescriptor]*Column, len(descSet))
	for desc := range descSet {
		columns[desc] = concatColumn(desc, chunks)
	}

	return NewChunk(NewChunkID(), first.entity, rowIDs, timelines, columns)
}

func concatColumn(desc ComponentDescriptor, chunks []*Chunk) *Column {
	var valueType ValueType
	found := false
	for _, c := range chunks {
		if col := c.columns[desc]; col != nil {
			valueType = col.Type
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	out := &Column{Descriptor: desc, Type: valueType, Offsets: []uint32{0}}
	total := uint32(0)
	var valid []bool
	for _, c := range chunks {
		col := c.columns[desc]
		if col == nil {
			// This input chunk never carried desc at all: every one of
			// its rows is absent, not merely an empty value.
			for range c.rowIDs {
				out.Offsets = append(out.Offsets, total)
				valid = append(valid, false)
			}
			continue
		}
		for i := 0; i < col.NumRows(); i++ {
			total += col.Offsets[i+1] - col.Offsets[i]
			out.Offsets = append(out.Offsets, total)
			valid = append(valid, col.IsRowValid(i))
		}
		switch valueType {
		case ValueInt64:
			out.Int64Data = append(out.Int64Data, col.Int64Data...)
		case ValueFloat64:
			out.Float64Data = append(out.Float64Data, col.Float64Data...)
		case ValueString:
			out.StringData = append(out.StringData, col.StringData...)
		case ValueBool:
			out.BoolData = append(out.BoolData, col.BoolData...)
		case ValueBytes:
			out.BytesData = append(out.BytesData, col.BytesData...)
		}
	}
	out.Valid = valid
	return out
}
