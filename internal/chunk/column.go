package chunk

import "fmt"

// ValueType is the closed set of wire-representable component value
// kinds a Column may carry. Component data is erased to one of these at
// the chunk boundary; whatever richer type a producer used is the
// producer's concern, not the store's.
type ValueType int

const (
	// ValueInt64 stores 64-bit signed integers.
	ValueInt64 ValueType = iota
	// ValueFloat64 stores 64-bit floats.
	ValueFloat64
	// ValueString stores UTF-8 strings.
	ValueString
	// ValueBool stores booleans.
	ValueBool
	// ValueBytes stores opaque byte blobs.
	ValueBytes
)

func (t ValueType) String() string {
	switch t {
	case ValueInt64:
		return "int64"
	case ValueFloat64:
		return "float64"
	case ValueString:
		return "string"
	case ValueBool:
		return "bool"
	case ValueBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Column is a single component's data across every row of a chunk. It is
// a list-array: each row owns a (possibly empty) run of values delimited
// by Offsets, so a component that is multi-valued per row (e.g. a list
// of points) is represented without a nested allocation per row.
//
// Column values are never mutated after construction. Clone and Slice
// share the underlying typed slice rather than copying values: Clone is
// a shallow O(1) copy, while Slice builds a new Offsets slice of
// end-start+1 entries.
type Column struct {
	Descriptor ComponentDescriptor
	Type       ValueType
	// Offsets has NumRows()+1 entries; row i's values are
	// data[Offsets[i]:Offsets[i+1]].
	Offsets []uint32
	// Valid has NumRows() entries; Valid[i] is false when row i never
	// logged a value for this component at all, as opposed to logging
	// one that happens to be an empty list (RowLen(i)==0 either way).
	// A nil Valid means every row is valid — the common case, since a
	// column is only ever present on a chunk for rows that logged it.
	Valid []bool

	Int64Data   []int64
	Float64Data []float64
	StringData  []string
	BoolData    []bool
	BytesData   [][]byte
}

// NumRows returns the number of rows this column covers.
func (c *Column) NumRows() int {
	if len(c.Offsets) == 0 {
		return 0
	}
	return len(c.Offsets) - 1
}

// RowLen returns how many values row i carries (0 if the row has none).
func (c *Column) RowLen(i int) int {
	return int(c.Offsets[i+1] - c.Offsets[i])
}

// IsRowEmpty reports whether row i carries no value for this component.
// This is true both for a row that never logged the component and for
// one that logged an explicit empty list; use IsRowValid to tell those
// apart.
func (c *Column) IsRowEmpty(i int) bool { return c.RowLen(i) == 0 }

// IsRowValid reports whether row i ever logged a value for this
// component, as opposed to never having one at all.
func (c *Column) IsRowValid(i int) bool {
	if c.Valid == nil {
		return true
	}
	return c.Valid[i]
}

// Clone returns a shallow copy of the column. Because the underlying
// typed slices are never mutated, this is safe to share across chunks
// without copying the data itself.
func (c *Column) Clone() *Column {
	cp := *c
	return &cp
}

// Slice returns the sub-column covering rows [start, end). The returned
// column shares the parent's backing arrays.
func (c *Column) Slice(start, end int) *Column {
	offStart := c.Offsets[start]
	cp := &Column{
		Descriptor: c.Descriptor,
		Type:       c.Type,
		Offsets:    make([]uint32, end-start+1),
	}
	for i := start; i <= end; i++ {
		cp.Offsets[i-start] = c.Offsets[i] - offStart
	}
	lo, hi := c.Offsets[start], c.Offsets[end]
	switch c.Type {
	case ValueInt64:
		cp.Int64Data = c.Int64Data[lo:hi]
	case ValueFloat64:
		cp.Float64Data = c.Float64Data[lo:hi]
	case ValueString:
		cp.StringData = c.StringData[lo:hi]
	case ValueBool:
		cp.BoolData = c.BoolData[lo:hi]
	case ValueBytes:
		cp.BytesData = c.BytesData[lo:hi]
	}
	if c.Valid != nil {
		cp.Valid = c.Valid[start:end]
	}
	return cp
}

// Cell is one row's erased value run for a single component: zero values
// for an empty row, one for a scalar component, or more for a
// multi-valued (list) component. Exactly one of the typed fields is
// populated, matching the owning Column's Type.
type Cell struct {
	Type ValueType
	// Valid is false when the row never logged this component at all.
	// A false Valid implies an empty value run, but an empty value run
	// doesn't imply false Valid — an explicitly logged empty list is
	// Valid with a zero-length run. See IsAbsent/IsEmpty.
	Valid bool

	Int64   []int64
	Float64 []float64
	String  []string
	Bool    []bool
	Bytes   [][]byte
}

// IsEmpty reports whether the row's value run is zero-length, whether
// because the component was never logged (IsAbsent) or was logged as
// an explicit empty list.
func (c Cell) IsEmpty() bool {
	return len(c.Int64) == 0 && len(c.Float64) == 0 && len(c.String) == 0 && len(c.Bool) == 0 && len(c.Bytes) == 0
}

// IsAbsent reports whether the row never logged a value for this
// component at all, as distinct from logging an empty one.
func (c Cell) IsAbsent() bool { return !c.Valid }

// Cell returns row i's value run.
func (c *Column) Cell(row int) Cell {
	lo, hi := c.Offsets[row], c.Offsets[row+1]
	cell := Cell{Type: c.Type, Valid: c.IsRowValid(row)}
	switch c.Type {
	case ValueInt64:
		cell.Int64 = c.Int64Data[lo:hi]
	case ValueFloat64:
		cell.Float64 = c.Float64Data[lo:hi]
	case ValueString:
		cell.String = c.StringData[lo:hi]
	case ValueBool:
		cell.Bool = c.BoolData[lo:hi]
	case ValueBytes:
		cell.Bytes = c.BytesData[lo:hi]
	}
	return cell
}

// dataLen returns the length of the typed backing slice, used to
// validate Offsets against actual stored values.
func (c *Column) dataLen() int {
	switch c.Type {
	case ValueInt64:
		return len(c.Int64Data)
	case ValueFloat64:
		return len(c.Float64Data)
	case ValueString:
		return len(c.StringData)
	case ValueBool:
		return len(c.BoolData)
	case ValueBytes:
		return len(c.BytesData)
	default:
		return 0
	}
}

// Validate checks the column's internal structural invariants: Offsets
// is non-decreasing, starts at 0, and its last entry matches the length
// of the typed backing slice.
func (c *Column) Validate() error {
	if len(c.Offsets) == 0 {
		return fmt.Errorf("column %s: offsets must have at least one entry", c.Descriptor)
	}
	if c.Offsets[0] != 0 {
		return fmt.Errorf("column %s: offsets must start at 0", c.Descriptor)
	}
	for i := 1; i < len(c.Offsets); i++ {
		if c.Offsets[i] < c.Offsets[i-1] {
			return fmt.Errorf("column %s: offsets must be non-decreasing", c.Descriptor)
		}
	}
	if last := int(c.Offsets[len(c.Offsets)-1]); last != c.dataLen() {
		return fmt.Errorf("column %s: offsets imply %d values, have %d", c.Descriptor, last, c.dataLen())
	}
	if c.Valid != nil && len(c.Valid) != c.NumRows() {
		return fmt.Errorf("column %s: valid has %d entries, want %d", c.Descriptor, len(c.Valid), c.NumRows())
	}
	return nil
}

// densifyRow reports whether row i should contribute to a densified
// view: a row contributes if it ever logged a value, including an
// explicit empty one.
func (c *Column) densifyRow(i int) bool { return c.IsRowValid(i) }
