package query

import "github.com/rerun-io/rerun-sub034/internal/chunk"

// RangeRow is one row yielded by Range: its time, its row ID, and the
// value it carries for the requested component (empty if that row
// simply had no value for the component).
type RangeRow struct {
	Time  int64
	RowID chunk.RowID
	Value chunk.Cell
}

// Range returns every row for desc that falls within r on tl, ordered
// ascending by (time, RowID) — or descending, when reverse is true. r's
// bounds are both inclusive; callers wanting a half-open range should
// adjust r.Max (or r.Min, for reverse) by one before calling.
//
// If a static value exists for desc, it is always prepended (appended,
// when reverse) as a single row tagged with chunk.TimeStatic, exactly
// as LatestAt treats a static value as always winning over any temporal
// one: a ranged query still needs to see it, since a caller scrubbing a
// timeline has no other way to learn the entity ever had a value for
// desc at all. Ties among multiple static chunks resolve the same way
// latestStatic does, by greatest RowID.
//
// Each temporal chunk is sorted on tl before the merge, so the inputs
// need not be sorted.
func Range(staticChunks, temporalChunks []*chunk.Chunk, desc chunk.ComponentDescriptor, tl chunk.Timeline, r chunk.TimeRange, reverse bool) []RangeRow {
	sorted := make([]*chunk.Chunk, len(temporalChunks))
	for i, c := range temporalChunks {
		sorted[i], _ = c.SortByTime(tl)
	}

	var out []RangeRow
	for ci, row := range mergeChunksByTime(sorted, tl, reverse) {
		c := sorted[ci]
		values, _ := c.TimeValues(tl)
		t := values[row]
		if !r.Contains(t) {
			continue
		}
		rowID := c.RowIDs()[row]
		var cell chunk.Cell
		if col := c.Column(desc); col != nil {
			cell = col.Cell(row)
		}
		out = append(out, RangeRow{Time: t, RowID: rowID, Value: cell})
	}

	if res, ok := latestStatic(staticChunks, desc); ok {
		staticRow := RangeRow{Time: chunk.TimeStatic, RowID: res.RowID, Value: res.Value}
		if reverse {
			out = append(out, staticRow)
		} else {
			out = append([]RangeRow{staticRow}, out...)
		}
	}

	return out
}
