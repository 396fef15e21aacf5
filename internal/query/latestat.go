package query

import "github.com/rerun-io/rerun-sub034/internal/chunk"

// Result is one resolved component value, together with the identity of
// the row it came from. Found is false when no chunk carried data for
// the requested component at or before the query time.
type Result struct {
	Descriptor chunk.ComponentDescriptor
	Value      chunk.Cell
	RowID      chunk.RowID
	// Time is the time value the winning row carried on the query
	// timeline, or chunk.TimeStatic if the value came from a static chunk.
	Time  int64
	Found bool
}

// LatestAt resolves a single component for one entity at one time,
// following the chunk store's latest-at semantics: a static value for
// the component always wins over any temporal value; absent a static
// value, the temporal row with the greatest time (and, among rows tied
// on time, the greatest RowID) at or before at wins.
//
// staticChunks and temporalChunks need not be sorted or deduplicated;
// every row candidate is considered.
func LatestAt(staticChunks, temporalChunks []*chunk.Chunk, desc chunk.ComponentDescriptor, tl chunk.Timeline, at int64) Result {
	if best, ok := latestStatic(staticChunks, desc); ok {
		return best
	}
	return latestTemporal(temporalChunks, desc, tl, at)
}

func latestStatic(chunks []*chunk.Chunk, desc chunk.ComponentDescriptor) (Result, bool) {
	var best Result
	found := false
	for _, c := range chunks {
		col := c.Column(desc)
		if col == nil {
			continue
		}
		for row, id := range c.RowIDs() {
			cell := col.Cell(row)
			if cell.IsAbsent() {
				continue
			}
			if !found || best.RowID.Less(id) {
				best = Result{Descriptor: desc, Value: cell, RowID: id, Time: chunk.TimeStatic, Found: true}
				found = true
			}
		}
	}
	return best, found
}

func latestTemporal(chunks []*chunk.Chunk, desc chunk.ComponentDescriptor, tl chunk.Timeline, at int64) Result {
	var best Result
	found := false
	for _, c := range chunks {
		col := c.Column(desc)
		if col == nil {
			continue
		}
		times, ok := c.TimeValues(tl)
		if !ok {
			continue
		}
		rowIDs := c.RowIDs()
		for row, t := range times {
			if t > at {
				continue
			}
			cell := col.Cell(row)
			if cell.IsAbsent() {
				continue
			}
			id := rowIDs[row]
			if !found || t > best.Time || (t == best.Time && best.RowID.Less(id)) {
				best = Result{Descriptor: desc, Value: cell, RowID: id, Time: t, Found: true}
				found = true
			}
		}
	}
	return best
}
