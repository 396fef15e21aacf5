package query

import "github.com/rerun-io/rerun-sub034/internal/chunk"

// DataframeRow is one row of a dataframe result: a time, the row ID that
// drove it, and a value per requested component (absent from the map
// entirely when nothing was ever visible for that component at this
// point).
type DataframeRow struct {
	Time   int64
	RowID  chunk.RowID
	Values map[chunk.ComponentDescriptor]chunk.Cell
}

// DataframeLatestAt resolves every descriptor in descs at a single
// (tl, at) point, using the same semantics as LatestAt. Descriptors with
// no visible value are simply absent from the result map — the typed
// null is the caller's responsibility to render.
func DataframeLatestAt(staticChunks, temporalChunks []*chunk.Chunk, descs []chunk.ComponentDescriptor, tl chunk.Timeline, at int64) map[chunk.ComponentDescriptor]chunk.Cell {
	out := make(map[chunk.ComponentDescriptor]chunk.Cell, len(descs))
	for _, d := range descs {
		res := LatestAt(staticChunks, temporalChunks, d, tl, at)
		if res.Found {
			out[d] = res.Value
		}
	}
	return out
}

// DataframeRange builds one dataframe row per row the point-of-view
// component (povDesc) carries within r, in ascending (time, RowID)
// order. Every other requested descriptor is resolved by "holding" its
// latest visible value as of that POV row: a static value always wins;
// otherwise the latest temporal value at a time before the POV row's
// time, or at the same time but from a row with a RowID no greater than
// the POV row's own — so a column never appears to look into the future
// relative to the row driving it.
func DataframeRange(staticChunks, temporalChunks []*chunk.Chunk, povDesc chunk.ComponentDescriptor, otherDescs []chunk.ComponentDescriptor, tl chunk.Timeline, r chunk.TimeRange) []DataframeRow {
	povRows := Range(staticChunks, temporalChunks, povDesc, tl, r, false)

	out := make([]DataframeRow, 0, len(povRows))
	for _, pr := range povRows {
		if pr.Value.IsAbsent() {
			continue
		}
		values := make(map[chunk.ComponentDescriptor]chunk.Cell, len(otherDescs)+1)
		values[povDesc] = pr.Value

		for _, d := range otherDescs {
			if d == povDesc {
				continue
			}
			if cell, ok := latestStaticCell(staticChunks, d); ok {
				values[d] = cell
				continue
			}
			if cell, ok := latestVisibleAsOf(temporalChunks, d, tl, pr.Time, pr.RowID); ok {
				values[d] = cell
			}
		}
		out = append(out, DataframeRow{Time: pr.Time, RowID: pr.RowID, Values: values})
	}
	return out
}

func latestStaticCell(chunks []*chunk.Chunk, desc chunk.ComponentDescriptor) (chunk.Cell, bool) {
	res, ok := latestStatic(chunks, desc)
	if !ok {
		return chunk.Cell{}, false
	}
	return res.Value, true
}

// latestVisibleAsOf resolves desc's held value as seen from a row at
// (asOfTime, asOfRowID): the candidate with the greatest (time, RowID)
// that does not exceed (asOfTime, asOfRowID).
func latestVisibleAsOf(chunks []*chunk.Chunk, desc chunk.ComponentDescriptor, tl chunk.Timeline, asOfTime int64, asOfRowID chunk.RowID) (chunk.Cell, bool) {
	var bestCell chunk.Cell
	var bestTime int64
	var bestRowID chunk.RowID
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
			if t > asOfTime {
				continue
			}
			candRowID := rowIDs[row]
			if t == asOfTime && asOfRowID.Less(candRowID) {
				continue
			}
			cell := col.Cell(row)
			if cell.IsAbsent() {
				continue
			}
			if !found || t > bestTime || (t == bestTime && bestRowID.Less(candRowID)) {
				bestCell, bestTime, bestRowID, found = cell, t, candRowID, true
			}
		}
	}
	return bestCell, found
}
