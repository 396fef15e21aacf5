// Package query implements the latest-at, range, and dataframe engines
// that answer questions against a set of chunks for one entity.
package query

import (
	"container/heap"

	"github.com/rerun-io/rerun-sub034/internal/chunk"
)

// mergeRow positions one row of one source chunk inside the merge heap.
type mergeRow struct {
	chunkIdx int
	row      int
	time     int64
	rowID    chunk.RowID
}

// mergeHeap is a min-heap of mergeRows ordered by (time, RowID) ascending.
// For reverse range scans, use mergeHeapReverse instead.
type mergeHeap []*mergeRow

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].rowID.Less(h[j].rowID)
}

func (h mergeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *mergeHeap) Push(x any) {
	*h = append(*h, x.(*mergeRow))
}

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil // avoid memory leak
	*h = old[0 : n-1]
	return x
}

// mergeHeapReverse is a max-heap of mergeRows ordered by (time, RowID) descending.
type mergeHeapReverse []*mergeRow

func (h mergeHeapReverse) Len() int { return len(h) }

func (h mergeHeapReverse) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time > h[j].time
	}
	return h[j].rowID.Less(h[i].rowID)
}

func (h mergeHeapReverse) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *mergeHeapReverse) Push(x any) {
	*h = append(*h, x.(*mergeRow))
}

func (h *mergeHeapReverse) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil // avoid memory leak
	*h = old[0 : n-1]
	return x
}

// mergeChunksByTime returns an iterator over every row position across
// chunks, ordered ascending by (time, RowID) on timeline tl, or descending
// when reverse is true. A chunk that does not carry tl contributes no
// rows. Each (chunkIdx, row) pair is yielded exactly once, in merged
// order, the same way a k-way merge walks several sorted runs: the heap
// always holds the next candidate row from every chunk still active.
// Rows are taken from each chunk in stored order, so the output is in
// (time, RowID) order only when every chunk is already sorted on tl.
func mergeChunksByTime(chunks []*chunk.Chunk, tl chunk.Timeline, reverse bool) func(yield func(chunkIdx, row int) bool) {
	return func(yield func(chunkIdx, row int) bool) {
		if len(chunks) == 0 {
			return
		}

		timeValues := make([][]int64, len(chunks))
		rowIDs := make([][]chunk.RowID, len(chunks))
		for i, c := range chunks {
			values, ok := c.TimeValues(tl)
			if !ok {
				continue
			}
			timeValues[i] = values
			rowIDs[i] = c.RowIDs()
		}

		var h heap.Interface
		if reverse {
			rh := make(mergeHeapReverse, 0, len(chunks))
			h = &rh
		} else {
			fh := make(mergeHeap, 0, len(chunks))
			h = &fh
		}

		push := func(ci, row int) {
			values := timeValues[ci]
			if values == nil || row >= len(values) {
				return
			}
			heap.Push(h, &mergeRow{chunkIdx: ci, row: row, time: values[row], rowID: rowIDs[ci][row]})
		}

		for ci := range chunks {
			push(ci, 0)
		}

		for h.Len() > 0 {
			m := heap.Pop(h).(*mergeRow)
			if !yield(m.chunkIdx, m.row) {
				return
			}
			push(m.chunkIdx, m.row+1)
		}
	}
}
