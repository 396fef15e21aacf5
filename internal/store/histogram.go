package store

import (
	"sort"
	"sync"

	"github.com/rerun-io/rerun-sub034/internal/chunk"
)

// TimeHistogram is an exact count of components per time value on one
// timeline. Unlike a display histogram, it never buckets: every distinct
// time value that has ever been inserted keeps its own count, so a
// scrubber can step to the exact next or previous value that has data.
type TimeHistogram struct {
	timeline chunk.Timeline
	counts   map[int64]uint64
	sorted   []int64 // lazily rebuilt cache of sorted keys
	dirty    bool
}

func newTimeHistogram(tl chunk.Timeline) *TimeHistogram {
	return &TimeHistogram{timeline: tl, counts: make(map[int64]uint64)}
}

// Timeline returns the timeline this histogram counts.
func (h *TimeHistogram) Timeline() chunk.Timeline { return h.timeline }

// Increment adds n to the count at time.
func (h *TimeHistogram) Increment(time int64, n uint64) {
	if n == 0 {
		return
	}
	if _, ok := h.counts[time]; !ok {
		h.dirty = true
	}
	h.counts[time] += n
}

// Decrement subtracts n from the count at time, removing the entry
// entirely once it reaches zero.
func (h *TimeHistogram) Decrement(time int64, n uint64) {
	cur, ok := h.counts[time]
	if !ok {
		return
	}
	if n >= cur {
		delete(h.counts, time)
	} else {
		h.counts[time] = cur - n
	}
	h.dirty = true
}

// IsEmpty reports whether the histogram has no counted times left.
func (h *TimeHistogram) IsEmpty() bool { return len(h.counts) == 0 }

func (h *TimeHistogram) ensureSorted() {
	if !h.dirty {
		return
	}
	h.sorted = h.sorted[:0]
	for t := range h.counts {
		h.sorted = append(h.sorted, t)
	}
	sort.Slice(h.sorted, func(i, j int) bool { return h.sorted[i] < h.sorted[j] })
	h.dirty = false
}

// Min returns the lowest time value with a non-zero count.
func (h *TimeHistogram) Min() (int64, bool) {
	h.ensureSorted()
	if len(h.sorted) == 0 {
		return 0, false
	}
	return h.sorted[0], true
}

// Max returns the highest time value with a non-zero count.
func (h *TimeHistogram) Max() (int64, bool) {
	h.ensureSorted()
	if len(h.sorted) == 0 {
		return 0, false
	}
	return h.sorted[len(h.sorted)-1], true
}

// FullRange returns the [Min, Max] range covered by the histogram.
func (h *TimeHistogram) FullRange() (chunk.TimeRange, bool) {
	lo, ok := h.Min()
	if !ok {
		return chunk.TimeRange{}, false
	}
	hi, _ := h.Max()
	return chunk.NewTimeRange(lo, hi), true
}

// StepForward returns the smallest counted time strictly greater than
// time, or false if there is none.
func (h *TimeHistogram) StepForward(time int64) (int64, bool) {
	h.ensureSorted()
	i := sort.Search(len(h.sorted), func(i int) bool { return h.sorted[i] > time })
	if i >= len(h.sorted) {
		return 0, false
	}
	return h.sorted[i], true
}

// StepBackward returns the largest counted time strictly less than time,
// or false if there is none.
func (h *TimeHistogram) StepBackward(time int64) (int64, bool) {
	h.ensureSorted()
	i := sort.Search(len(h.sorted), func(i int) bool { return h.sorted[i] >= time })
	if i == 0 {
		return 0, false
	}
	return h.sorted[i-1], true
}

// StepForwardLooped is StepForward, but wraps to loopRange.Min once time
// reaches or passes loopRange.Max. When there is no later counted time
// within loopRange it returns the next counted time after time even if
// that lies past loopRange.Max, or the histogram's own minimum if there
// is no later counted time at all.
func (h *TimeHistogram) StepForwardLooped(time int64, loopRange chunk.TimeRange) int64 {
	if time < loopRange.Min || time >= loopRange.Max {
		return loopRange.Min
	}
	h.ensureSorted()
	i := sort.Search(len(h.sorted), func(i int) bool { return h.sorted[i] > time })
	if i < len(h.sorted) && h.sorted[i] <= loopRange.Max {
		return h.sorted[i]
	}
	if next, ok := h.StepForward(time); ok {
		return next
	}
	if lo, ok := h.Min(); ok {
		return lo
	}
	return loopRange.Min
}

// StepBackwardLooped is StepBackward, but wraps to loopRange.Max once
// time reaches or passes loopRange.Min. When there is no earlier counted
// time within loopRange it returns the previous counted time before time
// even if that lies before loopRange.Min, or the histogram's own maximum
// if there is no earlier counted time at all.
func (h *TimeHistogram) StepBackwardLooped(time int64, loopRange chunk.TimeRange) int64 {
	if time <= loopRange.Min || time > loopRange.Max {
		return loopRange.Max
	}
	h.ensureSorted()
	i := sort.Search(len(h.sorted), func(i int) bool { return h.sorted[i] >= time })
	var prev int64
	found := false
	for j := i - 1; j >= 0 && h.sorted[j] >= loopRange.Min; j-- {
		prev = h.sorted[j]
		found = true
		break
	}
	if found {
		return prev
	}
	if b, ok := h.StepBackward(time); ok {
		return b
	}
	if hi, ok := h.Max(); ok {
		return hi
	}
	return loopRange.Max
}

// TimeHistogramPerTimeline tracks an exact per-time-value component count
// for every timeline an entity's store data carries, plus a separate
// count of static (timeless) component insertions. It is meant to be fed
// from a Store's event stream (see OnEvent) and answers the "where is
// there data to scrub to" questions a UI timeline needs.
type TimeHistogramPerTimeline struct {
	mu               sync.RWMutex
	histograms       map[string]*TimeHistogram // timeline name -> histogram
	numStaticEntries uint64
}

// NewTimeHistogramPerTimeline returns an empty histogram set.
func NewTimeHistogramPerTimeline() *TimeHistogramPerTimeline {
	return &TimeHistogramPerTimeline{histograms: make(map[string]*TimeHistogram)}
}

// IsEmpty reports whether no temporal or static data has been recorded.
func (t *TimeHistogramPerTimeline) IsEmpty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.histograms) == 0 && t.numStaticEntries == 0
}

// IsStatic reports whether any static component insertions were recorded.
func (t *TimeHistogramPerTimeline) IsStatic() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.numStaticEntries > 0
}

// NumStaticEntries returns the running count of static component insertions.
func (t *TimeHistogramPerTimeline) NumStaticEntries() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.numStaticEntries
}

// Get returns the histogram for the named timeline, if any data has been
// recorded for it.
func (t *TimeHistogramPerTimeline) Get(timelineName string) (*TimeHistogram, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.histograms[timelineName]
	return h, ok
}

// Timelines returns every timeline this histogram set currently has data for.
func (t *TimeHistogramPerTimeline) Timelines() []chunk.Timeline {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]chunk.Timeline, 0, len(t.histograms))
	for _, h := range t.histograms {
		out = append(out, h.timeline)
	}
	return out
}

// OnEvent folds a store Event into the histogram set: an Addition
// increments, a Deletion decrements, the count for every time value the
// event's chunk carries on every one of its timelines (or the static
// counter, for a static chunk). n is weighted by the number of distinct
// components the chunk carries, matching "messages" in the original
// per-time bookkeeping this is grounded on.
func (t *TimeHistogramPerTimeline) OnEvent(ev Event) {
	n := uint64(ev.NumComponents())
	if n == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.Chunk.IsStatic() {
		switch ev.Kind {
		case EventAddition:
			t.numStaticEntries += n
		case EventDeletion:
			if n > t.numStaticEntries {
				t.numStaticEntries = 0
			} else {
				t.numStaticEntries -= n
			}
		}
		return
	}

	for _, tl := range ev.Chunk.Timelines() {
		values, ok := ev.Chunk.TimeValues(tl)
		if !ok {
			continue
		}
		h, ok := t.histograms[tl.Name]
		if !ok {
			h = newTimeHistogram(tl)
			t.histograms[tl.Name] = h
		}
		for _, v := range values {
			switch ev.Kind {
			case EventAddition:
				h.Increment(v, n)
			case EventDeletion:
				h.Decrement(v, n)
			}
		}
		if h.IsEmpty() {
			delete(t.histograms, tl.Name)
		}
	}
}
