package chunk

import "sort"

// ChunkSummary is everything the eviction policy needs to know about one
// sealed chunk without reading its data: its identity and its size.
// Callers supply temporal chunks oldest-first; that ordering is what
// lets the policy evict "the oldest chunk of the hottest entity" without
// re-deriving recency from RowID ranges itself.
type ChunkSummary struct {
	ID    ChunkID
	Bytes uint64
}

// EntityChunks is one entity's sealed chunks, split by staticness.
type EntityChunks struct {
	Entity EntityPath
	// Temporal chunks, oldest first.
	Temporal []ChunkSummary
	// Static chunks. In practice a store keeps at most one live static
	// chunk per (entity, component), but a GC snapshot may still see
	// several pending compaction.
	Static []ChunkSummary
}

// StoreState is an immutable snapshot of every entity's sealed chunks
// plus the byte budget GC is asked to respect.
type StoreState struct {
	Entities []EntityChunks
	Budget   uint64
}

// EvictionPolicy decides which sealed chunks a GC pass should remove.
// Policies are pure functions: no IO, no locks, no mutation.
type EvictionPolicy interface {
	// SelectForEviction returns the chunk IDs to delete, given a
	// snapshot of the store's chunks and its byte budget. An empty
	// result means the store is already within budget.
	SelectForEviction(state StoreState) []ChunkID
}

// EvictionPolicyFunc adapts an ordinary function to EvictionPolicy.
type EvictionPolicyFunc func(state StoreState) []ChunkID

func (f EvictionPolicyFunc) SelectForEviction(state StoreState) []ChunkID { return f(state) }

// HottestEntityFirstPolicy implements the store's default GC policy:
// while the store is over its byte budget, evict chunks from the entity
// currently holding the most bytes, oldest chunk first. A static chunk
// is only ever evicted once all of its entity's temporal chunks have
// already been evicted — i.e. only as part of dropping the entity
// entirely, never as a way to free space while the entity is still
// queryable.
type HottestEntityFirstPolicy struct{}

func (HottestEntityFirstPolicy) SelectForEviction(state StoreState) []ChunkID {
	type work struct {
		temporal []ChunkSummary
		static   []ChunkSummary
		bytes    uint64
	}

	total := uint64(0)
	items := make([]*work, 0, len(state.Entities))
	for _, e := range state.Entities {
		w := &work{
			temporal: append([]ChunkSummary(nil), e.Temporal...),
			static:   append([]ChunkSummary(nil), e.Static...),
		}
		for _, c := range w.temporal {
			w.bytes += c.Bytes
		}
		for _, c := range w.static {
			w.bytes += c.Bytes
		}
		total += w.bytes
		items = append(items, w)
	}

	if total <= state.Budget {
		return nil
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].bytes > items[j].bytes })

	var evicted []ChunkID
	remaining := total
	for _, w := range items {
		for len(w.temporal) > 0 && remaining > state.Budget {
			victim := w.temporal[0]
			w.temporal = w.temporal[1:]
			evicted = append(evicted, victim.ID)
			remaining -= victim.Bytes
		}
		if len(w.temporal) != 0 {
			continue
		}
		for len(w.static) > 0 && remaining > state.Budget {
			victim := w.static[0]
			w.static = w.static[1:]
			evicted = append(evicted, victim.ID)
			remaining -= victim.Bytes
		}
		if remaining <= state.Budget {
			break
		}
	}
	return evicted
}

// CompositeEvictionPolicy combines multiple policies with union
// semantics: a chunk is evicted if any sub-policy selects it.
type CompositeEvictionPolicy struct {
	policies []EvictionPolicy
}

// NewCompositeEvictionPolicy builds a policy that evicts the union of
// what each sub-policy selects.
func NewCompositeEvictionPolicy(policies ...EvictionPolicy) *CompositeEvictionPolicy {
	return &CompositeEvictionPolicy{policies: policies}
}

func (c *CompositeEvictionPolicy) SelectForEviction(state StoreState) []ChunkID {
	seen := make(map[ChunkID]struct{})
	var result []ChunkID
	for _, p := range c.policies {
		for _, id := range p.SelectForEviction(state) {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				result = append(result, id)
			}
		}
	}
	return result
}

// NeverEvictPolicy never selects any chunk for eviction.
type NeverEvictPolicy struct{}

func (NeverEvictPolicy) SelectForEviction(StoreState) []ChunkID { return nil }

// DefaultEvictionPolicy is the policy a store uses when none is
// configured explicitly.
func DefaultEvictionPolicy() EvictionPolicy { return HottestEntityFirstPolicy{} }
