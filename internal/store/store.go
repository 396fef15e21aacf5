// Package store implements the chunk store: per-entity temporal and
// static chunk indexes, compaction/eviction policy enforcement, and the
// synchronous subscriber mechanism that the query engines and the time
// histogram build on.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rerun-io/rerun-sub034/internal/chunk"
	"github.com/rerun-io/rerun-sub034/internal/logging"
)

var (
	// ErrNilChunk is returned by Insert given a nil chunk.
	ErrNilChunk = errors.New("store: cannot insert a nil chunk")
	// ErrRowIDCollision is returned when an inserted chunk reuses a RowID
	// already held by an earlier chunk for the same entity.
	ErrRowIDCollision = errors.New("store: row id collision")
)

// Config configures a Store.
type Config struct {
	// CompactionPolicy decides whether a chunk is small enough to be a
	// compaction candidate. Defaults to chunk.DefaultCompactionPolicy().
	CompactionPolicy chunk.CompactionPolicy
	// EvictionPolicy decides which chunks GC removes under Budget.
	// Defaults to chunk.DefaultEvictionPolicy().
	EvictionPolicy chunk.EvictionPolicy
	// Budget is the total byte budget GC enforces across all entities.
	// Zero means unlimited (GC never evicts).
	Budget uint64
	// Logger is scoped with component="store" at construction. Defaults
	// to a discard logger.
	Logger *slog.Logger
}

// entityState holds every chunk the store has for one entity. Temporal
// is kept oldest-first, the order chunk.EntityChunks requires.
type entityState struct {
	entity   chunk.EntityPath
	temporal []*chunk.Chunk
	static   []*chunk.Chunk
	rowIDs   map[chunk.RowID]struct{}
}

// Store is a single-writer/multi-reader chunk index for one or more
// entities. All mutation happens under mu; readers take a brief RLock to
// snapshot the chunk list they need and then work against the snapshot
// lock-free, since chunks are immutable once inserted.
type Store struct {
	mu sync.RWMutex

	cfg        Config
	entities   map[string]*entityState
	chunkIndex map[chunk.ChunkID]string // chunk ID -> entity key

	generation atomic.Uint64
	subs       subscriberRegistry
	logger     *slog.Logger
}

// New constructs an empty Store.
func New(cfg Config) *Store {
	if cfg.CompactionPolicy == nil {
		cfg.CompactionPolicy = chunk.DefaultCompactionPolicy()
	}
	if cfg.EvictionPolicy == nil {
		cfg.EvictionPolicy = chunk.DefaultEvictionPolicy()
	}
	return &Store{
		cfg:        cfg,
		entities:   make(map[string]*entityState),
		chunkIndex: make(map[chunk.ChunkID]string),
		logger:     logging.Default(cfg.Logger).With("component", "store"),
	}
}

// Generation returns a counter that increments on every insert and every
// GC sweep that actually evicts something. Callers can use it to detect
// whether anything has changed since a prior read.
func (s *Store) Generation() uint64 { return s.generation.Load() }

// Insert adds c to the store. Returns ErrRowIDCollision if any of c's row
// IDs already belong to an earlier chunk for the same entity; the insert
// is rejected wholesale in that case, per the "reject the later insert"
// row-ID collision rule. Insert may also trigger compaction: if c and
// its immediately preceding chunk for the same entity/staticness are
// both compaction candidates under the configured CompactionPolicy,
// they are merged into one chunk, and the events dispatched reflect
// that: the Addition of c, followed by Deletions of the two merged
// chunks and an Addition of the replacement.
func (s *Store) Insert(c *chunk.Chunk) (uint64, error) {
	if c == nil {
		return 0, ErrNilChunk
	}

	s.mu.Lock()
	events, err := s.insertLocked(c)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	gen := s.generation.Add(1)
	for _, ev := range events {
		s.subs.dispatch(s.logger, ev)
	}
	s.mu.Unlock()

	s.logger.Debug("chunk inserted", "chunk", c.ID().String(), "entity", c.Entity().String(), "rows", c.Len(), "static", c.IsStatic())
	return gen, nil
}

func (s *Store) insertLocked(c *chunk.Chunk) ([]Event, error) {
	key := c.Entity().String()
	es, ok := s.entities[key]
	if !ok {
		es = &entityState{entity: c.Entity(), rowIDs: make(map[chunk.RowID]struct{})}
		s.entities[key] = es
	}

	for _, id := range c.RowIDs() {
		if _, dup := es.rowIDs[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrRowIDCollision, id)
		}
	}
	for _, id := range c.RowIDs() {
		es.rowIDs[id] = struct{}{}
	}

	var list *[]*chunk.Chunk
	if c.IsStatic() {
		es.static = append(es.static, c)
		list = &es.static
	} else {
		es.temporal = append(es.temporal, c)
		list = &es.temporal
	}
	s.chunkIndex[c.ID()] = key

	events := []Event{{Kind: EventAddition, Entity: c.Entity(), Chunk: c}}
	events = append(events, s.compactLocked(es, list)...)
	return events, nil
}

// compactLocked checks the chunk most recently appended to list (either
// es.temporal or es.static) against its immediate predecessor. If both
// are compaction candidates under the configured CompactionPolicy, they
// are merged with chunk.Concat, re-sorted, and swapped into list in
// place of the two originals. Returns the Deletion/Addition events the
// merge produces, or nil if nothing merged.
func (s *Store) compactLocked(es *entityState, list *[]*chunk.Chunk) []Event {
	chunks := *list
	if len(chunks) < 2 {
		return nil
	}

	a, b := chunks[len(chunks)-2], chunks[len(chunks)-1]
	if !s.cfg.CompactionPolicy.IsSmall(chunk.ChunkStatsOf(a)) || !s.cfg.CompactionPolicy.IsSmall(chunk.ChunkStatsOf(b)) {
		return nil
	}

	merged, err := chunk.Concat(a, b)
	if err != nil {
		// Mismatched timelines or another Concat precondition: not
		// actually compatible for compaction, despite both being small.
		return nil
	}

	if merged.IsStatic() {
		merged = merged.SortByRowID()
	} else if tls := merged.Timelines(); len(tls) > 0 {
		if sorted, ok := merged.SortByTime(tls[0]); ok {
			merged = sorted
		}
	}

	*list = append(chunks[:len(chunks)-2], merged)
	delete(s.chunkIndex, a.ID())
	delete(s.chunkIndex, b.ID())
	s.chunkIndex[merged.ID()] = es.entity.String()

	s.logger.Debug("compacted chunks", "entity", es.entity.String(),
		"from", a.ID().String(), "and", b.ID().String(), "into", merged.ID().String())

	return []Event{
		{Kind: EventDeletion, Entity: es.entity, Chunk: a},
		{Kind: EventDeletion, Entity: es.entity, Chunk: b},
		{Kind: EventAddition, Entity: es.entity, Chunk: merged},
	}
}

// GC runs one eviction sweep against the configured EvictionPolicy and
// Budget, returning the IDs of every chunk it removed. A zero Budget
// disables eviction entirely.
func (s *Store) GC() []chunk.ChunkID {
	if s.cfg.Budget == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.snapshotLocked()
	victims := s.cfg.EvictionPolicy.SelectForEviction(state)
	if len(victims) == 0 {
		return nil
	}

	ids := make([]chunk.ChunkID, 0, len(victims))
	for _, id := range victims {
		c, ok := s.removeChunkLocked(id)
		if !ok {
			continue
		}
		ids = append(ids, id)
		s.subs.dispatch(s.logger, Event{Kind: EventDeletion, Entity: c.Entity(), Chunk: c})
	}

	if len(ids) > 0 {
		s.generation.Add(1)
		s.logger.Info("gc evicted chunks", "count", len(ids))
	}
	return ids
}

func (s *Store) snapshotLocked() chunk.StoreState {
	state := chunk.StoreState{Budget: s.cfg.Budget}
	for _, es := range s.entities {
		ec := chunk.EntityChunks{Entity: es.entity}
		for _, c := range es.temporal {
			ec.Temporal = append(ec.Temporal, chunk.ChunkSummary{ID: c.ID(), Bytes: chunk.ChunkStatsOf(c).Bytes})
		}
		for _, c := range es.static {
			ec.Static = append(ec.Static, chunk.ChunkSummary{ID: c.ID(), Bytes: chunk.ChunkStatsOf(c).Bytes})
		}
		state.Entities = append(state.Entities, ec)
	}
	return state
}

func (s *Store) removeChunkLocked(id chunk.ChunkID) (*chunk.Chunk, bool) {
	key, ok := s.chunkIndex[id]
	if !ok {
		return nil, false
	}
	es, ok := s.entities[key]
	if !ok {
		return nil, false
	}

	if c, idx, ok := findChunk(es.temporal, id); ok {
		es.temporal = append(es.temporal[:idx], es.temporal[idx+1:]...)
		forgetRowIDs(es, c)
		delete(s.chunkIndex, id)
		return c, true
	}
	if c, idx, ok := findChunk(es.static, id); ok {
		es.static = append(es.static[:idx], es.static[idx+1:]...)
		forgetRowIDs(es, c)
		delete(s.chunkIndex, id)
		return c, true
	}
	return nil, false
}

func findChunk(chunks []*chunk.Chunk, id chunk.ChunkID) (*chunk.Chunk, int, bool) {
	for i, c := range chunks {
		if c.ID() == id {
			return c, i, true
		}
	}
	return nil, 0, false
}

func forgetRowIDs(es *entityState, c *chunk.Chunk) {
	for _, id := range c.RowIDs() {
		delete(es.rowIDs, id)
	}
}

// Chunks returns every static and temporal chunk currently held for
// entity, oldest temporal chunk first. The returned slices are snapshots
// safe to use without further locking, since chunks never mutate once
// inserted.
func (s *Store) Chunks(entity chunk.EntityPath) (static, temporal []*chunk.Chunk) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	es, ok := s.entities[entity.String()]
	if !ok {
		return nil, nil
	}
	static = append(static, es.static...)
	temporal = append(temporal, es.temporal...)
	return static, temporal
}

// SchemaForQuery returns the union of component descriptors present on
// any chunk (static or temporal) held for entity.
func (s *Store) SchemaForQuery(entity chunk.EntityPath) []chunk.ComponentDescriptor {
	static, temporal := s.Chunks(entity)
	seen := make(map[chunk.ComponentDescriptor]struct{})
	var out []chunk.ComponentDescriptor
	add := func(chunks []*chunk.Chunk) {
		for _, c := range chunks {
			for _, desc := range c.ComponentDescriptors() {
				if _, ok := seen[desc]; !ok {
					seen[desc] = struct{}{}
					out = append(out, desc)
				}
			}
		}
	}
	add(static)
	add(temporal)
	return out
}

// Subscribe registers fn to be called synchronously, under the store's
// write lock, for every subsequent Insert and GC eviction. The returned
// function unregisters fn.
func (s *Store) Subscribe(fn func(Event)) func() {
	return s.subs.subscribe(fn)
}

// IsCompactionCandidate reports whether c is small enough, under the
// store's configured CompactionPolicy, to be worth merging with its
// neighbors.
func (s *Store) IsCompactionCandidate(c *chunk.Chunk) bool {
	return s.cfg.CompactionPolicy.IsSmall(chunk.ChunkStatsOf(c))
}
