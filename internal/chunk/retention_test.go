package chunk

import "testing"

func TestHottestEntityFirstPolicyNoEvictionUnderBudget(t *testing.T) {
	policy := HottestEntityFirstPolicy{}
	state := StoreState{
		Budget: 1000,
		Entities: []EntityChunks{
			{Entity: NewEntityPath("a"), Temporal: []ChunkSummary{{ID: NewChunkID(), Bytes: 100}}},
		},
	}
	if got := policy.SelectForEviction(state); got != nil {
		t.Fatalf("expected no eviction under budget, got %v", got)
	}
}

func TestHottestEntityFirstPolicyEvictsHottestFirst(t *testing.T) {
	policy := HottestEntityFirstPolicy{}

	coldOldest := NewChunkID()
	hotOldest := NewChunkID()
	hotNewest := NewChunkID()

	state := StoreState{
		Budget: 150,
		Entities: []EntityChunks{
			{
				Entity:   NewEntityPath("cold"),
				Temporal: []ChunkSummary{{ID: coldOldest, Bytes: 100}},
			},
			{
				Entity: NewEntityPath("hot"),
				Temporal: []ChunkSummary{
					{ID: hotOldest, Bytes: 200},
					{ID: hotNewest, Bytes: 200},
				},
			},
		},
	}

	evicted := policy.SelectForEviction(state)
	if len(evicted) == 0 {
		t.Fatal("expected some eviction")
	}
	if evicted[0] != hotOldest {
		t.Fatalf("expected hottest entity's oldest chunk evicted first, got %s", evicted[0])
	}
	for _, id := range evicted {
		if id == coldOldest {
			t.Fatal("cold entity should not be touched while hot entity alone can satisfy the budget")
		}
	}
}

func TestHottestEntityFirstPolicyNeverEvictsStaticBeforeTemporal(t *testing.T) {
	policy := HottestEntityFirstPolicy{}

	staticID := NewChunkID()
	temporalID := NewChunkID()

	state := StoreState{
		Budget: 50,
		Entities: []EntityChunks{
			{
				Entity:   NewEntityPath("a"),
				Temporal: []ChunkSummary{{ID: temporalID, Bytes: 100}},
				Static:   []ChunkSummary{{ID: staticID, Bytes: 100}},
			},
		},
	}

	evicted := policy.SelectForEviction(state)
	if len(evicted) == 0 {
		t.Fatal("expected eviction")
	}
	if evicted[0] != temporalID {
		t.Fatalf("expected temporal chunk evicted before static, got order %v", evicted)
	}
}

func TestHottestEntityFirstPolicyEvictsStaticOnlyWhenEntityFullyDrained(t *testing.T) {
	policy := HottestEntityFirstPolicy{}

	staticID := NewChunkID()
	temporalID := NewChunkID()

	// Budget so tight that even after evicting the only temporal chunk,
	// the store is still over budget: static must go too.
	state := StoreState{
		Budget: 10,
		Entities: []EntityChunks{
			{
				Entity:   NewEntityPath("a"),
				Temporal: []ChunkSummary{{ID: temporalID, Bytes: 100}},
				Static:   []ChunkSummary{{ID: staticID, Bytes: 100}},
			},
		},
	}

	evicted := policy.SelectForEviction(state)
	if len(evicted) != 2 {
		t.Fatalf("expected both chunks evicted to reach budget, got %v", evicted)
	}
}

func TestHottestEntityFirstPolicyLeavesStaticWhenBudgetMetByTemporalAlone(t *testing.T) {
	policy := HottestEntityFirstPolicy{}

	staticID := NewChunkID()
	temporalID := NewChunkID()

	state := StoreState{
		Budget: 100,
		Entities: []EntityChunks{
			{
				Entity:   NewEntityPath("a"),
				Temporal: []ChunkSummary{{ID: temporalID, Bytes: 100}},
				Static:   []ChunkSummary{{ID: staticID, Bytes: 50}},
			},
		},
	}

	evicted := policy.SelectForEviction(state)
	for _, id := range evicted {
		if id == staticID {
			t.Fatal("static chunk should survive once budget is satisfied by evicting temporal data alone")
		}
	}
}

func TestCompositeEvictionPolicyUnion(t *testing.T) {
	idA := NewChunkID()
	idB := NewChunkID()

	alwaysA := EvictionPolicyFunc(func(StoreState) []ChunkID { return []ChunkID{idA} })
	alwaysB := EvictionPolicyFunc(func(StoreState) []ChunkID { return []ChunkID{idB, idA} })

	composite := NewCompositeEvictionPolicy(alwaysA, alwaysB)
	got := composite.SelectForEviction(StoreState{})

	if len(got) != 2 {
		t.Fatalf("expected deduplicated union of 2 ids, got %v", got)
	}
}

func TestNeverEvictPolicy(t *testing.T) {
	policy := NeverEvictPolicy{}
	state := StoreState{
		Budget: 0,
		Entities: []EntityChunks{
			{Entity: NewEntityPath("a"), Temporal: []ChunkSummary{{ID: NewChunkID(), Bytes: 1 << 40}}},
		},
	}
	if got := policy.SelectForEviction(state); got != nil {
		t.Fatalf("expected no eviction, got %v", got)
	}
}

func TestDefaultEvictionPolicyIsHottestEntityFirst(t *testing.T) {
	if _, ok := DefaultEvictionPolicy().(HottestEntityFirstPolicy); !ok {
		t.Fatal("expected default eviction policy to be HottestEntityFirstPolicy")
	}
}
