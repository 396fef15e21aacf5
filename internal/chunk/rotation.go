package chunk

// ChunkStats summarizes a sealed chunk's size, as known without opening
// or decoding it. Policies decide compaction eligibility from this alone
// so the decision never requires I/O.
type ChunkStats struct {
	// Rows is the number of rows the chunk holds.
	Rows int
	// Bytes is the chunk's logical encoded size.
	Bytes uint64
}

// CompactionPolicy decides whether a sealed chunk is small enough to be
// a candidate for merging with an adjacent chunk of the same entity and
// timeline. Policies are pure functions: no IO, no locks, no mutation.
type CompactionPolicy interface {
	// IsSmall reports whether a chunk with the given stats should be
	// considered for compaction.
	IsSmall(stats ChunkStats) bool
}

// CompactionPolicyFunc adapts an ordinary function to CompactionPolicy.
type CompactionPolicyFunc func(stats ChunkStats) bool

func (f CompactionPolicyFunc) IsSmall(stats ChunkStats) bool { return f(stats) }

// CompositeCompactionPolicy combines multiple policies with OR
// semantics: a chunk is a compaction candidate if any sub-policy
// considers it small.
type CompositeCompactionPolicy struct {
	policies []CompactionPolicy
}

// NewCompositeCompactionPolicy builds a policy that flags a chunk small
// if any of the given policies does.
func NewCompositeCompactionPolicy(policies ...CompactionPolicy) *CompositeCompactionPolicy {
	return &CompositeCompactionPolicy{policies: policies}
}

func (c *CompositeCompactionPolicy) IsSmall(stats ChunkStats) bool {
	for _, p := range c.policies {
		if p.IsSmall(stats) {
			return true
		}
	}
	return false
}

// ByteThresholdPolicy flags chunks under maxBytes as compaction candidates.
type ByteThresholdPolicy struct {
	maxBytes uint64
}

// NewByteThresholdPolicy builds a policy flagging chunks under maxBytes.
// A threshold of 0 disables this policy (never flags a chunk small).
func NewByteThresholdPolicy(maxBytes uint64) *ByteThresholdPolicy {
	return &ByteThresholdPolicy{maxBytes: maxBytes}
}

func (p *ByteThresholdPolicy) IsSmall(stats ChunkStats) bool {
	if p.maxBytes == 0 {
		return false
	}
	return stats.Bytes < p.maxBytes
}

// RowThresholdPolicy flags chunks under maxRows as compaction candidates.
type RowThresholdPolicy struct {
	maxRows int
}

// NewRowThresholdPolicy builds a policy flagging chunks under maxRows.
// A threshold of 0 disables this policy.
func NewRowThresholdPolicy(maxRows int) *RowThresholdPolicy {
	return &RowThresholdPolicy{maxRows: maxRows}
}

func (p *RowThresholdPolicy) IsSmall(stats ChunkStats) bool {
	if p.maxRows == 0 {
		return false
	}
	return stats.Rows < p.maxRows
}

// NeverCompactPolicy never flags a chunk as a compaction candidate.
// Useful for tests or when compaction is disabled.
type NeverCompactPolicy struct{}

func (NeverCompactPolicy) IsSmall(ChunkStats) bool { return false }

// AlwaysCompactPolicy flags every chunk as a compaction candidate. Useful for tests.
type AlwaysCompactPolicy struct{}

func (AlwaysCompactPolicy) IsSmall(ChunkStats) bool { return true }

// DefaultCompactionPolicy is the policy used when a store is not given
// an explicit one: a chunk is a candidate if it has fewer than 4096 rows
// or is smaller than 1MiB, whichever triggers first. This pins the open
// question of where the "small chunk" line sits to a single
// configuration value, per the row-count/byte-size composite above.
func DefaultCompactionPolicy() CompactionPolicy {
	return NewCompositeCompactionPolicy(
		NewRowThresholdPolicy(4096),
		NewByteThresholdPolicy(1<<20),
	)
}

// ChunkStatsOf computes ChunkStats for a chunk, summing the encoded
// length of every column's typed data and offset table.
func ChunkStatsOf(c *Chunk) ChunkStats {
	var bytes uint64
	bytes += uint64(c.Len()) * 16 // row IDs
	for _, values := range c.timelines {
		bytes += uint64(len(values)) * 8
	}
	for _, col := range c.columns {
		bytes += uint64(len(col.Offsets)) * 4
		switch col.Type {
		case ValueInt64:
			bytes += uint64(len(col.Int64Data)) * 8
		case ValueFloat64:
			bytes += uint64(len(col.Float64Data)) * 8
		case ValueBool:
			bytes += uint64(len(col.BoolData))
		case ValueString:
			for _, s := range col.StringData {
				bytes += uint64(len(s))
			}
		case ValueBytes:
			for _, b := range col.BytesData {
				bytes += uint64(len(b))
			}
		}
	}
	return ChunkStats{Rows: c.Len(), Bytes: bytes}
}
