// Package memlimit parses the CLI/config memory-limit specifier used to
// cap the store's byte budget: an absolute size ("16GB"), a percentage
// of total system RAM ("50%"), or one of the unlimited spellings.
package memlimit

import (
	"fmt"
	"strconv"
	"strings"
)

// Limit represents a bound on how many bytes the store may use. The zero
// value is unlimited, the same as Unlimited(); Parse and FromBytes build
// bounded limits.
type Limit struct {
	// maxBytes is nil for "unlimited".
	maxBytes *uint64
}

// Unlimited returns a Limit with no bound.
func Unlimited() Limit { return Limit{} }

// FromBytes returns a Limit bounded to exactly n bytes.
func FromBytes(n uint64) Limit { return Limit{maxBytes: &n} }

// fromFractionOfTotal returns a Limit set to fraction (0-1) of the
// machine's total RAM, falling back to Unlimited if total RAM can't be
// determined.
func fromFractionOfTotal(fraction float64) Limit {
	total, ok := totalRAMBytes()
	if !ok {
		return Unlimited()
	}
	return FromBytes(uint64(fraction * float64(total)))
}

// Parse parses a memory limit specifier: one of the unlimited spellings
// ("unlimited", "none", "max", "∞"), a literal "0", a percentage of
// total RAM ("50%"), or an absolute byte size with a unit suffix
// ("16GB", "512MiB", "123B").
func Parse(spec string) (Limit, error) {
	switch spec {
	case "0":
		return FromBytes(0), nil
	case "unlimited", "none", "max", "∞":
		return Unlimited(), nil
	}

	if pct, ok := strings.CutSuffix(spec, "%"); ok {
		percentage, err := strconv.ParseFloat(pct, 64)
		if err != nil {
			return Limit{}, fmt.Errorf("memlimit: expected e.g. %q, got %q", "50%", spec)
		}
		if percentage < 0 || percentage > 100 {
			return Limit{}, fmt.Errorf("memlimit: percentage must be between 0 and 100, got %v", percentage)
		}
		return fromFractionOfTotal(percentage / 100), nil
	}

	n, err := parseByteSize(spec)
	if err != nil {
		return Limit{}, fmt.Errorf("memlimit: expected e.g. %q, got %q: %w", "16GB", spec, err)
	}
	return FromBytes(n), nil
}

// AsBytes returns the limit in bytes, or math.MaxUint64 if unlimited.
func (l Limit) AsBytes() uint64 {
	if l.maxBytes == nil {
		return ^uint64(0)
	}
	return *l.maxBytes
}

// IsLimited reports whether the limit bounds memory at all.
func (l Limit) IsLimited() bool { return l.maxBytes != nil }

// IsUnlimited reports the inverse of IsLimited.
func (l Limit) IsUnlimited() bool { return l.maxBytes == nil }

// AtLeast returns a Limit no smaller than minBytes: unlimited stays
// unlimited, otherwise the greater of the two bounds.
func (l Limit) AtLeast(minBytes uint64) Limit {
	if l.maxBytes == nil {
		return Unlimited()
	}
	if *l.maxBytes >= minBytes {
		return l
	}
	return FromBytes(minBytes)
}

// String implements fmt.Stringer.
func (l Limit) String() string {
	if l.maxBytes == nil {
		return "unlimited"
	}
	return formatBytes(*l.maxBytes)
}

var byteUnits = []struct {
	suffix string
	factor uint64
}{
	{"TiB", 1 << 40},
	{"GiB", 1 << 30},
	{"MiB", 1 << 20},
	{"KiB", 1 << 10},
	{"TB", 1_000_000_000_000},
	{"GB", 1_000_000_000},
	{"MB", 1_000_000},
	{"kB", 1_000},
	{"B", 1},
}

// parseByteSize parses a decimal quantity followed by a byte-size unit
// (binary Ki/Mi/Gi/Ti or decimal k/M/G/T, always ending in B), e.g.
// "16GB", "512MiB", "123B". A bare number with no unit is rejected:
// the unit disambiguates intent instead of silently assuming bytes.
func parseByteSize(s string) (uint64, error) {
	for _, u := range byteUnits {
		if rest, ok := strings.CutSuffix(s, u.suffix); ok && rest != "" {
			n, err := strconv.ParseFloat(rest, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid number %q", rest)
			}
			if n < 0 {
				return 0, fmt.Errorf("size must be non-negative, got %v", n)
			}
			return uint64(n * float64(u.factor)), nil
		}
	}
	return 0, fmt.Errorf("missing unit suffix (B, kB, KiB, MB, MiB, GB, GiB, TB, TiB)")
}

func formatBytes(n uint64) string {
	const unit = 1024.0
	f := float64(n)
	if f < unit {
		return fmt.Sprintf("%dB", n)
	}
	exp := 0
	for f/unit >= 1 && exp < 4 {
		f /= unit
		exp++
	}
	suffixes := []string{"KiB", "MiB", "GiB", "TiB"}
	return fmt.Sprintf("%.1f%s", f, suffixes[exp-1])
}
