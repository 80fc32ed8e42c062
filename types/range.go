package types

import (
	"cmp"
	"fmt"
	"slices"
)

// Effective partition key bounds of the full key space.
//
// Effective partition keys are upper-case hex strings ordered byte-wise, so the
// empty string sorts before every key and "FF" after every key the service hands out.
const (
	MinEffectivePartitionKey = ""
	MaxEffectivePartitionKey = "FF"
)

// Range is a half-open [Min, Max) interval over effective partition keys.
type Range struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// FullRange returns the range covering the whole key space.
func FullRange() Range {
	return Range{Min: MinEffectivePartitionKey, Max: MaxEffectivePartitionKey}
}

// IsEmpty reports whether the range contains no keys.
func (r Range) IsEmpty() bool {
	return r.Min >= r.Max
}

// Contains reports whether key falls inside the range.
func (r Range) Contains(key string) bool {
	return key >= r.Min && key < r.Max
}

// ContainsRange reports whether o lies entirely inside r.
func (r Range) ContainsRange(o Range) bool {
	return o.Min >= r.Min && o.Max <= r.Max
}

// Overlaps reports whether the two ranges share at least one key.
func (r Range) Overlaps(o Range) bool {
	return r.Min < o.Max && o.Min < r.Max
}

// Intersect returns the overlap of r and o.
//
// Returns:
//   - Range: The shared interval
//   - bool: false if the ranges do not overlap
func (r Range) Intersect(o Range) (Range, bool) {
	out := Range{Min: max(r.Min, o.Min), Max: min(r.Max, o.Max)}
	if out.IsEmpty() {
		return Range{}, false
	}

	return out, true
}

// Compare orders ranges by Min, then Max.
func (r Range) Compare(o Range) int {
	if c := cmp.Compare(r.Min, o.Min); c != 0 {
		return c
	}

	return cmp.Compare(r.Max, o.Max)
}

// String returns the range in interval notation.
func (r Range) String() string {
	return fmt.Sprintf("[%s,%s)", r.Min, r.Max)
}

// UncoveredRanges returns the parts of target that none of the covering ranges contain.
//
// The result is sorted and contains no empty ranges. If covering fully contains
// target the result is nil; if nothing overlaps, the result is target itself.
//
// Parameters:
//   - target: Interval to check
//   - covering: Intervals that already have an owner (any order, may overlap)
//
// Returns:
//   - []Range: Gaps inside target
func UncoveredRanges(target Range, covering []Range) []Range {
	if target.IsEmpty() {
		return nil
	}

	clipped := make([]Range, 0, len(covering))
	for _, c := range covering {
		if in, ok := target.Intersect(c); ok {
			clipped = append(clipped, in)
		}
	}
	slices.SortFunc(clipped, Range.Compare)

	var gaps []Range
	cursor := target.Min
	for _, c := range clipped {
		if c.Min > cursor {
			gaps = append(gaps, Range{Min: cursor, Max: c.Min})
		}
		if c.Max > cursor {
			cursor = c.Max
		}
	}
	if cursor < target.Max {
		gaps = append(gaps, Range{Min: cursor, Max: target.Max})
	}

	return gaps
}
