// Package partition splits an ordered work list into contiguous ranges so that
// independent worker processes can each take one slice without talking to
// each other.
package partition

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Range is a half-open index interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices covered by r.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Plan returns the range owned by partIndex when total items are split into
// numParts nearly equal contiguous ranges. Cut points follow
// floor(i*total/numParts), so range sizes differ by at most one and the
// ranges of all part indices tile [0,total).
//
// A list of zero or one item is not split: every part index receives the full
// range and the item is de-duplicated by the lease service instead.
func Plan(total, numParts, partIndex int) (Range, error) {
	if numParts < 1 {
		return Range{}, fmt.Errorf("partition: num parts must be at least 1, got %d", numParts)
	}
	if partIndex < 0 || partIndex >= numParts {
		return Range{}, fmt.Errorf("partition: part index %d out of range [0,%d)", partIndex, numParts)
	}
	if total < 0 {
		return Range{}, fmt.Errorf("partition: negative total %d", total)
	}
	if total <= 1 {
		return Range{Start: 0, End: total}, nil
	}
	return Range{Start: cut(total, numParts, partIndex), End: cut(total, numParts, partIndex+1)}, nil
}

func cut(total, numParts, i int) int {
	return int(int64(i) * int64(total) / int64(numParts))
}

// Select returns the items owned by partIndex along with their range.
func Select[T any](items []T, numParts, partIndex int) ([]T, Range, error) {
	r, err := Plan(len(items), numParts, partIndex)
	if err != nil {
		return nil, Range{}, err
	}
	return items[r.Start:r.End], r, nil
}

// Shuffle returns a permuted copy of items. A nil seed draws a time-derived
// seed, in which case different processes see different orders.
func Shuffle[T any](items []T, seed *int64) []T {
	out := append([]T(nil), items...)
	var s uint64
	if seed != nil {
		s = uint64(*seed)
	} else {
		s = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
