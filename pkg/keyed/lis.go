package keyed

import "sort"

// longestIncreasing marks one longest strictly increasing subsequence of
// seq. Entries whose previous positions form such a subsequence are
// already mutually ordered and need no relocation.
//
// Patience sorting with binary search: O(n log n). The positional diff
// this replaces is quadratic on reversed inputs, which is exactly the
// regression the benchmarks guard against.
func longestIncreasing(seq []int) []bool {
	n := len(seq)
	if n == 0 {
		return nil
	}

	// tails[k] is the index into seq of the smallest known tail of an
	// increasing subsequence of length k+1.
	tails := make([]int, 0, n)
	prev := make([]int, n)

	for i, v := range seq {
		pos := sort.Search(len(tails), func(k int) bool {
			return seq[tails[k]] >= v
		})
		if pos > 0 {
			prev[i] = tails[pos-1]
		} else {
			prev[i] = -1
		}
		if pos == len(tails) {
			tails = append(tails, i)
		} else {
			tails[pos] = i
		}
	}

	member := make([]bool, n)
	for k := tails[len(tails)-1]; k >= 0; k = prev[k] {
		member[k] = true
	}
	return member
}
