package stats

import (
	"iter"
	"slices"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// Prefixes returns the lowercase path prefixes of the given length in
// alphabetical order: 26 single letters for length 1, 676 pairs for length 2.
// The sequence is lazy and can be ranged over any number of times.
// A length below 1 yields nothing.
func Prefixes(length int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if length < 1 {
			return
		}
		buf := make([]byte, length)
		var walk func(pos int) bool
		walk = func(pos int) bool {
			if pos == length {
				return yield(string(buf))
			}
			for i := range len(alphabet) {
				buf[pos] = alphabet[i]
				if !walk(pos + 1) {
					return false
				}
			}
			return true
		}
		walk(0)
	}
}

// PrefixCount returns how many prefixes Prefixes(length) yields.
func PrefixCount(length int) int {
	if length < 1 {
		return 0
	}
	n := 1
	for range length {
		n *= len(alphabet)
	}
	return n
}

// PrefixList collects Prefixes(length) into a slice.
func PrefixList(length int) []string {
	return slices.Collect(Prefixes(length))
}
