/*
Package similarity implements the string and schema similarity kernel used
by the deduplication engine to decide whether two tools from different
providers are close enough to merge.
*/
package similarity

import "strings"

// JaroWinkler computes the Jaro-Winkler similarity of two strings on their
// lowercased forms. The result is always in [0, 1], symmetric, and 1 for
// equal inputs.
func JaroWinkler(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if a == b {
		return 1.0
	}

	if a == "" || b == "" {
		return 0.0
	}

	jaro := jaro(a, b)
	if jaro == 0 {
		return 0
	}

	// Winkler bonus for a shared prefix, capped at 4 characters.
	prefix := 0
	for i := 0; i < len(a) && i < len(b) && i < 4; i++ {
		if a[i] != b[i] {
			break
		}
		prefix++
	}

	score := jaro + 0.1*float64(prefix)*(1.0-jaro)
	if score > 1.0 {
		score = 1.0
	}

	return score
}

func jaro(a, b string) float64 {
	lenA, lenB := len(a), len(b)

	window := max(lenA, lenB)/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, lenA)
	matchedB := make([]bool, lenB)

	matches := 0
	for i := 0; i < lenA; i++ {
		lo := max(0, i-window)
		hi := min(lenB-1, i+window)

		for j := lo; j <= hi; j++ {
			if matchedB[j] || a[i] != b[j] {
				continue
			}
			matchedA[i] = true
			matchedB[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	// Count transpositions between the two matched sequences.
	transpositions := 0
	j := 0
	for i := 0; i < lenA; i++ {
		if !matchedA[i] {
			continue
		}
		for !matchedB[j] {
			j++
		}
		if a[i] != b[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	t := float64(transpositions) / 2.0

	return (m/float64(lenA) + m/float64(lenB) + (m-t)/m) / 3.0
}
