package deplink

import "path"

// Candidate confidence tiers. An exact name match in the same directory
// outranks one elsewhere; fuzzy matches score below both.
const (
	confidenceExactSameDir = 0.9
	confidenceExactName    = 0.7
	fuzzyThreshold         = 0.6
	fuzzyWeight            = 0.5
)

// levenshtein is the classic two-row edit distance.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// nameSimilarity normalizes edit distance into [0, 1]: 1 for identical
// names, 0 for nothing in common.
func nameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

func sameDirectory(fileA, fileB string) bool {
	return path.Dir(fileA) == path.Dir(fileB)
}

// matchConfidence scores a candidate node against the name an unknown
// symbol is looking for. Zero means no plausible match.
func matchConfidence(lookupName, unknownFile string, candidate *Node) float64 {
	if candidate.Name == lookupName {
		if sameDirectory(unknownFile, candidate.SourceFile) {
			return confidenceExactSameDir
		}
		return confidenceExactName
	}
	if sim := nameSimilarity(lookupName, candidate.Name); sim >= fuzzyThreshold {
		return fuzzyWeight * sim
	}
	return 0
}

// tagOverlap is the Jaccard index of two semantic tag sets.
func tagOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	shared := 0
	union := len(set)
	for _, t := range b {
		if set[t] {
			shared++
		} else {
			union++
		}
	}
	return float64(shared) / float64(union)
}
