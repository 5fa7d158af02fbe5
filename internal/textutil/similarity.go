package textutil

// Similarity scores two normalized title keys on a 0-100 scale using
// Levenshtein distance relative to the longer key. Identical keys score
// 100; keys sharing nothing score 0. Empty input scores 0 against
// anything, including another empty string.
func Similarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	distance := levenshtein(ra, rb)
	if distance >= longest {
		return 0
	}
	return (longest - distance) * 100 / longest
}

// CosineScore expresses token-vector cosine similarity between two raw
// titles on the same 0-100 scale as Similarity. Titles too short to
// tokenize score 0.
func CosineScore(a, b string) int {
	fa := NewFingerprint(a)
	fb := NewFingerprint(b)
	return int(CosineSimilarity(fa, fb) * 100)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(values ...int) int {
	best := values[0]
	for _, v := range values[1:] {
		if v < best {
			best = v
		}
	}
	return best
}
