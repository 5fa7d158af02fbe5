package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks left over after compatibility
// decomposition, which folds away diacritics ("Pokémon" -> "pokemon").
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

func stripMarksString(s string) (string, int, error) {
	return transform.String(stripMarks, s)
}

// NormalizeTitle reduces a title to a canonical comparison key: Unicode
// compatibility form, lowercase, diacritics stripped, everything except
// letters and digits removed. CJK characters are letters and survive.
// Returns "" for titles with no comparable content.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		// Fall back to the raw string; a lossy key is better than none.
		folded = title
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeTitles maps NormalizeTitle over titles, dropping entries that
// normalize to nothing. Order is preserved; duplicates are not removed.
func NormalizeTitles(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, title := range titles {
		if key := NormalizeTitle(title); key != "" {
			out = append(out, key)
		}
	}
	return out
}

// DedupeTitles returns titles with normalized-form duplicates removed,
// keeping the first original spelling of each. Empty titles are dropped.
func DedupeTitles(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, title := range titles {
		key := NormalizeTitle(title)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(title))
	}
	return out
}
