package matching

import (
	"collate/internal/catalog"
	"collate/internal/textutil"
)

// Candidate is a scored match against one entity.
type Candidate struct {
	EntityID     int64
	Score        int
	Exact        bool
	MatchedTitle string
}

// Matcher scores titles against an in-memory index of the catalog's
// primary and alternate titles. Build one per reconciliation pass; the
// index does not track store writes made after construction.
type Matcher struct {
	threshold int
	entries   []catalog.TitleEntry
	byKey     map[string][]int
	idCounts  map[int64]int
}

// New builds a matcher over the given title index. idCounts carries the
// number of external ids per entity and may be nil; it only affects
// tie-breaking.
func New(threshold int, entries []catalog.TitleEntry, idCounts map[int64]int) *Matcher {
	byKey := make(map[string][]int, len(entries))
	for i, entry := range entries {
		if entry.TitleKey == "" {
			continue
		}
		byKey[entry.TitleKey] = append(byKey[entry.TitleKey], i)
	}
	return &Matcher{
		threshold: threshold,
		entries:   entries,
		byKey:     byKey,
		idCounts:  idCounts,
	}
}

// Match resolves a single title, returning the best candidate at or above
// the threshold. Titles that normalize to nothing never match.
func (m *Matcher) Match(title string, mediaType catalog.MediaType) (Candidate, bool) {
	return m.MatchAny([]string{title}, mediaType)
}

// MatchAny resolves a record's candidate titles (primary first, then
// alternates) as one query. The exact tier runs over every candidate
// title before any fuzzy scoring: an alternate title naming a stored
// entity outright outranks a merely similar primary title. The fuzzy
// tier keeps the single best score over the candidate x stored
// cross-product.
func (m *Matcher) MatchAny(titles []string, mediaType catalog.MediaType) (Candidate, bool) {
	keys := make([]string, 0, len(titles))
	kept := make([]string, 0, len(titles))
	for _, title := range titles {
		key := textutil.NormalizeTitle(title)
		if key == "" {
			continue
		}
		keys = append(keys, key)
		kept = append(kept, title)
	}
	if len(keys) == 0 {
		return Candidate{}, false
	}

	// Exact tier: same normalized key, compatible media type.
	var exact []int
	seen := make(map[int]struct{})
	for _, key := range keys {
		for _, i := range m.byKey[key] {
			if _, dup := seen[i]; dup {
				continue
			}
			seen[i] = struct{}{}
			exact = append(exact, i)
		}
	}
	if best, ok := m.pickBest(exact, mediaType, 100, true); ok {
		return best, true
	}

	// Fuzzy tier: score every compatible entry against every candidate
	// title, keep the best.
	var (
		bestScore = -1
		bestIdx   = -1
	)
	for i, entry := range m.entries {
		if entry.TitleKey == "" || !mediaType.Compatible(entry.MediaType) {
			continue
		}
		for t, key := range keys {
			score := textutil.Similarity(key, entry.TitleKey)
			if cosine := textutil.CosineScore(kept[t], entry.Title); cosine > score {
				score = cosine
			}
			if score < m.threshold || score < bestScore {
				continue
			}
			if score > bestScore || m.prefer(i, bestIdx) {
				bestScore = score
				bestIdx = i
			}
		}
	}
	if bestIdx < 0 {
		return Candidate{}, false
	}
	entry := m.entries[bestIdx]
	return Candidate{
		EntityID:     entry.EntityID,
		Score:        bestScore,
		MatchedTitle: entry.Title,
	}, true
}

func (m *Matcher) pickBest(indices []int, mediaType catalog.MediaType, score int, exact bool) (Candidate, bool) {
	bestIdx := -1
	for _, i := range indices {
		if !mediaType.Compatible(m.entries[i].MediaType) {
			continue
		}
		if bestIdx < 0 || m.prefer(i, bestIdx) {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return Candidate{}, false
	}
	entry := m.entries[bestIdx]
	return Candidate{
		EntityID:     entry.EntityID,
		Score:        score,
		Exact:        exact,
		MatchedTitle: entry.Title,
	}, true
}

// prefer breaks ties between equally scored entries: the entity with more
// external ids wins, then the lower entity id for determinism.
func (m *Matcher) prefer(i, j int) bool {
	if j < 0 {
		return true
	}
	a, b := m.entries[i], m.entries[j]
	if a.EntityID == b.EntityID {
		return false
	}
	ca, cb := m.idCounts[a.EntityID], m.idCounts[b.EntityID]
	if ca != cb {
		return ca > cb
	}
	return a.EntityID < b.EntityID
}
