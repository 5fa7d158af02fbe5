package catalog

import "strings"

// MediaType classifies a catalog entity. It acts as a matching guard:
// entities of incompatible types are never merged, whatever their title
// similarity.
type MediaType string

const (
	MediaTypeManga      MediaType = "manga"
	MediaTypeManhwa     MediaType = "manhwa"
	MediaTypeManhua     MediaType = "manhua"
	MediaTypeLightNovel MediaType = "light_novel"
	MediaTypeAnime      MediaType = "anime"
	MediaTypeGame       MediaType = "game"
	MediaTypeMovie      MediaType = "movie"
	MediaTypeShow       MediaType = "show"
	MediaTypeBook       MediaType = "book"
)

var allMediaTypes = []MediaType{
	MediaTypeManga,
	MediaTypeManhwa,
	MediaTypeManhua,
	MediaTypeLightNovel,
	MediaTypeAnime,
	MediaTypeGame,
	MediaTypeMovie,
	MediaTypeShow,
	MediaTypeBook,
}

var mediaTypeSet = func() map[MediaType]struct{} {
	set := make(map[MediaType]struct{}, len(allMediaTypes))
	for _, mt := range allMediaTypes {
		set[mt] = struct{}{}
	}
	return set
}()

// comicFamily groups the types providers use interchangeably for comics by
// country of origin.
var comicFamily = map[MediaType]struct{}{
	MediaTypeManga:  {},
	MediaTypeManhwa: {},
	MediaTypeManhua: {},
}

// AllMediaTypes returns the ordered list of known media types.
func AllMediaTypes() []MediaType {
	cp := make([]MediaType, len(allMediaTypes))
	copy(cp, allMediaTypes)
	return cp
}

// ParseMediaType converts a provider-supplied string into a known MediaType.
func ParseMediaType(value string) (MediaType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch normalized {
	case "lightnovel", "novel", "ln":
		normalized = string(MediaTypeLightNovel)
	case "tv", "series":
		normalized = string(MediaTypeShow)
	}
	mt := MediaType(normalized)
	_, ok := mediaTypeSet[mt]
	return mt, ok
}

// Compatible reports whether two media types may refer to the same work.
// An unspecified type on either side is permissive; manga, manhwa, and
// manhua are mutually compatible; light novels only ever match light
// novels.
func (m MediaType) Compatible(other MediaType) bool {
	if m == "" || other == "" {
		return true
	}
	if m == other {
		return true
	}
	_, a := comicFamily[m]
	_, b := comicFamily[other]
	return a && b
}
