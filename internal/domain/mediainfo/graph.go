package mediainfo

import (
	"fmt"

	"github.com/spyglassmedia/spyglass/pkg/errors"
)

// convertible is a fully enumerated table, not derived from domain
// membership: Trakt is isolated on purpose (no conversion supported),
// and the title pseudo-types are valid sources but never stored
// targets on a resolved record.
var convertible = map[IDType]map[IDType]bool{
	TVDB:   {TVDB: true, TVMaze: true, TVRage: true, TVTitle: true},
	TVMaze: {TVDB: true, TVMaze: true, TVRage: true, TVTitle: true},
	TVRage: {TVDB: true, TVMaze: true, TVRage: true, TVTitle: true},
	Trakt:  {Trakt: true},

	TVTitle: {TVDB: true, TVMaze: true, TVRage: true, TVTitle: true},

	TMDB:       {IMDB: true, TMDB: true, MovieTitle: true},
	IMDB:       {IMDB: true, TMDB: true, MovieTitle: true},
	MovieTitle: {IMDB: true, TMDB: true, MovieTitle: true},
}

// CanConvert reports whether an identifier of type from can be resolved
// into one of type to. Unknown types are rejected; with the closed
// enumeration this should not occur.
func CanConvert(from, to IDType) (bool, error) {
	adjacent, ok := convertible[from]
	if !ok {
		return false, errors.BadRequest(fmt.Sprintf("unknown identifier type %q", from))
	}
	if _, ok := convertible[to]; !ok {
		return false, errors.BadRequest(fmt.Sprintf("unknown identifier type %q", to))
	}
	return adjacent[to], nil
}

// CanConvertAny reports whether any pair (from, to) across the two sets
// is convertible. Used to decide whether a search can be attempted at
// all given the identifiers on hand. Unknown types are skipped.
func CanConvertAny(from, to []IDType) bool {
	for _, f := range from {
		adjacent, ok := convertible[f]
		if !ok {
			continue
		}
		for _, t := range to {
			if adjacent[t] {
				return true
			}
		}
	}
	return false
}
