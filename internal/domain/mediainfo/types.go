package mediainfo

// IDType is one of the closed set of external identifier namespaces.
type IDType string

const (
	TVDB       IDType = "TVDB"
	TVRage     IDType = "TVRAGE"
	TVMaze     IDType = "TVMAZE"
	Trakt      IDType = "TRAKT"
	IMDB       IDType = "IMDB"
	TMDB       IDType = "TMDB"
	TVTitle    IDType = "TVTITLE"
	MovieTitle IDType = "MOVIETITLE"
)

// Domain partitions identifier types by the kind of media they address.
type Domain string

const (
	DomainTV    Domain = "TV"
	DomainMovie Domain = "MOVIE"
)

// TVIDTypes are the real (storable) TV identifier types.
var TVIDTypes = []IDType{TVDB, TVRage, TVMaze}

// MovieIDTypes are the real (storable) movie identifier types.
var MovieIDTypes = []IDType{TMDB, IMDB}

// DomainOf returns the domain an identifier type belongs to. Trakt is
// TV-domain but intentionally isolated in the conversion table.
func DomainOf(t IDType) (Domain, bool) {
	switch t {
	case TVDB, TVRage, TVMaze, Trakt, TVTitle:
		return DomainTV, true
	case IMDB, TMDB, MovieTitle:
		return DomainMovie, true
	}
	return "", false
}

// MediaInfo is the canonical metadata resolved for an identifier. Two
// shapes exist: TV-shaped records populate the TV identifier columns,
// movie-shaped records the movie ones. Title pseudo-types are never
// stored on a record.
type MediaInfo struct {
	TVDBID   string
	TVRageID string
	TVMazeID string
	IMDBID   string
	TMDBID   string

	Title     string
	Year      int
	PosterURL string
}

// IDValue returns the stored value for a real identifier type.
func (m *MediaInfo) IDValue(t IDType) (string, bool) {
	var v string
	switch t {
	case TVDB:
		v = m.TVDBID
	case TVRage:
		v = m.TVRageID
	case TVMaze:
		v = m.TVMazeID
	case IMDB:
		v = m.IMDBID
	case TMDB:
		v = m.TMDBID
	default:
		return "", false
	}
	return v, v != ""
}

// PopulatedTypes lists the real identifier types carrying a value.
func (m *MediaInfo) PopulatedTypes() []IDType {
	var types []IDType
	for _, t := range []IDType{TVDB, TVRage, TVMaze, IMDB, TMDB} {
		if _, ok := m.IDValue(t); ok {
			types = append(types, t)
		}
	}
	return types
}

// IsTV reports whether the record is TV-shaped.
func (m *MediaInfo) IsTV() bool {
	return m.TVDBID != "" || m.TVRageID != "" || m.TVMazeID != ""
}

// IsMovie reports whether the record is movie-shaped.
func (m *MediaInfo) IsMovie() bool {
	return m.IMDBID != "" || m.TMDBID != ""
}
