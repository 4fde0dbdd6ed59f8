package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spyglassmedia/spyglass/internal/domain/mediainfo"
	pkgerrors "github.com/spyglassmedia/spyglass/pkg/errors"
)

// TVProvider resolves TV identifiers against an external metadata
// service.
type TVProvider interface {
	Lookup(ctx context.Context, value string, fromType mediainfo.IDType) (*mediainfo.MediaInfo, error)
	Search(ctx context.Context, title string) ([]*mediainfo.MediaInfo, error)
}

// MovieProvider resolves movie identifiers against an external metadata
// service.
type MovieProvider interface {
	Lookup(ctx context.Context, value string, fromType mediainfo.IDType) (*mediainfo.MediaInfo, error)
	Search(ctx context.Context, title string) ([]*mediainfo.MediaInfo, error)
}

// LookupStore is the persistent second-tier cache of resolved records.
// Find* may hit via any previously linked identifier; Save*IfAbsent
// must not create a row when one already satisfies any populated
// identifier of the fresh record.
type LookupStore interface {
	FindMovie(ctx context.Context, fromType mediainfo.IDType, value string) (*mediainfo.MediaInfo, error)
	SaveMovieIfAbsent(ctx context.Context, info *mediainfo.MediaInfo) error
	FindTV(ctx context.Context, fromType mediainfo.IDType, value string) (*mediainfo.MediaInfo, error)
	SaveTVIfAbsent(ctx context.Context, info *mediainfo.MediaInfo) error
}

// resolvePriority is the fixed precedence when several identifiers are
// supplied for one target: the first populated one is authoritative,
// the rest are not cross-checked.
var resolvePriority = []mediainfo.IDType{
	mediainfo.IMDB,
	mediainfo.TMDB,
	mediainfo.TVDB,
	mediainfo.TVRage,
	mediainfo.TVMaze,
}

// Resolver converts external identifiers into canonical metadata. Each
// (value, fromType) key resolves at most once concurrently: all callers
// of an in-flight key share one outcome, success or failure, so the
// rate-limited providers are never hit twice for the same key and
// duplicate-insert races cannot start.
type Resolver struct {
	tv     TVProvider
	movies MovieProvider
	store  LookupStore
	group  singleflight.Group
	logger *zap.Logger
}

// NewResolver creates a new resolver.
func NewResolver(tv TVProvider, movies MovieProvider, store LookupStore, logger *zap.Logger) *Resolver {
	return &Resolver{
		tv:     tv,
		movies: movies,
		store:  store,
		logger: logger.Named("resolver"),
	}
}

// CanConvert reports whether one identifier type converts into another.
func (r *Resolver) CanConvert(from, to mediainfo.IDType) (bool, error) {
	return mediainfo.CanConvert(from, to)
}

// CanResolve reports whether any identifier on hand can be converted
// into any of the wanted types.
func (r *Resolver) CanResolve(from, to []mediainfo.IDType) bool {
	return mediainfo.CanConvertAny(from, to)
}

// Resolve picks one identifier from the supplied map by fixed priority
// and resolves it to canonical metadata.
func (r *Resolver) Resolve(ctx context.Context, identifiers map[mediainfo.IDType]string) (*mediainfo.MediaInfo, error) {
	for _, idType := range resolvePriority {
		if value, ok := identifiers[idType]; ok && value != "" {
			return r.ResolveOne(ctx, value, idType)
		}
	}
	return nil, pkgerrors.Resolution("unable to find any convertible ids")
}

// ResolveOne resolves a single (value, fromType) pair. Concurrent calls
// for the same pair share one in-flight resolution.
func (r *Resolver) ResolveOne(ctx context.Context, value string, fromType mediainfo.IDType) (*mediainfo.MediaInfo, error) {
	key := string(fromType) + ":" + value
	// The flight runs on the initiating caller's ctx: cancelling it
	// fails the flight for every waiter. Waiters share the outcome
	// either way, errors included, and caller cancellation has to reach
	// the in-flight provider call, so no detached context is used.
	result, err, shared := r.group.Do(key, func() (interface{}, error) {
		return r.resolve(ctx, value, fromType)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("resolution shared with concurrent caller",
			zap.String("type", string(fromType)),
			zap.String("value", value),
		)
	}
	return result.(*mediainfo.MediaInfo), nil
}

func (r *Resolver) resolve(ctx context.Context, value string, fromType mediainfo.IDType) (*mediainfo.MediaInfo, error) {
	r.logger.Debug("resolving identifier",
		zap.String("type", string(fromType)),
		zap.String("value", value),
	)

	switch fromType {
	case mediainfo.TMDB, mediainfo.IMDB, mediainfo.MovieTitle:
		info, err := r.store.FindMovie(ctx, fromType, value)
		if err == nil {
			return info, nil
		}
		if !pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.ResolutionWrap("movie lookup store failed", err)
		}

		fresh, err := r.movies.Lookup(ctx, value, fromType)
		if err != nil {
			return nil, pkgerrors.ResolutionWrap(
				fmt.Sprintf("error while converting %s %s", fromType, value), err)
		}
		if err := r.store.SaveMovieIfAbsent(ctx, fresh); err != nil {
			return nil, pkgerrors.ResolutionWrap("failed to persist movie info", err)
		}
		return fresh, nil

	case mediainfo.TVMaze, mediainfo.TVDB, mediainfo.TVRage, mediainfo.TVTitle:
		info, err := r.store.FindTV(ctx, fromType, value)
		if err == nil {
			return info, nil
		}
		if !pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.ResolutionWrap("tv lookup store failed", err)
		}

		fresh, err := r.tv.Lookup(ctx, value, fromType)
		if err != nil {
			return nil, pkgerrors.ResolutionWrap(
				fmt.Sprintf("error while converting %s %s", fromType, value), err)
		}
		if err := r.store.SaveTVIfAbsent(ctx, fresh); err != nil {
			return nil, pkgerrors.ResolutionWrap("failed to persist tv info", err)
		}
		return fresh, nil

	default:
		return nil, pkgerrors.Resolution(fmt.Sprintf("identifier type %q cannot be resolved", fromType))
	}
}

// SearchByTitle performs a live title search in the given domain. The
// persistent store is never consulted here, it could be stale. TV
// results that carry identifiers not yet linked are persisted
// opportunistically; movie search results are not persisted because the
// provider's search response lacks the IMDB id and caching such a
// partial record would poison later store lookups.
func (r *Resolver) SearchByTitle(ctx context.Context, title string, domain mediainfo.Domain) ([]*mediainfo.MediaInfo, error) {
	switch domain {
	case mediainfo.DomainTV:
		infos, err := r.tv.Search(ctx, title)
		if err != nil {
			return nil, pkgerrors.ResolutionWrap(
				fmt.Sprintf("error while searching for tv title %q", title), err)
		}
		for _, info := range infos {
			if err := r.store.SaveTVIfAbsent(ctx, info); err != nil {
				return nil, pkgerrors.ResolutionWrap("failed to persist tv info", err)
			}
		}
		return infos, nil

	case mediainfo.DomainMovie:
		infos, err := r.movies.Search(ctx, title)
		if err != nil {
			return nil, pkgerrors.ResolutionWrap(
				fmt.Sprintf("error while searching for movie title %q", title), err)
		}
		return infos, nil

	default:
		return nil, pkgerrors.Resolution(fmt.Sprintf("unknown search domain %q", domain))
	}
}
