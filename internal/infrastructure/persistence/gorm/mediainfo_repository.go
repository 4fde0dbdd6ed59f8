package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/spyglassmedia/spyglass/internal/domain/mediainfo"
	pkgerrors "github.com/spyglassmedia/spyglass/pkg/errors"
)

// MediaInfoRepository is the persistent lookup store for resolved
// canonical metadata. It acts as the second-tier cache behind the
// resolver: rows survive process restarts and can be hit via any
// previously linked identifier.
type MediaInfoRepository struct {
	db *gorm.DB
}

// NewMediaInfoRepository creates a new media info repository.
func NewMediaInfoRepository(db *gorm.DB) *MediaInfoRepository {
	return &MediaInfoRepository{db: db}
}

// FindMovie looks up a movie record by a single identifier type.
func (r *MediaInfoRepository) FindMovie(ctx context.Context, fromType mediainfo.IDType, value string) (*mediainfo.MediaInfo, error) {
	var column string
	switch fromType {
	case mediainfo.IMDB:
		column = "imdb_id"
	case mediainfo.TMDB:
		column = "tmdb_id"
	case mediainfo.MovieTitle:
		column = "title"
	default:
		return nil, pkgerrors.BadRequest(fmt.Sprintf("identifier type %q is not a movie lookup key", fromType))
	}

	var model MovieInfoModel
	err := r.db.WithContext(ctx).First(&model, column+" = ?", value).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("movie info not found")
		}
		return nil, fmt.Errorf("failed to find movie info: %w", err)
	}
	return toDomainMovieInfo(&model), nil
}

// FindMovieByAnyID looks up a movie record matching any of the populated
// identifiers of info.
func (r *MediaInfoRepository) FindMovieByAnyID(ctx context.Context, info *mediainfo.MediaInfo) (*mediainfo.MediaInfo, error) {
	query := r.db.WithContext(ctx)
	var conditions *gorm.DB
	if info.IMDBID != "" {
		conditions = r.db.Where("imdb_id = ?", info.IMDBID)
	}
	if info.TMDBID != "" {
		if conditions == nil {
			conditions = r.db.Where("tmdb_id = ?", info.TMDBID)
		} else {
			conditions = conditions.Or("tmdb_id = ?", info.TMDBID)
		}
	}
	if conditions == nil {
		return nil, pkgerrors.NotFound("movie info carries no identifiers")
	}

	var model MovieInfoModel
	if err := query.Where(conditions).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("movie info not found")
		}
		return nil, fmt.Errorf("failed to find movie info: %w", err)
	}
	return toDomainMovieInfo(&model), nil
}

// SaveMovieIfAbsent inserts a movie record unless an existing row
// already satisfies any of its populated identifiers. A duplicate-key
// race is swallowed: the winner's row stands.
func (r *MediaInfoRepository) SaveMovieIfAbsent(ctx context.Context, info *mediainfo.MediaInfo) error {
	_, err := r.FindMovieByAnyID(ctx, info)
	if err == nil {
		return nil
	}
	if !pkgerrors.IsNotFound(err) {
		return err
	}

	if err := r.db.WithContext(ctx).Create(toMovieInfoModel(info)).Error; err != nil {
		if pkgerrors.IsDuplicateError(err) {
			return nil
		}
		return fmt.Errorf("failed to save movie info: %w", err)
	}
	return nil
}

// FindTV looks up a TV record by a single identifier type.
func (r *MediaInfoRepository) FindTV(ctx context.Context, fromType mediainfo.IDType, value string) (*mediainfo.MediaInfo, error) {
	var column string
	switch fromType {
	case mediainfo.TVDB:
		column = "tvdb_id"
	case mediainfo.TVRage:
		column = "tvrage_id"
	case mediainfo.TVMaze:
		column = "tvmaze_id"
	case mediainfo.TVTitle:
		column = "title"
	default:
		return nil, pkgerrors.BadRequest(fmt.Sprintf("identifier type %q is not a TV lookup key", fromType))
	}

	var model TVInfoModel
	err := r.db.WithContext(ctx).First(&model, column+" = ?", value).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("tv info not found")
		}
		return nil, fmt.Errorf("failed to find tv info: %w", err)
	}
	return toDomainTVInfo(&model), nil
}

// FindTVByAnyID looks up a TV record matching any of the populated
// identifiers of info.
func (r *MediaInfoRepository) FindTVByAnyID(ctx context.Context, info *mediainfo.MediaInfo) (*mediainfo.MediaInfo, error) {
	query := r.db.WithContext(ctx)
	var conditions *gorm.DB
	add := func(column, value string) {
		if value == "" {
			return
		}
		if conditions == nil {
			conditions = r.db.Where(column+" = ?", value)
		} else {
			conditions = conditions.Or(column+" = ?", value)
		}
	}
	add("tvdb_id", info.TVDBID)
	add("tvrage_id", info.TVRageID)
	add("tvmaze_id", info.TVMazeID)
	if conditions == nil {
		return nil, pkgerrors.NotFound("tv info carries no identifiers")
	}

	var model TVInfoModel
	if err := query.Where(conditions).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("tv info not found")
		}
		return nil, fmt.Errorf("failed to find tv info: %w", err)
	}
	return toDomainTVInfo(&model), nil
}

// SaveTVIfAbsent inserts a TV record unless an existing row already
// satisfies any of its populated identifiers.
func (r *MediaInfoRepository) SaveTVIfAbsent(ctx context.Context, info *mediainfo.MediaInfo) error {
	_, err := r.FindTVByAnyID(ctx, info)
	if err == nil {
		return nil
	}
	if !pkgerrors.IsNotFound(err) {
		return err
	}

	if err := r.db.WithContext(ctx).Create(toTVInfoModel(info)).Error; err != nil {
		if pkgerrors.IsDuplicateError(err) {
			return nil
		}
		return fmt.Errorf("failed to save tv info: %w", err)
	}
	return nil
}
