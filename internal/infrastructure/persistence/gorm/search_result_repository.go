package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/spyglassmedia/spyglass/internal/domain/search"
	pkgerrors "github.com/spyglassmedia/spyglass/pkg/errors"
)

// SearchResultRepository persists identified results using GORM.
type SearchResultRepository struct {
	db *gorm.DB
}

// NewSearchResultRepository creates a new search result repository.
func NewSearchResultRepository(db *gorm.DB) *SearchResultRepository {
	return &SearchResultRepository{db: db}
}

// FindByID retrieves an identified result by its surrogate identity.
func (r *SearchResultRepository) FindByID(ctx context.Context, id int64) (*search.IdentifiedResult, error) {
	var model SearchResultModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound(fmt.Sprintf("search result %d not found", id))
		}
		return nil, fmt.Errorf("failed to find search result: %w", err)
	}
	return toDomainResult(&model), nil
}

// FindByIdentity retrieves an identified result by its (indexer, guid) key.
func (r *SearchResultRepository) FindByIdentity(ctx context.Context, key search.IdentityKey) (*search.IdentifiedResult, error) {
	var model SearchResultModel
	err := r.db.WithContext(ctx).
		First(&model, "indexer = ? AND indexer_guid = ?", key.Indexer, key.Guid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("search result not found")
		}
		return nil, fmt.Errorf("failed to find search result: %w", err)
	}
	return toDomainResult(&model), nil
}

// FindOrCreate assigns a durable identity to a raw result. The unique
// constraint on (indexer, indexer_guid) arbitrates concurrent first
// inserts: the loser re-reads and returns the winner's row instead of
// surfacing an error.
func (r *SearchResultRepository) FindOrCreate(ctx context.Context, raw *search.RawResult) (*search.IdentifiedResult, error) {
	existing, err := r.FindByIdentity(ctx, raw.IdentityKey())
	if err == nil {
		return existing, nil
	}
	if !pkgerrors.IsNotFound(err) {
		return nil, err
	}

	model := toSearchResultModel(search.NewIdentifiedResult(raw, time.Now()))
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if pkgerrors.IsDuplicateError(err) {
			return r.FindByIdentity(ctx, raw.IdentityKey())
		}
		return nil, fmt.Errorf("failed to create search result: %w", err)
	}
	return toDomainResult(model), nil
}
