package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/spyglassmedia/spyglass/internal/domain/download"
	pkgerrors "github.com/spyglassmedia/spyglass/pkg/errors"
)

// AttemptRepository persists download attempt audit records. Attempts
// are never deleted by this layer.
type AttemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository creates a new attempt repository.
func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create stores a new attempt and assigns its id.
func (r *AttemptRepository) Create(ctx context.Context, attempt *download.Attempt) error {
	model := toAttemptModel(attempt)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create download attempt: %w", err)
	}
	attempt.ID = model.ID
	return nil
}

// FindByID retrieves an attempt by id.
func (r *AttemptRepository) FindByID(ctx context.Context, id int64) (*download.Attempt, error) {
	var model DownloadAttemptModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound(fmt.Sprintf("download attempt %d not found", id))
		}
		return nil, fmt.Errorf("failed to find download attempt: %w", err)
	}
	return toDomainAttempt(&model), nil
}

// FindLatestByResult retrieves the most recent attempt for a result.
func (r *AttemptRepository) FindLatestByResult(ctx context.Context, resultID int64) (*download.Attempt, error) {
	var model DownloadAttemptModel
	err := r.db.WithContext(ctx).
		Where("search_result_id = ?", resultID).
		Order("time DESC, id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("no download attempt for result")
		}
		return nil, fmt.Errorf("failed to find download attempt: %w", err)
	}
	return toDomainAttempt(&model), nil
}

// UpdateStatus transitions an attempt's status and, when known, records
// the backend-assigned id and error text.
func (r *AttemptRepository) UpdateStatus(ctx context.Context, id int64, status download.AttemptStatus, externalID, errText string) error {
	updates := map[string]interface{}{
		"status": string(status),
	}
	if externalID != "" {
		updates["external_id"] = externalID
	}
	if errText != "" {
		updates["error"] = download.TruncateError(errText)
	}

	result := r.db.WithContext(ctx).
		Model(&DownloadAttemptModel{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update download attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.NotFound(fmt.Sprintf("download attempt %d not found", id))
	}
	return nil
}
