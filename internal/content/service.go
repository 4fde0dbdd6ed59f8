package content

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spyglassmedia/spyglass/internal/domain/download"
	"github.com/spyglassmedia/spyglass/internal/domain/search"
	"github.com/spyglassmedia/spyglass/internal/infrastructure/storage"
)

// ResultRepository resolves surrogate identities to identified results.
type ResultRepository interface {
	FindByID(ctx context.Context, id int64) (*search.IdentifiedResult, error)
}

// AttemptRepository records download attempts.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *download.Attempt) error
}

// Content is the payload handed to payload-mode dispatch. Attempt is
// the pending audit record created for this access; the dispatcher
// confirms or fails it once the backend answered.
type Content struct {
	Payload  []byte
	Title    string
	Category string
	Attempt  *download.Attempt
}

// Service is the content-access service: it returns stored content for
// a surrogate identity and creates the pending attempt record that
// payload-mode submission later completes.
type Service struct {
	results  ResultRepository
	attempts AttemptRepository
	store    storage.ContentStore
	logger   *zap.Logger
}

// NewService creates a new content access service.
func NewService(results ResultRepository, attempts AttemptRepository, store storage.ContentStore, logger *zap.Logger) *Service {
	return &Service{
		results:  results,
		attempts: attempts,
		store:    store,
		logger:   logger.Named("content"),
	}
}

// GetByID returns the stored payload for an identified result and
// records a pending payload attempt carrying the caller context.
func (s *Service) GetByID(ctx context.Context, id int64, access download.AccessContext) (*Content, error) {
	result, err := s.results.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	reader, err := s.store.Retrieve(ctx, strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored content: %w", err)
	}

	attempt := download.NewAttempt(
		result.ID,
		download.AccessTypePayload,
		download.StatusSubmittedPayload,
		result.AgeInDays(time.Now()),
		"",
		access,
	)
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}

	s.logger.Debug("content retrieved",
		zap.Int64("result_id", id),
		zap.Int("bytes", len(payload)),
	)

	return &Content{
		Payload:  payload,
		Title:    result.Title,
		Category: result.Category,
		Attempt:  attempt,
	}, nil
}

// Put stores content for an identified result.
func (s *Service) Put(ctx context.Context, id int64, reader io.Reader) error {
	return s.store.Store(ctx, strconv.FormatInt(id, 10), reader)
}
