package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spyglassmedia/spyglass/internal/content"
	"github.com/spyglassmedia/spyglass/internal/domain/download"
	"github.com/spyglassmedia/spyglass/internal/domain/search"
	"github.com/spyglassmedia/spyglass/internal/downloader"
	pkgerrors "github.com/spyglassmedia/spyglass/pkg/errors"
)

// ContentAccess supplies stored payloads for payload-mode submission.
type ContentAccess interface {
	GetByID(ctx context.Context, id int64, access download.AccessContext) (*content.Content, error)
}

// ResultRepository resolves surrogate identities to identified results.
type ResultRepository interface {
	FindByID(ctx context.Context, id int64) (*search.IdentifiedResult, error)
}

// AttemptRepository records and transitions download attempts.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *download.Attempt) error
	UpdateStatus(ctx context.Context, id int64, status download.AttemptStatus, externalID, errText string) error
}

// AttemptEvent describes one completed submission attempt.
type AttemptEvent struct {
	BatchID    string                 `json:"batch_id"`
	ResultID   int64                  `json:"result_id"`
	AttemptID  int64                  `json:"attempt_id,omitempty"`
	Status     download.AttemptStatus `json:"status"`
	ExternalID string                 `json:"external_id,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Time       time.Time              `json:"time"`
}

// EventPublisher publishes attempt outcomes. Publishing is best effort;
// failures never affect the batch outcome.
type EventPublisher interface {
	PublishAttempt(ctx context.Context, event AttemptEvent)
}

// BatchOutcome is the aggregate result of one dispatch batch. Success
// is true only when every item was accepted; otherwise Message carries
// the triggering error, AddedIDs the items accepted before the failure
// and MissedIDs the failing item plus everything not attempted.
type BatchOutcome struct {
	Success   bool
	Message   string
	AddedIDs  []int64
	MissedIDs []int64
}

// Orchestrator submits batches of identified results to the configured
// download backend.
type Orchestrator struct {
	backend   downloader.Downloader
	config    downloader.Config
	contents  ContentAccess
	results   ResultRepository
	attempts  AttemptRepository
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrchestrator creates a new dispatch orchestrator. publisher may be
// nil when no event broker is configured.
func NewOrchestrator(
	backend downloader.Downloader,
	config downloader.Config,
	contents ContentAccess,
	results ResultRepository,
	attempts AttemptRepository,
	publisher EventPublisher,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		backend:   backend,
		config:    config,
		contents:  contents,
		results:   results,
		attempts:  attempts,
		publisher: publisher,
		logger:    logger.Named("dispatch"),
	}
}

// CheckBackend probes the configured backend.
func (o *Orchestrator) CheckBackend(ctx context.Context) downloader.ConnectionCheck {
	return o.backend.CheckConnection(ctx)
}

// BackendCategories lists the configured backend's categories.
func (o *Orchestrator) BackendCategories(ctx context.Context) ([]string, error) {
	return o.backend.Categories(ctx)
}

// AddBatch submits the referenced results strictly in input order.
// Processing stops at the first failure: items already submitted stay
// submitted, the failing item and everything after it are reported as
// missed, even where a later item would have succeeded on its own.
// AddBatch never returns the triggering error itself, only the
// structured outcome. Each item's attempt record is committed
// independently, decoupled from the outbound call, so no storage lock
// spans a slow backend.
func (o *Orchestrator) AddBatch(ctx context.Context, resultIDs []int64, category string, access download.AccessContext) *BatchOutcome {
	batchID := uuid.NewString()
	logger := o.logger.With(zap.String("batch_id", batchID))
	logger.Info("dispatching batch",
		zap.Int("count", len(resultIDs)),
		zap.String("category", category),
		zap.String("mode", string(o.config.AddingType)),
	)

	added := make([]int64, 0, len(resultIDs))
	for _, id := range resultIDs {
		var err error
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = o.addOne(ctx, batchID, id, category, access)
		}
		if err != nil {
			message := err.Error()
			if pkgerrors.IsUnreachable(err) || pkgerrors.IsRejected(err) {
				message = "Error while adding to downloader: " + err.Error()
			}
			logger.Error("batch stopped on failure",
				zap.Int64("result_id", id),
				zap.Int("added", len(added)),
				zap.Error(err),
			)
			if len(added) > 0 {
				message += fmt.Sprintf(".\n%d were added successfully", len(added))
			}
			return &BatchOutcome{
				Success:   false,
				Message:   message,
				AddedIDs:  added,
				MissedIDs: missedIDs(resultIDs, added),
			}
		}
		added = append(added, id)
	}

	logger.Info("batch dispatched", zap.Int("added", len(added)))
	return &BatchOutcome{
		Success:   true,
		AddedIDs:  added,
		MissedIDs: []int64{},
	}
}

func (o *Orchestrator) addOne(ctx context.Context, batchID string, id int64, category string, access download.AccessContext) error {
	switch o.config.AddingType {
	case downloader.AddingTypePayload:
		return o.addByPayload(ctx, batchID, id, category, access)
	default:
		return o.addByReference(ctx, batchID, id, category, access)
	}
}

// addByPayload fetches stored content and uploads it. The content
// service has already created a pending attempt; it is completed here
// once the backend answered.
func (o *Orchestrator) addByPayload(ctx context.Context, batchID string, id int64, category string, access download.AccessContext) error {
	item, err := o.contents.GetByID(ctx, id, access)
	if err != nil {
		// No backend call happened and no durable record exists to
		// attach a failed attempt to.
		return err
	}

	itemCategory := category
	if itemCategory == "" {
		itemCategory = item.Category
	}

	externalID, err := o.backend.AddContent(ctx, item.Payload, item.Title, itemCategory)
	if err != nil {
		if updateErr := o.attempts.UpdateStatus(ctx, item.Attempt.ID, download.StatusFailed, "", err.Error()); updateErr != nil {
			o.logger.Error("failed to record attempt failure",
				zap.Int64("attempt_id", item.Attempt.ID),
				zap.Error(updateErr),
			)
		}
		o.publish(ctx, batchID, id, item.Attempt.ID, download.StatusFailed, "", err)
		return err
	}

	// The backend has accepted the upload at this point; a failed
	// confirmation write must not misreport the item as missed.
	if err := o.attempts.UpdateStatus(ctx, item.Attempt.ID, download.StatusConfirmed, externalID, ""); err != nil {
		o.logger.Error("failed to confirm attempt",
			zap.Int64("attempt_id", item.Attempt.ID),
			zap.String("external_id", externalID),
			zap.Error(err),
		)
	}
	o.publish(ctx, batchID, id, item.Attempt.ID, download.StatusConfirmed, externalID, nil)
	return nil
}

// addByReference hands the backend the result's stored link. The
// backend fetches the content later; this layer cannot confirm that
// fetch, so the attempt stays in the submitted-by-reference state.
func (o *Orchestrator) addByReference(ctx context.Context, batchID string, id int64, category string, access download.AccessContext) error {
	result, err := o.results.FindByID(ctx, id)
	if err != nil {
		return err
	}

	itemCategory := category
	if itemCategory == "" {
		itemCategory = result.Category
	}

	externalID, submitErr := o.backend.AddLink(ctx, result.Link, result.Title, itemCategory)

	status := download.StatusSubmittedReference
	errText := ""
	if submitErr != nil {
		status = download.StatusFailed
		errText = submitErr.Error()
	}
	attempt := download.NewAttempt(result.ID, download.AccessTypeReference, status, result.AgeInDays(time.Now()), errText, access)
	attempt.ExternalID = externalID
	if err := o.attempts.Create(ctx, attempt); err != nil {
		if submitErr != nil {
			return submitErr
		}
		return err
	}
	o.publish(ctx, batchID, id, attempt.ID, status, externalID, submitErr)
	return submitErr
}

func (o *Orchestrator) publish(ctx context.Context, batchID string, resultID, attemptID int64, status download.AttemptStatus, externalID string, err error) {
	if o.publisher == nil {
		return
	}
	event := AttemptEvent{
		BatchID:    batchID,
		ResultID:   resultID,
		AttemptID:  attemptID,
		Status:     status,
		ExternalID: externalID,
		Time:       time.Now(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	o.publisher.PublishAttempt(ctx, event)
}

func missedIDs(all, added []int64) []int64 {
	addedSet := make(map[int64]struct{}, len(added))
	for _, id := range added {
		addedSet[id] = struct{}{}
	}
	missed := make([]int64, 0, len(all)-len(added))
	for _, id := range all {
		if _, ok := addedSet[id]; !ok {
			missed = append(missed, id)
		}
	}
	return missed
}
