package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/spyglassmedia/spyglass/internal/dispatch"
)

// Publisher publishes download attempt events to NATS JetStream. It
// implements dispatch.EventPublisher; publishing is best effort and
// never affects the batch outcome.
type Publisher struct {
	client *Client
	logger *zap.Logger
}

// NewPublisher creates a new NATS event publisher
func NewPublisher(client *Client, logger *zap.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger.Named("publisher"),
	}
}

// EventEnvelope wraps an attempt event with delivery metadata.
type EventEnvelope struct {
	ID         string                `json:"id"`
	OccurredAt time.Time             `json:"occurred_at"`
	Data       dispatch.AttemptEvent `json:"data"`
}

// PublishAttempt publishes one attempt outcome.
func (p *Publisher) PublishAttempt(ctx context.Context, event dispatch.AttemptEvent) {
	subject := fmt.Sprintf("downloads.%s", strings.ToLower(string(event.Status)))

	envelope := EventEnvelope{
		ID:         uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       event,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ack, err := p.client.JetStream().Publish(pubCtx, subject, data,
		jetstream.WithMsgID(envelope.ID),
	)
	if err != nil {
		p.logger.Error("failed to publish event",
			zap.Error(err),
			zap.String("event_id", envelope.ID),
			zap.String("subject", subject),
		)
		return
	}

	p.logger.Debug("event published",
		zap.String("event_id", envelope.ID),
		zap.String("subject", subject),
		zap.Uint64("sequence", ack.Sequence),
	)
}
