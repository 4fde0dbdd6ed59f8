package downloader

import (
	"context"
	"time"
)

// AddingType selects how content is handed to the backend.
type AddingType string

const (
	// AddingTypePayload uploads the content directly.
	AddingTypePayload AddingType = "PAYLOAD"
	// AddingTypeReference hands the backend a link it fetches itself.
	AddingTypeReference AddingType = "REFERENCE"
)

// Config addresses one configured backend instance. Type is the
// discriminant tag used to select the implementation at startup.
type Config struct {
	Type       string
	URL        string
	APIKey     string
	AddingType AddingType
	Timeout    time.Duration
}

// ConnectionCheck is the structured outcome of a reachability probe.
type ConnectionCheck struct {
	OK      bool
	Message string
}

// Downloader is the capability set every download backend implements.
// Both Add operations return the backend-assigned id; a reachable
// backend that declines, or confirms without assigning an id, yields a
// rejected error, a transport-level failure an unreachable error (see
// pkg/errors). Request shaping such as filename suffixes or omitting an
// empty category is backend-specific and not part of this contract.
type Downloader interface {
	// CheckConnection is a best-effort reachability probe. It never
	// returns an error; failures are reported in the outcome.
	CheckConnection(ctx context.Context) ConnectionCheck

	// Categories lists the category labels the backend accepts.
	Categories(ctx context.Context) ([]string, error)

	// AddLink hands the backend a fetchable link. The backend retrieves
	// the content itself, asynchronously from this call's perspective.
	AddLink(ctx context.Context, url, title, category string) (string, error)

	// AddContent uploads the raw content directly.
	AddContent(ctx context.Context, content []byte, title, category string) (string, error)
}
