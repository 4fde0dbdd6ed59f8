package download

import (
	"time"
)

// AccessType is the mode used to hand content to a backend.
type AccessType string

const (
	// AccessTypePayload means the content was uploaded directly.
	AccessTypePayload AccessType = "PAYLOAD"
	// AccessTypeReference means the backend was given a link to fetch.
	AccessTypeReference AccessType = "REFERENCE"
)

// AttemptStatus is the lifecycle state of a download attempt.
type AttemptStatus string

const (
	// StatusSubmittedPayload: content queued for direct upload.
	StatusSubmittedPayload AttemptStatus = "SUBMITTED_PAYLOAD"
	// StatusSubmittedReference: a fetch link was handed to the backend.
	StatusSubmittedReference AttemptStatus = "SUBMITTED_REFERENCE"
	// StatusConfirmed: the backend confirmed the add and assigned an id.
	StatusConfirmed AttemptStatus = "CONFIRMED"
	// StatusFailed: the submission failed.
	StatusFailed AttemptStatus = "FAILED"
)

// MaxErrorLength bounds the stored error text; longer messages keep
// their prefix.
const MaxErrorLength = 4000

// AccessContext carries the caller identity attached verbatim to each
// attempt. It is supplied by the transport layer, never computed here.
type AccessContext struct {
	Username  string
	IP        string
	UserAgent string
}

// Attempt is the durable audit record of one submission to a backend.
// It is created the moment an attempt is made and only ever mutated to
// transition status and record the backend-assigned id.
type Attempt struct {
	ID         int64
	ResultID   int64
	AccessType AccessType
	Status     AttemptStatus
	Time       time.Time
	Error      string
	Username   string
	IP         string
	UserAgent  string
	AgeDays    int
	ExternalID string
}

// NewAttempt builds an attempt for a result with the caller context
// applied. The error text is truncated to MaxErrorLength.
func NewAttempt(resultID int64, accessType AccessType, status AttemptStatus, ageDays int, errText string, access AccessContext) *Attempt {
	return &Attempt{
		ResultID:   resultID,
		AccessType: accessType,
		Status:     status,
		Time:       time.Now(),
		Error:      TruncateError(errText),
		Username:   access.Username,
		IP:         access.IP,
		UserAgent:  access.UserAgent,
		AgeDays:    ageDays,
	}
}

// TruncateError bounds error text to MaxErrorLength, preserving the prefix.
func TruncateError(errText string) string {
	if len(errText) > MaxErrorLength {
		return errText[:MaxErrorLength]
	}
	return errText
}
