package search

import (
	"time"
)

// DownloadType describes how a result's content is obtained.
type DownloadType string

const (
	// DownloadTypeNZB is content fetched by reference through an NZB link.
	DownloadTypeNZB DownloadType = "NZB"
	// DownloadTypeTorrent is content addressed by a torrent.
	DownloadTypeTorrent DownloadType = "TORRENT"
)

// IdentityKey is the natural identity of a result within one indexer.
type IdentityKey struct {
	Indexer string
	Guid    string
}

// RawResult is one result returned by a single indexer for a single
// query. It is transient; a durable identity is only assigned when the
// result is selected (see IdentifiedResult).
type RawResult struct {
	Indexer      string
	IndexerGuid  string
	Title        string
	Link         string
	Details      string
	Category     string
	DownloadType DownloadType

	// PubDate is the publication date reported by the indexer.
	// UsenetDate, when present, is the more precise availability date.
	PubDate    *time.Time
	UsenetDate *time.Time

	// Attributes holds indexer-specific key/value pairs verbatim.
	Attributes map[string]string
}

// BestDate returns the usenet date when known, falling back to the
// publication date. May be nil.
func (r *RawResult) BestDate() *time.Time {
	if r.UsenetDate != nil {
		return r.UsenetDate
	}
	return r.PubDate
}

// AgeInDays returns the age of the result relative to now, based on the
// best available date. Results without any date report zero.
func (r *RawResult) AgeInDays(now time.Time) int {
	date := r.BestDate()
	if date == nil {
		return 0
	}
	return int(now.Sub(*date).Hours() / 24)
}

// IdentityKey returns the (indexer, guid) pair used by storage to
// enforce uniqueness.
func (r *RawResult) IdentityKey() IdentityKey {
	return IdentityKey{Indexer: r.Indexer, Guid: r.IndexerGuid}
}

// Compare orders two raw results by their best available date. A result
// without any date sorts after one with a date; two results without
// dates compare equal. This ordering is deliberately independent of
// Equal.
func Compare(a, b *RawResult) int {
	aDate, bDate := a.BestDate(), b.BestDate()
	switch {
	case aDate == nil && bDate == nil:
		return 0
	case aDate == nil:
		return 1
	case bDate == nil:
		return -1
	}
	return aDate.Compare(*bDate)
}

// Equal reports whether two raw results denote the same release:
// same indexer, indexer guid, link and title.
func (r *RawResult) Equal(o *RawResult) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.Indexer == o.Indexer &&
		r.IndexerGuid == o.IndexerGuid &&
		r.Link == o.Link &&
		r.Title == o.Title
}

// IdentifiedResult is the durable record created the first time a raw
// result is selected. ID is the surrogate identity assigned by storage;
// zero means not yet persisted.
type IdentifiedResult struct {
	ID           int64
	Indexer      string
	FirstFound   time.Time
	IndexerGuid  string
	Title        string
	Link         string
	Details      string
	Category     string
	DownloadType DownloadType
	PubDate      *time.Time
}

// NewIdentifiedResult builds an unsaved identified result from a raw
// result, stamping the first-found time.
func NewIdentifiedResult(raw *RawResult, firstFound time.Time) *IdentifiedResult {
	return &IdentifiedResult{
		Indexer:      raw.Indexer,
		FirstFound:   firstFound,
		IndexerGuid:  raw.IndexerGuid,
		Title:        raw.Title,
		Link:         raw.Link,
		Details:      raw.Details,
		Category:     raw.Category,
		DownloadType: raw.DownloadType,
		PubDate:      raw.PubDate,
	}
}

// IdentityKey returns the (indexer, guid) pair unique across all
// identified results.
func (r *IdentifiedResult) IdentityKey() IdentityKey {
	return IdentityKey{Indexer: r.Indexer, Guid: r.IndexerGuid}
}

// Equal implements the two-phase equality rule: while neither side has
// been assigned a surrogate identity, results are equal iff their
// (indexer, guid) pair matches; once either side carries an identity,
// only identity equality counts. Pre-persist deduplication relies on
// the structural phase, so the rule is preserved as observed even
// though two just-persisted rows with matching (indexer, guid) can
// never both exist. Flagged for product clarification, do not change.
func (r *IdentifiedResult) Equal(o *IdentifiedResult) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.ID != 0 || o.ID != 0 {
		return r.ID == o.ID
	}
	return r.Indexer == o.Indexer && r.IndexerGuid == o.IndexerGuid
}

// AgeInDays returns the age of the result relative to now based on the
// publication date, or zero if none was recorded.
func (r *IdentifiedResult) AgeInDays(now time.Time) int {
	if r.PubDate == nil {
		return 0
	}
	return int(now.Sub(*r.PubDate).Hours() / 24)
}
