package gorm

import (
	"time"

	"github.com/spyglassmedia/spyglass/internal/domain/download"
	"github.com/spyglassmedia/spyglass/internal/domain/mediainfo"
	"github.com/spyglassmedia/spyglass/internal/domain/search"
)

// SearchResultModel is the durable identity record for a selected
// result. The unique index over (indexer, indexer_guid) is the
// load-bearing invariant of the identity layer; concurrent first
// inserts are resolved by the constraint, not by check-then-insert.
type SearchResultModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Indexer      string `gorm:"size:255;not null;uniqueIndex:idx_search_results_identity"`
	IndexerGuid  string `gorm:"size:255;not null;uniqueIndex:idx_search_results_identity"`
	FirstFound   time.Time
	Title        string `gorm:"size:4000;not null"`
	Link         string `gorm:"size:4000"`
	Details      string `gorm:"size:4000"`
	Category     string `gorm:"size:255"`
	DownloadType string `gorm:"size:32"`
	PubDate      *time.Time
}

// TableName specifies the table name
func (SearchResultModel) TableName() string {
	return "search_results"
}

// MovieInfoModel is a row of the persistent movie lookup store. The
// combination of identifier columns is unique so that two resolution
// paths reaching the same entity cannot produce duplicate rows.
type MovieInfoModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	ImdbID    string `gorm:"size:32;uniqueIndex:idx_movie_infos_ids"`
	TmdbID    string `gorm:"size:32;uniqueIndex:idx_movie_infos_ids"`
	Title     string `gorm:"size:1000"`
	Year      int
	PosterURL string `gorm:"size:1000"`
}

// TableName specifies the table name
func (MovieInfoModel) TableName() string {
	return "movie_infos"
}

// TVInfoModel is a row of the persistent TV lookup store, unique over
// the combination of its identifier columns.
type TVInfoModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	TvdbID    string `gorm:"size:32;uniqueIndex:idx_tv_infos_ids"`
	TvrageID  string `gorm:"size:32;uniqueIndex:idx_tv_infos_ids"`
	TvmazeID  string `gorm:"size:32;uniqueIndex:idx_tv_infos_ids"`
	Title     string `gorm:"size:1000"`
	Year      int
	PosterURL string `gorm:"size:1000"`
}

// TableName specifies the table name
func (TVInfoModel) TableName() string {
	return "tv_infos"
}

// DownloadAttemptModel is the audit record of one backend submission.
type DownloadAttemptModel struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	SearchResultID int64  `gorm:"not null;index"`
	AccessType     string `gorm:"size:32;not null"`
	Status         string `gorm:"size:32;not null"`
	Time           time.Time
	Error          string `gorm:"size:4000"`
	Username       string `gorm:"size:255"`
	IP             string `gorm:"size:64"`
	UserAgent      string `gorm:"size:1000"`
	AgeDays        int
	ExternalID     string `gorm:"size:255;index"`
}

// TableName specifies the table name
func (DownloadAttemptModel) TableName() string {
	return "download_attempts"
}

func toSearchResultModel(r *search.IdentifiedResult) *SearchResultModel {
	return &SearchResultModel{
		ID:           r.ID,
		Indexer:      r.Indexer,
		IndexerGuid:  r.IndexerGuid,
		FirstFound:   r.FirstFound,
		Title:        r.Title,
		Link:         r.Link,
		Details:      r.Details,
		Category:     r.Category,
		DownloadType: string(r.DownloadType),
		PubDate:      r.PubDate,
	}
}

func toDomainResult(m *SearchResultModel) *search.IdentifiedResult {
	return &search.IdentifiedResult{
		ID:           m.ID,
		Indexer:      m.Indexer,
		FirstFound:   m.FirstFound,
		IndexerGuid:  m.IndexerGuid,
		Title:        m.Title,
		Link:         m.Link,
		Details:      m.Details,
		Category:     m.Category,
		DownloadType: search.DownloadType(m.DownloadType),
		PubDate:      m.PubDate,
	}
}

func toMovieInfoModel(info *mediainfo.MediaInfo) *MovieInfoModel {
	return &MovieInfoModel{
		ImdbID:    info.IMDBID,
		TmdbID:    info.TMDBID,
		Title:     info.Title,
		Year:      info.Year,
		PosterURL: info.PosterURL,
	}
}

func toDomainMovieInfo(m *MovieInfoModel) *mediainfo.MediaInfo {
	return &mediainfo.MediaInfo{
		IMDBID:    m.ImdbID,
		TMDBID:    m.TmdbID,
		Title:     m.Title,
		Year:      m.Year,
		PosterURL: m.PosterURL,
	}
}

func toTVInfoModel(info *mediainfo.MediaInfo) *TVInfoModel {
	return &TVInfoModel{
		TvdbID:    info.TVDBID,
		TvrageID:  info.TVRageID,
		TvmazeID:  info.TVMazeID,
		Title:     info.Title,
		Year:      info.Year,
		PosterURL: info.PosterURL,
	}
}

func toDomainTVInfo(m *TVInfoModel) *mediainfo.MediaInfo {
	return &mediainfo.MediaInfo{
		TVDBID:    m.TvdbID,
		TVRageID:  m.TvrageID,
		TVMazeID:  m.TvmazeID,
		Title:     m.Title,
		Year:      m.Year,
		PosterURL: m.PosterURL,
	}
}

func toAttemptModel(a *download.Attempt) *DownloadAttemptModel {
	return &DownloadAttemptModel{
		ID:             a.ID,
		SearchResultID: a.ResultID,
		AccessType:     string(a.AccessType),
		Status:         string(a.Status),
		Time:           a.Time,
		Error:          download.TruncateError(a.Error),
		Username:       a.Username,
		IP:             a.IP,
		UserAgent:      a.UserAgent,
		AgeDays:        a.AgeDays,
		ExternalID:     a.ExternalID,
	}
}

func toDomainAttempt(m *DownloadAttemptModel) *download.Attempt {
	return &download.Attempt{
		ID:         m.ID,
		ResultID:   m.SearchResultID,
		AccessType: download.AccessType(m.AccessType),
		Status:     download.AttemptStatus(m.Status),
		Time:       m.Time,
		Error:      m.Error,
		Username:   m.Username,
		IP:         m.IP,
		UserAgent:  m.UserAgent,
		AgeDays:    m.AgeDays,
		ExternalID: m.ExternalID,
	}
}
