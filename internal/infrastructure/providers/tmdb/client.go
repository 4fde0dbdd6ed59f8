package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spyglassmedia/spyglass/internal/domain/mediainfo"
	pkgerrors "github.com/spyglassmedia/spyglass/pkg/errors"
)

// DefaultBaseURL is the public TMDB v3 API.
const DefaultBaseURL = "https://api.themoviedb.org/3"

const posterBaseURL = "https://image.tmdb.org/t/p/w500"

// Client represents a TMDB API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new TMDB client
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Movie represents a TMDB movie record. IMDBID is only present on the
// details endpoint, never on search results.
type Movie struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path"`
	IMDBID      string `json:"imdb_id"`
}

type movieList struct {
	Results []Movie `json:"results"`
}

type findResponse struct {
	MovieResults []Movie `json:"movie_results"`
}

// Lookup resolves a single movie by identifier or exact title. Lookups
// by IMDB id or title locate the movie first and then fetch the full
// details record, so the returned metadata always carries both ids.
func (c *Client) Lookup(ctx context.Context, value string, fromType mediainfo.IDType) (*mediainfo.MediaInfo, error) {
	switch fromType {
	case mediainfo.TMDB:
		return c.details(ctx, value)
	case mediainfo.IMDB:
		endpoint := fmt.Sprintf("%s/find/%s?api_key=%s&external_source=imdb_id", c.baseURL, url.PathEscape(value), c.apiKey)
		var found findResponse
		if err := c.getJSON(ctx, endpoint, &found); err != nil {
			return nil, err
		}
		if len(found.MovieResults) == 0 {
			return nil, pkgerrors.NotFound(fmt.Sprintf("no movie found for IMDB id %s", value))
		}
		return c.details(ctx, fmt.Sprintf("%d", found.MovieResults[0].ID))
	case mediainfo.MovieTitle:
		results, err := c.search(ctx, value)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, pkgerrors.NotFound(fmt.Sprintf("no movie found for title %q", value))
		}
		return c.details(ctx, fmt.Sprintf("%d", results[0].ID))
	default:
		return nil, pkgerrors.BadRequest(fmt.Sprintf("identifier type %q is not resolvable via TMDB", fromType))
	}
}

// Search performs a live title search. The results carry only the TMDB
// id; callers must not treat them as complete lookup records.
func (c *Client) Search(ctx context.Context, title string) ([]*mediainfo.MediaInfo, error) {
	results, err := c.search(ctx, title)
	if err != nil {
		return nil, err
	}

	infos := make([]*mediainfo.MediaInfo, 0, len(results))
	for i := range results {
		infos = append(infos, results[i].ToMediaInfo())
	}
	return infos, nil
}

func (c *Client) search(ctx context.Context, title string) ([]Movie, error) {
	endpoint := fmt.Sprintf("%s/search/movie?api_key=%s&query=%s", c.baseURL, c.apiKey, url.QueryEscape(title))
	var list movieList
	if err := c.getJSON(ctx, endpoint, &list); err != nil {
		return nil, err
	}
	return list.Results, nil
}

func (c *Client) details(ctx context.Context, tmdbID string) (*mediainfo.MediaInfo, error) {
	endpoint := fmt.Sprintf("%s/movie/%s?api_key=%s", c.baseURL, url.PathEscape(tmdbID), c.apiKey)
	var movie Movie
	if err := c.getJSON(ctx, endpoint, &movie); err != nil {
		return nil, err
	}
	return movie.ToMediaInfo(), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.NotFound("tmdb returned no match")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// ToMediaInfo converts a TMDB movie to the canonical metadata shape.
func (m *Movie) ToMediaInfo() *mediainfo.MediaInfo {
	info := &mediainfo.MediaInfo{
		TMDBID: fmt.Sprintf("%d", m.ID),
		IMDBID: m.IMDBID,
		Title:  m.Title,
	}
	if m.PosterPath != "" {
		info.PosterURL = posterBaseURL + m.PosterPath
	}
	if len(m.ReleaseDate) >= 4 {
		var year int
		if _, err := fmt.Sscanf(m.ReleaseDate[:4], "%d", &year); err == nil {
			info.Year = year
		}
	}
	return info
}
