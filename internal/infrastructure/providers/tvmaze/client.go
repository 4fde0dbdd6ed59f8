package tvmaze

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

// DefaultBaseURL is the public TVMaze API.
const DefaultBaseURL = "https://api.tvmaze.com"

// Client is a TVMaze API client. TVMaze is the sole TV metadata
// provider; its show records carry the TVDB and TVRage identifiers
// needed to cross-link the TV identifier namespaces.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new TVMaze client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Show represents a TVMaze show response
type Show struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Premiered string    `json:"premiered"`
	Externals Externals `json:"externals"`
	Image     *Image    `json:"image"`
}

type Externals struct {
	TVRage *int    `json:"tvrage"`
	TVDB   *int    `json:"thetvdb"`
	IMDB   *string `json:"imdb"`
}

type Image struct {
	Medium   string `json:"medium"`
	Original string `json:"original"`
}

type searchEntry struct {
	Score float64 `json:"score"`
	Show  Show    `json:"show"`
}

// Lookup resolves a single show by a TV identifier or by exact title.
func (c *Client) Lookup(ctx context.Context, value string, fromType mediainfo.IDType) (*mediainfo.MediaInfo, error) {
	var endpoint string
	switch fromType {
	case mediainfo.TVMaze:
		endpoint = fmt.Sprintf("%s/shows/%s", c.baseURL, url.PathEscape(value))
	case mediainfo.TVDB:
		endpoint = fmt.Sprintf("%s/lookup/shows?thetvdb=%s", c.baseURL, url.QueryEscape(value))
	case mediainfo.TVRage:
		endpoint = fmt.Sprintf("%s/lookup/shows?tvrage=%s", c.baseURL, url.QueryEscape(value))
	case mediainfo.TVTitle:
		endpoint = fmt.Sprintf("%s/singlesearch/shows?q=%s", c.baseURL, url.QueryEscape(value))
	default:
		return nil, pkgerrors.BadRequest(fmt.Sprintf("identifier type %q is not resolvable via TVMaze", fromType))
	}

	var show Show
	if err := c.getJSON(ctx, endpoint, &show); err != nil {
		return nil, err
	}
	return show.ToMediaInfo(), nil
}

// Search performs a live title search and returns all matching shows.
func (c *Client) Search(ctx context.Context, title string) ([]*mediainfo.MediaInfo, error) {
	endpoint := fmt.Sprintf("%s/search/shows?q=%s", c.baseURL, url.QueryEscape(title))

	var entries []searchEntry
	if err := c.getJSON(ctx, endpoint, &entries); err != nil {
		return nil, err
	}

	infos := make([]*mediainfo.MediaInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, entry.Show.ToMediaInfo())
	}
	return infos, nil
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
		return pkgerrors.NotFound("tvmaze returned no match")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// ToMediaInfo converts a TVMaze show to the canonical metadata shape.
func (s *Show) ToMediaInfo() *mediainfo.MediaInfo {
	info := &mediainfo.MediaInfo{
		TVMazeID: fmt.Sprintf("%d", s.ID),
		Title:    s.Name,
	}

	if s.Externals.TVDB != nil {
		info.TVDBID = fmt.Sprintf("%d", *s.Externals.TVDB)
	}
	if s.Externals.TVRage != nil {
		info.TVRageID = fmt.Sprintf("%d", *s.Externals.TVRage)
	}
	if s.Image != nil {
		info.PosterURL = s.Image.Original
		if info.PosterURL == "" {
			info.PosterURL = s.Image.Medium
		}
	}
	if len(s.Premiered) >= 4 {
		var year int
		if _, err := fmt.Sscanf(s.Premiered[:4], "%d", &year); err == nil {
			info.Year = year
		}
	}
	return info
}
