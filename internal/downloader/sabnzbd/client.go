package sabnzbd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spyglassmedia/spyglass/internal/downloader"
	pkgerrors "github.com/spyglassmedia/spyglass/pkg/errors"
)

// Client talks to a SABnzbd queue over its JSON API: one request per
// call, no persistent connection. Submissions use a fixed low priority
// so dispatched items never preempt the queue.
type Client struct {
	config     downloader.Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new SABnzbd client
func NewClient(config downloader.Config, logger *zap.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.Named("sabnzbd"),
	}
}

// addResponse is the response SABnzbd returns for add and queue calls.
type addResponse struct {
	Status bool     `json:"status"`
	NzoIDs []string `json:"nzo_ids"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

func (c *Client) baseParams() url.Values {
	params := url.Values{}
	if c.config.APIKey != "" {
		params.Set("apikey", c.config.APIKey)
	}
	params.Set("output", "json")
	return params
}

func (c *Client) apiURL(params url.Values) string {
	return strings.TrimRight(c.config.URL, "/") + "/api?" + params.Encode()
}

// CheckConnection probes the backend by listing categories.
func (c *Client) CheckConnection(ctx context.Context) downloader.ConnectionCheck {
	c.logger.Debug("checking connection")
	params := c.baseParams()
	params.Set("mode", "get_cats")

	var response categoriesResponse
	if err := c.getJSON(ctx, c.apiURL(params), &response); err != nil {
		c.logger.Info("connection check failed",
			zap.String("url", c.config.URL),
			zap.Error(err),
		)
		return downloader.ConnectionCheck{OK: false, Message: err.Error()}
	}

	c.logger.Info("connection check successful", zap.String("url", c.config.URL))
	return downloader.ConnectionCheck{OK: true}
}

// Categories lists the backend's category labels.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	c.logger.Debug("loading list of categories")
	params := c.baseParams()
	params.Set("mode", "get_cats")

	var response categoriesResponse
	if err := c.getJSON(ctx, c.apiURL(params), &response); err != nil {
		return nil, err
	}
	return response.Categories, nil
}

// AddLink submits a fetchable NZB link to the queue.
func (c *Client) AddLink(ctx context.Context, link, title, category string) (string, error) {
	c.logger.Debug("sending link to sabnzbd", zap.String("title", title))

	params := c.baseParams()
	params.Set("mode", "addurl")
	params.Set("name", link)
	params.Set("nzbname", normalizeTitle(title))
	params.Set("priority", "-100")
	if category != "" {
		params.Set("cat", category)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL(params), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	nzoID, err := c.sendAddCommand(req)
	if err != nil {
		return "", err
	}

	c.logger.Info("added link to sabnzbd queue",
		zap.String("link", link),
		zap.String("title", title),
		zap.String("nzo_id", nzoID),
	)
	return nzoID, nil
}

// AddContent uploads NZB content as a multipart file under the desired
// title.
func (c *Client) AddContent(ctx context.Context, content []byte, title, category string) (string, error) {
	c.logger.Debug("uploading content to sabnzbd", zap.String("title", title))

	params := c.baseParams()
	params.Set("mode", "addfile")
	params.Set("nzbname", normalizeTitle(title))
	params.Set("priority", "-100")
	if category != "" {
		params.Set("cat", category)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("name", normalizeTitle(title))
	if err != nil {
		return "", fmt.Errorf("creating multipart body: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("writing multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL(params), &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	nzoID, err := c.sendAddCommand(req)
	if err != nil {
		return "", err
	}

	c.logger.Info("added content to sabnzbd queue",
		zap.String("title", title),
		zap.String("nzo_id", nzoID),
	)
	return nzoID, nil
}

// sendAddCommand executes an add request and enforces the submission
// contract: transport failures are unreachable, declined or id-less
// confirmations are rejections.
func (c *Client) sendAddCommand(req *http.Request) (string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.UnreachableWrap("error while adding to downloader", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", pkgerrors.Rejected(fmt.Sprintf("downloader returned status code %d", resp.StatusCode))
	}

	var response addResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", pkgerrors.Rejected(fmt.Sprintf("unreadable downloader response: %v", err))
	}
	if !response.Status {
		return "", pkgerrors.Rejected("downloader says the submission was not added successfully")
	}
	if len(response.NzoIDs) == 0 {
		// An id is required for later correlation, so a confirmation
		// without one counts as a rejection.
		return "", pkgerrors.Rejected("downloader says the submission was added but did not return an id")
	}
	return response.NzoIDs[0], nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.UnreachableWrap("error while communicating with downloader", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.Rejected(fmt.Sprintf("downloader returned status code %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.UnreachableWrap("error while reading downloader response", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Rejected(fmt.Sprintf("unreadable downloader response: %v", err))
	}
	return nil
}

// normalizeTitle ensures the queue entry carries a filename-safe
// extension.
func normalizeTitle(title string) string {
	if strings.HasSuffix(strings.ToLower(title), ".nzb") {
		return title
	}
	return title + ".nzb"
}
