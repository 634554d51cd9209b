package seerr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/utils"
	"github.com/rs/zerolog"
)

// mediaInfo.status values reported by Overseerr and Jellyseerr
const (
	statusUnknown            = 1
	statusPending            = 2
	statusProcessing         = 3
	statusPartiallyAvailable = 4
	statusAvailable          = 5
	statusBlacklisted        = 6
	statusDeleted            = 7
)

// Client talks to an Overseerr or Jellyseerr instance. The connection
// profile is passed per call since every user has their own.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a destination client
func NewClient(httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger.With().Str("component", "seerr").Logger(),
	}
}

type mediaDetails struct {
	MediaInfo *struct {
		Status   int               `json:"status"`
		Requests []json.RawMessage `json:"requests"`
	} `json:"mediaInfo"`
}

// GetStatus reports whether the item is available, already requested or unknown
func (c *Client) GetStatus(ctx context.Context, item models.MediaItem, profile *models.DestinationConfig) (models.MediaStatus, error) {
	path := fmt.Sprintf("/api/v1/%s/%d", item.Kind, item.CatalogID)

	var details mediaDetails
	status, err := c.doRequest(ctx, profile, http.MethodGet, path, nil, &details)
	if status == http.StatusNotFound {
		return models.MediaStatusNone, nil
	}
	if err != nil {
		return models.MediaStatusNone, err
	}

	if details.MediaInfo == nil {
		return models.MediaStatusNone, nil
	}
	switch details.MediaInfo.Status {
	case statusAvailable, statusPartiallyAvailable:
		return models.MediaStatusAvailable, nil
	case statusPending, statusProcessing, statusBlacklisted, statusDeleted:
		return models.MediaStatusRequested, nil
	}
	if len(details.MediaInfo.Requests) > 0 {
		return models.MediaStatusRequested, nil
	}
	return models.MediaStatusNone, nil
}

type requestBody struct {
	MediaType string `json:"mediaType"`
	MediaID   int    `json:"mediaId"`
	Seasons   string `json:"seasons,omitempty"`
}

// SubmitRequest creates a request for item. Series request every season.
func (c *Client) SubmitRequest(ctx context.Context, item models.MediaItem, profile *models.DestinationConfig) error {
	body := requestBody{
		MediaType: string(item.Kind),
		MediaID:   item.CatalogID,
	}
	if item.Kind == models.MediaKindSeries {
		body.Seasons = "all"
	}

	if _, err := c.doRequest(ctx, profile, http.MethodPost, "/api/v1/request", body, nil); err != nil {
		return err
	}
	c.logger.Debug().Str("title", item.Title).Int("catalog_id", item.CatalogID).Msg("Request submitted")
	return nil
}

// PendingRequestCount returns the number of requests awaiting approval
func (c *Client) PendingRequestCount(ctx context.Context, profile *models.DestinationConfig) (int, error) {
	var counts struct {
		Pending int `json:"pending"`
	}
	if _, err := c.doRequest(ctx, profile, http.MethodGet, "/api/v1/request/count", nil, &counts); err != nil {
		return 0, err
	}
	return counts.Pending, nil
}

// doRequest returns the response status code alongside any error
func (c *Client) doRequest(ctx context.Context, profile *models.DestinationConfig, method, path string, body interface{}, result interface{}) (int, error) {
	if !profile.Configured() {
		return 0, models.ErrDestinationNotConfigured
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	fullURL := strings.TrimRight(profile.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", utils.UserAgent)
	req.Header.Set("X-Api-Key", profile.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return resp.StatusCode, &models.RateLimitError{
			Provider:   "seerr",
			RetryAfter: utils.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &models.UpstreamError{
			Service:    "seerr",
			StatusCode: resp.StatusCode,
			Body:       utils.ReadErrorBody(resp.Body),
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
