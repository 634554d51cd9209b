package trakt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	baseURL    = "https://api.trakt.tv"
	apiVersion = "2"
)

// MinInterval is the minimum delay between two Trakt API requests, shared by every client
const MinInterval = 250 * time.Millisecond

var sharedLimiter = rate.NewLimiter(rate.Every(MinInterval), 1)

// Client handles communication with Trakt API
type Client struct {
	clientID   string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewClient creates a new Trakt API client authenticated by a client id
func NewClient(clientID string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		clientID:   clientID,
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    sharedLimiter,
		logger:     logger.With().Str("component", "trakt").Logger(),
	}
}

// pagination carries the X-Pagination-* response headers
type pagination struct {
	Page      int
	PageCount int
}

// doRequest performs a GET request to Trakt API and decodes the JSON body into result
func (c *Client) doRequest(ctx context.Context, path string, query url.Values, result interface{}) (pagination, error) {
	var page pagination

	if err := c.limiter.Wait(ctx); err != nil {
		return page, err
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	c.logger.Debug().Str("url", fullURL).Msg("Making Trakt API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return page, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", utils.UserAgent)
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", c.clientID)

	// Perform request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return page, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode == http.StatusTooManyRequests {
		return page, &models.RateLimitError{
			Provider:   "trakt",
			RetryAfter: utils.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return page, &models.UpstreamError{
			Service:    "trakt",
			StatusCode: resp.StatusCode,
			Body:       utils.ReadErrorBody(resp.Body),
		}
	}

	page.Page, _ = strconv.Atoi(resp.Header.Get("X-Pagination-Page"))
	page.PageCount, _ = strconv.Atoi(resp.Header.Get("X-Pagination-Page-Count"))

	// Parse response
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return page, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return page, nil
}

// traktMedia is a movie or show object as Trakt returns it
type traktMedia struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   struct {
		Trakt int    `json:"trakt"`
		IMDB  string `json:"imdb"`
		TMDB  int    `json:"tmdb"`
	} `json:"ids"`
}

// traktEntry covers list items (type + movie/show) as well as chart rows.
// Popular charts return bare media objects, which land in the inline fields.
type traktEntry struct {
	Type  string      `json:"type"`
	Movie *traktMedia `json:"movie,omitempty"`
	Show  *traktMedia `json:"show,omitempty"`
	traktMedia
}

// toMediaItem normalizes an entry. ok is false for entries that are not a
// movie or show, and when no TMDB id is known.
func (e traktEntry) toMediaItem(fallback models.MediaKind) (models.MediaItem, bool) {
	switch e.Type {
	case "", "movie", "show":
	default:
		return models.MediaItem{}, false
	}
	media := &e.traktMedia
	kind := fallback
	switch {
	case e.Movie != nil:
		media, kind = e.Movie, models.MediaKindMovie
	case e.Show != nil:
		media, kind = e.Show, models.MediaKindSeries
	}
	if media.IDs.TMDB <= 0 {
		return models.MediaItem{}, false
	}
	return models.NewMediaItem(media.Title, media.Year, media.IDs.TMDB, kind), true
}
