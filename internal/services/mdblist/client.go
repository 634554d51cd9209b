package mdblist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const baseURL = "https://api.mdblist.com"

// MinInterval is the minimum delay between two MDBList requests, shared by every client
const MinInterval = time.Second

var sharedLimiter = rate.NewLimiter(rate.Every(MinInterval), 1)

// Fetcher reads public MDBList lists with a per-user API key
type Fetcher struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewFetcher creates an MDBList fetcher
func NewFetcher(apiKey string, httpClient *http.Client, logger zerolog.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    sharedLimiter,
		logger:     logger.With().Str("component", "mdblist").Logger(),
	}
}

type mdbItem struct {
	Title       string `json:"title"`
	ReleaseYear int    `json:"release_year"`
	ID          int    `json:"id"` // TMDB id
	MediaType   string `json:"mediatype"`
}

// itemsResponse accepts both {"movies": [...], "shows": [...]} and a bare array
type itemsResponse struct {
	Movies []mdbItem `json:"movies"`
	Shows  []mdbItem `json:"shows"`
}

// listPath resolves https://mdblist.com/lists/{user}/{slug}
func listPath(source string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil {
		return "", fmt.Errorf("invalid mdblist url %q: %w", source, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 3 || parts[0] != "lists" {
		return "", &models.ValidationError{Field: "source_url", Reason: fmt.Sprintf("unsupported mdblist url %q", source)}
	}
	return fmt.Sprintf("/lists/%s/%s/items", parts[1], parts[2]), nil
}

// FetchItems downloads the list items, capped at maxItems when positive
func (f *Fetcher) FetchItems(ctx context.Context, source string, maxItems int) ([]models.MediaItem, error) {
	path, err := listPath(source)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("apikey", f.apiKey)
	if maxItems > 0 {
		query.Set("limit", strconv.Itoa(maxItems))
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", utils.UserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &models.RateLimitError{
			Provider:   "mdblist",
			RetryAfter: utils.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.UpstreamError{
			Service:    "mdblist",
			StatusCode: resp.StatusCode,
			Body:       utils.ReadErrorBody(resp.Body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	raw, err := decodeItems(body)
	if err != nil {
		return nil, err
	}

	items := make([]models.MediaItem, 0, len(raw))
	for _, entry := range raw {
		if entry.ID <= 0 {
			continue
		}
		kind := models.MediaKindMovie
		if entry.MediaType == "show" || entry.MediaType == "tv" {
			kind = models.MediaKindSeries
		}
		items = append(items, models.NewMediaItem(entry.Title, entry.ReleaseYear, entry.ID, kind))
	}

	f.logger.Debug().Str("source", source).Int("items", len(items)).Msg("Fetched mdblist list")

	return models.Truncate(models.Dedupe(items), maxItems), nil
}

func decodeItems(body []byte) ([]mdbItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []mdbItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return items, nil
	}

	var response itemsResponse
	if err := json.Unmarshal(trimmed, &response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	for i := range response.Movies {
		if response.Movies[i].MediaType == "" {
			response.Movies[i].MediaType = "movie"
		}
	}
	for i := range response.Shows {
		if response.Shows[i].MediaType == "" {
			response.Shows[i].MediaType = "show"
		}
	}
	return append(response.Movies, response.Shows...), nil
}
