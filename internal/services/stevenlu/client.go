package stevenlu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/utils"
	"github.com/rs/zerolog"
)

// DefaultURL is the public popular movies feed
const DefaultURL = "https://popular-movies-data.stevenlu.com/movies.json"

// Fetcher reads the StevenLu popular movies feed. No credential is needed.
type Fetcher struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewFetcher creates a StevenLu fetcher
func NewFetcher(httpClient *http.Client, logger zerolog.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		httpClient: httpClient,
		logger:     logger.With().Str("component", "stevenlu").Logger(),
	}
}

type movie struct {
	Title  string `json:"title"`
	TMDBID int    `json:"tmdb_id"`
	IMDBID string `json:"imdb_id"`
}

// FetchItems downloads the feed at source (or DefaultURL when empty).
// Every entry is a movie.
func (f *Fetcher) FetchItems(ctx context.Context, source string, maxItems int) ([]models.MediaItem, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		source = DefaultURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
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
			Provider:   "stevenlu",
			RetryAfter: utils.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.UpstreamError{
			Service:    "stevenlu",
			StatusCode: resp.StatusCode,
			Body:       utils.ReadErrorBody(resp.Body),
		}
	}

	var movies []movie
	if err := json.NewDecoder(resp.Body).Decode(&movies); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	items := make([]models.MediaItem, 0, len(movies))
	for _, m := range movies {
		if m.TMDBID <= 0 {
			continue
		}
		items = append(items, models.NewMediaItem(m.Title, 0, m.TMDBID, models.MediaKindMovie))
	}

	f.logger.Debug().Int("items", len(items)).Int("entries", len(movies)).Msg("Fetched stevenlu feed")

	return models.Truncate(models.Dedupe(items), maxItems), nil
}
