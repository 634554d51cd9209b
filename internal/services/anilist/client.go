package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/services/animap"
	"github.com/amaumene/listarr/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const graphqlURL = "https://graphql.anilist.co"

// MinInterval is the minimum delay between two AniList requests, shared by every fetcher
const MinInterval = 1500 * time.Millisecond

var sharedLimiter = rate.NewLimiter(rate.Every(MinInterval), 1)

const collectionQuery = `query ($userName: String, $status: MediaListStatus) {
  MediaListCollection(userName: $userName, type: ANIME, status: $status) {
    lists {
      entries {
        media {
          id
          format
          seasonYear
          title { romaji english }
        }
      }
    }
  }
}`

// statuses maps URL path segments to AniList list statuses
var statuses = map[string]string{
	"watching":   "CURRENT",
	"current":    "CURRENT",
	"completed":  "COMPLETED",
	"planning":   "PLANNING",
	"paused":     "PAUSED",
	"dropped":    "DROPPED",
	"rewatching": "REPEATING",
}

// IDTranslator resolves AniList ids to TMDB ids
type IDTranslator interface {
	Lookup(ctx context.Context, anilistID int) (animap.Mapping, bool, error)
}

// Fetcher reads public AniList anime lists
type Fetcher struct {
	translator IDTranslator
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewFetcher creates an AniList fetcher bridged through translator
func NewFetcher(translator IDTranslator, httpClient *http.Client, logger zerolog.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		translator: translator,
		endpoint:   graphqlURL,
		httpClient: httpClient,
		limiter:    sharedLimiter,
		logger:     logger.With().Str("component", "anilist").Logger(),
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type collectionResponse struct {
	Data struct {
		MediaListCollection struct {
			Lists []struct {
				Entries []struct {
					Media media `json:"media"`
				} `json:"entries"`
			} `json:"lists"`
		} `json:"MediaListCollection"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type media struct {
	ID         int    `json:"id"`
	Format     string `json:"format"`
	SeasonYear int    `json:"seasonYear"`
	Title      struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
	} `json:"title"`
}

func (m media) title() string {
	if m.Title.English != "" {
		return m.Title.English
	}
	return m.Title.Romaji
}

// parseSource resolves https://anilist.co/user/{name}/animelist[/{status}]
func parseSource(source string) (user string, status string, err error) {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil {
		return "", "", fmt.Errorf("invalid anilist url %q: %w", source, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 3 || parts[0] != "user" || parts[2] != "animelist" {
		return "", "", &models.ValidationError{Field: "source_url", Reason: fmt.Sprintf("unsupported anilist url %q", source)}
	}
	if len(parts) >= 4 && parts[3] != "" {
		s, ok := statuses[strings.ToLower(parts[3])]
		if !ok {
			return "", "", &models.ValidationError{Field: "source_url", Reason: fmt.Sprintf("unknown anilist status %q", parts[3])}
		}
		status = s
	}
	return parts[1], status, nil
}

// FetchItems queries the user's anime list and bridges every entry to a
// TMDB id. Entries without a mapping are dropped and counted.
func (f *Fetcher) FetchItems(ctx context.Context, source string, maxItems int) ([]models.MediaItem, error) {
	user, status, err := parseSource(source)
	if err != nil {
		return nil, err
	}

	variables := map[string]interface{}{"userName": user}
	if status != "" {
		variables["status"] = status
	}
	var response collectionResponse
	if err := f.query(ctx, variables, &response); err != nil {
		return nil, err
	}

	var items []models.MediaItem
	unmapped := 0
	for _, list := range response.Data.MediaListCollection.Lists {
		for _, e := range list.Entries {
			mapping, ok, err := f.translator.Lookup(ctx, e.Media.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to translate anilist id %d: %w", e.Media.ID, err)
			}
			if !ok {
				unmapped++
				f.logger.Debug().Int("anilist_id", e.Media.ID).Str("title", e.Media.title()).Msg("No TMDB mapping, dropping entry")
				continue
			}
			kind := models.MediaKindSeries
			if e.Media.Format == "MOVIE" {
				kind = models.MediaKindMovie
			}
			items = append(items, models.NewMediaItem(e.Media.title(), e.Media.SeasonYear, mapping.TMDBID, kind))
		}
	}

	items = models.Dedupe(items)
	f.logger.Info().
		Str("user", user).
		Int("items", len(items)).
		Int("unmapped", unmapped).
		Msg("Fetched anilist list")

	return models.Truncate(items, maxItems), nil
}

func (f *Fetcher) query(ctx context.Context, variables map[string]interface{}, result *collectionResponse) error {
	payload, err := json.Marshal(graphqlRequest{Query: collectionQuery, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", utils.UserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &models.RateLimitError{
			Provider:   "anilist",
			RetryAfter: utils.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &models.UpstreamError{
			Service:    "anilist",
			StatusCode: resp.StatusCode,
			Body:       utils.ReadErrorBody(resp.Body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Errors) > 0 {
		return &models.UpstreamError{
			Service:    "anilist",
			StatusCode: resp.StatusCode,
			Body:       result.Errors[0].Message,
		}
	}
	return nil
}
