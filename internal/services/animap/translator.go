package animap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	tableKey    = "anilist"
	maxAttempts = 3
)

// Mapping links an AniList entry to its TMDB id
type Mapping struct {
	AniListID int
	MALID     int
	TMDBID    int
	Kind      models.MediaKind
}

// Translator bridges AniList ids to TMDB ids using a remote dataset.
// The table lives in a TTL cache; concurrent loads share one download.
type Translator struct {
	url        string
	ttl        time.Duration
	httpClient *http.Client
	logger     zerolog.Logger

	cache *cache.Cache
	group singleflight.Group

	newBackOff func() backoff.BackOff
}

// NewTranslator creates a translator for the dataset at url
func NewTranslator(url string, ttl time.Duration, httpClient *http.Client, logger zerolog.Logger) *Translator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Translator{
		url:        url,
		ttl:        ttl,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "animap").Logger(),
		cache:      cache.New(ttl, ttl),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// Initialize loads the table unless a fresh one is already cached
func (t *Translator) Initialize(ctx context.Context) error {
	if _, ok := t.table(); ok {
		return nil
	}
	return t.load(ctx)
}

// Refresh downloads the dataset again and replaces the cached table
func (t *Translator) Refresh(ctx context.Context) error {
	return t.load(ctx)
}

// Lookup returns the mapping for an AniList id. A stale or missing table is
// reloaded first. ok is false when the id has no TMDB counterpart.
func (t *Translator) Lookup(ctx context.Context, anilistID int) (Mapping, bool, error) {
	if err := t.Initialize(ctx); err != nil {
		return Mapping{}, false, err
	}
	table, ok := t.table()
	if !ok {
		return Mapping{}, false, fmt.Errorf("anime mapping table unavailable")
	}
	m, ok := table[anilistID]
	return m, ok, nil
}

// Size returns the number of cached mappings
func (t *Translator) Size() int {
	table, _ := t.table()
	return len(table)
}

func (t *Translator) table() (map[int]Mapping, bool) {
	v, ok := t.cache.Get(tableKey)
	if !ok {
		return nil, false
	}
	table, ok := v.(map[int]Mapping)
	return table, ok
}

func (t *Translator) load(ctx context.Context) error {
	_, err, shared := t.group.Do(tableKey, func() (interface{}, error) {
		table, err := t.download(ctx)
		if err != nil {
			return nil, err
		}
		t.cache.Set(tableKey, table, cache.DefaultExpiration)
		t.logger.Info().Int("mappings", len(table)).Dur("ttl", t.ttl).Msg("Loaded anime id mappings")
		return nil, nil
	})
	if shared {
		t.logger.Debug().Msg("Joined in-flight anime mapping load")
	}
	return err
}

func (t *Translator) download(ctx context.Context) (map[int]Mapping, error) {
	var entries []entry

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", utils.UserAgent)

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			upstream := &models.UpstreamError{
				Service:    "anime-mapping",
				StatusCode: resp.StatusCode,
				Body:       utils.ReadErrorBody(resp.Body),
			}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return upstream
			}
			return backoff.Permanent(upstream)
		}

		entries = nil
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode anime mapping: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(t.newBackOff(), maxAttempts-1), ctx)
	notify := func(err error, wait time.Duration) {
		t.logger.Warn().Err(err).Dur("retry_in", wait).Msg("Anime mapping download failed, retrying")
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to download anime mapping: %w", err)
	}

	table := make(map[int]Mapping, len(entries))
	for _, e := range entries {
		if e.AniListID <= 0 || e.TMDBID <= 0 {
			continue
		}
		kind := models.MediaKindSeries
		if strings.EqualFold(e.Type, "MOVIE") {
			kind = models.MediaKindMovie
		}
		table[int(e.AniListID)] = Mapping{
			AniListID: int(e.AniListID),
			MALID:     int(e.MALID),
			TMDBID:    int(e.TMDBID),
			Kind:      kind,
		}
	}
	return table, nil
}

// entry is one row of the anime-lists dataset
type entry struct {
	AniListID flexInt `json:"anilist_id"`
	MALID     flexInt `json:"mal_id"`
	TMDBID    flexInt `json:"themoviedb_id"`
	Type      string  `json:"type"`
}

// flexInt decodes ids published either as numbers or as strings
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		// Some rows carry lists or free text; treat them as unknown
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}
