package trakt

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/amaumene/listarr/internal/models"
)

const defaultChartLimit = 100

var chartNames = map[string]bool{
	"trending":    true,
	"popular":     true,
	"anticipated": true,
	"watched":     true,
	"played":      true,
	"collected":   true,
	"boxoffice":   true,
}

// ChartFetcher reads the public movie and show charts
type ChartFetcher struct {
	client *Client
}

// NewChartFetcher creates a fetcher for trakt.tv charts
func NewChartFetcher(client *Client) *ChartFetcher {
	return &ChartFetcher{client: client}
}

// chartPath resolves https://trakt.tv/{movies|shows}/{chart}[/{period}]
func chartPath(source string) (string, models.MediaKind, error) {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil {
		return "", "", fmt.Errorf("invalid trakt chart url %q: %w", source, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || !chartNames[parts[1]] {
		return "", "", &models.ValidationError{Field: "source_url", Reason: fmt.Sprintf("unsupported trakt chart url %q", source)}
	}

	var kind models.MediaKind
	switch parts[0] {
	case "movies":
		kind = models.MediaKindMovie
	case "shows":
		kind = models.MediaKindSeries
	default:
		return "", "", &models.ValidationError{Field: "source_url", Reason: fmt.Sprintf("unsupported trakt chart url %q", source)}
	}

	path := "/" + parts[0] + "/" + parts[1]
	if len(parts) >= 3 && parts[2] != "" {
		path += "/" + parts[2]
	}
	return path, kind, nil
}

// FetchItems requests one chart page sized to maxItems
func (f *ChartFetcher) FetchItems(ctx context.Context, source string, maxItems int) ([]models.MediaItem, error) {
	path, kind, err := chartPath(source)
	if err != nil {
		return nil, err
	}

	limit := maxItems
	if limit <= 0 {
		limit = defaultChartLimit
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var entries []traktEntry
	if _, err := f.client.doRequest(ctx, path, query, &entries); err != nil {
		return nil, fmt.Errorf("failed to get trakt chart: %w", err)
	}

	items := make([]models.MediaItem, 0, len(entries))
	for _, entry := range entries {
		if item, ok := entry.toMediaItem(kind); ok {
			items = append(items, item)
		}
	}

	return models.Truncate(models.Dedupe(items), maxItems), nil
}
