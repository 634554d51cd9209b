package trakt

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/amaumene/listarr/internal/models"
)

const pageSize = 100

// ListFetcher reads user lists and watchlists
type ListFetcher struct {
	client *Client
}

// NewListFetcher creates a fetcher for trakt.tv user lists
func NewListFetcher(client *Client) *ListFetcher {
	return &ListFetcher{client: client}
}

// listPath resolves https://trakt.tv/users/{user}/lists/{slug} or
// https://trakt.tv/users/{user}/watchlist into an API items path
func listPath(source string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil {
		return "", fmt.Errorf("invalid trakt list url %q: %w", source, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "users" {
		user := parts[1]
		switch {
		case len(parts) >= 4 && parts[2] == "lists":
			return fmt.Sprintf("/users/%s/lists/%s/items/movie,show", user, parts[3]), nil
		case len(parts) == 3 && parts[2] == "watchlist":
			// The watchlist type filter takes plural names; entries are filtered by type instead
			return fmt.Sprintf("/users/%s/watchlist", user), nil
		}
	}
	return "", &models.ValidationError{Field: "source_url", Reason: fmt.Sprintf("unsupported trakt list url %q", source)}
}

// FetchItems pages through the list until maxItems items with a TMDB id are
// gathered. Seasons, episodes and people are skipped.
func (f *ListFetcher) FetchItems(ctx context.Context, source string, maxItems int) ([]models.MediaItem, error) {
	path, err := listPath(source)
	if err != nil {
		return nil, err
	}

	var items []models.MediaItem
	skipped := 0
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", strconv.Itoa(pageSize))

		var entries []traktEntry
		pages, err := f.client.doRequest(ctx, path, query, &entries)
		if err != nil {
			return nil, fmt.Errorf("failed to get trakt list page %d: %w", page, err)
		}

		for _, entry := range entries {
			item, ok := entry.toMediaItem(models.MediaKindMovie)
			if !ok {
				skipped++
				continue
			}
			items = append(items, item)
		}

		items = models.Dedupe(items)
		if maxItems > 0 && len(items) >= maxItems {
			break
		}
		if len(entries) == 0 || pages.PageCount <= page {
			break
		}
	}

	f.client.logger.Debug().
		Str("source", source).
		Int("items", len(items)).
		Int("skipped", skipped).
		Msg("Fetched trakt list")

	return models.Truncate(items, maxItems), nil
}
