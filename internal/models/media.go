package models

import "fmt"

// MediaItem is a normalized entry fetched from a provider list.
// CatalogID is the TMDB id used by the destination for matching.
type MediaItem struct {
	Title     string
	Year      *int
	CatalogID int
	Kind      MediaKind
}

// NewMediaItem builds a MediaItem. A zero year means unknown.
func NewMediaItem(title string, year int, catalogID int, kind MediaKind) MediaItem {
	item := MediaItem{
		Title:     title,
		CatalogID: catalogID,
		Kind:      kind,
	}
	if year > 0 {
		y := year
		item.Year = &y
	}
	return item
}

// Key identifies an item by catalog id and kind
func (m MediaItem) Key() string {
	return fmt.Sprintf("%s:%d", m.Kind, m.CatalogID)
}

// Equal compares items by catalog id and kind
func (m MediaItem) Equal(other MediaItem) bool {
	return m.CatalogID == other.CatalogID && m.Kind == other.Kind
}

func (m MediaItem) String() string {
	if m.Year != nil {
		return fmt.Sprintf("%s (%d) [%s]", m.Title, *m.Year, m.Key())
	}
	return fmt.Sprintf("%s [%s]", m.Title, m.Key())
}

// Truncate caps items at max. A max of 0 or less means no cap.
func Truncate(items []MediaItem, max int) []MediaItem {
	if max <= 0 || len(items) <= max {
		return items
	}
	return items[:max]
}

// Dedupe drops repeated items, keeping the first occurrence
func Dedupe(items []MediaItem) []MediaItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]MediaItem, 0, len(items))
	for _, item := range items {
		key := item.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
