package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/services/anilist"
	"github.com/amaumene/listarr/internal/services/mdblist"
	"github.com/amaumene/listarr/internal/services/stevenlu"
	"github.com/amaumene/listarr/internal/services/trakt"
	"github.com/rs/zerolog"
)

// Fetcher returns the normalized items of a provider list, at most maxItems
// when maxItems is positive
type Fetcher interface {
	FetchItems(ctx context.Context, source string, maxItems int) ([]models.MediaItem, error)
}

// ConfigStore looks up per-user provider credentials
type ConfigStore interface {
	FindProviderConfig(ctx context.Context, userID uint, provider models.Provider) (*models.ProviderConfig, error)
}

// Factory builds the fetcher matching a list's provider tag
type Factory struct {
	configs    ConfigStore
	translator anilist.IDTranslator
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewFactory creates a fetcher factory
func NewFactory(configs ConfigStore, translator anilist.IDTranslator, httpClient *http.Client, logger zerolog.Logger) *Factory {
	return &Factory{
		configs:    configs,
		translator: translator,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Resolve returns the fetcher for provider. ok is false when the provider
// needs a credential the user has not configured.
func (f *Factory) Resolve(ctx context.Context, userID uint, provider models.Provider) (Fetcher, bool, error) {
	switch provider {
	case models.ProviderStevenLu:
		return stevenlu.NewFetcher(f.httpClient, f.logger), true, nil
	case models.ProviderAniList:
		return anilist.NewFetcher(f.translator, f.httpClient, f.logger), true, nil
	case models.ProviderTraktList, models.ProviderTraktChart, models.ProviderMdbList:
	default:
		return nil, false, &models.ValidationError{Field: "provider", Reason: fmt.Sprintf("unsupported provider %q", provider)}
	}

	credential, err := f.credential(ctx, userID, provider)
	if err != nil || credential == "" {
		return nil, false, err
	}

	switch provider {
	case models.ProviderTraktList:
		return trakt.NewListFetcher(trakt.NewClient(credential, f.httpClient, f.logger)), true, nil
	case models.ProviderTraktChart:
		return trakt.NewChartFetcher(trakt.NewClient(credential, f.httpClient, f.logger)), true, nil
	default:
		return mdblist.NewFetcher(credential, f.httpClient, f.logger), true, nil
	}
}

func (f *Factory) credential(ctx context.Context, userID uint, provider models.Provider) (string, error) {
	lookup := provider
	// Charts share the trakt client id
	if provider == models.ProviderTraktChart {
		lookup = models.ProviderTraktList
	}

	cfg, err := f.configs.FindProviderConfig(ctx, userID, lookup)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s configuration: %w", lookup, err)
	}
	return cfg.Credential, nil
}
