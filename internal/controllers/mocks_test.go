package controllers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/services/provider"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace/noop"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

// memoryStore is an in-memory ListStore, ExecutionStore, DestinationStore and SettingsStore
type memoryStore struct {
	mu           sync.Mutex
	lists        map[uint]*models.MediaList
	executions   []*models.ProcessingExecution
	destinations map[uint]*models.DestinationConfig
	settings     *models.Settings
	nextID       uint

	// rejectStatus makes updates to executions in that status fail
	rejectStatus models.ExecutionStatus
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		lists:        map[uint]*models.MediaList{},
		destinations: map[uint]*models.DestinationConfig{},
		settings:     &models.Settings{ID: models.SettingsID, Timezone: "UTC"},
	}
}

func (s *memoryStore) addList(list *models.MediaList) *models.MediaList {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *list
	s.lists[copied.ID] = &copied
	return list
}

func (s *memoryStore) FindList(ctx context.Context, userID, listID uint) (*models.MediaList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.lists[listID]
	if !ok || list.UserID != userID {
		return nil, models.ErrNotFound
	}
	copied := *list
	return &copied, nil
}

func (s *memoryStore) FindListsByUser(ctx context.Context, userID uint) ([]*models.MediaList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.MediaList
	for _, list := range s.lists {
		if list.UserID == userID {
			copied := *list
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) FindSchedulableLists(ctx context.Context) ([]*models.MediaList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.MediaList
	for _, list := range s.lists {
		if list.Schedulable() {
			copied := *list
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) SaveList(ctx context.Context, list *models.MediaList) error {
	if err := list.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *list
	s.lists[list.ID] = &copied
	return nil
}

func (s *memoryStore) SaveExecution(ctx context.Context, execution *models.ProcessingExecution) (*models.ProcessingExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if execution.ID == 0 {
		s.nextID++
		execution.ID = s.nextID
		copied := *execution
		s.executions = append(s.executions, &copied)
		return execution, nil
	}
	if s.rejectStatus != "" && execution.Status == s.rejectStatus {
		return nil, errors.New("database is locked")
	}
	for i, e := range s.executions {
		if e.ID == execution.ID {
			copied := *execution
			s.executions[i] = &copied
		}
	}
	return execution, nil
}

func (s *memoryStore) FindExecutionsByList(ctx context.Context, listID uint, limit int) ([]*models.ProcessingExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ProcessingExecution
	for i := len(s.executions) - 1; i >= 0; i-- {
		if s.executions[i].ListID == listID {
			copied := *s.executions[i]
			out = append(out, &copied)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memoryStore) allExecutions() []*models.ProcessingExecution {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ProcessingExecution, len(s.executions))
	copy(out, s.executions)
	return out
}

func (s *memoryStore) FindDestinationConfig(ctx context.Context, userID uint) (*models.DestinationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.destinations[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cfg, nil
}

func (s *memoryStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.settings
	return &copied, nil
}

func (s *memoryStore) SaveSettings(ctx context.Context, settings *models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *settings
	s.settings = &copied
	return nil
}

type mockDestination struct {
	getStatusFunc     func(ctx context.Context, item models.MediaItem) (models.MediaStatus, error)
	submitRequestFunc func(ctx context.Context, item models.MediaItem) error
	pendingFunc       func(ctx context.Context) (int, error)

	mu        sync.Mutex
	submitted []models.MediaItem
}

func (m *mockDestination) GetStatus(ctx context.Context, item models.MediaItem, profile *models.DestinationConfig) (models.MediaStatus, error) {
	if m.getStatusFunc == nil {
		return models.MediaStatusNone, nil
	}
	return m.getStatusFunc(ctx, item)
}

func (m *mockDestination) SubmitRequest(ctx context.Context, item models.MediaItem, profile *models.DestinationConfig) error {
	m.mu.Lock()
	m.submitted = append(m.submitted, item)
	m.mu.Unlock()
	if m.submitRequestFunc == nil {
		return nil
	}
	return m.submitRequestFunc(ctx, item)
}

func (m *mockDestination) PendingRequestCount(ctx context.Context, profile *models.DestinationConfig) (int, error) {
	return m.pendingFunc(ctx)
}

type mockFetcher struct {
	fetchFunc func(ctx context.Context, source string, maxItems int) ([]models.MediaItem, error)
}

func (m *mockFetcher) FetchItems(ctx context.Context, source string, maxItems int) ([]models.MediaItem, error) {
	return m.fetchFunc(ctx, source, maxItems)
}

type mockResolver struct {
	fetchers map[models.Provider]provider.Fetcher
}

func (m *mockResolver) Resolve(ctx context.Context, userID uint, p models.Provider) (provider.Fetcher, bool, error) {
	f, ok := m.fetchers[p]
	return f, ok, nil
}

type mockReloader struct {
	calls int
}

func (m *mockReloader) Reload(ctx context.Context) error {
	m.calls++
	return nil
}

type recordingMetrics struct {
	mu             sync.Mutex
	executions     map[string]int
	items          map[string]int
	lookupFailures int
	scheduledRuns  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		executions:    map[string]int{},
		items:         map[string]int{},
		scheduledRuns: map[string]int{},
	}
}

func (r *recordingMetrics) RecordExecution(status, trigger string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions[status+"/"+trigger]++
}

func (r *recordingMetrics) RecordItems(outcome string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[outcome] += count
}

func (r *recordingMetrics) RecordLookupFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookupFailures++
}

func (r *recordingMetrics) RecordScheduledRun(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduledRuns[result]++
}

func makeItems(n int, kind models.MediaKind) []models.MediaItem {
	out := make([]models.MediaItem, n)
	for i := range out {
		out[i] = models.NewMediaItem("Item", 2000+i, i+1, kind)
	}
	return out
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
