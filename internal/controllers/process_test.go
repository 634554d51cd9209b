package controllers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/amaumene/listarr/internal/metrics"
	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/services/provider"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type processFixture struct {
	store       *memoryStore
	destination *mockDestination
	resolver    *mockResolver
	metrics     *recordingMetrics
	controller  *ProcessController
}

func newProcessFixture(tracer trace.Tracer) *processFixture {
	f := &processFixture{
		store:       newMemoryStore(),
		destination: &mockDestination{},
		resolver:    &mockResolver{fetchers: map[models.Provider]provider.Fetcher{}},
		metrics:     newRecordingMetrics(),
	}
	f.store.destinations[1] = &models.DestinationConfig{UserID: 1, BaseURL: "http://seerr.local", APIKey: "key"}

	checker := NewAvailabilityChecker(f.destination, 5, 5, f.metrics, tracer, nopLogger())
	orchestrator := NewOrchestrator(checker, f.destination, nopLogger())
	recorder := NewExecutionRecorder(f.store, f.metrics, nopLogger())
	f.controller = NewProcessController(f.store, f.store, f.resolver, recorder, orchestrator, f.metrics, tracer, nopLogger())
	return f
}

func (f *processFixture) list(id uint, p models.Provider, maxItems int) *models.MediaList {
	return f.store.addList(&models.MediaList{
		ID:        id,
		UserID:    1,
		Name:      "List",
		SourceURL: "https://example.com/list",
		Provider:  p,
		Enabled:   true,
		MaxItems:  maxItems,
	})
}

func staticFetcher(items []models.MediaItem) *mockFetcher {
	return &mockFetcher{fetchFunc: func(ctx context.Context, source string, maxItems int) ([]models.MediaItem, error) {
		return items, nil
	}}
}

func TestTriggerProcessingProviderNotConfigured(t *testing.T) {
	f := newProcessFixture(testTracer)
	f.list(1, models.ProviderMdbList, 10)

	_, err := f.controller.TriggerProcessing(context.Background(), 1, 1, models.TriggerManual)
	if !errors.Is(err, models.ErrProviderNotConfigured) {
		t.Fatalf("Expected ErrProviderNotConfigured, got %v", err)
	}
	if history, _ := f.store.FindExecutionsByList(context.Background(), 1, 0); len(history) != 0 {
		t.Errorf("Expected no execution record, found %d", len(history))
	}
}

func TestTriggerProcessingDestinationNotConfigured(t *testing.T) {
	f := newProcessFixture(testTracer)
	f.list(1, models.ProviderStevenLu, 10)
	f.resolver.fetchers[models.ProviderStevenLu] = staticFetcher(nil)
	delete(f.store.destinations, 1)

	_, err := f.controller.TriggerProcessing(context.Background(), 1, 1, models.TriggerManual)
	if !errors.Is(err, models.ErrDestinationNotConfigured) {
		t.Fatalf("Expected ErrDestinationNotConfigured, got %v", err)
	}
	if len(f.store.allExecutions()) != 0 {
		t.Error("Expected no execution record")
	}
}

func TestTriggerProcessingNotFound(t *testing.T) {
	f := newProcessFixture(testTracer)
	f.list(1, models.ProviderStevenLu, 10)

	if _, err := f.controller.TriggerProcessing(context.Background(), 2, 1, models.TriggerManual); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another user's list, got %v", err)
	}
	if _, err := f.controller.TriggerProcessing(context.Background(), 1, 99, models.TriggerManual); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing list, got %v", err)
	}
}

func TestTriggerProcessingTruncatesToMaxItems(t *testing.T) {
	f := newProcessFixture(testTracer)
	f.list(1, models.ProviderStevenLu, 10)
	f.resolver.fetchers[models.ProviderStevenLu] = staticFetcher(makeItems(15, models.MediaKindMovie))

	summary, err := f.controller.TriggerProcessing(context.Background(), 1, 1, models.TriggerManual)
	if err != nil {
		t.Fatalf("TriggerProcessing failed: %v", err)
	}
	if summary.ItemsFound != 10 || summary.ItemsRequested != 10 {
		t.Errorf("Expected 10 found and requested, got %+v", summary)
	}
	if len(f.destination.submitted) != 10 {
		t.Errorf("Expected 10 submissions, got %d", len(f.destination.submitted))
	}
}

func TestTriggerProcessingScenarioTallies(t *testing.T) {
	f := newProcessFixture(testTracer)
	f.list(1, models.ProviderTraktList, 20)
	f.resolver.fetchers[models.ProviderTraktList] = staticFetcher(makeItems(5, models.MediaKindMovie))

	// 1 available, 2 previously requested, 3 lookup fails, 4 submission fails, 5 requested
	f.destination.getStatusFunc = func(ctx context.Context, item models.MediaItem) (models.MediaStatus, error) {
		switch item.CatalogID {
		case 1:
			return models.MediaStatusAvailable, nil
		case 2:
			return models.MediaStatusRequested, nil
		case 3:
			return models.MediaStatusNone, errors.New("destination timeout")
		}
		return models.MediaStatusNone, nil
	}
	f.destination.submitRequestFunc = func(ctx context.Context, item models.MediaItem) error {
		if item.CatalogID == 4 {
			return errors.New("request rejected")
		}
		return nil
	}

	summary, err := f.controller.TriggerProcessing(context.Background(), 1, 1, models.TriggerManual)
	if err != nil {
		t.Fatalf("TriggerProcessing failed: %v", err)
	}
	if summary.Status != models.ExecutionSuccess {
		t.Errorf("Expected success despite a failed submission, got %s", summary.Status)
	}
	if summary.ItemsFound != 5 || summary.ItemsSkippedAvailable != 1 || summary.ItemsSkippedPreviouslyRequested != 1 ||
		summary.ItemsRequested != 2 || summary.ItemsFailed != 1 {
		t.Errorf("Unexpected tallies %+v", summary)
	}
	if !strings.HasPrefix(summary.BatchID, "manual-") {
		t.Errorf("Expected manual batch id, got %s", summary.BatchID)
	}

	stored := f.store.allExecutions()
	if len(stored) != 1 || stored[0].Status != models.ExecutionSuccess || stored[0].CompletedAt == nil || stored[0].ItemsFailed != 1 {
		t.Errorf("Unexpected stored execution %+v", stored)
	}
	if f.metrics.items[metrics.OutcomeRequested] != 2 || f.metrics.executions["success/manual"] != 1 {
		t.Errorf("Unexpected metrics %+v %+v", f.metrics.items, f.metrics.executions)
	}
}

func TestTriggerProcessingFetchFailureMarksError(t *testing.T) {
	f := newProcessFixture(testTracer)
	f.list(1, models.ProviderMdbList, 10)
	f.resolver.fetchers[models.ProviderMdbList] = &mockFetcher{fetchFunc: func(ctx context.Context, source string, maxItems int) ([]models.MediaItem, error) {
		return nil, &models.RateLimitError{Provider: "mdblist"}
	}}

	summary, err := f.controller.TriggerProcessing(context.Background(), 1, 1, models.TriggerManual)
	var rateErr *models.RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("Expected fetch error to be returned, got %v", err)
	}
	if summary == nil || summary.Status != models.ExecutionError || summary.ErrorMessage == nil {
		t.Fatalf("Expected error summary, got %+v", summary)
	}

	stored := f.store.allExecutions()
	if len(stored) != 1 || stored[0].Status != models.ExecutionError || !strings.Contains(*stored[0].ErrorMessage, "rate limit") {
		t.Errorf("Unexpected stored execution %+v", stored[0])
	}
	if f.metrics.executions["error/manual"] != 1 {
		t.Errorf("Expected error metric, got %+v", f.metrics.executions)
	}
}

func TestTriggerProcessingSuccessSaveFailureMarksError(t *testing.T) {
	f := newProcessFixture(testTracer)
	f.list(1, models.ProviderMdbList, 10)
	f.resolver.fetchers[models.ProviderMdbList] = staticFetcher(makeItems(2, models.MediaKindMovie))
	f.store.rejectStatus = models.ExecutionSuccess

	summary, err := f.controller.TriggerProcessing(context.Background(), 1, 1, models.TriggerManual)
	if err == nil || !strings.Contains(err.Error(), "failed to record execution success") {
		t.Fatalf("Expected success save error, got %v", err)
	}
	if summary == nil || summary.Status != models.ExecutionError {
		t.Fatalf("Expected error summary, got %+v", summary)
	}

	stored := f.store.allExecutions()
	if len(stored) != 1 || stored[0].Status != models.ExecutionError {
		t.Fatalf("Expected execution recorded as error, got %+v", stored)
	}
	if !strings.Contains(*stored[0].ErrorMessage, "database is locked") {
		t.Errorf("Expected save failure as message, got %q", *stored[0].ErrorMessage)
	}
}

func TestTriggerAllSharesBatchAndSkipsUnconfigured(t *testing.T) {
	f := newProcessFixture(testTracer)
	f.list(1, models.ProviderStevenLu, 5)
	f.list(2, models.ProviderMdbList, 5) // no fetcher configured
	f.list(3, models.ProviderTraktChart, 5)
	disabled := f.list(4, models.ProviderStevenLu, 5)
	disabled.Enabled = false
	f.store.addList(disabled)

	var order []string
	fetcher := func(name string) *mockFetcher {
		return &mockFetcher{fetchFunc: func(ctx context.Context, source string, maxItems int) ([]models.MediaItem, error) {
			order = append(order, name)
			return makeItems(2, models.MediaKindMovie), nil
		}}
	}
	f.resolver.fetchers[models.ProviderStevenLu] = fetcher("stevenlu")
	f.resolver.fetchers[models.ProviderTraktChart] = fetcher("trakt_chart")

	summaries, err := f.controller.TriggerAll(context.Background(), 1, models.TriggerManual)
	if err != nil {
		t.Fatalf("TriggerAll failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 executions, got %d", len(summaries))
	}
	if summaries[0].BatchID != summaries[1].BatchID {
		t.Errorf("Expected shared batch id, got %s and %s", summaries[0].BatchID, summaries[1].BatchID)
	}
	if summaries[0].ListID != 1 || summaries[1].ListID != 3 {
		t.Errorf("Expected lists 1 and 3 in order, got %d and %d", summaries[0].ListID, summaries[1].ListID)
	}
	if strings.Join(order, ",") != "stevenlu,trakt_chart" {
		t.Errorf("Unexpected fetch order %v", order)
	}
	if history, _ := f.store.FindExecutionsByList(context.Background(), 2, 0); len(history) != 0 {
		t.Errorf("Expected no execution for the unconfigured list")
	}
}

func TestProcessScheduledContinuesAfterFailure(t *testing.T) {
	f := newProcessFixture(testTracer)
	f.list(1, models.ProviderMdbList, 5)
	f.list(2, models.ProviderStevenLu, 5)
	f.resolver.fetchers[models.ProviderMdbList] = &mockFetcher{fetchFunc: func(ctx context.Context, source string, maxItems int) ([]models.MediaItem, error) {
		return nil, errors.New("upstream down")
	}}
	f.resolver.fetchers[models.ProviderStevenLu] = staticFetcher(makeItems(1, models.MediaKindMovie))

	summaries, err := f.controller.ProcessScheduled(context.Background())
	if err != nil {
		t.Fatalf("ProcessScheduled failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 executions, got %d", len(summaries))
	}
	if summaries[0].Status != models.ExecutionError || summaries[1].Status != models.ExecutionSuccess {
		t.Errorf("Unexpected statuses %s, %s", summaries[0].Status, summaries[1].Status)
	}
	if !strings.HasPrefix(summaries[0].BatchID, "scheduled-") || summaries[0].Trigger != models.TriggerScheduled {
		t.Errorf("Expected scheduled batch, got %+v", summaries[0])
	}
}

func TestProcessListRecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	f := newProcessFixture(tp.Tracer("test"))
	f.list(1, models.ProviderStevenLu, 5)
	f.resolver.fetchers[models.ProviderStevenLu] = staticFetcher(makeItems(3, models.MediaKindMovie))

	if _, err := f.controller.TriggerProcessing(context.Background(), 1, 1, models.TriggerManual); err != nil {
		t.Fatalf("TriggerProcessing failed: %v", err)
	}

	names := map[string]bool{}
	for _, span := range exporter.GetSpans() {
		names[span.Name] = true
	}
	if !names["process.list"] || !names["availability.check"] {
		t.Errorf("Expected process.list and availability.check spans, got %v", names)
	}
}
