package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amaumene/listarr/internal/api/handlers"
	"github.com/amaumene/listarr/internal/config"
	"github.com/amaumene/listarr/internal/controllers"
	"github.com/amaumene/listarr/internal/metrics"
	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

type mockProcessor struct {
	triggerFunc    func(userID, listID uint) (*models.ExecutionSummary, error)
	triggerAllFunc func(userID uint) ([]models.ExecutionSummary, error)
}

func (m *mockProcessor) TriggerProcessing(ctx context.Context, userID, listID uint, trigger models.TriggerKind) (*models.ExecutionSummary, error) {
	return m.triggerFunc(userID, listID)
}

func (m *mockProcessor) TriggerAll(ctx context.Context, userID uint, trigger models.TriggerKind) ([]models.ExecutionSummary, error) {
	return m.triggerAllFunc(userID)
}

type mockLists struct {
	maxItemsFunc func(userID, listID uint, n int) (*models.MediaList, error)
	historyLimit int
}

func (m *mockLists) ChangeMaxItems(ctx context.Context, userID, listID uint, n int) (*models.MediaList, error) {
	return m.maxItemsFunc(userID, listID, n)
}

func (m *mockLists) SetSchedule(ctx context.Context, userID, listID uint, expr string) (*models.MediaList, error) {
	list := &models.MediaList{ID: listID, UserID: userID}
	if err := list.ChangeSchedule(expr); err != nil {
		return nil, err
	}
	return list, nil
}

func (m *mockLists) SetEnabled(ctx context.Context, userID, listID uint, enabled bool) (*models.MediaList, error) {
	if userID != 1 {
		return nil, models.ErrNotFound
	}
	return &models.MediaList{ID: listID, UserID: userID, Enabled: enabled}, nil
}

func (m *mockLists) History(ctx context.Context, userID, listID uint, limit int) ([]models.ExecutionSummary, error) {
	m.historyLimit = limit
	return []models.ExecutionSummary{{ExecutionID: 3, ListID: listID, Status: models.ExecutionSuccess}}, nil
}

type mockDashboard struct{}

func (mockDashboard) PendingRequests(ctx context.Context, userID uint) controllers.PendingRequests {
	if userID == 1 {
		return controllers.PendingRequests{Count: 7}
	}
	return controllers.PendingRequests{Error: true}
}

type mockSchedule struct {
	reloads     int
	unscheduled []int
	jobs        []scheduler.Job
}

func (m *mockSchedule) Unschedule(id int) {
	m.unscheduled = append(m.unscheduled, id)
}

func (m *mockSchedule) Reload(ctx context.Context) error {
	m.reloads++
	return nil
}

func (m *mockSchedule) ListActiveJobs() []scheduler.Job {
	return m.jobs
}

type mockSettings struct {
	settings *models.Settings
}

func (m *mockSettings) Get(ctx context.Context) (*models.Settings, error) {
	return m.settings, nil
}

func (m *mockSettings) UpdateAutomaticProcessing(ctx context.Context, enabled bool, schedule, timezone string) (*models.Settings, error) {
	if err := models.ValidateCronExpression(schedule); err != nil {
		return nil, err
	}
	m.settings = &models.Settings{AutomaticProcessingEnabled: enabled, AutomaticProcessingSchedule: &schedule, Timezone: timezone}
	return m.settings, nil
}

type fixture struct {
	server    *Server
	pinger    *mockPinger
	processor *mockProcessor
	lists     *mockLists
	schedule  *mockSchedule
	settings  *mockSettings
	registry  *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		pinger:    &mockPinger{},
		processor: &mockProcessor{},
		lists:     &mockLists{},
		schedule:  &mockSchedule{},
		settings:  &mockSettings{settings: &models.Settings{}},
		registry:  prometheus.NewRegistry(),
	}
	logger := zerolog.Nop()
	f.server = NewServer(&config.Config{ServerPort: "0"}, Handlers{
		Health:   handlers.NewHealthHandler(f.pinger, logger),
		Status:   handlers.NewStatusHandler(f.settings, f.schedule, logger),
		Lists:    handlers.NewListHandler(f.processor, f.lists, mockDashboard{}, logger),
		Settings: handlers.NewSettingsHandler(f.settings, logger),
	}, f.registry, logger)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.server.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return resp, data
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "healthy") {
		t.Errorf("Expected healthy, got %d %s", resp.StatusCode, body)
	}

	f.pinger.err = errors.New("disk I/O error")
	resp, _ = f.do(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
}

func TestProcessListReturnsSummary(t *testing.T) {
	f := newFixture(t)
	f.processor.triggerFunc = func(userID, listID uint) (*models.ExecutionSummary, error) {
		if userID != 4 || listID != 9 {
			t.Errorf("Unexpected ids %d/%d", userID, listID)
		}
		return &models.ExecutionSummary{ExecutionID: 1, ListID: listID, Status: models.ExecutionSuccess, ItemsRequested: 2}, nil
	}

	resp, body := f.do(t, http.MethodPost, "/api/users/4/lists/9/process", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d %s", resp.StatusCode, body)
	}
	var summary models.ExecutionSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if summary.ItemsRequested != 2 || summary.Status != models.ExecutionSuccess {
		t.Errorf("Unexpected summary %+v", summary)
	}
}

func TestProcessListErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("list 9: %w", models.ErrNotFound), http.StatusNotFound},
		{"provider", models.ErrProviderNotConfigured, http.StatusConflict},
		{"destination", models.ErrDestinationNotConfigured, http.StatusConflict},
		{"validation", &models.ValidationError{Field: "source_url", Reason: "unsupported"}, http.StatusBadRequest},
		{"rate limit", &models.RateLimitError{Provider: "trakt", RetryAfter: 1500 * time.Millisecond}, http.StatusTooManyRequests},
		{"upstream", &models.UpstreamError{Service: "trakt", StatusCode: 502}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.processor.triggerFunc = func(userID, listID uint) (*models.ExecutionSummary, error) {
				return nil, tt.err
			}

			resp, body := f.do(t, http.MethodPost, "/api/users/1/lists/9/process", "")
			if resp.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
			var errResp handlers.ErrorResponse
			if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error != tt.err.Error() {
				t.Errorf("Unexpected error body %s", body)
			}
			if tt.status == http.StatusTooManyRequests && resp.Header.Get("Retry-After") != "2" {
				t.Errorf("Expected Retry-After 2, got %q", resp.Header.Get("Retry-After"))
			}
		})
	}
}

func TestProcessListFailureCarriesExecution(t *testing.T) {
	f := newFixture(t)
	f.processor.triggerFunc = func(userID, listID uint) (*models.ExecutionSummary, error) {
		message := "trakt API request failed with status 500"
		return &models.ExecutionSummary{ExecutionID: 12, Status: models.ExecutionError, ErrorMessage: &message},
			&models.UpstreamError{Service: "trakt", StatusCode: 500}
	}

	resp, body := f.do(t, http.MethodPost, "/api/users/1/lists/9/process", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", resp.StatusCode)
	}
	var errResp handlers.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if errResp.Execution == nil || errResp.Execution.ExecutionID != 12 {
		t.Errorf("Expected execution 12 in error body, got %s", body)
	}
}

func TestProcessAll(t *testing.T) {
	f := newFixture(t)
	f.processor.triggerAllFunc = func(userID uint) ([]models.ExecutionSummary, error) {
		return []models.ExecutionSummary{{ExecutionID: 1, BatchID: "b"}, {ExecutionID: 2, BatchID: "b"}}, nil
	}

	resp, body := f.do(t, http.MethodPost, "/api/users/1/lists/process", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var summaries []models.ExecutionSummary
	if err := json.Unmarshal(body, &summaries); err != nil || len(summaries) != 2 {
		t.Errorf("Expected 2 summaries, got %s", body)
	}
}

func TestInvalidIDs(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/users/abc/lists/1/process", "/api/users/1/lists/0/process", "/api/users/-2/lists/process"} {
		resp, _ := f.do(t, http.MethodPost, path, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, resp.StatusCode)
		}
	}
}

func TestExecutionsLimit(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/api/users/1/lists/2/executions?limit=5", "")
	if resp.StatusCode != http.StatusOK || f.lists.historyLimit != 5 {
		t.Errorf("Expected limit 5 passed through, got %d (status %d)", f.lists.historyLimit, resp.StatusCode)
	}

	resp, _ = f.do(t, http.MethodGet, "/api/users/1/lists/2/executions", "")
	if resp.StatusCode != http.StatusOK || f.lists.historyLimit != 0 {
		t.Errorf("Expected default limit, got %d", f.lists.historyLimit)
	}

	resp, _ = f.do(t, http.MethodGet, "/api/users/1/lists/2/executions?limit=many", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", resp.StatusCode)
	}
}

func TestChangeMaxItems(t *testing.T) {
	f := newFixture(t)
	f.lists.maxItemsFunc = func(userID, listID uint, n int) (*models.MediaList, error) {
		if err := models.ValidateMaxItems(n); err != nil {
			return nil, err
		}
		return &models.MediaList{ID: listID, MaxItems: n}, nil
	}

	resp, body := f.do(t, http.MethodPut, "/api/users/1/lists/2/max-items", `{"max_items": 25}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"max_items":25`) {
		t.Errorf("Expected 25 stored, got %d %s", resp.StatusCode, body)
	}

	for _, payload := range []string{`{"max_items": 51}`, `{"max_items": 0}`, `{}`} {
		resp, _ := f.do(t, http.MethodPut, "/api/users/1/lists/2/max-items", payload)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", payload, resp.StatusCode)
		}
	}
}

func TestPendingRequests(t *testing.T) {
	f := newFixture(t)

	_, body := f.do(t, http.MethodGet, "/api/users/1/dashboard/pending-requests", "")
	if string(body) != `{"count":7,"error":false}` {
		t.Errorf("Unexpected body %s", body)
	}

	resp, body := f.do(t, http.MethodGet, "/api/users/2/dashboard/pending-requests", "")
	if resp.StatusCode != http.StatusOK || string(body) != `{"count":0,"error":true}` {
		t.Errorf("Expected 200 with error flag, got %d %s", resp.StatusCode, body)
	}
}

func TestScheduleEndpoints(t *testing.T) {
	f := newFixture(t)
	f.schedule.jobs = []scheduler.Job{{ID: scheduler.GlobalJobID, Spec: "CRON_TZ=UTC 0 3 * * *"}}

	resp, body := f.do(t, http.MethodPost, "/api/schedule/reload", "")
	if resp.StatusCode != http.StatusOK || f.schedule.reloads != 1 {
		t.Errorf("Expected one reload, got %d (status %d)", f.schedule.reloads, resp.StatusCode)
	}
	if !strings.Contains(string(body), `"id":-1`) {
		t.Errorf("Expected global job in body, got %s", body)
	}

	_, body = f.do(t, http.MethodGet, "/api/schedule/jobs", "")
	var jobs []scheduler.Job
	if err := json.Unmarshal(body, &jobs); err != nil || len(jobs) != 1 {
		t.Errorf("Expected 1 job, got %s", body)
	}
}

func TestUpdateAutomaticProcessing(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPut, "/api/settings/automatic-processing",
		`{"enabled": true, "schedule": "0 3 * * *", "timezone": "Europe/Paris"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"schedule":"0 3 * * *"`) {
		t.Errorf("Unexpected body %s", body)
	}

	resp, _ = f.do(t, http.MethodPut, "/api/settings/automatic-processing", `{"enabled": true, "schedule": "whenever"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid cron, got %d", resp.StatusCode)
	}

	_, body = f.do(t, http.MethodGet, "/status", "")
	if !strings.Contains(string(body), `"enabled":true`) {
		t.Errorf("Expected status to reflect update, got %s", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	collector := metrics.NewCollector(f.registry)
	collector.RecordExecution("success", "manual", time.Second)

	resp, body := f.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "listarr_executions_total") {
		t.Errorf("Expected listarr metrics, got %d", resp.StatusCode)
	}
}

func TestListScheduleAndEnabled(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPut, "/api/users/1/lists/2/schedule", `{"schedule": "0 6 * * *"}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"schedule":"0 6 * * *"`) {
		t.Errorf("Expected schedule stored, got %d %s", resp.StatusCode, body)
	}
	resp, _ = f.do(t, http.MethodPut, "/api/users/1/lists/2/schedule", `{"schedule": "every day"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad cron, got %d", resp.StatusCode)
	}

	resp, body = f.do(t, http.MethodPut, "/api/users/1/lists/2/enabled", `{"enabled": false}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"enabled":false`) {
		t.Errorf("Expected list disabled, got %d %s", resp.StatusCode, body)
	}
	resp, _ = f.do(t, http.MethodPut, "/api/users/1/lists/2/enabled", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without enabled, got %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodPut, "/api/users/2/lists/2/enabled", `{"enabled": true}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for another user's list, got %d", resp.StatusCode)
	}
}

func TestUnscheduleJob(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodDelete, "/api/schedule/jobs/-1", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}
	if len(f.schedule.unscheduled) != 1 || f.schedule.unscheduled[0] != scheduler.GlobalJobID {
		t.Errorf("Expected global job unscheduled, got %v", f.schedule.unscheduled)
	}

	resp, _ = f.do(t, http.MethodDelete, "/api/schedule/jobs/global", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-numeric id, got %d", resp.StatusCode)
	}
}
