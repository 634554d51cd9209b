package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amaumene/listarr/internal/metrics"
	"github.com/amaumene/listarr/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// GlobalJobID identifies the automatic-processing job. List ids are positive,
// so per-list jobs can never collide with it.
const GlobalJobID = -1

// SettingsReader reads the global automatic-processing settings
type SettingsReader interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
}

// ProcessFunc processes every schedulable list, one after the other
type ProcessFunc func(ctx context.Context) error

// Job is a snapshot of one active job
type Job struct {
	ID      int       `json:"id"`
	Spec    string    `json:"spec"`
	NextRun time.Time `json:"next_run"`
}

// Scheduler owns the table of active recurring jobs. The table is rebuilt
// from stored settings on every Reload.
//
// A failing or panicking run is logged and the job stays installed; the next
// tick fires as usual. A tick that arrives while the previous run is still
// going is skipped.
type Scheduler struct {
	cron            *cron.Cron
	settings        SettingsReader
	process         ProcessFunc
	defaultTimezone string
	metrics         metrics.Recorder
	logger          zerolog.Logger

	mu        sync.Mutex
	jobs      map[int]cron.EntryID
	specs     map[int]string
	requested uint64

	// reloadMu serializes reloads; applied and lastErr describe the last one
	reloadMu sync.Mutex
	applied  uint64
	lastErr  error
}

// New creates and starts a scheduler with no active job. Call Reload to
// install the job described by the stored settings.
func New(settings SettingsReader, process ProcessFunc, defaultTimezone string, recorder metrics.Recorder, logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	adapter := cronLogger{logger: logger}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(adapter),
			// Recover must sit inside SkipIfStillRunning, which only releases
			// its slot when the wrapped job returns
			cron.WithChain(cron.SkipIfStillRunning(adapter), cron.Recover(adapter)),
		),
		settings:        settings,
		process:         process,
		defaultTimezone: defaultTimezone,
		metrics:         recorder,
		logger:          logger,
		jobs:            make(map[int]cron.EntryID),
		specs:           make(map[int]string),
	}
	s.cron.Start()
	return s
}

// Reload clears every active job, re-reads the settings and installs the
// automatic-processing job if it is enabled. It always leaves zero or one
// job. An invalid cron expression is logged and installs nothing.
//
// Reloads never overlap. A call waits for the reload in flight, and calls
// that arrive meanwhile share a single follow-up reload, so every caller
// returns after a read of the settings that started after its call.
func (s *Scheduler) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.requested++
	ticket := s.requested
	s.mu.Unlock()

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	if s.applied >= ticket {
		return s.lastErr
	}

	s.mu.Lock()
	covers := s.requested
	s.mu.Unlock()

	s.lastErr = s.reload(ctx)
	s.applied = covers
	return s.lastErr
}

func (s *Scheduler) reload(ctx context.Context) error {
	s.mu.Lock()
	for id := range s.jobs {
		s.removeLocked(id)
	}
	s.mu.Unlock()

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	spec, ok := s.specFor(settings)
	if !ok {
		s.logger.Info().Msg("Automatic processing disabled, no job installed")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(spec, s.runProcessing)
	if err != nil {
		s.logger.Error().Err(err).Str("spec", spec).Msg("Invalid automatic processing schedule, no job installed")
		return nil
	}
	s.jobs[GlobalJobID] = entryID
	s.specs[GlobalJobID] = spec

	s.logger.Info().
		Str("spec", spec).
		Time("next_run", s.nextRunLocked(GlobalJobID)).
		Msg("Automatic processing scheduled")
	return nil
}

// Preview returns the job Reload would install from the stored settings
// without installing it. An invalid schedule or timezone is a validation error.
func (s *Scheduler) Preview(ctx context.Context) ([]Job, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	spec, ok := s.specFor(settings)
	if !ok {
		return nil, nil
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, &models.ValidationError{Field: "schedule", Reason: err.Error()}
	}
	return []Job{{ID: GlobalJobID, Spec: spec, NextRun: schedule.Next(time.Now())}}, nil
}

// specFor builds the CRON_TZ-prefixed spec of the global job. ok is false
// when automatic processing is off.
func (s *Scheduler) specFor(settings *models.Settings) (spec string, ok bool) {
	if !settings.AutomaticProcessingEnabled || settings.AutomaticProcessingSchedule == nil ||
		strings.TrimSpace(*settings.AutomaticProcessingSchedule) == "" {
		return "", false
	}
	timezone := settings.Timezone
	if timezone == "" {
		timezone = s.defaultTimezone
	}
	return fmt.Sprintf("CRON_TZ=%s %s", timezone, strings.TrimSpace(*settings.AutomaticProcessingSchedule)), true
}

// Unschedule stops and removes a job. Unknown ids are ignored.
func (s *Scheduler) Unschedule(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; ok {
		s.removeLocked(id)
		s.logger.Info().Int("job_id", id).Msg("Job unscheduled")
	}
}

// ListActiveJobs returns the active jobs ordered by id
func (s *Scheduler) ListActiveJobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.jobs))
	for id := range s.jobs {
		jobs = append(jobs, Job{
			ID:      id,
			Spec:    s.specs[id],
			NextRun: s.nextRunLocked(id),
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs
}

// Close stops the scheduler and waits for a running job to finish or for
// ctx to expire
func (s *Scheduler) Close(ctx context.Context) error {
	s.logger.Info().Msg("Stopping scheduler")
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler did not stop in time: %w", ctx.Err())
	}
}

func (s *Scheduler) removeLocked(id int) {
	s.cron.Remove(s.jobs[id])
	delete(s.jobs, id)
	delete(s.specs, id)
}

func (s *Scheduler) nextRunLocked(id int) time.Time {
	entry := s.cron.Entry(s.jobs[id])
	if !entry.Valid() {
		return time.Time{}
	}
	if entry.Next.IsZero() && entry.Schedule != nil {
		return entry.Schedule.Next(time.Now())
	}
	return entry.Next
}

// runProcessing is the job body. Runs are never cancelled mid-flight.
func (s *Scheduler) runProcessing() {
	s.logger.Info().Msg("Running scheduled processing")
	start := time.Now()

	if err := s.process(context.Background()); err != nil {
		s.metrics.RecordScheduledRun("error")
		s.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Scheduled processing failed")
		return
	}

	s.metrics.RecordScheduledRun("success")
	s.logger.Info().Dur("duration", time.Since(start)).Msg("Scheduled processing completed")
}

// cronLogger bridges robfig/cron logging to zerolog
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
