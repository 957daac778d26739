// Package scheduler runs the daily auto-post job and keeps its schedule in MongoDB.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"aichannel-bot/internal/database"
	"aichannel-bot/internal/database/models"
	"aichannel-bot/pkg/utils"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

const jobTimeout = 5 * time.Minute

// Job is the work executed on every scheduled run.
type Job func(ctx context.Context)

// Status describes the daily job.
type Status struct {
	Enabled bool
	// Time is the UTC time of day as HH:MM. Empty when disabled.
	Time    string
	NextRun time.Time
}

// Scheduler owns a single named daily job.
type Scheduler struct {
	cron *cron.Cron
	repo database.ScheduleRepository
	name string
	job  Job
	now  func() time.Time

	mu      sync.Mutex
	baseCtx context.Context
	entryID cron.EntryID
	active  bool
	hour    int
	minute  int
}

// New creates a scheduler for the job called name. Schedules are evaluated in UTC.
func New(repo database.ScheduleRepository, name string, job Job) *Scheduler {
	logger := cron.PrintfLogger(log.Default().WithPrefix("cron"))
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		repo:    repo,
		name:    name,
		job:     job,
		now:     time.Now,
		baseCtx: context.Background(),
	}
}

// Start runs the cron loop. Job runs derive their context from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	s.cron.Start()
	log.Infof("[Scheduler] Started (job: %s)", s.name)
}

// Shutdown stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Shutdown() {
	<-s.cron.Stop().Done()
	log.Info("[Scheduler] Stopped")
}

// ScheduleDaily replaces the job with a daily run at hhmm UTC, persists it and returns the next run.
func (s *Scheduler) ScheduleDaily(ctx context.Context, hhmm string) (time.Time, error) {
	hour, minute, err := utils.ParseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}

	s.mu.Lock()
	next, err := s.scheduleLocked(hour, minute)
	s.mu.Unlock()
	if err != nil {
		return time.Time{}, err
	}

	if err := s.repo.SaveSchedule(ctx, &models.Schedule{Name: s.name, Enabled: true, Hour: hour, Minute: minute}); err != nil {
		log.Errorf("[Scheduler] Job %s scheduled but not persisted: %v", s.name, err)
		return next, fmt.Errorf("persist schedule: %w", err)
	}
	log.Infof("[Scheduler] Job %s scheduled daily at %s UTC, next run %s", s.name, utils.FormatClock(hour, minute), next.Format(time.RFC3339))
	return next, nil
}

// Stop removes the daily job and persists the disabled state. It reports whether a job was active.
func (s *Scheduler) Stop(ctx context.Context) (bool, error) {
	s.mu.Lock()
	existed := s.active
	if existed {
		s.cron.Remove(s.entryID)
		s.active = false
	}
	hour, minute := s.hour, s.minute
	s.mu.Unlock()

	if !existed {
		log.Infof("[Scheduler] No active job %s to stop", s.name)
		return false, nil
	}
	if err := s.repo.SaveSchedule(ctx, &models.Schedule{Name: s.name, Enabled: false, Hour: hour, Minute: minute}); err != nil {
		return true, fmt.Errorf("persist schedule: %w", err)
	}
	log.Infof("[Scheduler] Job %s removed", s.name)
	return true, nil
}

// Status returns the current state of the daily job.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return Status{}
	}
	return Status{
		Enabled: true,
		Time:    utils.FormatClock(s.hour, s.minute),
		NextRun: s.nextRunLocked(),
	}
}

// Restore re-creates a persisted, enabled schedule. It is meant to run once at startup.
func (s *Scheduler) Restore(ctx context.Context) (Status, error) {
	saved, err := s.repo.GetSchedule(ctx, s.name)
	if errors.Is(err, database.ErrNotFound) {
		log.Infof("[Scheduler] No saved schedule for %s", s.name)
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("load schedule: %w", err)
	}
	if !saved.Enabled {
		log.Infof("[Scheduler] Saved schedule for %s is disabled", s.name)
		return Status{}, nil
	}

	s.mu.Lock()
	_, err = s.scheduleLocked(saved.Hour, saved.Minute)
	s.mu.Unlock()
	if err != nil {
		return Status{}, err
	}
	status := s.Status()
	log.Infof("[Scheduler] Restored job %s at %s UTC, next run %s", s.name, status.Time, status.NextRun.Format(time.RFC3339))
	return status, nil
}

func (s *Scheduler) scheduleLocked(hour, minute int) (time.Time, error) {
	spec := dailySpec(hour, minute)
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	if s.active {
		s.cron.Remove(s.entryID)
		log.Infof("[Scheduler] Replacing existing job %s", s.name)
	}
	s.entryID = s.cron.Schedule(schedule, cron.FuncJob(s.run))
	s.active = true
	s.hour, s.minute = hour, minute
	return s.nextRunLocked(), nil
}

func (s *Scheduler) nextRunLocked() time.Time {
	if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
		return next
	}
	// The entry has no next time until the cron loop is running.
	schedule, err := cron.ParseStandard(dailySpec(s.hour, s.minute))
	if err != nil {
		return time.Time{}
	}
	return schedule.Next(s.now().UTC())
}

func dailySpec(hour, minute int) string {
	return fmt.Sprintf("CRON_TZ=UTC %d %d * * *", minute, hour)
}

func (s *Scheduler) run() {
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, jobTimeout)
	defer cancel()
	log.Infof("[Scheduler] Running job %s", s.name)
	s.job(ctx)
}
