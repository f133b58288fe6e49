package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// jobTimeout bounds one scheduled run; a hung browser must not wedge the
// scheduler forever.
const jobTimeout = 30 * time.Minute

// Scheduler manages periodic re-scrapes in watch mode
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]cron.EntryID
	timezone *time.Location
	log      zerolog.Logger
}

// New creates a new scheduler with the given timezone
func New(timezone string, log zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
		log:      log.With().Str("component", "scheduler").Logger(),
	}, nil
}

// AddJob adds a job with a cron schedule
// schedule format: "0 7 * * *" (at 7:00 AM daily)
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		s.log.Info().Str("job", name).Msg("starting job")
		start := time.Now()

		if err := job(ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("job failed")
		} else {
			s.log.Info().Str("job", name).Dur("took", time.Since(start)).Msg("job completed")
		}
	})

	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.log.Info().Str("job", name).Str("schedule", schedule).Msg("job scheduled")

	return nil
}

// AddScrapeJob schedules the recurring re-scrape of the watched threads
func (s *Scheduler) AddScrapeJob(intervalHours int, job Job) error {
	schedule := fmt.Sprintf("0 */%d * * *", intervalHours)
	return s.AddJob("scrape", schedule, job)
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.log.Info().Str("job", name).Msg("job removed")
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.log.Info().Msg("scheduler started")
	s.cron.Start()
}

// Stop halts the scheduler
func (s *Scheduler) Stop() context.Context {
	s.log.Info().Msg("scheduler stopping")
	return s.cron.Stop()
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}
