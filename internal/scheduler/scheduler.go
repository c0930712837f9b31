package scheduler

import (
	"context"
	"fmt"

	"anoa.com/polychat/internal/logging"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs registered jobs on their cron schedules.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
	log  zerolog.Logger
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make([]Job, 0),
		log:  logging.Component("scheduler"),
	}
}

// Register adds job and schedules it when it has a schedule.
func (s *Scheduler) Register(job Job) error {
	s.jobs = append(s.jobs, job)

	schedule := job.GetSchedule()
	if schedule == "" {
		s.log.Info().Str("job", job.GetName()).Msg("registered on-demand job")
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		if err := job.Execute(context.Background()); err != nil {
			s.log.Error().Err(err).Str("job", job.GetName()).Msg("job failed")
			return
		}
		s.log.Debug().Str("job", job.GetName()).Msg("job completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.GetName(), err)
	}

	s.log.Info().Str("job", job.GetName()).Str("schedule", schedule).Msg("scheduled job")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunByName executes a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.GetName() == name {
			return job.Execute(ctx)
		}
	}
	return fmt.Errorf("job %q not registered", name)
}

func (s *Scheduler) Names() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.GetName()
	}
	return names
}
