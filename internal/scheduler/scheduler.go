package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-stats/internal/weather"
)

// Refresher is the part of weather.Service the scheduler drives.
type Refresher interface {
	RefreshAndStore(ctx context.Context, loc weather.Location, vars []weather.Variable, pastDays int) error
}

// Job describes what each scheduled run refreshes.
type Job struct {
	Locations []weather.Location
	Variables []weather.Variable
	PastDays  int
	Interval  time.Duration
	// Timeout bounds each location refresh.
	Timeout time.Duration
}

// Scheduler periodically refreshes statistics for tracked locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	job       Job
	log       *logrus.Entry
}

// New creates a new Scheduler.
func New(job Job, service Refresher) *Scheduler {
	if job.Timeout <= 0 {
		job.Timeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		job:       job,
		log:       logrus.WithField("component", "scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.job.Locations) == 0 || len(s.job.Variables) == 0 {
		s.log.Info("no locations or variables configured; nothing to schedule")
		return nil
	}

	minutes := int(s.job.Interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	if _, err := s.scheduler.Every(minutes).Minutes().Do(s.RunOnce); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every tracked location concurrently and waits for all of them.
func (s *Scheduler) RunOnce() {
	s.log.Debug("running refresh job")
	start := time.Now()

	var wg sync.WaitGroup
	for _, loc := range s.job.Locations {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.job.Timeout)
			defer cancel()

			if err := s.service.RefreshAndStore(ctx, loc, s.job.Variables, s.job.PastDays); err != nil {
				s.log.WithField("location", loc.String()).WithError(err).Warn("refresh failed")
			}
		}()
	}
	wg.Wait()

	s.log.WithField("took", time.Since(start)).Info("completed refresh job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
