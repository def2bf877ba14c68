package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is a unit of periodic background work
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
	// RunAtStart fires once immediately instead of waiting a full interval
	RunAtStart bool
}

// Scheduler runs each job on its own ticker. A job never overlaps with itself:
// ticks that fire while a run is in progress are dropped.
type Scheduler struct {
	Jobs []Job
	Log  logrus.FieldLogger

	wg sync.WaitGroup
}

// NewScheduler creates a new scheduler instance
func NewScheduler(log logrus.FieldLogger, jobs ...Job) *Scheduler {
	return &Scheduler{Jobs: jobs, Log: log}
}

// Add registers another job. It must be called before Start.
func (s *Scheduler) Add(j Job) {
	s.Jobs = append(s.Jobs, j)
}

// Start launches every job and returns immediately. Jobs stop when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, j := range s.Jobs {
		if j.Interval <= 0 {
			return fmt.Errorf("scheduler: job %q has non-positive interval %s", j.Name, j.Interval)
		}
		if j.Run == nil {
			return fmt.Errorf("scheduler: job %q has no run function", j.Name)
		}
	}
	for _, j := range s.Jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
	return nil
}

// Wait blocks until every job loop has exited
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	defer s.wg.Done()
	log := s.Log.WithField("job", j.Name)
	log.WithField("interval", j.Interval.String()).Info("job scheduled")

	if j.RunAtStart {
		s.runOnce(ctx, log, j)
	}

	t := time.NewTicker(j.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("job stopped")
			return
		case <-t.C:
			s.runOnce(ctx, log, j)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, log logrus.FieldLogger, j Job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("job panicked")
		}
	}()
	if err := j.Run(ctx); err != nil {
		log.WithError(err).WithField("elapsed", time.Since(start).String()).Error("job failed")
		return
	}
	log.WithField("elapsed", time.Since(start).String()).Debug("job finished")
}
