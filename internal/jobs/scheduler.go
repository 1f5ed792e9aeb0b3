// Package jobs runs named maintenance jobs on cron schedules.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned by Trigger for an unregistered job.
	ErrNotFound = errors.New("jobs: not registered")
	// ErrBusy is returned by Trigger while the same job is already running.
	ErrBusy = errors.New("jobs: already running")
)

// Func is one run of a job. ctx is cancelled when the scheduler stops.
type Func func(ctx context.Context) error

// Info is the public view of a registered job.
type Info struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	LastRun  time.Time `json:"lastRun,omitempty"`
	NextRun  time.Time `json:"nextRun,omitempty"`
}

type registeredJob struct {
	name     string
	schedule string
	entryID  cron.EntryID
	fn       Func

	// busy is held for the length of every run, scheduled or manual.
	busy sync.Mutex
}

// execute runs the job if it is idle and reports whether it ran.
func (j *registeredJob) execute(ctx context.Context) bool {
	if !j.busy.TryLock() {
		return false
	}
	defer j.busy.Unlock()
	start := time.Now()
	if err := j.fn(ctx); err != nil {
		log.WithError(err).WithField("job", j.name).Warn("jobs: run failed")
		return true
	}
	log.WithFields(log.Fields{"job": j.name, "duration": time.Since(start)}).Debug("jobs: run finished")
	return true
}

// Scheduler wraps a cron instance whose jobs never overlap with themselves.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

// NewScheduler returns a stopped scheduler. Jobs still running when the next tick fires are skipped.
func NewScheduler() *Scheduler {
	logger := cron.PrintfLogger(log.StandardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*registeredJob),
	}
}

// Add registers fn under name with a standard cron spec or descriptor such as "@every 6h".
func (s *Scheduler) Add(name, schedule string, fn Func) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("jobs: %s already registered", name)
	}
	job := &registeredJob{name: name, schedule: schedule, fn: fn}
	id, err := s.cron.AddFunc(schedule, func() {
		if !job.execute(s.ctx) {
			log.WithField("job", name).Info("jobs: skipped scheduled run, manual run in progress")
		}
	})
	if err != nil {
		return fmt.Errorf("jobs: schedule %s: %w", name, err)
	}
	job.entryID = id
	s.jobs[name] = job
	return nil
}

// Trigger runs a registered job immediately in the caller's goroutine. The run is cancelled
// when either ctx or the scheduler is done. Job failures are logged, not returned.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()
	if !job.execute(runCtx) {
		return fmt.Errorf("%w: %s", ErrBusy, name)
	}
	return nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Infof("jobs: scheduler started (jobs=%d)", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Info("jobs: scheduler stopped")
}

// List returns registered jobs sorted by name.
func (s *Scheduler) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.jobs))
	for _, job := range s.jobs {
		entry := s.cron.Entry(job.entryID)
		out = append(out, Info{
			Name:     job.name,
			Schedule: job.schedule,
			LastRun:  entry.Prev,
			NextRun:  entry.Next,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
