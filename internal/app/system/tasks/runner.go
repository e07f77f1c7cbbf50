// Package tasks runs the site's periodic maintenance jobs (expired state
// cleanup, retention, media sweeps) on fixed intervals.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("unknown background job")

// Job is one periodic task. It runs once at Start and then every Interval.
// Timeout bounds a single run; zero leaves it bounded only by Stop.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Runner owns the job goroutines.
type Runner struct {
	logger *zap.Logger
	jobs   []Job

	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[string]int // job name -> runs in flight
}

func New(logger *zap.Logger) *Runner {
	return &Runner{logger: logger, active: map[string]int{}}
}

// Register adds job. Jobs registered after Start are not scheduled.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

// Names lists registered jobs in registration order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, j := range r.jobs {
		names = append(names, j.Name)
	}
	return names
}

// Start launches one goroutine per job.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
}

// Stop cancels every job and waits for in-flight runs to return. If ctx
// ends first, the names of the stragglers are logged and ctx.Err() is
// returned.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.logger.Warn("background jobs still running at shutdown deadline",
			zap.Strings("jobs", r.inFlight()))
		return ctx.Err()
	}
}

// RunOnce runs the named job synchronously, outside its schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	i := slices.IndexFunc(r.jobs, func(j Job) bool { return j.Name == name })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return r.invoke(ctx, r.jobs[i])
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	r.execute(ctx, job)

	t := time.NewTicker(job.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.execute(ctx, job)
		}
	}
}

func (r *Runner) execute(ctx context.Context, job Job) {
	log := r.logger.With(zap.String("job", job.Name))
	start := time.Now()

	err := r.invoke(ctx, job)
	elapsed := zap.Duration("duration", time.Since(start))
	switch {
	case err == nil:
		log.Debug("job completed", elapsed)
	case ctx.Err() != nil:
		log.Debug("job cancelled", elapsed)
	default:
		log.Error("job failed", elapsed, zap.Error(err))
	}
}

// invoke runs job once with its timeout, tracking it as in flight and
// converting a panic into an error.
func (r *Runner) invoke(ctx context.Context, job Job) (err error) {
	r.track(job.Name, 1)
	defer r.track(job.Name, -1)

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, p)
		}
	}()
	return job.Run(ctx)
}

func (r *Runner) track(name string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[name] += delta; r.active[name] <= 0 {
		delete(r.active, name)
	}
}

func (r *Runner) inFlight() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.active))
	for n := range r.active {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
