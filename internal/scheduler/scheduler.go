package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-dashboard/internal/cache"
)

// Timers is a cache.Clock whose refresh tasks run as one-shot gocron jobs.
type Timers struct {
	// gocron's builder chain (Every/WaitForSchedule/.../Do) is not safe for
	// concurrent use, so job creation is serialized.
	mu        sync.Mutex
	scheduler *gocron.Scheduler
}

// New creates Timers. Call Start before scheduling.
func New() *Timers {
	return &Timers{
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start starts the underlying scheduler.
func (t *Timers) Start() {
	t.scheduler.StartAsync()
}

// Stop stops the scheduler and cancels any future jobs.
func (t *Timers) Stop() {
	if t.scheduler != nil {
		t.scheduler.Stop()
	}
}

// Len returns the number of scheduled jobs.
func (t *Timers) Len() int {
	return t.scheduler.Len()
}

func (t *Timers) Now() time.Time {
	return time.Now()
}

// AfterFunc runs f once, d from now.
func (t *Timers) AfterFunc(d time.Duration, f func()) cache.Timer {
	t.mu.Lock()
	defer t.mu.Unlock()

	jt := &jobTimer{timers: t}
	job, err := t.scheduler.Every(d).WaitForSchedule().LimitRunsTo(1).Do(func() {
		if jt.fire() {
			f()
		}
	})
	if err != nil {
		// Never drop a refresh: fall back to a runtime timer.
		log.Printf("ERROR: scheduler: failed to schedule job in %s: %v", d, err)
		return time.AfterFunc(d, f)
	}
	jt.job = job
	return jt
}

type jobTimer struct {
	timers *Timers
	job    *gocron.Job

	mu   sync.Mutex
	done bool
}

// fire marks the timer as run; it reports false if it was already stopped.
func (j *jobTimer) fire() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return false
	}
	j.done = true
	return true
}

func (j *jobTimer) Stop() bool {
	j.mu.Lock()
	if j.done {
		j.mu.Unlock()
		return false
	}
	j.done = true
	j.mu.Unlock()

	j.timers.mu.Lock()
	j.timers.scheduler.RemoveByReference(j.job)
	j.timers.mu.Unlock()
	return true
}
