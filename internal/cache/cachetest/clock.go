// Package cachetest provides a manually advanced clock for exercising
// refresh schedules without waiting on real time.
package cachetest

import (
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/cache"
)

// Clock is a fake cache.Clock. Scheduled functions run synchronously inside
// Advance, in due order.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	tasks  map[int]*task
}

type task struct {
	id  int
	at  time.Time
	fn  func()
	clk *Clock
}

// NewClock returns a Clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start, tasks: make(map[int]*task)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) AfterFunc(d time.Duration, f func()) cache.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	t := &task{id: c.nextID, at: c.now.Add(d), fn: f, clk: c}
	c.tasks[t.id] = t
	return t
}

func (t *task) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()

	if _, ok := t.clk.tasks[t.id]; !ok {
		return false
	}
	delete(t.clk.tasks, t.id)
	return true
}

// Pending returns the number of scheduled tasks that have not run.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

// Advance moves the clock forward by d and runs every task that became due.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*task
	for id, t := range c.tasks {
		if !t.at.After(c.now) {
			due = append(due, t)
			delete(c.tasks, id)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})
	for _, t := range due {
		t.fn()
	}
}
