package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// ErrClosed is returned by Subscribe after the cache has been closed.
var ErrClosed = errors.New("cache: closed")

// TokenSource supplies the session token. It is read at the start of every fetch.
type TokenSource interface {
	Token() string
}

// Options configures a Cache.
type Options struct {
	// Clock defaults to SystemClock.
	Clock Clock

	// FetchTimeout bounds a single fetch. Zero leaves the bound to the fetcher.
	FetchTimeout time.Duration
}

// Cache keeps one entry per (resource kind, location) for as long as at least
// one Subscription for that key is open. Each entry fetches on first
// subscription, refetches when its refresh interval elapses, and coalesces
// concurrent triggers into a single in-flight fetch.
//
// All entry state is mutated under mu; fetches run on their own goroutines
// and report back through complete.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	nextSub uint64

	// orphans holds evicted entries whose fetch has not returned yet. A new
	// entry for the same key waits for it before starting its own fetch.
	orphans map[Key]*entry
	closed  bool

	fetcher      weather.Fetcher
	tokens       TokenSource
	clock        Clock
	fetchTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type entry struct {
	state Entry
	subs  map[uint64]*Subscription

	// seq is the generation of the most recently started fetch; completions
	// carrying an older generation are discarded.
	seq      uint64
	inflight bool
	cancel   context.CancelFunc

	// deferred marks an entry whose first fetch waits on an orphaned fetch
	// for the same key.
	deferred bool

	timer    Timer
	timerSeq uint64
}

// New creates a Cache.
func New(fetcher weather.Fetcher, tokens TokenSource, opts Options) *Cache {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		entries:      make(map[Key]*entry),
		orphans:      make(map[Key]*entry),
		fetcher:      fetcher,
		tokens:       tokens,
		clock:        clock,
		fetchTimeout: opts.FetchTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Subscribe registers interest in key and returns a live handle on its entry.
// A new entry fetches immediately; an existing stale entry fetches unless a
// fetch is already in flight; a fresh entry is served as is.
func (c *Cache) Subscribe(key Key) (*Subscription, error) {
	if !key.Kind.Valid() {
		return nil, fmt.Errorf("cache: unknown resource kind %q", key.Kind)
	}
	if strings.TrimSpace(key.Location) == "" {
		return nil, weather.ErrEmptyLocation
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	e, ok := c.entries[key]
	if !ok {
		e = &entry{
			state: Entry{
				Key:             key,
				Status:          StatusIdle,
				RefreshInterval: key.Kind.RefreshInterval(),
			},
			subs: make(map[uint64]*Subscription),
		}
		c.entries[key] = e
		log.Printf("DEBUG: cache: created entry %s", key)
	}

	c.nextSub++
	sub := &Subscription{
		cache:   c,
		key:     key,
		id:      c.nextSub,
		updates: make(chan Entry, 1),
	}
	e.subs[sub.id] = sub
	sub.publishLocked(e.state)

	if !e.inflight && !e.state.Fresh(c.clock.Now()) {
		c.startFetchLocked(e)
	}
	return sub, nil
}

// Peek returns the current state of key without subscribing.
func (c *Cache) Peek(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.state, true
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close cancels every scheduled refresh and in-flight fetch, closes all
// subscriptions and waits for fetch goroutines to return.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for key, e := range c.entries {
		c.stopTimerLocked(e)
		for _, sub := range e.subs {
			sub.closeLocked()
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// startFetchLocked begins a fetch for e. The caller holds c.mu and has
// checked that no fetch is in flight for e.
func (c *Cache) startFetchLocked(e *entry) {
	e.inflight = true
	e.state.Fetching = true
	if !e.state.HasData() {
		e.state.Status = StatusLoading
	}

	key := e.state.Key
	if _, ok := c.orphans[key]; ok {
		e.deferred = true
		c.notifyLocked(e)
		log.Printf("DEBUG: cache: fetch for %s waits on a fetch of an evicted entry", key)
		return
	}

	e.seq++
	seq := e.seq
	ctx, cancel := context.WithCancel(c.ctx)
	e.cancel = cancel
	c.notifyLocked(e)

	token := c.tokens.Token()
	log.Printf("DEBUG: cache: fetch #%d started for %s", seq, key)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		data, err := c.fetch(ctx, key, token)
		c.complete(e, seq, data, err)
	}()
}

func (c *Cache) fetch(ctx context.Context, key Key, token string) (data any, err error) {
	if token == "" {
		return nil, weather.ErrUnauthenticated
	}

	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("fetch %s panicked: %v", key, r)
		}
	}()

	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}
	return c.fetcher.Fetch(ctx, key.Kind, key.Location, token)
}

// complete applies the result of fetch generation seq to e and schedules
// the next refresh.
func (c *Cache) complete(e *entry, seq uint64, data any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := e.state.Key
	if c.orphans[key] == e {
		delete(c.orphans, key)
		log.Printf("DEBUG: cache: discarding fetch #%d for disposed entry %s", seq, key)
		if next, ok := c.entries[key]; ok && next.deferred && !c.closed {
			next.deferred = false
			c.startFetchLocked(next)
		}
		return
	}
	if c.closed || c.entries[key] != e {
		log.Printf("DEBUG: cache: discarding fetch #%d for disposed entry %s", seq, key)
		return
	}
	if seq != e.seq {
		log.Printf("DEBUG: cache: discarding superseded fetch #%d for %s (current #%d)", seq, key, e.seq)
		return
	}

	now := c.clock.Now()
	e.inflight = false
	e.cancel = nil
	e.state.Fetching = false
	e.state.UpdatedAt = now
	if err != nil {
		// Keep the last good data alongside the error.
		e.state.Status = StatusError
		e.state.Err = err
		log.Printf("ERROR: cache: fetch #%d failed for %s: %v", seq, key, err)
	} else {
		e.state.Status = StatusSuccess
		e.state.Data = data
		e.state.Err = nil
		e.state.FetchedAt = now
	}

	c.scheduleLocked(e)
	c.notifyLocked(e)
}

func (c *Cache) scheduleLocked(e *entry) {
	c.stopTimerLocked(e)
	if len(e.subs) == 0 {
		return
	}

	e.timerSeq++
	ts := e.timerSeq
	e.timer = c.clock.AfterFunc(e.state.RefreshInterval, func() {
		c.onTimer(e, ts)
	})
}

func (c *Cache) stopTimerLocked(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.timerSeq++
}

func (c *Cache) onTimer(e *entry, ts uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.entries[e.state.Key] != e || ts != e.timerSeq {
		return
	}
	e.timer = nil
	if len(e.subs) == 0 || e.inflight {
		return
	}
	c.startFetchLocked(e)
}

func (c *Cache) refresh(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sub.closed {
		return
	}
	e, ok := c.entries[sub.key]
	if !ok || e.inflight {
		return
	}
	c.startFetchLocked(e)
}

func (c *Cache) unsubscribe(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closeLocked()

	e, ok := c.entries[sub.key]
	if !ok {
		return
	}
	delete(e.subs, sub.id)
	if len(e.subs) > 0 {
		return
	}

	c.stopTimerLocked(e)
	delete(c.entries, sub.key)
	if e.inflight && !e.deferred {
		e.cancel()
		c.orphans[sub.key] = e
	}
	log.Printf("DEBUG: cache: evicted entry %s", sub.key)
}

func (c *Cache) entryState(sub *Subscription) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[sub.key]; ok && !sub.closed {
		return e.state
	}
	return sub.last
}

func (c *Cache) notifyLocked(e *entry) {
	for _, sub := range e.subs {
		sub.publishLocked(e.state)
	}
}
