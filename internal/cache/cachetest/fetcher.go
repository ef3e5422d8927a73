package cachetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/i474232898/weather-dashboard/internal/cache"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Result is a canned fetch outcome.
type Result struct {
	Data any
	Err  error
}

// Fetcher is a weather.Fetcher that counts calls per key and returns canned
// results. Unconfigured keys succeed with a string payload naming the call.
type Fetcher struct {
	mu      sync.Mutex
	calls   map[cache.Key]int
	active  map[cache.Key]int
	peak    map[cache.Key]int
	tokens  []string
	results map[cache.Key]Result
	hold    chan struct{}
}

// NewFetcher returns a Fetcher with no canned results.
func NewFetcher() *Fetcher {
	return &Fetcher{
		calls:   make(map[cache.Key]int),
		active:  make(map[cache.Key]int),
		peak:    make(map[cache.Key]int),
		results: make(map[cache.Key]Result),
	}
}

// Set configures the result returned for key from now on.
func (f *Fetcher) Set(key cache.Key, data any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[key] = Result{Data: data, Err: err}
}

// Block makes subsequent fetches wait until Release.
func (f *Fetcher) Block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hold == nil {
		f.hold = make(chan struct{})
	}
}

// Release unblocks every waiting fetch.
func (f *Fetcher) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hold != nil {
		close(f.hold)
		f.hold = nil
	}
}

// Calls returns how many fetches were started for key.
func (f *Fetcher) Calls(key cache.Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

// Total returns the number of fetches started for all keys.
func (f *Fetcher) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// MaxConcurrent returns the highest number of fetches for key that were
// running at the same time.
func (f *Fetcher) MaxConcurrent(key cache.Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak[key]
}

// Tokens returns the tokens passed to each fetch in call order.
func (f *Fetcher) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func (f *Fetcher) Fetch(ctx context.Context, kind weather.ResourceKind, location, token string) (any, error) {
	key := cache.Key{Kind: kind, Location: location}

	f.mu.Lock()
	f.calls[key]++
	n := f.calls[key]
	f.tokens = append(f.tokens, token)
	f.active[key]++
	if f.active[key] > f.peak[key] {
		f.peak[key] = f.active[key]
	}
	hold := f.hold
	res, ok := f.results[key]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active[key]--
		f.mu.Unlock()
	}()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, &weather.NetworkError{Op: "fetch " + string(kind), Err: ctx.Err()}
		}
	}

	if !ok {
		return fmt.Sprintf("%s#%d", key, n), nil
	}
	return res.Data, res.Err
}

// StaticToken is a cache.TokenSource with a fixed token.
type StaticToken string

func (t StaticToken) Token() string {
	return string(t)
}
