package cache

import (
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Status is the lifecycle state of a cache entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Key identifies a cache entry. Locations are compared by exact value.
type Key struct {
	Kind     weather.ResourceKind
	Location string
}

// String returns a canonical string key, used for logging.
func (k Key) String() string {
	return string(k.Kind) + ":" + k.Location
}

// Entry is a point-in-time copy of a cache entry's state.
//
// Status is Loading only while the first fetch for a key runs without data.
// A background refresh of existing data keeps the previous Status and sets
// Fetching instead. On Error, Data still holds the last successful payload
// if there was one.
type Entry struct {
	Key             Key
	Status          Status
	Data            any
	Err             error
	FetchedAt       time.Time // last successful fetch
	UpdatedAt       time.Time // last completed fetch, successful or not
	RefreshInterval time.Duration
	Fetching        bool
}

// HasData reports whether a payload is available to render.
func (e Entry) HasData() bool {
	return e.Data != nil
}

// Fresh reports whether the last successful fetch is younger than the refresh interval.
func (e Entry) Fresh(now time.Time) bool {
	if e.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(e.FetchedAt) < e.RefreshInterval
}
