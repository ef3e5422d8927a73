package weather

import (
	"context"
	"fmt"
	"time"
)

// ResourceKind identifies one of the independently fetched and cached
// categories of weather data.
type ResourceKind string

const (
	KindCurrentWeather ResourceKind = "current"
	KindForecast       ResourceKind = "forecast"
	KindAlerts         ResourceKind = "alerts"
)

// Kinds lists every resource kind in display order.
var Kinds = []ResourceKind{KindCurrentWeather, KindForecast, KindAlerts}

// RefreshInterval is the fixed automatic refetch period for a kind.
func (k ResourceKind) RefreshInterval() time.Duration {
	switch k {
	case KindForecast:
		return 30 * time.Minute
	default:
		return 5 * time.Minute
	}
}

// Valid reports whether k is a known resource kind.
func (k ResourceKind) Valid() bool {
	switch k {
	case KindCurrentWeather, KindForecast, KindAlerts:
		return true
	}
	return false
}

// ParseKind converts a path segment into a ResourceKind.
func ParseKind(s string) (ResourceKind, error) {
	k := ResourceKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown resource kind %q", s)
	}
	return k, nil
}

// Fetcher performs a one-shot request for a resource. The returned payload is
// CurrentWeather, []ForecastDay or []Alert depending on kind.
//
// The token is passed explicitly on every call; implementations must not cache it.
type Fetcher interface {
	Fetch(ctx context.Context, kind ResourceKind, location, token string) (any, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, kind ResourceKind, location, token string) (any, error)

func (f FetcherFunc) Fetch(ctx context.Context, kind ResourceKind, location, token string) (any, error) {
	return f(ctx, kind, location, token)
}
