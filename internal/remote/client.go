package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "http://localhost:8000/api/v1".
	BaseURL string
	Backoff BackoffConfig
}

// Client talks to the auth API and the weather resource endpoints.
// It holds no session state; every weather call takes the token explicitly.
//
// Each resource kind has its own circuit breaker, and auth calls have another,
// so an outage of one endpoint never opens the circuit for the others.
type Client struct {
	baseURL  string
	httpCfg  HTTPClientConfig
	circuits map[weather.ResourceKind]*gobreaker.CircuitBreaker
	auth     *gobreaker.CircuitBreaker
}

// NewClient creates a Client sharing the given HTTP client.
func NewClient(client *http.Client, opts Options) *Client {
	backoff := opts.Backoff
	if backoff.InitialInterval <= 0 {
		backoff.InitialInterval = 500 * time.Millisecond
	}
	if backoff.MaxInterval <= 0 {
		backoff.MaxInterval = 5 * time.Second
	}

	circuits := make(map[weather.ResourceKind]*gobreaker.CircuitBreaker, len(weather.Kinds)+1)
	for _, kind := range weather.Kinds {
		circuits[kind] = newCircuitBreaker("weather-" + string(kind))
	}
	// The all-alerts listing fails independently of per-location alerts.
	circuits[kindAllAlerts] = newCircuitBreaker("weather-alerts-all")

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: backoff,
		},
		circuits: circuits,
		auth:     newCircuitBreaker("auth"),
	}
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("INFO: remote: circuit %s changed from %s to %s", name, from, to)
		},
	})
}

// kindAllAlerts keys the breaker for the unfiltered alerts listing.
const kindAllAlerts weather.ResourceKind = "alerts-all"

var resourcePaths = map[weather.ResourceKind]string{
	weather.KindCurrentWeather: "/weather/data/current/",
	weather.KindForecast:       "/weather/forecast/forecast/",
	weather.KindAlerts:         "/weather/alerts/active/",
	kindAllAlerts:              "/weather/alerts/",
}

// CurrentWeather fetches current conditions for location.
func (c *Client) CurrentWeather(ctx context.Context, location, token string) (weather.CurrentWeather, error) {
	var out weather.CurrentWeather
	err := c.getResource(ctx, weather.KindCurrentWeather, location, token, &out)
	return out, err
}

// Forecast fetches the multi-day forecast for location, oldest day first.
func (c *Client) Forecast(ctx context.Context, location, token string) ([]weather.ForecastDay, error) {
	var out []weather.ForecastDay
	err := c.getResource(ctx, weather.KindForecast, location, token, &out)
	return out, err
}

// Alerts fetches the active alerts for location.
func (c *Client) Alerts(ctx context.Context, location, token string) ([]weather.Alert, error) {
	var out []weather.Alert
	err := c.getResource(ctx, weather.KindAlerts, location, token, &out)
	return out, err
}

// AllAlerts fetches every alert the backend knows of, for all locations.
func (c *Client) AllAlerts(ctx context.Context, token string) ([]weather.Alert, error) {
	var out []weather.Alert
	err := c.get(ctx, kindAllAlerts, url.Values{}, token, &out)
	return out, err
}

// Fetch implements weather.Fetcher.
func (c *Client) Fetch(ctx context.Context, kind weather.ResourceKind, location, token string) (any, error) {
	switch kind {
	case weather.KindCurrentWeather:
		return c.CurrentWeather(ctx, location, token)
	case weather.KindForecast:
		return c.Forecast(ctx, location, token)
	case weather.KindAlerts:
		return c.Alerts(ctx, location, token)
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
}

func (c *Client) getResource(ctx context.Context, kind weather.ResourceKind, location, token string, out any) error {
	if strings.TrimSpace(location) == "" {
		return weather.ErrEmptyLocation
	}

	values := url.Values{}
	values.Set("location", location)
	return c.get(ctx, kind, values, token, out)
}

func (c *Client) get(ctx context.Context, kind weather.ResourceKind, query url.Values, token string, out any) error {
	op := "fetch " + string(kind)
	buildRequest := func() (*http.Request, error) {
		u := c.baseURL + resourcePaths[kind]
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Request-ID", uuid.NewString())
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, op, c.httpCfg, c.circuits[kind], buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// postJSON sends body as JSON to path and decodes a 2xx response into out (if non-nil).
// Auth calls are never retried; a failure is returned to the caller at once.
func (c *Client) postJSON(ctx context.Context, op, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", uuid.NewString())
		return req, nil
	}

	cfg := c.httpCfg
	cfg.Backoff.MaxRetries = 0

	resp, err := doRequestWithResilience(ctx, op, cfg, c.auth, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
