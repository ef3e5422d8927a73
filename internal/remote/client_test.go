package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

func newTestClient(t *testing.T, handler http.Handler, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(srv.Client(), Options{
		BaseURL: srv.URL + "/api/v1/",
		Backoff: BackoffConfig{
			MaxRetries:      retries,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	})
}

func TestCurrentWeatherSendsLocationAndToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/weather/data/current/", r.URL.Path)
		assert.Equal(t, "Paris,FR", r.URL.Query().Get("location"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"location":          "Paris,FR",
			"temperature":       18.5,
			"humidity":          60,
			"weather_condition": "Clouds",
			"timestamp":         "2024-05-01T12:00:00Z",
		})
	})

	client := newTestClient(t, handler, 0)
	got, err := client.CurrentWeather(context.Background(), "Paris,FR", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "Paris,FR", got.Location)
	assert.InDelta(t, 18.5, got.Temperature, 0.001)
	assert.Equal(t, "Clouds", got.WeatherCondition)
}

func TestFetchDispatchesByKind(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/weather/forecast/forecast/":
			w.Write([]byte(`[{"forecast_date":"2024-05-01"},{"forecast_date":"2024-05-02"}]`))
		case "/api/v1/weather/alerts/active/":
			w.Write([]byte(`[{"id":"a1","severity":"extreme","title":"Flood"}]`))
		default:
			http.NotFound(w, r)
		}
	})

	client := newTestClient(t, handler, 0)

	forecast, err := client.Fetch(context.Background(), weather.KindForecast, "Tokyo", "t")
	require.NoError(t, err)
	days, ok := forecast.([]weather.ForecastDay)
	require.True(t, ok)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-05-01", days[0].ForecastDate)

	alerts, err := client.Fetch(context.Background(), weather.KindAlerts, "Tokyo", "t")
	require.NoError(t, err)
	list, ok := alerts.([]weather.Alert)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, weather.SeverityExtreme, list[0].Class())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"unknown location"}`))
	})

	client := newTestClient(t, handler, 3)
	_, err := client.CurrentWeather(context.Background(), "Atlantis", "t")

	var apiErr *weather.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "unknown location", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	})

	client := newTestClient(t, handler, 1)
	alerts, err := client.Alerts(context.Background(), "Oslo", "t")
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(&http.Client{Timeout: time.Second}, Options{
		BaseURL: url,
		Backoff: BackoffConfig{InitialInterval: time.Millisecond},
	})

	_, err := client.Forecast(context.Background(), "Oslo", "t")
	var netErr *weather.NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestEmptyLocationRejected(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler(), 0)
	_, err := client.CurrentWeather(context.Background(), "   ", "t")
	assert.True(t, errors.Is(err, weather.ErrEmptyLocation))
}

func TestLogin(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login/", r.URL.Path)

		var creds Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"non_field_errors":["Unable to log in with provided credentials."]}`))
			return
		}
		w.Write([]byte(`{"token":"abc123","user":{"pk":7,"username":"ada"}}`))
	})

	client := newTestClient(t, handler, 0)

	resp, err := client.Login(context.Background(), Credentials{Username: "ada", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", resp.AccessToken())
	assert.Equal(t, "ada", resp.User.Username)

	_, err = client.Login(context.Background(), Credentials{Username: "ada", Password: "wrong"})
	var authErr *weather.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "Unable to log in")
}

func TestRegister(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/registration/", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"detail":"Verification e-mail sent."}`))
	})

	client := newTestClient(t, handler, 0)
	err := client.Register(context.Background(), Registration{
		Username:  "ada",
		Email:     "ada@example.com",
		Password1: "correcthorse",
		Password2: "correcthorse",
	})
	require.NoError(t, err)
}

func TestAlertsOutageDoesNotOpenOtherCircuits(t *testing.T) {
	var currentCalls, loginCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/weather/alerts/active/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/api/v1/weather/data/current/", func(w http.ResponseWriter, r *http.Request) {
		currentCalls.Add(1)
		w.Write([]byte(`{"location":"Paris","temperature":20}`))
	})
	mux.HandleFunc("/api/v1/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		loginCalls.Add(1)
		w.Write([]byte(`{"key":"tok"}`))
	})
	client := newTestClient(t, mux, 0)
	ctx := context.Background()

	// gobreaker trips after more than five consecutive failures.
	for i := 0; i < 6; i++ {
		_, err := client.Alerts(ctx, "Paris", "tok")
		require.Error(t, err)
	}
	_, err := client.Alerts(ctx, "Paris", "tok")
	var netErr *weather.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	got, err := client.CurrentWeather(ctx, "Paris", "tok")
	require.NoError(t, err)
	assert.InDelta(t, 20, got.Temperature, 0.001)
	assert.Equal(t, int32(1), currentCalls.Load())

	_, err = client.Login(ctx, Credentials{Username: "ada", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), loginCalls.Load())
}

func TestLoginIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"key":"tok"}`))
	})

	client := newTestClient(t, handler, 3)
	_, err := client.Login(context.Background(), Credentials{Username: "ada", Password: "pw"})

	var apiErr *weather.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAllAlerts(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/weather/alerts/", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":"a1","location":"Oslo","severity":"moderate"},{"id":"a2","location":"Lima","severity":"extreme"}]`))
	})

	client := newTestClient(t, handler, 0)
	alerts, err := client.AllAlerts(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "Lima", alerts[1].Location)
	assert.Equal(t, weather.SeverityExtreme, alerts[1].Class())
}

func TestBackoffTotalDelay(t *testing.T) {
	b := BackoffConfig{MaxRetries: 4, InitialInterval: time.Second, MaxInterval: 5 * time.Second}
	// 1s + 2s + 4s + 5s (capped)
	assert.Equal(t, 12*time.Second, b.TotalDelay())

	b.MaxRetries = 0
	assert.Zero(t, b.TotalDelay())
}
