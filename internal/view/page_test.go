package view

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/cache"
	"github.com/i474232898/weather-dashboard/internal/cache/cachetest"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

func newTestPage(t *testing.T) (*Page, *cache.Cache, *cachetest.Fetcher) {
	t.Helper()
	fetcher := cachetest.NewFetcher()
	c := cache.New(fetcher, cachetest.StaticToken("tok"), cache.Options{
		Clock: cachetest.NewClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
	})
	t.Cleanup(func() {
		fetcher.Release()
		c.Close()
	})
	return NewPage(c), c, fetcher
}

func seed(fetcher *cachetest.Fetcher, location string, days int) {
	fetcher.Set(cache.Key{Kind: weather.KindCurrentWeather, Location: location},
		weather.CurrentWeather{Location: location, Temperature: 21}, nil)

	var forecast []weather.ForecastDay
	for i := 0; i < days; i++ {
		forecast = append(forecast, weather.ForecastDay{ForecastDate: fmt.Sprintf("2024-05-%02d", i+1)})
	}
	fetcher.Set(cache.Key{Kind: weather.KindForecast, Location: location}, forecast, nil)

	fetcher.Set(cache.Key{Kind: weather.KindAlerts, Location: location}, []weather.Alert{
		{ID: "1", Severity: "Extreme"},
		{ID: "2", Severity: "high"},
		{ID: "3", Severity: "minor"},
	}, nil)
}

func waitRendered(t *testing.T, p *Page) PageView {
	t.Helper()
	require.Eventually(t, func() bool {
		v := p.Render()
		return v.Current != nil &&
			v.Current.Status != cache.StatusLoading &&
			v.Forecast.Status != cache.StatusLoading &&
			v.Alerts.Status != cache.StatusLoading &&
			!v.Current.Refreshing && !v.Forecast.Refreshing && !v.Alerts.Refreshing
	}, time.Second, time.Millisecond)
	return p.Render()
}

func TestRenderWithoutLocation(t *testing.T) {
	p, _, _ := newTestPage(t)
	v := p.Render()
	assert.Empty(t, v.Location)
	assert.NotEmpty(t, v.Message)
	assert.Nil(t, v.Current)
}

func TestSetLocationRejectsBlankInput(t *testing.T) {
	p, c, fetcher := newTestPage(t)

	assert.ErrorIs(t, p.SetLocation("   "), weather.ErrEmptyLocation)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, fetcher.Total())
}

func TestRenderSections(t *testing.T) {
	p, _, fetcher := newTestPage(t)
	seed(fetcher, "Paris,FR", 7)

	require.NoError(t, p.SetLocation("  Paris,FR "))
	assert.Equal(t, "Paris,FR", p.Location())

	v := waitRendered(t, p)
	require.NotNil(t, v.Current.Weather)
	assert.InDelta(t, 21, v.Current.Weather.Temperature, 0.001)
	assert.False(t, v.Current.Loading)
	assert.NotNil(t, v.Current.FetchedAt)

	require.Len(t, v.Forecast.Days, MaxForecastDays)
	assert.Equal(t, "2024-05-01", v.Forecast.Days[0].ForecastDate)

	require.Len(t, v.Alerts.Alerts, 3)
	assert.Equal(t, weather.SeverityExtreme, v.Alerts.Alerts[0].SeverityClass)
	assert.Equal(t, weather.SeveritySevere, v.Alerts.Alerts[1].SeverityClass)
	assert.Equal(t, weather.SeverityOther, v.Alerts.Alerts[2].SeverityClass)
}

func TestSectionErrorsAreIndependent(t *testing.T) {
	p, _, fetcher := newTestPage(t)
	seed(fetcher, "X", 3)
	fetcher.Set(cache.Key{Kind: weather.KindAlerts, Location: "X"}, nil, &weather.APIError{StatusCode: http.StatusNotFound})

	require.NoError(t, p.SetLocation("X"))
	v := waitRendered(t, p)

	assert.Empty(t, v.Current.Error)
	assert.Empty(t, v.Forecast.Error)
	assert.Equal(t, cache.StatusError, v.Alerts.Status)
	assert.Equal(t, "Location not found", v.Alerts.Error)
	assert.Empty(t, v.Alerts.Alerts)
}

func TestStaleDataShownWithError(t *testing.T) {
	p, _, fetcher := newTestPage(t)
	seed(fetcher, "X", 3)
	require.NoError(t, p.SetLocation("X"))
	waitRendered(t, p)

	fetcher.Set(cache.Key{Kind: weather.KindCurrentWeather, Location: "X"}, nil, &weather.APIError{StatusCode: http.StatusNotFound})
	require.NoError(t, p.Refresh(weather.KindCurrentWeather))

	require.Eventually(t, func() bool {
		return p.Render().Current.Status == cache.StatusError
	}, time.Second, time.Millisecond)

	v := p.Render()
	require.NotNil(t, v.Current.Weather)
	assert.InDelta(t, 21, v.Current.Weather.Temperature, 0.001)
	assert.NotEmpty(t, v.Current.Error)
}

func TestChangingLocationReleasesPrevious(t *testing.T) {
	p, c, fetcher := newTestPage(t)
	seed(fetcher, "Paris", 3)
	seed(fetcher, "Rome", 3)

	require.NoError(t, p.SetLocation("Paris"))
	waitRendered(t, p)
	assert.Equal(t, 3, c.Len())

	require.NoError(t, p.SetLocation("Paris"))
	assert.Equal(t, 3, fetcher.Total())

	require.NoError(t, p.SetLocation("Rome"))
	assert.Equal(t, 3, c.Len())
	_, ok := c.Peek(cache.Key{Kind: weather.KindCurrentWeather, Location: "Paris"})
	assert.False(t, ok)

	v := waitRendered(t, p)
	assert.Equal(t, "Rome", v.Location)
	assert.Equal(t, "Rome", v.Current.Weather.Location)

	p.Clear()
	assert.Equal(t, 0, c.Len())
	assert.ErrorIs(t, p.Refresh(weather.KindAlerts), ErrNoLocation)
}
