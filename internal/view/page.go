package view

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-dashboard/internal/cache"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// MaxForecastDays is how many forecast days are rendered.
const MaxForecastDays = 5

// ErrNoLocation is returned when an action needs a location and none is set.
var ErrNoLocation = errors.New("no location selected")

var validate = validator.New()

// Subscriber opens cache subscriptions. *cache.Cache satisfies it.
type Subscriber interface {
	Subscribe(key cache.Key) (*cache.Subscription, error)
}

// Page is the weather page: one user-entered location and a subscription
// per resource kind for it. Changing the location releases the previous
// location's subscriptions.
type Page struct {
	mu       sync.Mutex
	cache    Subscriber
	location string
	subs     map[weather.ResourceKind]*cache.Subscription
}

// NewPage creates a Page with no location.
func NewPage(c Subscriber) *Page {
	return &Page{cache: c}
}

// SetLocation trims and validates input and switches the page to it.
// Submitting the current location again is a no-op.
func (p *Page) SetLocation(input string) error {
	location := strings.TrimSpace(input)
	if err := validate.Var(location, "required,max=100"); err != nil {
		if location == "" {
			return weather.ErrEmptyLocation
		}
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if location == p.location && p.subs != nil {
		return nil
	}

	subs := make(map[weather.ResourceKind]*cache.Subscription, len(weather.Kinds))
	for _, kind := range weather.Kinds {
		sub, err := p.cache.Subscribe(cache.Key{Kind: kind, Location: location})
		if err != nil {
			for _, s := range subs {
				s.Close()
			}
			return err
		}
		subs[kind] = sub
	}

	p.closeLocked()
	p.location = location
	p.subs = subs
	return nil
}

// Location returns the current location, or "" if none is set.
func (p *Page) Location() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location
}

// Refresh forces a refetch of one resource for the current location.
func (p *Page) Refresh(kind weather.ResourceKind) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub, ok := p.subs[kind]
	if !ok {
		return ErrNoLocation
	}
	sub.Refresh()
	return nil
}

// Clear drops the location and all subscriptions.
func (p *Page) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	p.location = ""
}

func (p *Page) closeLocked() {
	for _, sub := range p.subs {
		sub.Close()
	}
	p.subs = nil
}

// Section is the render state shared by every resource section.
type Section struct {
	Status     cache.Status `json:"status"`
	Loading    bool         `json:"loading"`
	Refreshing bool         `json:"refreshing"`
	Error      string       `json:"error,omitempty"`
	FetchedAt  *time.Time   `json:"fetched_at,omitempty"`
}

// CurrentSection renders current conditions.
type CurrentSection struct {
	Section
	Weather *weather.CurrentWeather `json:"weather,omitempty"`
}

// ForecastSection renders the first MaxForecastDays days, oldest first.
type ForecastSection struct {
	Section
	Days []weather.ForecastDay `json:"days,omitempty"`
}

// AlertView is an alert with its display class.
type AlertView struct {
	weather.Alert
	SeverityClass weather.SeverityClass `json:"severity_class"`
}

// AlertsSection renders the active alerts.
type AlertsSection struct {
	Section
	Alerts []AlertView `json:"alerts"`
}

// PageView is a snapshot of everything the page shows.
type PageView struct {
	Location string           `json:"location"`
	Message  string           `json:"message,omitempty"`
	Current  *CurrentSection  `json:"current,omitempty"`
	Forecast *ForecastSection `json:"forecast,omitempty"`
	Alerts   *AlertsSection   `json:"alerts,omitempty"`
}

// Render snapshots each section independently.
func (p *Page) Render() PageView {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.subs == nil {
		return PageView{Message: "Enter a location above to view weather information"}
	}

	v := PageView{Location: p.location}

	e := p.subs[weather.KindCurrentWeather].Entry()
	v.Current = &CurrentSection{Section: section(e)}
	if cw, ok := e.Data.(weather.CurrentWeather); ok {
		v.Current.Weather = &cw
	}

	e = p.subs[weather.KindForecast].Entry()
	v.Forecast = &ForecastSection{Section: section(e)}
	if days, ok := e.Data.([]weather.ForecastDay); ok {
		if len(days) > MaxForecastDays {
			days = days[:MaxForecastDays]
		}
		v.Forecast.Days = days
	}

	e = p.subs[weather.KindAlerts].Entry()
	v.Alerts = &AlertsSection{Section: section(e), Alerts: []AlertView{}}
	if alerts, ok := e.Data.([]weather.Alert); ok {
		for _, a := range alerts {
			v.Alerts.Alerts = append(v.Alerts.Alerts, AlertView{Alert: a, SeverityClass: a.Class()})
		}
	}

	return v
}

func section(e cache.Entry) Section {
	s := Section{
		Status:     e.Status,
		Loading:    e.Status == cache.StatusLoading || e.Status == cache.StatusIdle,
		Refreshing: e.Fetching && e.HasData(),
		Error:      weather.Describe(e.Err),
	}
	if !e.FetchedAt.IsZero() {
		t := e.FetchedAt
		s.FetchedAt = &t
	}
	return s
}
