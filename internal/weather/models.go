package weather

import (
	"strings"
	"time"
)

// CurrentWeather is the latest observation for a location as returned by the
// remote API's current-conditions endpoint.
type CurrentWeather struct {
	ID               int64     `json:"id"`
	Location         string    `json:"location"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Temperature      float64   `json:"temperature"` // °C
	Humidity         float64   `json:"humidity"`    // %
	WindSpeed        float64   `json:"wind_speed"`  // m/s
	WindDirection    string    `json:"wind_direction"`
	Precipitation    float64   `json:"precipitation"` // mm
	Pressure         float64   `json:"pressure"`      // hPa
	WeatherCondition string    `json:"weather_condition"`
	WeatherIcon      string    `json:"weather_icon"`
	Timestamp        time.Time `json:"timestamp"`
	CreatedAt        time.Time `json:"created_at"`
}

// ForecastDay is a single day of a multi-day forecast.
// Forecasts are ordered by ForecastDate ascending (oldest first).
type ForecastDay struct {
	ID                       int64     `json:"id"`
	Location                 string    `json:"location"`
	Latitude                 float64   `json:"latitude"`
	Longitude                float64   `json:"longitude"`
	ForecastDate             string    `json:"forecast_date"` // YYYY-MM-DD
	MinTemperature           float64   `json:"min_temperature"`
	MaxTemperature           float64   `json:"max_temperature"`
	Humidity                 float64   `json:"humidity"`
	WindSpeed                float64   `json:"wind_speed"`
	PrecipitationProbability float64   `json:"precipitation_probability"`
	WeatherCondition         string    `json:"weather_condition"`
	WeatherIcon              string    `json:"weather_icon"`
	CreatedAt                time.Time `json:"created_at"`
}

// Alert is an active weather alert. Alerts have no meaningful order.
type Alert struct {
	ID          string    `json:"id"`
	Location    string    `json:"location"`
	AlertType   string    `json:"alert_type"`
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	ValidUntil  string    `json:"valid_until"`
	Source      string    `json:"source"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// SeverityClass is the display classification of an alert.
type SeverityClass string

const (
	SeverityExtreme  SeverityClass = "extreme"
	SeveritySevere   SeverityClass = "severe"
	SeverityModerate SeverityClass = "moderate"
	SeverityOther    SeverityClass = "other"
)

// Class maps the free-form severity reported by the API onto a display class.
// The backend reports "high" for what clients show as severe.
func (a Alert) Class() SeverityClass {
	switch strings.ToLower(strings.TrimSpace(a.Severity)) {
	case "extreme":
		return SeverityExtreme
	case "severe", "high":
		return SeveritySevere
	case "moderate":
		return SeverityModerate
	default:
		return SeverityOther
	}
}
