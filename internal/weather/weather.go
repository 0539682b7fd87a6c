// Package weather wraps the OpenWeather API for forecast lookups and
// reverse geocoding.
package weather

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/campo-inteligente/campobot/internal/models"
	"github.com/go-resty/resty/v2"
)

// Constants for the OpenWeather client configuration
const (
	// DefaultBaseURL is the OpenWeather API root.
	DefaultBaseURL = "https://api.openweathermap.org"
	// DefaultTimeout bounds each outbound request.
	DefaultTimeout = 10 * time.Second
	// ExtendedPeriods is the number of periods requested for the extended
	// forecast.
	ExtendedPeriods = 3
)

// Opts holds configuration options for the weather client.
type Opts struct {
	APIKey  string
	BaseURL string
	Units   string
	Lang    string
}

// Option defines a configuration option for the weather client.
type Option func(*Opts)

// WithAPIKey sets the OpenWeather API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the API root, used by tests.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// Client calls the OpenWeather current weather, forecast and reverse
// geocoding endpoints.
type Client struct {
	http   *resty.Client
	apiKey string
	units  string
	lang   string
}

// NewClient creates a weather client. The API key falls back to the
// OPENWEATHER_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{BaseURL: DefaultBaseURL, Units: "metric", Lang: "en"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENWEATHER_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENWEATHER_API_KEY not set")
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(DefaultTimeout)

	slog.Debug("Weather client created", "base_url", cfg.BaseURL, "units", cfg.Units)
	return &Client{http: http, apiKey: cfg.APIKey, units: cfg.Units, lang: cfg.Lang}, nil
}

// currentResponse mirrors the /data/2.5/weather payload fields we use.
type currentResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Current returns the current weather for a city.
func (c *Client) Current(ctx context.Context, city string) (models.Forecast, error) {
	var body currentResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     city,
			"appid": c.apiKey,
			"units": c.units,
			"lang":  c.lang,
		}).
		SetResult(&body).
		Get("/data/2.5/weather")
	if err != nil {
		slog.Error("Weather Current request failed", "error", err, "city", city)
		return models.Forecast{}, fmt.Errorf("weather request failed: %w", err)
	}
	if resp.IsError() {
		slog.Warn("Weather Current non-200", "status", resp.StatusCode(), "city", city)
		return models.Forecast{}, fmt.Errorf("no forecast found for %q", city)
	}

	forecast := models.Forecast{
		City:        city,
		Description: "unknown",
		Temperature: body.Main.Temp,
		FeelsLike:   body.Main.FeelsLike,
		Humidity:    body.Main.Humidity,
		WindSpeed:   body.Wind.Speed,
	}
	if body.Name != "" {
		forecast.City = body.Name
	}
	if len(body.Weather) > 0 {
		forecast.Description = body.Weather[0].Description
	}
	slog.Debug("Weather Current succeeded", "city", forecast.City, "temp", forecast.Temperature)
	return forecast, nil
}

// forecastResponse mirrors the /data/2.5/forecast payload fields we use.
type forecastResponse struct {
	List []struct {
		Dt      int64 `json:"dt"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			TempMin float64 `json:"temp_min"`
			TempMax float64 `json:"temp_max"`
		} `json:"main"`
	} `json:"list"`
}

// Extended returns the multi-period forecast for a city.
func (c *Client) Extended(ctx context.Context, city string) ([]models.ForecastDay, error) {
	var body forecastResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     city,
			"cnt":   fmt.Sprintf("%d", ExtendedPeriods),
			"appid": c.apiKey,
			"units": c.units,
			"lang":  c.lang,
		}).
		SetResult(&body).
		Get("/data/2.5/forecast")
	if err != nil {
		slog.Error("Weather Extended request failed", "error", err, "city", city)
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	if resp.IsError() {
		slog.Warn("Weather Extended non-200", "status", resp.StatusCode(), "city", city)
		return nil, fmt.Errorf("no forecast found for %q", city)
	}

	var days []models.ForecastDay
	for _, period := range body.List {
		day := models.ForecastDay{
			Date:        time.Unix(period.Dt, 0).UTC().Format("02/01/2006"),
			Description: "unknown",
			Min:         period.Main.TempMin,
			Max:         period.Main.TempMax,
		}
		if len(period.Weather) > 0 {
			day.Description = period.Weather[0].Description
		}
		days = append(days, day)
	}
	slog.Debug("Weather Extended succeeded", "city", city, "periods", len(days))
	return days, nil
}

// geocodeResponse mirrors the /geo/1.0/reverse payload fields we use.
type geocodeResponse []struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// ReverseGeocode resolves coordinates to a place.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (models.Place, error) {
	var body geocodeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   fmt.Sprintf("%f", lat),
			"lon":   fmt.Sprintf("%f", lon),
			"limit": "1",
			"appid": c.apiKey,
		}).
		SetResult(&body).
		Get("/geo/1.0/reverse")
	if err != nil {
		slog.Error("Weather ReverseGeocode request failed", "error", err, "lat", lat, "lon", lon)
		return models.Place{}, fmt.Errorf("reverse geocode request failed: %w", err)
	}
	if resp.IsError() || len(body) == 0 {
		slog.Warn("Weather ReverseGeocode empty result", "status", resp.StatusCode(), "lat", lat, "lon", lon)
		return models.Place{}, fmt.Errorf("could not resolve location %.4f,%.4f", lat, lon)
	}

	place := models.Place{City: body[0].Name, Region: body[0].State, Country: body[0].Country}
	slog.Debug("Weather ReverseGeocode succeeded", "city", place.City, "region", place.Region)
	return place, nil
}
