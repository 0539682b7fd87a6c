package flow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/campo-inteligente/campobot/internal/models"
)

const weatherOptionsText = "Send 2 for the extended forecast, another city name for a new lookup, " +
	"\"daily\" to receive a daily bulletin, or \"back\" to return."

const upstreamApology = "😕 Sorry, I could not reach the weather service right now. Please try again in a moment."

// startWeather enters the weather flow. When a city is already on file the
// forecast is returned immediately; otherwise the city is asked first.
func (e *Engine) startWeather(ctx context.Context, sessionCtx *models.Context) []string {
	if city := sessionCtx.Profile.City; city != "" {
		sessionCtx.Flow = models.ActiveFlow{Type: models.FlowWeather, Weather: &models.WeatherState{City: city}}
		return e.weatherLookup(ctx, sessionCtx, city)
	}
	sessionCtx.Flow = models.ActiveFlow{Type: models.FlowWeather, Weather: &models.WeatherState{AwaitingCity: true}}
	return []string{"🌦️ Which city do you want the forecast for? You can also share your location."}
}

// startSetLocation enters the location capture mode (main menu option 8).
func (e *Engine) startSetLocation(sessionCtx *models.Context) []string {
	sessionCtx.Flow = models.ActiveFlow{
		Type:    models.FlowWeather,
		Weather: &models.WeatherState{AwaitingCity: true, SetOnly: true},
	}
	return []string{"📍 Type the name of your city, or share your location."}
}

// handleWeather consumes one message while the weather flow is active.
func (e *Engine) handleWeather(ctx context.Context, sessionCtx *models.Context, text string) []string {
	st := sessionCtx.Flow.Weather
	if isBack(text) {
		sessionCtx.ResetFlows()
		return []string{renderMainMenu()}
	}

	if st.AwaitingCity {
		city, err := validateNonEmpty(text)
		if err != nil {
			return []string{"⚠️ " + err.Error() + "\nWhich city?"}
		}
		if st.SetOnly {
			sessionCtx.Profile.City = city
			sessionCtx.ResetFlows()
			return []string{"📍 Location saved: " + city + ".\n\n" + renderMainMenu()}
		}
		return e.weatherLookup(ctx, sessionCtx, city)
	}

	v := strings.ToLower(strings.TrimSpace(text))
	switch {
	case v == "2" || v == "extended":
		days, err := e.weather.Extended(ctx, st.City)
		if err != nil {
			slog.Error("Engine extended forecast failed", "error", err, "city", st.City)
			return []string{upstreamApology}
		}
		return []string{formatExtendedForecast(st.City, days) + "\n\n" + weatherOptionsText}
	case v == "daily":
		sessionCtx.DailyForecast = true
		sessionCtx.BulletinCity = st.City
		return []string{"🔔 Done! You will receive a daily weather bulletin for " + st.City +
			". Send \"stop daily\" to cancel."}
	case v == "stop daily" || v == "stop":
		sessionCtx.DailyForecast = false
		sessionCtx.BulletinCity = ""
		return []string{"🔕 Daily bulletin cancelled."}
	case v == "1":
		return e.weatherLookup(ctx, sessionCtx, st.City)
	}

	// Any other text is treated as a new city lookup.
	return e.weatherLookup(ctx, sessionCtx, strings.TrimSpace(text))
}

// weatherLookup fetches and renders the current forecast. On upstream
// failure the state is left unchanged so the user can retry.
func (e *Engine) weatherLookup(ctx context.Context, sessionCtx *models.Context, city string) []string {
	forecast, err := e.weather.Current(ctx, city)
	if err != nil {
		slog.Error("Engine weather lookup failed", "error", err, "city", city)
		return []string{upstreamApology}
	}
	st := sessionCtx.Flow.Weather
	st.AwaitingCity = false
	st.City = forecast.City
	if sessionCtx.Profile.City == "" {
		sessionCtx.Profile.City = forecast.City
	}
	return []string{FormatForecast(forecast) + "\n\n" + weatherOptionsText}
}
