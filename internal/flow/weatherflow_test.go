package flow

import (
	"errors"
	"strings"
	"testing"

	"github.com/campo-inteligente/campobot/internal/models"
)

func TestWeatherAsksForCityWhenNoneOnFile(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	reply := requireOneReply(t, fx.send(t, user, "1"))
	if !strings.Contains(reply, "Which city do you want the forecast for?") {
		t.Fatalf("opening = %q", reply)
	}

	reply = requireOneReply(t, fx.send(t, user, "Itabuna"))
	if !strings.Contains(reply, "Weather in Itabuna") {
		t.Errorf("forecast reply = %q", reply)
	}
	if !strings.Contains(reply, weatherOptionsText) {
		t.Errorf("forecast reply does not show the follow-up options: %q", reply)
	}

	sessionCtx := fx.loadContext(t, user)
	if sessionCtx.Profile.City != "Itabuna" {
		t.Errorf("Profile.City = %q, want the looked-up city", sessionCtx.Profile.City)
	}
	if st := sessionCtx.Flow.Weather; st == nil || st.City != "Itabuna" || st.AwaitingCity {
		t.Errorf("weather state = %+v", st)
	}
}

func TestWeatherUsesStoredCityImmediately(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	sessionCtx := models.NewContext(user)
	sessionCtx.Profile.City = "Ilhéus"
	if err := fx.store.SaveContext(sessionCtx); err != nil {
		t.Fatal(err)
	}

	reply := requireOneReply(t, fx.send(t, user, "weather"))
	if !strings.Contains(reply, "Weather in Ilhéus") {
		t.Errorf("reply = %q, want an immediate forecast", reply)
	}
	if got := fx.weather.currentCities; len(got) != 1 || got[0] != "Ilhéus" {
		t.Errorf("looked up cities = %q", got)
	}
}

func TestWeatherExtendedForecast(t *testing.T) {
	fx := newEngineFixture()
	fx.weather.days = []models.ForecastDay{
		{Date: "11/03/2026", Description: "light rain", Min: 21.3, Max: 29.8},
		{Date: "12/03/2026", Description: "clear sky", Min: 20.1, Max: 31.2},
	}
	user := "5511999998888"

	fx.send(t, user, "1")
	fx.send(t, user, "Itabuna")

	reply := requireOneReply(t, fx.send(t, user, "2"))
	if !strings.Contains(reply, "Extended forecast for Itabuna") {
		t.Errorf("extended reply = %q", reply)
	}
	if !strings.Contains(reply, "11/03/2026: light rain, 21.3°C to 29.8°C") {
		t.Errorf("extended reply missing the first day: %q", reply)
	}
}

func TestWeatherDailyBulletinToggle(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	fx.send(t, user, "1")
	fx.send(t, user, "Itabuna")

	reply := requireOneReply(t, fx.send(t, user, "daily"))
	if !strings.Contains(reply, "daily weather bulletin for Itabuna") {
		t.Errorf("subscribe reply = %q", reply)
	}
	sessionCtx := fx.loadContext(t, user)
	if !sessionCtx.DailyForecast {
		t.Error("DailyForecast not set after subscribing")
	}
	if sessionCtx.BulletinCity != "Itabuna" {
		t.Errorf("BulletinCity = %q, want Itabuna", sessionCtx.BulletinCity)
	}

	reply = requireOneReply(t, fx.send(t, user, "stop daily"))
	if !strings.Contains(reply, "Daily bulletin cancelled") {
		t.Errorf("unsubscribe reply = %q", reply)
	}
	sessionCtx = fx.loadContext(t, user)
	if sessionCtx.DailyForecast {
		t.Error("DailyForecast still set after cancelling")
	}
	if sessionCtx.BulletinCity != "" {
		t.Errorf("BulletinCity = %q after cancelling, want empty", sessionCtx.BulletinCity)
	}
}

func TestWeatherDailyBulletinFollowsLookedUpCity(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	// Registered in Ilhéus, but subscribing while viewing another city's
	// forecast records that city for the bulletin.
	sessionCtx := models.NewContext(user)
	sessionCtx.Profile.City = "Ilhéus"
	if err := fx.store.SaveContext(sessionCtx); err != nil {
		t.Fatal(err)
	}

	fx.send(t, user, "1") // immediate forecast for Ilhéus
	fx.send(t, user, "Itabuna")

	reply := requireOneReply(t, fx.send(t, user, "daily"))
	if !strings.Contains(reply, "daily weather bulletin for Itabuna") {
		t.Errorf("subscribe reply = %q", reply)
	}
	saved := fx.loadContext(t, user)
	if saved.BulletinCity != "Itabuna" {
		t.Errorf("BulletinCity = %q, want the looked-up city Itabuna", saved.BulletinCity)
	}
	if saved.Profile.City != "Ilhéus" {
		t.Errorf("Profile.City = %q, want the registered city untouched", saved.Profile.City)
	}
}

func TestWeatherNewCityLookupFromOptions(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	fx.send(t, user, "1")
	fx.send(t, user, "Itabuna")

	reply := requireOneReply(t, fx.send(t, user, "Ilhéus"))
	if !strings.Contains(reply, "Weather in Ilhéus") {
		t.Errorf("new lookup reply = %q", reply)
	}
	if got := fx.loadContext(t, user).Flow.Weather.City; got != "Ilhéus" {
		t.Errorf("weather state city = %q, want the new city", got)
	}
	// The profile keeps the first city; only the weather state follows.
	if got := fx.loadContext(t, user).Profile.City; got != "Itabuna" {
		t.Errorf("Profile.City = %q, want Itabuna", got)
	}
}

func TestWeatherUpstreamFailureKeepsState(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	fx.send(t, user, "1")
	fx.weather.err = errors.New("503 from upstream")

	reply := requireOneReply(t, fx.send(t, user, "Itabuna"))
	if reply != upstreamApology {
		t.Errorf("failure reply = %q, want the apology", reply)
	}
	// State untouched: the user can retry the same city.
	st := fx.loadContext(t, user).Flow.Weather
	if st == nil || !st.AwaitingCity {
		t.Fatalf("weather state after failure = %+v, want still awaiting the city", st)
	}

	fx.weather.err = nil
	reply = requireOneReply(t, fx.send(t, user, "Itabuna"))
	if !strings.Contains(reply, "Weather in Itabuna") {
		t.Errorf("retry reply = %q", reply)
	}
}

func TestSetLocationStoresCityWithoutLookup(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	reply := requireOneReply(t, fx.send(t, user, "8"))
	if !strings.Contains(reply, "Type the name of your city") {
		t.Fatalf("opening = %q", reply)
	}

	reply = requireOneReply(t, fx.send(t, user, "Itabuna"))
	if !strings.Contains(reply, "Location saved: Itabuna") {
		t.Errorf("reply = %q", reply)
	}
	if len(fx.weather.currentCities) != 0 {
		t.Errorf("set-location triggered a forecast lookup: %q", fx.weather.currentCities)
	}
	sessionCtx := fx.loadContext(t, user)
	if sessionCtx.Profile.City != "Itabuna" {
		t.Errorf("Profile.City = %q", sessionCtx.Profile.City)
	}
	if sessionCtx.Flow.Type != models.FlowNone {
		t.Errorf("flow after set-location = %q, want none", sessionCtx.Flow.Type)
	}
}

func TestWeatherBackReturnsToMenu(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	fx.send(t, user, "1")
	reply := requireOneReply(t, fx.send(t, user, "back"))
	if reply != renderMainMenu() {
		t.Errorf("back reply = %q, want the main menu", reply)
	}
}
