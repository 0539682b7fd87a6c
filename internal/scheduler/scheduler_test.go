package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/campo-inteligente/campobot/internal/models"
	"github.com/campo-inteligente/campobot/internal/store"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []struct{ To, Body string }
}

func (f *fakeSender) SendMessage(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, struct{ To, Body string }{to, body})
	return nil
}

type fakeWeather struct {
	err error
}

func (f *fakeWeather) Current(ctx context.Context, city string) (models.Forecast, error) {
	if f.err != nil {
		return models.Forecast{}, f.err
	}
	return models.Forecast{City: city, Description: "clear sky", Temperature: 24.5}, nil
}

func (f *fakeWeather) Extended(ctx context.Context, city string) ([]models.ForecastDay, error) {
	return nil, nil
}

func (f *fakeWeather) ReverseGeocode(ctx context.Context, lat, lon float64) (models.Place, error) {
	return models.Place{}, nil
}

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	if err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("AddJob() valid expression error = %v", err)
	}
	if err := s.AddJob("not-a-cron", func() {}); err == nil {
		t.Error("AddJob() invalid expression expected error, got nil")
	}
}

func TestBulletinRun(t *testing.T) {
	st := store.NewInMemoryStore()

	subscribed := models.NewContext("5511999998888")
	subscribed.Profile.City = "Sorriso"
	subscribed.DailyForecast = true
	if err := st.SaveContext(subscribed); err != nil {
		t.Fatalf("SaveContext() error = %v", err)
	}

	unsubscribed := models.NewContext("5511999997777")
	unsubscribed.Profile.City = "Sinop"
	if err := st.SaveContext(unsubscribed); err != nil {
		t.Fatalf("SaveContext() error = %v", err)
	}

	noCity := models.NewContext("5511999996666")
	noCity.DailyForecast = true
	if err := st.SaveContext(noCity); err != nil {
		t.Fatalf("SaveContext() error = %v", err)
	}

	sender := &fakeSender{}
	bulletin := NewBulletin(st, sender, &fakeWeather{})
	bulletin.Run()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d bulletins, want 1", len(sender.sent))
	}
	if sender.sent[0].To != "5511999998888" {
		t.Errorf("To = %q, want 5511999998888", sender.sent[0].To)
	}
	if !strings.Contains(sender.sent[0].Body, "Sorriso") {
		t.Errorf("bulletin body missing city: %q", sender.sent[0].Body)
	}
	if !strings.Contains(sender.sent[0].Body, "Good morning") {
		t.Errorf("bulletin body missing greeting: %q", sender.sent[0].Body)
	}
}

func TestBulletinRunPrefersSubscribedCity(t *testing.T) {
	st := store.NewInMemoryStore()

	// Registered in Sorriso, but subscribed while looking at the Cuiabá
	// forecast. The bulletin must follow the subscription.
	subscribed := models.NewContext("5511999998888")
	subscribed.Profile.City = "Sorriso"
	subscribed.BulletinCity = "Cuiabá"
	subscribed.DailyForecast = true
	if err := st.SaveContext(subscribed); err != nil {
		t.Fatalf("SaveContext() error = %v", err)
	}

	sender := &fakeSender{}
	bulletin := NewBulletin(st, sender, &fakeWeather{})
	bulletin.Run()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d bulletins, want 1", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].Body, "Cuiabá") {
		t.Errorf("bulletin body = %q, want the subscribed city Cuiabá", sender.sent[0].Body)
	}
	if strings.Contains(sender.sent[0].Body, "Sorriso") {
		t.Errorf("bulletin body = %q, must not fall back to the registered city", sender.sent[0].Body)
	}
}

func TestBulletinRunWeatherFailure(t *testing.T) {
	st := store.NewInMemoryStore()
	subscribed := models.NewContext("5511999998888")
	subscribed.Profile.City = "Sorriso"
	subscribed.DailyForecast = true
	if err := st.SaveContext(subscribed); err != nil {
		t.Fatalf("SaveContext() error = %v", err)
	}

	sender := &fakeSender{}
	bulletin := NewBulletin(st, sender, &fakeWeather{err: errors.New("upstream down")})
	bulletin.Run()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 0 {
		t.Errorf("sent %d bulletins on weather failure, want 0", len(sender.sent))
	}
}
