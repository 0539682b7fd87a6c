// Package scheduler provides cron-based scheduling for CampoBot.
//
// It runs the daily weather bulletin for subscribed producers.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campo-inteligente/campobot/internal/flow"
	"github.com/campo-inteligente/campobot/internal/store"
	"github.com/robfig/cron/v3"
)

// DefaultBulletinSpec fires the daily weather bulletin at 07:00.
const DefaultBulletinSpec = "0 7 * * *"

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Bulletin sends the daily weather bulletin to every subscribed producer.
// Subscribers are read from the store on each run, so toggling the
// subscription takes effect without restarts.
type Bulletin struct {
	store   store.Store
	sender  flow.Messenger
	weather flow.WeatherClient
}

// NewBulletin creates the daily bulletin job.
func NewBulletin(st store.Store, sender flow.Messenger, weather flow.WeatherClient) *Bulletin {
	return &Bulletin{store: st, sender: sender, weather: weather}
}

// Schedule registers the bulletin with the scheduler under the given cron
// expression.
func (b *Bulletin) Schedule(s *Scheduler, expr string) error {
	if expr == "" {
		expr = DefaultBulletinSpec
	}
	if err := s.AddJob(expr, b.Run); err != nil {
		return fmt.Errorf("failed to schedule daily bulletin: %w", err)
	}
	slog.Info("Bulletin.Schedule: daily bulletin scheduled", "spec", expr)
	return nil
}

// Run sends one bulletin round. Failures for individual users are logged
// and skipped.
func (b *Bulletin) Run() {
	ctx := context.Background()
	subscribers, err := b.store.ListDailySubscribers()
	if err != nil {
		slog.Error("Bulletin.Run: failed to list subscribers", "error", err)
		return
	}
	slog.Info("Bulletin.Run: sending daily bulletin", "subscribers", len(subscribers))

	for _, sessionCtx := range subscribers {
		// Prefer the city the user subscribed with. Older sessions only
		// carry the registered city.
		city := sessionCtx.BulletinCity
		if city == "" {
			city = sessionCtx.Profile.City
		}
		if city == "" {
			slog.Warn("Bulletin.Run: subscriber has no city, skipping", "user", sessionCtx.UserID)
			continue
		}
		forecast, err := b.weather.Current(ctx, city)
		if err != nil {
			slog.Warn("Bulletin.Run: forecast failed, skipping", "error", err, "user", sessionCtx.UserID, "city", city)
			continue
		}
		body := "🌅 Good morning! Here is today's weather:\n\n" + flow.FormatForecast(forecast)
		if err := b.sender.SendMessage(ctx, sessionCtx.UserID, body); err != nil {
			slog.Error("Bulletin.Run: send failed", "error", err, "user", sessionCtx.UserID)
		}
	}
}
