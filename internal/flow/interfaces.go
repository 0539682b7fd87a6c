package flow

import (
	"context"

	"github.com/campo-inteligente/campobot/internal/models"
)

// SessionStore is the slice of the storage contract the engine needs. The
// store package's backends satisfy it.
type SessionStore interface {
	LoadContext(userID string) (models.Context, error)
	SaveContext(sessionCtx models.Context) error
	LogMessage(msg models.IncomingMessage) error
	RecentMessages(userID string, limit int) ([]models.IncomingMessage, error)
}

// Messenger sends one outbound text message. Send failures are logged by the
// engine, never retried.
type Messenger interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// WeatherClient looks up forecasts and resolves coordinates to places.
type WeatherClient interface {
	Current(ctx context.Context, city string) (models.Forecast, error)
	Extended(ctx context.Context, city string) ([]models.ForecastDay, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (models.Place, error)
}

// ReplyGenerator produces a free-form answer for open-ended questions.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ReportExporter writes tabular records to a spreadsheet file and returns
// the file name.
type ReportExporter interface {
	ExportReport(name string, headers []string, rows [][]interface{}) (string, error)
}
