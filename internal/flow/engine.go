// Package flow implements the CampoBot conversation state machine.
//
// The Engine is the dialogue router: for each inbound message it loads the
// user's Context, decides the reply and the Context mutation, persists the
// Context, and only then sends the reply (save-before-acknowledge).
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campo-inteligente/campobot/internal/models"
)

// DefaultSessionTimeout is the inactivity window after which a session is
// reset to the main menu before the message content is even looked at.
const DefaultSessionTimeout = 180 * time.Second

// historyLimit bounds the message history forwarded to the reply generator.
const historyLimit = 10

const tryAgainReply = "😥 Sorry, something went wrong on our side. Please send your message again."

const questionSystemPrompt = "You are an agricultural assistant for the Campo Inteligente system. " +
	"Answer briefly and practically, for a rural producer reading on a phone."

// Engine is the dialogue router plus its flow executors.
type Engine struct {
	store    SessionStore
	sender   Messenger
	weather  WeatherClient
	gen      ReplyGenerator
	exporter ReportExporter
	timeout  time.Duration
	now      func() time.Time
}

// Opts holds configuration options for the Engine.
type Opts struct {
	SessionTimeout time.Duration
	Now            func() time.Time
}

// Option defines a configuration option for the Engine.
type Option func(*Opts)

// WithSessionTimeout overrides the inactivity timeout.
func WithSessionTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.SessionTimeout = d
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// NewEngine creates the dialogue engine with its collaborators.
func NewEngine(st SessionStore, sender Messenger, weather WeatherClient, gen ReplyGenerator, exporter ReportExporter, opts ...Option) *Engine {
	cfg := Opts{SessionTimeout: DefaultSessionTimeout, Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Engine.NewEngine: creating engine", "timeout", cfg.SessionTimeout)
	return &Engine{
		store:    st,
		sender:   sender,
		weather:  weather,
		gen:      gen,
		exporter: exporter,
		timeout:  cfg.SessionTimeout,
		now:      cfg.Now,
	}
}

// HandleMessage processes one inbound message end to end: load, route, save,
// send. Turns for the same user must be serialized by the caller.
func (e *Engine) HandleMessage(ctx context.Context, msg models.IncomingMessage) error {
	if err := msg.Validate(); err != nil {
		slog.Warn("Engine.HandleMessage: invalid message", "error", err, "from", msg.From)
		return err
	}
	slog.Debug("Engine.HandleMessage: processing", "from", msg.From, "has_location", msg.Location != nil)

	sessionCtx, err := e.store.LoadContext(msg.From)
	if err != nil {
		slog.Error("Engine.HandleMessage: context load failed", "error", err, "from", msg.From)
		e.send(ctx, msg.From, tryAgainReply)
		return fmt.Errorf("failed to load context: %w", err)
	}

	if logErr := e.store.LogMessage(msg); logErr != nil {
		// The message log is advisory; a failure must not abort the turn.
		slog.Warn("Engine.HandleMessage: message log failed", "error", logErr, "from", msg.From)
	}

	replies := e.routeTurn(ctx, &sessionCtx, msg)

	// Save-before-acknowledge: a failed save means the computed replies are
	// dropped so we never acknowledge an action that was not recorded.
	if err := e.store.SaveContext(sessionCtx); err != nil {
		slog.Error("Engine.HandleMessage: context save failed", "error", err, "from", msg.From)
		e.send(ctx, msg.From, tryAgainReply)
		return fmt.Errorf("failed to save context: %w", err)
	}

	for _, reply := range replies {
		e.send(ctx, msg.From, reply)
	}
	slog.Info("Engine.HandleMessage: turn completed", "from", msg.From, "replies", len(replies), "flow", sessionCtx.Flow.Type)
	return nil
}

// send delivers one reply. Delivery failures are logged, not retried.
func (e *Engine) send(ctx context.Context, to, body string) {
	if err := e.sender.SendMessage(ctx, to, body); err != nil {
		slog.Error("Engine.send: delivery failed", "error", err, "to", to)
	}
}

// routeTurn decides the replies and Context mutation for one message. The
// priority order is fixed: timeout, location shortcut, global navigation,
// active-flow dispatch, continue gate, main menu, fallback.
func (e *Engine) routeTurn(ctx context.Context, sessionCtx *models.Context, msg models.IncomingMessage) []string {
	now := e.now()
	expired := !sessionCtx.LastInteractionAt.IsZero() && now.Sub(sessionCtx.LastInteractionAt) > e.timeout
	sessionCtx.LastInteractionAt = now

	if expired {
		slog.Debug("Engine.routeTurn: session expired, resetting", "from", msg.From)
		sessionCtx.ResetFlows()
		return []string{"⏰ It has been a while, so I took you back to the start.\n\n" + welcomeReply()}
	}

	if msg.Location != nil {
		return e.handleLocationShare(ctx, sessionCtx, msg.Location)
	}

	text := strings.TrimSpace(msg.Text)

	if isGlobalReset(text) {
		sessionCtx.ResetFlows()
		return []string{renderMainMenu()}
	}

	if sessionCtx.Flow.Type != models.FlowNone {
		return e.dispatchFlow(ctx, sessionCtx, text)
	}

	if sessionCtx.AwaitingContinueChoice {
		return e.handleContinueChoice(sessionCtx, text)
	}

	return e.handleMainMenu(ctx, sessionCtx, text)
}

// handleLocationShare is the standing location shortcut: a shared location
// always wins over any in-progress flow.
func (e *Engine) handleLocationShare(ctx context.Context, sessionCtx *models.Context, loc *models.Location) []string {
	place, err := e.weather.ReverseGeocode(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		slog.Error("Engine.handleLocationShare: reverse geocode failed", "error", err)
		return []string{upstreamApology}
	}

	sessionCtx.Profile.City = place.City
	if sessionCtx.Profile.State == "" {
		sessionCtx.Profile.State = place.Region
	}
	sessionCtx.ResetFlows()

	forecast, err := e.weather.Current(ctx, place.City)
	if err != nil {
		slog.Error("Engine.handleLocationShare: forecast failed", "error", err, "city", place.City)
		return []string{"📍 Location saved: " + place.City + ". " + upstreamApology}
	}
	return []string{"📍 Location saved: " + place.City + ".\n\n" + FormatForecast(forecast)}
}

// handleContinueChoice interprets the post-completion yes/no gate.
func (e *Engine) handleContinueChoice(sessionCtx *models.Context, text string) []string {
	yes, ok := parseYesNo(text)
	if !ok {
		return []string{"Please answer yes or no. Would you like to continue?"}
	}
	section := sessionCtx.ContinueSection
	sessionCtx.AwaitingContinueChoice = false
	sessionCtx.ContinueSection = models.FlowNone
	if !yes {
		return []string{"👍 All right! Send \"menu\" whenever you need me."}
	}
	switch section {
	case models.FlowSimulation:
		return e.startSimulation(sessionCtx)
	case models.FlowLivestock:
		return e.startLivestock(sessionCtx)
	case models.FlowInventory:
		return e.startInventory(sessionCtx)
	case models.FlowQuestion:
		return e.startQuestion(sessionCtx)
	}
	return []string{renderMainMenu()}
}

// dispatchFlow delegates the turn to the executor owning the active flow.
func (e *Engine) dispatchFlow(ctx context.Context, sessionCtx *models.Context, text string) []string {
	switch sessionCtx.Flow.Type {
	case models.FlowRegistration:
		return e.handleRegistration(sessionCtx, text)
	case models.FlowWeather:
		return e.handleWeather(ctx, sessionCtx, text)
	case models.FlowSimulation:
		return e.handleSimulation(sessionCtx, text)
	case models.FlowLivestock:
		return e.handleLivestock(sessionCtx, text)
	case models.FlowInventory:
		return e.handleInventory(sessionCtx, text)
	case models.FlowQuestion:
		return e.handleQuestion(ctx, sessionCtx, text)
	}
	// Unknown flow type in a stored document; reset rather than wedge.
	slog.Warn("Engine.dispatchFlow: unknown flow type, resetting", "flow", sessionCtx.Flow.Type, "userID", sessionCtx.UserID)
	sessionCtx.ResetFlows()
	return []string{renderMainMenu()}
}

// handleMainMenu resolves a top-level message into one of the nine options.
func (e *Engine) handleMainMenu(ctx context.Context, sessionCtx *models.Context, text string) []string {
	if isGreeting(text) {
		return []string{welcomeReply()}
	}
	if isBack(text) {
		return []string{renderMainMenu()}
	}

	switch matchMenuChoice(text) {
	case menuWeather:
		return e.startWeather(ctx, sessionCtx)
	case menuInventory:
		return e.startInventory(sessionCtx)
	case menuLivestock:
		return e.startLivestock(sessionCtx)
	case menuSimulation:
		return e.startSimulation(sessionCtx)
	case menuRegistration:
		return e.startRegistration(sessionCtx)
	case menuPestAlerts:
		return []string{pestAlertText}
	case menuMarket:
		return []string{marketText}
	case menuLocation:
		return e.startSetLocation(sessionCtx)
	case menuOtherInfo:
		return e.startQuestion(sessionCtx)
	}

	return []string{"🤔 Sorry, I did not understand that.\n\n" + renderMainMenu()}
}

// startQuestion enters the open-ended question flow.
func (e *Engine) startQuestion(sessionCtx *models.Context) []string {
	sessionCtx.Flow = models.ActiveFlow{Type: models.FlowQuestion}
	return []string{"💬 What would you like to know? Ask me anything about farming, weather or your production."}
}

// handleQuestion forwards one free-text question to the reply generator,
// with recent history as conversational context.
func (e *Engine) handleQuestion(ctx context.Context, sessionCtx *models.Context, text string) []string {
	if isBack(text) {
		sessionCtx.ResetFlows()
		return []string{renderMainMenu()}
	}
	if strings.TrimSpace(text) == "" {
		return []string{"Please type your question."}
	}

	userPrompt := text
	if history, err := e.store.RecentMessages(sessionCtx.UserID, historyLimit); err == nil && len(history) > 0 {
		var b strings.Builder
		b.WriteString("Recent messages from this user:\n")
		for _, m := range history {
			if m.Text != "" {
				b.WriteString("- " + m.Text + "\n")
			}
		}
		b.WriteString("\nQuestion: " + text)
		userPrompt = b.String()
	}

	answer, err := e.gen.GenerateReply(ctx, questionSystemPrompt, userPrompt)
	if err != nil {
		slog.Error("Engine.handleQuestion: reply generation failed", "error", err, "userID", sessionCtx.UserID)
		return []string{"😕 Sorry, I could not think of an answer right now. Please try again in a moment."}
	}

	sessionCtx.ResetFlows()
	sessionCtx.AwaitingContinueChoice = true
	sessionCtx.ContinueSection = models.FlowQuestion
	return []string{answer + "\n\nWould you like to ask another question? (yes/no)"}
}
