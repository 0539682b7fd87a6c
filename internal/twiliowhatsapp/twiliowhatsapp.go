// Package twiliowhatsapp delivers WhatsApp messages through Twilio's REST
// API. It is the hosted alternative to the whatsmeow transport: no device
// pairing, but inbound traffic arrives over the webhook instead of a
// socket.
package twiliowhatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender sends one WhatsApp message via Twilio.
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// Opts carries the Twilio credentials and sender number.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromWhats  string // "whatsapp:+1234567890"
}

// Option mutates Opts.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromWhats sets the sender number, prefixed with "whatsapp:".
func WithFromWhats(from string) Option {
	return func(o *Opts) { o.FromWhats = from }
}

// Client sends through the Twilio REST API.
type Client struct {
	rest *twilio.RestClient
	from string
}

// NewClient builds a Twilio client. Anything not set through options is
// read from TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.fillFromEnv()

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twiliowhatsapp: account SID and auth token are required")
	}
	if cfg.FromWhats == "" {
		return nil, fmt.Errorf("twiliowhatsapp: sender number is required")
	}

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	slog.Debug("twiliowhatsapp: client configured", "from", cfg.FromWhats)
	return &Client{rest: rest, from: cfg.FromWhats}, nil
}

func (o *Opts) fillFromEnv() {
	if o.AccountSID == "" {
		o.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if o.AuthToken == "" {
		o.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if o.FromWhats == "" {
		o.FromWhats = os.Getenv("TWILIO_FROM_NUMBER")
	}
}

// SendMessage posts one outbound message. The recipient is a bare phone
// number; the required "whatsapp:" channel prefix is added here.
func (c *Client) SendMessage(ctx context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + to)
	params.SetFrom(c.from)
	params.SetBody(body)

	if _, err := c.rest.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twiliowhatsapp: send to %s: %w", to, err)
	}
	slog.Debug("twiliowhatsapp: message sent", "to", to)
	return nil
}

// MockClient records outbound messages for tests.
type MockClient struct {
	SentMessages []SentMessage
}

// SentMessage is one recorded outbound message.
type SentMessage struct {
	To   string
	Body string
}

func NewMockClient() *MockClient {
	return &MockClient{SentMessages: []SentMessage{}}
}

func (m *MockClient) SendMessage(ctx context.Context, to string, body string) error {
	m.SentMessages = append(m.SentMessages, SentMessage{To: to, Body: body})
	return nil
}
