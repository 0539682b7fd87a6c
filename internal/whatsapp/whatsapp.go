// Package whatsapp is the thin layer over whatsmeow: it owns the device
// store, the first-run login flow and raw message sends. Everything above
// it (routing, receipts, dispatch) talks to the Sender interface so tests
// never touch a real connection.
package whatsapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/campo-inteligente/campobot/internal/store"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const (
	// DefaultSQLitePath holds the whatsmeow session database when no DSN is
	// configured.
	DefaultSQLitePath = "/var/lib/campobot/whatsmeow.db"
	// JIDSuffix is the server part of a personal WhatsApp JID.
	JIDSuffix = "s.whatsapp.net"
)

// Sender sends one WhatsApp message. Client implements it for production,
// MockClient for tests.
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// Opts configures the client.
type Opts struct {
	DBDSN       string // whatsmeow session database, SQLite path or postgres URL
	QRPath      string // write the login QR here instead of stdout
	NumericCode bool   // print the pairing code as digits instead of a QR
}

// Option mutates Opts.
type Option func(*Opts)

// WithDBDSN sets the whatsmeow session database.
func WithDBDSN(dsn string) Option {
	return func(o *Opts) { o.DBDSN = dsn }
}

// WithQRCodeOutput writes the login QR code to path instead of stdout.
func WithQRCodeOutput(path string) Option {
	return func(o *Opts) { o.QRPath = path }
}

// WithNumericCode prints the pairing code as digits instead of a QR code.
func WithNumericCode() Option {
	return func(o *Opts) { o.NumericCode = true }
}

// Client is a connected whatsmeow client.
type Client struct {
	waClient *whatsmeow.Client
}

// NewClient opens the device store, runs the pairing flow when this device
// has never logged in, and connects.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	device, err := openDeviceStore(cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	waClient := whatsmeow.NewClient(device, waLog.Stdout("Client", "INFO", true))

	// A nil store ID means this device was never paired.
	if waClient.Store.ID == nil {
		if err := runLogin(waClient, cfg); err != nil {
			return nil, err
		}
	} else {
		slog.Debug("whatsapp: session on file, connecting")
		if err := waClient.Connect(); err != nil {
			return nil, fmt.Errorf("whatsapp: connect: %w", err)
		}
	}

	slog.Info("whatsapp: client connected")
	return &Client{waClient: waClient}, nil
}

// openDeviceStore initializes the whatsmeow session container and returns
// its first (only) device.
func openDeviceStore(dsn string) (*wastore.Device, error) {
	if dsn == "" {
		dsn = DefaultSQLitePath
		slog.Debug("whatsapp: no session DSN configured, using default", "path", dsn)
	}

	driver := "sqlite3"
	if store.DetectDSNType(dsn) == "postgres" {
		driver = "postgres"
	} else if !strings.Contains(dsn, "foreign_keys") {
		// whatsmeow requires foreign keys on its SQLite schema.
		slog.Warn("whatsapp: session DSN has no foreign_keys flag, add '?_foreign_keys=on'", "dsn_example", "file:"+dsn+"?_foreign_keys=on")
	}

	ctx := context.Background()
	container, err := sqlstore.New(ctx, driver, dsn, waLog.Stdout("Database", "INFO", true))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: open session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: load device: %w", err)
	}
	return device, nil
}

// runLogin connects and renders pairing codes until the login flow ends.
func runLogin(waClient *whatsmeow.Client, cfg Opts) error {
	slog.Info("whatsapp: no session on file, starting pairing")

	qrChan, _ := waClient.GetQRChannel(context.Background())
	if err := waClient.Connect(); err != nil {
		return fmt.Errorf("whatsapp: connect for pairing: %w", err)
	}

	out := io.Writer(os.Stdout)
	if cfg.QRPath != "" {
		f, err := os.Create(cfg.QRPath)
		if err != nil {
			return fmt.Errorf("whatsapp: create QR output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	for evt := range qrChan {
		if evt.Event != "code" {
			slog.Debug("whatsapp: pairing event", "event", evt.Event)
			fmt.Println("Login event:", evt.Event)
			continue
		}
		if cfg.NumericCode {
			fmt.Fprintln(out, evt.Code)
		} else {
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, out)
		}
	}
	return nil
}

// SendMessage delivers body to the given phone number as a plain
// conversation message.
func (c *Client) SendMessage(ctx context.Context, to string, body string) error {
	switch {
	case c.waClient == nil:
		return fmt.Errorf("whatsapp: client not initialized")
	case c.waClient.Store == nil:
		return fmt.Errorf("whatsapp: device store not available")
	case to == "":
		return fmt.Errorf("whatsapp: recipient cannot be empty")
	case body == "":
		return fmt.Errorf("whatsapp: message body cannot be empty")
	}

	jid := types.NewJID(to, JIDSuffix)
	if _, err := c.waClient.SendMessage(ctx, jid, &waE2E.Message{Conversation: &body}); err != nil {
		return fmt.Errorf("whatsapp: send to %s: %w", to, err)
	}
	slog.Debug("whatsapp: message sent", "to", to, "body_length", len(body))
	return nil
}

// GetClient exposes the underlying whatsmeow client so the messaging layer
// can register event handlers.
func (c *Client) GetClient() *whatsmeow.Client {
	return c.waClient
}

// MockClient accepts every send and never connects.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) SendMessage(ctx context.Context, to string, body string) error {
	return nil
}
