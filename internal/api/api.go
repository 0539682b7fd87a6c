package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/campo-inteligente/campobot/internal/messaging"
	"github.com/campo-inteligente/campobot/internal/models"
)

// Constants for server configuration
const (
	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server exposes CampoBot over HTTP.
type Server struct {
	addr       string
	msgService messaging.Service
	handler    messaging.MessageHandler
	weather    weatherClient
	httpServer *http.Server

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// weatherClient is the forecast lookup surface needed by the API.
type weatherClient interface {
	Current(ctx context.Context, city string) (models.Forecast, error)
}

// NewServer creates an API server over the given messaging service, message
// handler and weather lookup.
func NewServer(msgService messaging.Service, handler messaging.MessageHandler, weather weatherClient, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		addr:       cfg.Addr,
		msgService: msgService,
		handler:    handler,
		weather:    weather,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.rootHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/send", s.sendHandler)
	mux.HandleFunc("/forecast", s.forecastHandler)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown failed: %w", err)
		}
		return nil
	}
}

// userLock returns the per-user mutex, creating it on first use. Webhook
// turns for the same sender are serialized through it.
func (s *Server) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}
