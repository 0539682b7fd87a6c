package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/campo-inteligente/campobot/internal/models"
)

// MessageHandler processes one inbound message end to end.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg models.IncomingMessage) error
}

// Dispatcher drains a service's response channel and feeds each inbound
// message to the handler. Messages from different users run concurrently;
// turns for the same user are serialized through a per-user lock.
type Dispatcher struct {
	service Service
	handler MessageHandler

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	wg    sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given service and handler.
func NewDispatcher(service Service, handler MessageHandler) *Dispatcher {
	return &Dispatcher{
		service: service,
		handler: handler,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Run consumes the service's response and receipt channels until the context
// is cancelled or the response channel closes. It blocks; run it in a
// goroutine. Receipts carry no state the engine needs, so they are logged
// and discarded here to keep the service's channel drained.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Info("Dispatcher.Run: consuming responses")
	receipts := d.service.Receipts()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Dispatcher.Run: context cancelled, waiting for in-flight turns")
			d.wg.Wait()
			return
		case receipt, ok := <-receipts:
			if !ok {
				receipts = nil
				continue
			}
			slog.Debug("Dispatcher.Run: receipt", "to", receipt.To, "status", receipt.Status)
		case resp, ok := <-d.service.Responses():
			if !ok {
				slog.Info("Dispatcher.Run: response channel closed, waiting for in-flight turns")
				d.wg.Wait()
				return
			}
			d.wg.Add(1)
			go func(resp models.Response) {
				defer d.wg.Done()
				d.dispatch(ctx, resp)
			}(resp)
		}
	}
}

// dispatch converts one transport response into an engine turn.
func (d *Dispatcher) dispatch(ctx context.Context, resp models.Response) {
	from, err := d.service.ValidateAndCanonicalizeRecipient(resp.From)
	if err != nil {
		slog.Warn("Dispatcher.dispatch: invalid sender", "error", err, "from", resp.From)
		return
	}

	receivedAt := time.Unix(resp.Time, 0)
	if resp.Time == 0 {
		receivedAt = time.Now()
	}
	msg := models.IncomingMessage{
		From:     from,
		Text:     resp.Body,
		Location: resp.Location,
		Time:     receivedAt,
	}

	lock := d.userLock(from)
	lock.Lock()
	defer lock.Unlock()

	if err := d.handler.HandleMessage(ctx, msg); err != nil {
		slog.Error("Dispatcher.dispatch: turn failed", "error", err, "from", from)
	}
}

// userLock returns the per-user mutex, creating it on first use.
func (d *Dispatcher) userLock(userID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[userID] = lock
	}
	return lock
}
