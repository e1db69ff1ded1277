package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Config holds NATS connection settings.
type Config struct {
	URL           string
	Name          string
	SubjectPrefix string
}

// NATS is a Broadcaster backed by core NATS publish/subscribe.
type NATS struct {
	conn   *nats.Conn
	prefix string
	logger *otelzap.Logger

	// handlers counts callbacks still running.
	handlers sync.WaitGroup
}

// Connect dials the NATS server and returns a broadcaster that reconnects forever.
func Connect(cfg Config, logger *otelzap.Logger) (*NATS, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats %s: %w", cfg.URL, err)
	}
	return New(nc, cfg.SubjectPrefix, logger), nil
}

// New wraps an existing connection.
func New(nc *nats.Conn, prefix string, logger *otelzap.Logger) *NATS {
	return &NATS{
		conn:   nc,
		prefix: prefix,
		logger: logger,
	}
}

// Subject returns the NATS subject an event is published on.
func (b *NATS) Subject(event string) string {
	return b.prefix + event
}

// Broadcast publishes the envelope as JSON. An empty envelope ID is filled with a UUID.
func (b *NATS) Broadcast(ctx context.Context, event string, env Envelope) error {
	if b.conn.IsClosed() {
		return ErrClosed
	}
	if env.ID == "" {
		env.ID = uuid.NewString()
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshaling %s envelope: %w", event, err)
	}
	if err := b.conn.Publish(b.Subject(event), payload); err != nil {
		return fmt.Errorf("publishing %s: %w", event, err)
	}

	b.logger.Ctx(ctx).Debug("Broadcast event",
		zap.String("event", event),
		zap.String("id", env.ID),
	)
	return nil
}

// Subscribe delivers events to handler. With a non-empty queue each event goes to one
// member of the queue group. Handler errors are logged; the message is not redelivered.
func (b *NATS) Subscribe(ctx context.Context, event, queue string, handler Handler) (*nats.Subscription, error) {
	subject := b.Subject(event)
	// Handlers outlive the caller's cancellation so a drain can finish them.
	hctx := context.WithoutCancel(ctx)
	cb := func(m *nats.Msg) {
		b.handlers.Add(1)
		defer b.handlers.Done()

		msg, err := decodeMessage(event, m)
		if err != nil {
			b.logger.Warn("Dropping malformed envelope",
				zap.String("subject", m.Subject),
				zap.Error(err),
			)
			return
		}
		if err := handler(hctx, msg); err != nil {
			b.logger.Error("Event handler failed",
				zap.String("event", event),
				zap.String("id", msg.ID),
				zap.Error(err),
			)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = b.conn.QueueSubscribe(subject, queue, cb)
	} else {
		sub, err = b.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	return sub, nil
}

// Flush blocks until the server has processed everything published so far.
func (b *NATS) Flush() error {
	return b.conn.Flush()
}

// Drain stops delivery to subs and waits until every message already received has been
// handled, or until ctx is done.
func (b *NATS) Drain(ctx context.Context, subs ...*nats.Subscription) error {
	for _, s := range subs {
		if err := s.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
			return fmt.Errorf("draining %s: %w", s.Subject, err)
		}
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for _, s := range subs {
		for s.IsValid() {
			select {
			case <-ctx.Done():
				return fmt.Errorf("draining %s: %w", s.Subject, ctx.Err())
			case <-ticker.C:
			}
		}
	}

	done := make(chan struct{})
	go func() {
		b.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for handlers: %w", ctx.Err())
	}
}

// Close drains subscriptions and closes the connection.
func (b *NATS) Close() error {
	if b.conn.IsClosed() {
		return nil
	}
	return b.conn.Drain()
}

func decodeMessage(event string, m *nats.Msg) (*Message, error) {
	var env struct {
		ID   string          `json:"id"`
		Body json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(m.Data, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	if len(env.Body) == 0 || strings.TrimSpace(string(env.Body)) == "null" {
		return nil, ErrEmptyBody
	}
	return &Message{
		Event:   event,
		Subject: m.Subject,
		ID:      env.ID,
		Body:    env.Body,
	}, nil
}

// Ensure NATS implements Broadcaster interface
var _ Broadcaster = (*NATS)(nil)
