// Package worker applies hill events from the broadcast bus to the document store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corewar/corewar-api/internal/telemetry"
	"github.com/corewar/corewar-api/pkg/broadcast"
	"github.com/corewar/corewar-api/pkg/corewar"
	"github.com/corewar/corewar-api/pkg/docstore"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Collection names used by the worker.
const (
	HillsCollection      = "hills"
	ChallengesCollection = "challenges"
)

// DrainTimeout bounds how long Run waits for received events to be applied on shutdown.
const DrainTimeout = 30 * time.Second

// ErrUnknownEvent is returned for messages on an event the worker does not handle.
var ErrUnknownEvent = errors.New("unknown event")

// Subscriber delivers broadcast events to a handler.
type Subscriber interface {
	Subscribe(ctx context.Context, event, queue string, handler broadcast.Handler) (*nats.Subscription, error)
	Drain(ctx context.Context, subs ...*nats.Subscription) error
}

// Worker consumes hill events.
type Worker struct {
	hills      docstore.Repo[corewar.Hill]
	challenges docstore.Repo[corewar.Challenge]
	logger     *otelzap.Logger
	metrics    *telemetry.Metrics

	now   func() time.Time
	newID func() string
}

// New creates a worker writing to the given repositories.
func New(hills docstore.Repo[corewar.Hill], challenges docstore.Repo[corewar.Challenge], logger *otelzap.Logger, metrics *telemetry.Metrics) *Worker {
	return &Worker{
		hills:      hills,
		challenges: challenges,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Subscribe registers the worker for every hill event. With a non-empty queue, events are
// shared between workers in the same group.
func (w *Worker) Subscribe(ctx context.Context, sub Subscriber, queue string) ([]*nats.Subscription, error) {
	subs := make([]*nats.Subscription, 0, len(corewar.Events))
	for _, event := range corewar.Events {
		s, err := sub.Subscribe(ctx, event, queue, w.Handle)
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			return nil, err
		}
		subs = append(subs, s)
	}

	w.logger.Info("Worker subscribed",
		zap.Strings("events", corewar.Events),
		zap.String("queue", queue),
	)
	return subs, nil
}

// Run subscribes and blocks until ctx is cancelled. It then drains the subscriptions and
// returns once every event already received has been applied.
func (w *Worker) Run(ctx context.Context, sub Subscriber, queue string) error {
	subs, err := w.Subscribe(ctx, sub, queue)
	if err != nil {
		return err
	}

	<-ctx.Done()

	w.logger.Info("Worker stopping")
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DrainTimeout)
	defer cancel()
	if err := sub.Drain(drainCtx, subs...); err != nil {
		return fmt.Errorf("draining subscriptions: %w", err)
	}
	w.logger.Info("Worker drained")
	return nil
}

// Handle applies one event. The returned error has already been counted.
func (w *Worker) Handle(ctx context.Context, msg *broadcast.Message) error {
	err := w.apply(ctx, msg)
	w.metrics.RecordEvent(msg.Event, err)
	if err != nil {
		return fmt.Errorf("%s %s: %w", msg.Event, msg.ID, err)
	}
	return nil
}

func (w *Worker) apply(ctx context.Context, msg *broadcast.Message) error {
	log := w.logger.Ctx(ctx)

	switch msg.Event {
	case corewar.EventCreateHill:
		var body corewar.CreateHillBody
		if err := msg.Decode(&body); err != nil {
			return err
		}
		id, err := w.hills.Add(ctx, corewar.Hill{
			ID:       w.newID(),
			Rules:    body.Rules,
			Warriors: []corewar.Warrior{},
		})
		if err != nil {
			return err
		}
		log.Info("Hill created", zap.String("hill_id", id))

	case corewar.EventUpdateHill:
		var body corewar.UpdateHillBody
		if err := msg.Decode(&body); err != nil {
			return err
		}
		if body.ID == "" {
			return docstore.ErrMissingID
		}
		warriors := body.Warriors
		if warriors == nil {
			warriors = []corewar.Warrior{}
		}
		if _, err := w.hills.AddOrUpdate(ctx, corewar.Hill{
			ID:       body.ID,
			Rules:    body.Rules,
			Warriors: warriors,
		}); err != nil {
			return err
		}
		log.Info("Hill updated",
			zap.String("hill_id", body.ID),
			zap.Int("warriors", len(warriors)),
		)

	case corewar.EventDeleteHill:
		var body corewar.DeleteHillBody
		if err := msg.Decode(&body); err != nil {
			return err
		}
		if body.ID == "" {
			return docstore.ErrMissingID
		}
		removed, err := w.hills.Remove(ctx, body.ID)
		if err != nil {
			return err
		}
		if !removed {
			log.Debug("Hill already absent", zap.String("hill_id", body.ID))
			return nil
		}
		log.Info("Hill deleted", zap.String("hill_id", body.ID))

	case corewar.EventChallengeHill:
		var body corewar.ChallengeHillBody
		if err := msg.Decode(&body); err != nil {
			return err
		}
		if body.ID == "" {
			return docstore.ErrMissingID
		}
		id, err := w.challenges.Add(ctx, corewar.Challenge{
			ID:        w.newID(),
			HillID:    body.ID,
			Redcode:   body.Redcode,
			Status:    corewar.ChallengePending,
			CreatedAt: w.now().UTC(),
		})
		if err != nil {
			return err
		}
		log.Info("Challenge queued",
			zap.String("hill_id", body.ID),
			zap.String("challenge_id", id),
		)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, msg.Event)
	}
	return nil
}
