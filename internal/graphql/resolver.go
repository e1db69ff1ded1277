package graphql

import (
	"context"

	"github.com/corewar/corewar-api/internal/telemetry"
	"github.com/corewar/corewar-api/pkg/broadcast"
	"github.com/corewar/corewar-api/pkg/corewar"
	"github.com/corewar/corewar-api/pkg/gqlclient"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Resolver is the root resolver for the GraphQL schema.
// It holds dependencies needed by all resolvers.
type Resolver struct {
	Clients     *gqlclient.Registry
	Broadcaster broadcast.Broadcaster
	Logger      *otelzap.Logger
	Metrics     *telemetry.Metrics
}

// NewResolver creates a new resolver with the given dependencies.
func NewResolver(clients *gqlclient.Registry, broadcaster broadcast.Broadcaster, logger *otelzap.Logger, metrics *telemetry.Metrics) *Resolver {
	return &Resolver{
		Clients:     clients,
		Broadcaster: broadcaster,
		Logger:      logger,
		Metrics:     metrics,
	}
}

// QueryResolver resolves the Query root fields.
type QueryResolver interface {
	Hills(ctx context.Context, id *string) ([]*corewar.Hill, error)
}

// MutationResolver resolves the Mutation root fields.
type MutationResolver interface {
	CreateHill(ctx context.Context, rules corewar.Rules) (*corewar.MutationResult, error)
	UpdateHill(ctx context.Context, id string, rules corewar.Rules, warriors []corewar.Warrior) (*corewar.MutationResult, error)
	DeleteHill(ctx context.Context, id string) (*corewar.MutationResult, error)
	ChallengeHill(ctx context.Context, id string, redcode string) (*corewar.MutationResult, error)
}

// Query returns the Query resolver.
func (r *Resolver) Query() QueryResolver { return &queryResolver{r} }

// Mutation returns the Mutation resolver.
func (r *Resolver) Mutation() MutationResolver { return &mutationResolver{r} }

type queryResolver struct{ *Resolver }

type mutationResolver struct{ *Resolver }

// publish hands the event to the broadcaster. Failures are logged and counted but never
// reach the caller: mutations report success once the event has been attempted.
func (r *Resolver) publish(ctx context.Context, event string, body any) {
	err := r.Broadcaster.Broadcast(ctx, event, broadcast.Envelope{Body: body})
	r.Metrics.RecordBroadcast(event, err)
	if err != nil {
		r.Logger.Ctx(ctx).Warn("Broadcast failed",
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
