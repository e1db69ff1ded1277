package graphql

import (
	"context"

	"github.com/corewar/corewar-api/pkg/corewar"
	"github.com/corewar/corewar-api/pkg/gqlclient"
	"go.uber.org/zap"
)

// HillsScope is the query client scope serving hill data.
const HillsScope = "hills"

// hillsQuery is sent to the hills service. Earlier versions sent the literal text
// `hills(id: string)`, so the caller's id never reached the service; id now travels as the
// $id variable and is never spliced into the query text.
const hillsQuery = `query Hills($id: ID) {
    hills(id: $id) {
        id
        rules {
            rounds
            size
            options {
                coresize
                maximumCycles
                initialInstruction {
                    address
                    opcode
                    modifier
                    aOperand {
                        mode
                        address
                    }
                    bOperand {
                        mode
                        address
                    }
                }
                instructionLimit
                maxTasks
                minSeparation
                standard
            }
        }
        warriors {
            redcode
        }
    }
}`

// Hills forwards the query to the hills service and returns its hills unchanged.
func (r *queryResolver) Hills(ctx context.Context, id *string) ([]*corewar.Hill, error) {
	client, err := r.Clients.Get(HillsScope)
	if err != nil {
		r.Logger.Ctx(ctx).Error("No query client for hills",
			zap.Strings("registered_scopes", r.Clients.Scopes()),
			zap.Error(err),
		)
		return nil, err
	}

	result, err := client.Query(ctx, &gqlclient.Request{
		Query:         hillsQuery,
		OperationName: "Hills",
		Variables:     map[string]any{"id": id},
	})
	if err != nil {
		r.Logger.Ctx(ctx).Warn("Hills query failed",
			zap.Bool("retryable", gqlclient.IsRetryable(err)),
			zap.Error(err),
		)
		return nil, err
	}

	var data struct {
		Hills []*corewar.Hill `json:"hills"`
	}
	if err := result.Decode(&data); err != nil {
		return nil, err
	}
	if data.Hills == nil {
		data.Hills = []*corewar.Hill{}
	}
	return data.Hills, nil
}

// CreateHill broadcasts create-hill with the rules.
func (r *mutationResolver) CreateHill(ctx context.Context, rules corewar.Rules) (*corewar.MutationResult, error) {
	r.publish(ctx, corewar.EventCreateHill, corewar.CreateHillBody{Rules: rules})
	return &corewar.MutationResult{Success: true}, nil
}

// UpdateHill broadcasts update-hill with the full replacement state.
func (r *mutationResolver) UpdateHill(ctx context.Context, id string, rules corewar.Rules, warriors []corewar.Warrior) (*corewar.MutationResult, error) {
	r.publish(ctx, corewar.EventUpdateHill, corewar.UpdateHillBody{
		ID:       id,
		Rules:    rules,
		Warriors: warriors,
	})
	return &corewar.MutationResult{Success: true}, nil
}

// DeleteHill broadcasts delete-hill.
func (r *mutationResolver) DeleteHill(ctx context.Context, id string) (*corewar.MutationResult, error) {
	r.publish(ctx, corewar.EventDeleteHill, corewar.DeleteHillBody{ID: id})
	return &corewar.MutationResult{Success: true}, nil
}

// ChallengeHill broadcasts challenge-hill with the submitted warrior.
func (r *mutationResolver) ChallengeHill(ctx context.Context, id string, redcode string) (*corewar.MutationResult, error) {
	r.publish(ctx, corewar.EventChallengeHill, corewar.ChallengeHillBody{
		ID:      id,
		Redcode: redcode,
	})
	return &corewar.MutationResult{Success: true}, nil
}
