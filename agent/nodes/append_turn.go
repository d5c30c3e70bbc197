package supervisornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
	statex "github.com/tanpawarit/clinical-intake-orchestrator/agent/state"
)

// AppendTurn persists exactly one turn. A cancelled request persists nothing.
func AppendTurn(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	turn := statex.Turn{
		Input:     in.Text,
		Output:    in.Reply,
		Agent:     string(in.Agent),
		Timestamp: in.Now,
	}
	if err := turn.Validate(); err != nil {
		return nil, err
	}
	if err := store.Append(ctx, in.SessionID, turn); err != nil {
		return nil, err
	}
	in.TurnCount = len(in.Session.Turns) + 1
	return in, nil
}
