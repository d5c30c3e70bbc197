package supervisornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
	statex "github.com/tanpawarit/clinical-intake-orchestrator/agent/state"
)

func LoadOrCreateSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, created, err := store.GetOrCreate(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	in.Session = st
	in.NewSession = created
	return in, nil
}
