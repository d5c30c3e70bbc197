package supervisornode

import (
	"fmt"

	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

// ReadHistory keeps the last window turns as routing and agent context.
func ReadHistory(in *GraphState, window int) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	in.History = in.Session.Recent(window)
	return in, nil
}
