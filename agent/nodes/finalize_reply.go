package supervisornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: agent returned empty message", contractx.ErrValidation)
	}

	var errs []string
	for _, err := range in.Errors {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return GraphOutput{
		Response:     reply,
		AgentUsed:    in.Agent,
		SessionID:    in.SessionID,
		NewSession:   in.NewSession,
		TurnCount:    in.TurnCount,
		ToolsInvoked: in.ToolsInvoked,
		Degraded:     in.Degraded,
		Errors:       errs,
		Timestamp:    in.Now,
	}, nil
}
