package supervisornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

// MedicalUnavailableReply is used when the medical agent itself errors.
const MedicalUnavailableReply = "I'm sorry, I could not process your medical request right now. " +
	"Please try again in a moment, and seek care directly if your symptoms are urgent."

func RunMedical(ctx context.Context, in *GraphState, agent contractx.MedicalAgent) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Agent = contractx.AgentTypeMedical

	resp, err := agent.Respond(ctx, contractx.MedicalRequest{
		Message: in.Text,
		History: in.History,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Error().Err(err).Str("session_id", in.SessionID).Msg("medical agent failed")
		in.Reply = MedicalUnavailableReply
		in.Degraded = true
		in.Errors = append(in.Errors, contractx.OpError("respond", err))
		return in, nil
	}

	in.Reply = strings.TrimSpace(resp.Message)
	in.ToolsInvoked = resp.ToolsInvoked
	in.Degraded = resp.Degraded
	in.Errors = append(in.Errors, resp.Failures...)
	if in.Reply == "" {
		in.Reply = MedicalUnavailableReply
		in.Degraded = true
	}
	return in, nil
}

func RunOffTopic(in *GraphState, handler contractx.OffTopicResponder) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Agent = contractx.AgentTypeOffTopic
	in.Reply = handler.Respond(in.Text).Message
	return in, nil
}
