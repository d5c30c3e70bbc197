package supervisornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

// ClassifyMessage picks the route for the turn. Any classifier failure other
// than cancellation falls back to the off-topic route.
func ClassifyMessage(ctx context.Context, in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	out, err := classifier.Classify(ctx, contractx.ClassifyRequest{
		Message: in.Text,
		History: in.History,
	})
	if err == nil {
		if route, ok := contractx.ParseRoute(string(out.Route)); ok {
			in.Route = route
			in.RouteReason = out.Reason
			log.Info().
				Str("session_id", in.SessionID).
				Str("route", string(route)).
				Int("history_turns", len(in.History)).
				Msg("message classified")
			return in, nil
		}
		err = fmt.Errorf("%w: unknown route %q", contractx.ErrSchemaViolation, out.Route)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	routeErr := contractx.OpError("classify", fmt.Errorf("%w: %w", contractx.ErrRouting, err))
	log.Warn().Err(routeErr).Str("session_id", in.SessionID).Msg("classification failed, falling back to off-topic")
	in.Route = contractx.RouteOffTopic
	in.Errors = append(in.Errors, routeErr)
	return in, nil
}
