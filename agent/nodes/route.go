package supervisornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

const (
	NodeRunMedical  = "run_medical"
	NodeRunOffTopic = "run_offtopic"
)

// PickAgentNode is the branch condition after classification.
func PickAgentNode(_ context.Context, in *GraphState) (string, error) {
	if in == nil {
		return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Route == contractx.RouteMedical {
		return NodeRunMedical, nil
	}
	return NodeRunOffTopic, nil
}
