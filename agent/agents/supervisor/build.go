package supervisor

import (
	"context"
	"fmt"
	"strings"

	medicalagent "github.com/tanpawarit/clinical-intake-orchestrator/agent/agents/medical"
	"github.com/tanpawarit/clinical-intake-orchestrator/agent/agents/offtopic"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
	llmx "github.com/tanpawarit/clinical-intake-orchestrator/agent/llm"
	medicalx "github.com/tanpawarit/clinical-intake-orchestrator/agent/medical"
	promptx "github.com/tanpawarit/clinical-intake-orchestrator/agent/prompt"
	statex "github.com/tanpawarit/clinical-intake-orchestrator/agent/state"
	toolx "github.com/tanpawarit/clinical-intake-orchestrator/agent/tool"
)

// Build wires the reasoning-service models, tool set, agents and an
// in-memory session store into a Supervisor.
func Build(ctx context.Context, llmCfg llmx.Config, cfg Config, transcriber contractx.Transcriber) (*Supervisor, error) {
	if err := llmCfg.Validate(); err != nil {
		return nil, err
	}
	prompts := promptx.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	genders := medicalx.GenderInferrer(medicalx.DefaultNameTable())
	if path := strings.TrimSpace(cfg.GenderTable); path != "" {
		table, err := medicalx.LoadNameTableFile(path)
		if err != nil {
			return nil, fmt.Errorf("load gender table: %w", err)
		}
		genders = table
	}

	routerModel, err := llmCfg.NewModel(ctx, contractx.AgentTypeSupervisor)
	if err != nil {
		return nil, err
	}
	medicalModel, err := llmCfg.NewModel(ctx, contractx.AgentTypeMedical)
	if err != nil {
		return nil, err
	}
	extractModel, err := llmCfg.NewModel(ctx, contractx.AgentTypeExtractor)
	if err != nil {
		return nil, err
	}
	diagnoseModel, err := llmCfg.NewModel(ctx, contractx.AgentTypeDiagnoser)
	if err != nil {
		return nil, err
	}

	tools, err := toolx.NewToolset(ctx, extractModel, diagnoseModel, prompts.Extract, prompts.Diagnose,
		toolx.WithGenderInferrer(genders),
		toolx.WithRetryPolicy(llmx.RetryPolicy{Retries: 1, Backoff: cfg.RetryBackoff}),
	)
	if err != nil {
		return nil, err
	}
	_, gateway := toolx.BuildForAgent(contractx.AgentTypeMedical, tools)

	medical, err := medicalagent.New(ctx, medicalModel, prompts.Medical, gateway,
		medicalagent.WithMaxToolCalls(cfg.MaxToolCalls),
	)
	if err != nil {
		return nil, err
	}
	classifier, err := NewLLMClassifier(ctx, routerModel, prompts.Router)
	if err != nil {
		return nil, err
	}

	return New(Dependencies{
		Store:       statex.NewMemoryStore(),
		Classifier:  classifier,
		Medical:     medical,
		OffTopic:    offtopic.New(),
		Tools:       tools,
		ModelName:   llmCfg.ModelFor(contractx.AgentTypeMedical),
		Transcriber: transcriber,
	}, cfg)
}
