package medical

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

func compileStepGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder("messages", false),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add medical step prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add medical step model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add medical step edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add medical step edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add medical step edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("medical.step_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile medical step graph: %w", err)
	}
	return runner, nil
}

func compileRuntimeGraph(
	ctx context.Context,
	prepare func(context.Context, contractx.MedicalRequest) (*turnState, error),
	loop func(context.Context, *turnState) (*turnState, error),
	answer func(context.Context, *turnState) (contractx.MedicalResponse, error),
) (compose.Runnable[contractx.MedicalRequest, contractx.MedicalResponse], error) {
	graph := compose.NewGraph[contractx.MedicalRequest, contractx.MedicalResponse]()

	if err := graph.AddLambdaNode("prepare", compose.InvokableLambda(prepare)); err != nil {
		return nil, fmt.Errorf("add medical runtime prepare node: %w", err)
	}
	if err := graph.AddLambdaNode("tool_loop", compose.InvokableLambda(loop)); err != nil {
		return nil, fmt.Errorf("add medical runtime loop node: %w", err)
	}
	if err := graph.AddLambdaNode("compose_answer", compose.InvokableLambda(answer)); err != nil {
		return nil, fmt.Errorf("add medical runtime answer node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "prepare"},
		{"prepare", "tool_loop"},
		{"tool_loop", "compose_answer"},
		{"compose_answer", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add medical runtime edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("medical.runtime_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile medical runtime graph: %w", err)
	}
	return runner, nil
}
