package medical

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
	medicalx "github.com/tanpawarit/clinical-intake-orchestrator/agent/medical"
	toolx "github.com/tanpawarit/clinical-intake-orchestrator/agent/tool"
)

const DefaultMaxToolCalls = 4

type Option func(*Agent)

func WithMaxToolCalls(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxToolCalls = n
		}
	}
}

// Agent answers medical messages, calling the extract, diagnose and
// validate tools as the model asks for them.
type Agent struct {
	stepRunner    compose.Runnable[map[string]any, *schema.Message]
	runtimeRunner compose.Runnable[contractx.MedicalRequest, contractx.MedicalResponse]
	gateway       contractx.ToolGateway
	maxToolCalls  int
}

var _ contractx.MedicalAgent = (*Agent)(nil)

// turnState is the in-turn working context. It is discarded after the turn.
type turnState struct {
	messages []*schema.Message

	extraction *medicalx.MedicalExtraction
	diagnosis  *medicalx.DiagnosisResult
	report     *medicalx.ValidationReport

	toolsInvoked []contractx.ToolKind
	toolCalls    int
	answer       string
	capped       bool
	modelFailed  bool
	failures     []error
}

func New(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
	gateway contractx.ToolGateway,
	opts ...Option,
) (*Agent, error) {
	if chatModel == nil || gateway == nil {
		return nil, fmt.Errorf("%w: medical agent needs a model and a tool gateway", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: medical system prompt", contractx.ErrPromptMissing)
	}

	toolModel, err := chatModel.WithTools(toolx.Infos())
	if err != nil {
		return nil, fmt.Errorf("%w: bind medical tools: %w", contractx.ErrModelInvoke, err)
	}
	stepRunner, err := compileStepGraph(ctx, toolModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrModelInvoke, err)
	}

	a := &Agent{
		stepRunner:   stepRunner,
		gateway:      gateway,
		maxToolCalls: DefaultMaxToolCalls,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	runtimeRunner, err := compileRuntimeGraph(ctx, a.prepare, a.runLoop, a.composeAnswer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrModelInvoke, err)
	}
	a.runtimeRunner = runtimeRunner
	return a, nil
}

// Respond never fails because of the model or a tool; those produce a
// degraded response. It returns an error for invalid input or cancellation.
func (a *Agent) Respond(ctx context.Context, req contractx.MedicalRequest) (contractx.MedicalResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return contractx.MedicalResponse{}, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}
	out, err := a.runtimeRunner.Invoke(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return contractx.MedicalResponse{}, ctxErr
		}
		return contractx.MedicalResponse{}, err
	}
	return out, nil
}

func (a *Agent) prepare(_ context.Context, req contractx.MedicalRequest) (*turnState, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}

	msgs := make([]*schema.Message, 0, 2*len(req.History)+2)
	for _, turn := range req.History {
		msgs = append(msgs, schema.UserMessage(turn.Input))
		if strings.TrimSpace(turn.Output) != "" {
			msgs = append(msgs, schema.AssistantMessage(turn.Output, nil))
		}
	}
	msgs = append(msgs, schema.UserMessage(message))
	return &turnState{messages: msgs}, nil
}

func (a *Agent) runLoop(ctx context.Context, st *turnState) (*turnState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: medical turn state is nil", contractx.ErrValidation)
	}

	for {
		msg, err := a.stepRunner.Invoke(ctx, map[string]any{"messages": st.messages})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			st.modelFailed = true
			st.failures = append(st.failures, contractx.OpError("respond", fmt.Errorf("%w: %w", contractx.ErrExternalService, err)))
			log.Warn().Err(err).Int("tool_calls", st.toolCalls).Msg("medical model call failed")
			return st, nil
		}
		if msg == nil {
			st.modelFailed = true
			st.failures = append(st.failures, contractx.OpError("respond", fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)))
			return st, nil
		}

		if len(msg.ToolCalls) == 0 {
			st.answer = strings.TrimSpace(msg.Content)
			if st.answer == "" {
				st.modelFailed = true
				st.failures = append(st.failures, contractx.OpError("respond", fmt.Errorf("%w: final answer is empty", contractx.ErrSchemaViolation)))
			}
			return st, nil
		}

		if st.toolCalls >= a.maxToolCalls {
			st.capped = true
			log.Warn().Int("tool_calls", st.toolCalls).Int("limit", a.maxToolCalls).Msg("medical tool call limit reached")
			return st, nil
		}

		st.messages = append(st.messages, msg)
		for _, call := range msg.ToolCalls {
			content := a.runTool(ctx, st, call)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			st.messages = append(st.messages, schema.ToolMessage(content, call.ID))
		}
	}
}

// runTool executes one model tool call and returns the tool message content.
// Calls beyond the per-turn limit are answered without running.
func (a *Agent) runTool(ctx context.Context, st *turnState, call schema.ToolCall) string {
	if st.toolCalls >= a.maxToolCalls {
		st.capped = true
		return toolContent(contractx.ToolResult{Tool: contractx.ToolKind(call.Function.Name), Error: "tool call limit reached for this turn"})
	}
	st.toolCalls++

	kind, ok := contractx.ParseToolKind(call.Function.Name)
	if !ok {
		err := fmt.Errorf("%w: unknown tool %q", contractx.ErrToolExecution, call.Function.Name)
		st.failures = append(st.failures, err)
		return toolContent(contractx.ToolResult{Tool: contractx.ToolKind(call.Function.Name), Error: err.Error()})
	}

	args, err := toolx.ParseArgs(call.Function.Arguments)
	if err != nil {
		st.failures = append(st.failures, contractx.OpError(string(kind), err))
		return toolContent(contractx.ToolResult{Tool: kind, Error: err.Error()})
	}
	if kind != contractx.ToolExtract && !toolx.HasExtraction(args) && st.extraction != nil {
		args["extraction"] = *st.extraction
	}

	started := time.Now()
	result, err := a.gateway.Execute(ctx, contractx.ToolRequest{CallID: call.ID, Tool: kind, Args: args})
	st.toolsInvoked = append(st.toolsInvoked, kind)
	if err != nil {
		if contractx.FailedOperation(err) == "" {
			err = contractx.OpError(string(kind), err)
		}
		st.failures = append(st.failures, fmt.Errorf("%w: %w", contractx.ErrToolExecution, err))
		log.Warn().Err(err).Str("tool", string(kind)).Dur("latency", time.Since(started)).Msg("medical tool failed")
		if result.Error == "" {
			result = contractx.ToolResult{Tool: kind, Error: err.Error()}
		}
		return toolContent(result)
	}
	log.Info().Str("tool", string(kind)).Dur("latency", time.Since(started)).Msg("medical tool invoked")

	switch v := result.Result.(type) {
	case medicalx.MedicalExtraction:
		st.extraction = &v
	case medicalx.DiagnosisResult:
		st.diagnosis = &v
	case medicalx.ValidationReport:
		st.report = &v
	}
	return toolContent(result)
}

func (a *Agent) composeAnswer(_ context.Context, st *turnState) (contractx.MedicalResponse, error) {
	if st == nil {
		return contractx.MedicalResponse{}, fmt.Errorf("%w: medical turn state is nil", contractx.ErrValidation)
	}

	out := contractx.MedicalResponse{
		Message:      st.answer,
		ToolsInvoked: st.toolsInvoked,
		Extraction:   st.extraction,
		Diagnosis:    st.diagnosis,
		Degraded:     len(st.failures) > 0,
		Failures:     st.failures,
	}
	if out.Message == "" {
		out.Message = FormatAnswer(st.extraction, st.diagnosis, out.Degraded)
		log.Debug().Bool("capped", st.capped).Bool("model_failed", st.modelFailed).Msg("medical answer built locally")
	}
	if out.Degraded {
		log.Warn().
			Int("failures", len(st.failures)).
			Err(errors.Join(st.failures...)).
			Msg("medical response degraded")
	}
	return out, nil
}

func toolContent(result contractx.ToolResult) string {
	var payload any = result.Result
	if result.Error != "" {
		payload = map[string]string{"error": result.Error}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(b)
}
