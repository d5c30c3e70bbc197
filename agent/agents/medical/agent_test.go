package medical

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
	medicalx "github.com/tanpawarit/clinical-intake-orchestrator/agent/medical"
	statex "github.com/tanpawarit/clinical-intake-orchestrator/agent/state"
)

type fakeToolCallingModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	repeat    *schema.Message
	inputs    [][]*schema.Message
	idx       int
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.repeat != nil {
		return f.repeat, nil
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []contractx.ToolRequest
	fn    func(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error)
}

func (g *fakeGateway) Execute(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()
	return g.fn(ctx, req)
}

func toolCallMessage(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

func sampleExtraction() medicalx.MedicalExtraction {
	return medicalx.MedicalExtraction{
		Symptoms: []string{"cough", "fever"},
		PatientInfo: medicalx.PatientIdentification{
			Name:                 "Maria Rodriguez",
			Age:                  medicalx.AgeOf(28),
			IdentificationNumber: medicalx.NotProvided,
			Gender:               medicalx.GenderFemale,
			Phone:                medicalx.NotProvided,
			Address:              medicalx.NotProvided,
		},
		ReasonForConsultation: "persistent cough and fever",
	}
}

func newTestAgent(t *testing.T, model *fakeToolCallingModel, gateway contractx.ToolGateway) *Agent {
	t.Helper()
	agent, err := New(context.Background(), model, "medical prompt", gateway)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return agent
}

func TestRespondChainsExtractThenDiagnose(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{responses: []*schema.Message{
		toolCallMessage("call-1", "extract_medical_information", `{"text":"Maria Rodriguez, 28, persistent cough and fever"}`),
		toolCallMessage("call-2", "generate_diagnosis", `{}`),
		schema.AssistantMessage("## MEDICAL ANALYSIS\nLikely a viral infection.", nil),
	}}
	gateway := &fakeGateway{fn: func(_ context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
		switch req.Tool {
		case contractx.ToolExtract:
			return contractx.ToolResult{Tool: req.Tool, Result: sampleExtraction()}, nil
		case contractx.ToolDiagnose:
			if _, ok := req.Args["extraction"].(medicalx.MedicalExtraction); !ok {
				return contractx.ToolResult{}, errors.New("extraction was not carried over")
			}
			return contractx.ToolResult{Tool: req.Tool, Result: medicalx.DiagnosisResult{Diagnosis: "viral infection"}}, nil
		}
		return contractx.ToolResult{}, errors.New("unexpected tool")
	}}

	out, err := newTestAgent(t, model, gateway).Respond(context.Background(), contractx.MedicalRequest{
		Message: "Maria Rodriguez, 28, persistent cough and fever",
		History: []statex.Turn{{Input: "hello", Output: "hi, how can I help?", Agent: "medical_expert"}},
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if out.Degraded {
		t.Fatalf("unexpected degraded response: %v", out.Failures)
	}
	if len(out.ToolsInvoked) != 2 || out.ToolsInvoked[0] != contractx.ToolExtract || out.ToolsInvoked[1] != contractx.ToolDiagnose {
		t.Fatalf("unexpected tools: %#v", out.ToolsInvoked)
	}
	if out.Extraction == nil || out.Diagnosis == nil || out.Diagnosis.Diagnosis != "viral infection" {
		t.Fatalf("working context not returned: %#v", out)
	}
	if !strings.Contains(out.Message, "viral infection") {
		t.Fatalf("unexpected message: %q", out.Message)
	}

	if len(model.inputs) != 3 {
		t.Fatalf("expected 3 model calls, got %d", len(model.inputs))
	}
	second := model.inputs[1]
	last := second[len(second)-1]
	if last.Role != schema.Tool || last.ToolCallID != "call-1" {
		t.Fatalf("tool output was not appended before the next step: %#v", last)
	}
}

func TestRespondStopsAtToolCallLimit(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{repeat: toolCallMessage("call", "validate_medical_extraction", `{}`)}
	gateway := &fakeGateway{fn: func(_ context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
		return contractx.ToolResult{Tool: req.Tool, Result: medicalx.ValidationReport{Valid: true}}, nil
	}}

	out, err := newTestAgent(t, model, gateway).Respond(context.Background(), contractx.MedicalRequest{Message: "check my data"})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if len(gateway.calls) != DefaultMaxToolCalls {
		t.Fatalf("expected %d tool calls, got %d", DefaultMaxToolCalls, len(gateway.calls))
	}
	if len(out.ToolsInvoked) != DefaultMaxToolCalls {
		t.Fatalf("unexpected tools invoked: %#v", out.ToolsInvoked)
	}
	if strings.TrimSpace(out.Message) == "" {
		t.Fatal("a capped turn still needs a response")
	}
}

func TestRespondDegradesOnToolFailure(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{responses: []*schema.Message{
		toolCallMessage("call-1", "extract_medical_information", `{"text":"Maria Rodriguez, 28, cough"}`),
		toolCallMessage("call-2", "generate_diagnosis", `{}`),
	}}
	gateway := &fakeGateway{fn: func(_ context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
		if req.Tool == contractx.ToolExtract {
			return contractx.ToolResult{Tool: req.Tool, Result: sampleExtraction()}, nil
		}
		err := contractx.OpError(string(req.Tool), contractx.ErrExternalService)
		return contractx.ToolResult{Tool: req.Tool, Error: err.Error()}, err
	}}

	out, err := newTestAgent(t, model, gateway).Respond(context.Background(), contractx.MedicalRequest{Message: "Maria Rodriguez, 28, cough"})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !out.Degraded {
		t.Fatal("expected degraded response")
	}
	if len(out.Failures) < 2 {
		t.Fatalf("expected tool and model failures, got %v", out.Failures)
	}
	toolErr := out.Failures[0]
	if !errors.Is(toolErr, contractx.ErrToolExecution) || !errors.Is(toolErr, contractx.ErrExternalService) {
		t.Fatalf("unexpected tool failure: %v", toolErr)
	}
	if op := contractx.FailedOperation(toolErr); op != string(contractx.ToolDiagnose) {
		t.Fatalf("failed operation = %q", op)
	}
	for _, want := range []string{"## EXTRACTED INFORMATION", "Maria Rodriguez", "## MEDICAL ANALYSIS"} {
		if !strings.Contains(out.Message, want) {
			t.Fatalf("local answer is missing %q:\n%s", want, out.Message)
		}
	}
}

func TestRespondReturnsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := &fakeToolCallingModel{responses: []*schema.Message{
		toolCallMessage("call-1", "extract_medical_information", `{"text":"cough"}`),
		schema.AssistantMessage("never reached", nil),
	}}
	gateway := &fakeGateway{fn: func(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
		cancel()
		return contractx.ToolResult{Tool: req.Tool}, ctx.Err()
	}}

	_, err := newTestAgent(t, model, gateway).Respond(ctx, contractx.MedicalRequest{Message: "cough"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRespondRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	agent := newTestAgent(t, &fakeToolCallingModel{}, &fakeGateway{})
	if _, err := agent.Respond(context.Background(), contractx.MedicalRequest{Message: "  "}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFormatAnswer(t *testing.T) {
	t.Parallel()

	if got := FormatAnswer(nil, nil, true); got != apologyMessage {
		t.Fatalf("unexpected fallback: %q", got)
	}

	ext := sampleExtraction()
	got := FormatAnswer(&ext, &medicalx.DiagnosisResult{Diagnosis: "common cold", TreatmentPlan: "rest"}, false)
	for _, want := range []string{"**Symptoms:** cough, fever", "**Age:** 28", "**Gender:** Female", "**Diagnosis:** common cold", "**Treatment plan:** rest"} {
		if !strings.Contains(got, want) {
			t.Fatalf("answer is missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "could not be completed") {
		t.Fatal("non-degraded answer must not carry the degraded note")
	}
}
