package supervisor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/puzpuzpuz/xsync/v3"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
	llmx "github.com/tanpawarit/clinical-intake-orchestrator/agent/llm"
)

type classifierOutput struct {
	Route  string `json:"route"`
	Reason string `json:"reason"`
}

type historyLine struct {
	User      string `json:"user"`
	Assistant string `json:"assistant,omitempty"`
	Agent     string `json:"agent,omitempty"`
}

// LLMClassifier asks the reasoning service for a route.
type LLMClassifier struct {
	runner compose.Runnable[map[string]any, classifierOutput]
}

var _ contractx.Classifier = (*LLMClassifier)(nil)

func NewLLMClassifier(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*LLMClassifier, error) {
	runner, err := llmx.CompileStructuredGraph[classifierOutput](ctx, chatModel, systemPrompt, "supervisor.classifier_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %w", contractx.ErrModelInvoke, err)
	}
	return &LLMClassifier{runner: runner}, nil
}

func (c *LLMClassifier) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.ClassifyResponse, error) {
	history := make([]historyLine, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, historyLine{User: turn.Input, Assistant: turn.Output, Agent: turn.Agent})
	}
	input, err := json.Marshal(map[string]any{
		"message": req.Message,
		"history": history,
	})
	if err != nil {
		return contractx.ClassifyResponse{}, fmt.Errorf("%w: marshal classifier payload: %w", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return contractx.ClassifyResponse{}, fmt.Errorf("%w: classifier invoke: %w", contractx.ErrModelInvoke, err)
	}
	route, ok := contractx.ParseRoute(out.Route)
	if !ok {
		return contractx.ClassifyResponse{}, fmt.Errorf("%w: route %q", contractx.ErrSchemaViolation, out.Route)
	}
	return contractx.ClassifyResponse{Route: route, Reason: strings.TrimSpace(out.Reason)}, nil
}

// memoClassifier returns the same route for the same message and recent
// history. Only successful classifications are kept; the oldest entry is
// evicted once size is reached.
type memoClassifier struct {
	next    contractx.Classifier
	entries *xsync.MapOf[string, contractx.ClassifyResponse]
	size    int

	mu    sync.Mutex
	order []string
}

func newMemoClassifier(next contractx.Classifier, size int) contractx.Classifier {
	if size <= 0 {
		return next
	}
	return &memoClassifier{
		next:    next,
		entries: xsync.NewMapOf[string, contractx.ClassifyResponse](),
		size:    size,
	}
}

func (m *memoClassifier) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.ClassifyResponse, error) {
	key := classificationKey(req)
	if out, ok := m.entries.Load(key); ok {
		return out, nil
	}

	out, err := m.next.Classify(ctx, req)
	if err != nil {
		return out, err
	}
	m.remember(key, out)
	return out, nil
}

func (m *memoClassifier) remember(key string, out contractx.ClassifyResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, loaded := m.entries.LoadOrStore(key, out); loaded {
		return
	}
	m.order = append(m.order, key)
	for len(m.order) > m.size {
		m.entries.Delete(m.order[0])
		m.order = m.order[1:]
	}
}

func classificationKey(req contractx.ClassifyRequest) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(req.Message)))
	for _, turn := range req.History {
		h.Write([]byte{0})
		h.Write([]byte(turn.Input))
		h.Write([]byte{0x1f})
		h.Write([]byte(turn.Output))
		h.Write([]byte{0x1f})
		h.Write([]byte(turn.Agent))
	}
	return hex.EncodeToString(h.Sum(nil))
}
