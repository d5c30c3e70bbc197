package contract

import (
	"strings"
	"time"

	medicalx "github.com/tanpawarit/clinical-intake-orchestrator/agent/medical"
	statex "github.com/tanpawarit/clinical-intake-orchestrator/agent/state"
)

type AgentType string

const (
	AgentTypeSupervisor AgentType = "supervisor"
	AgentTypeMedical    AgentType = "medical_expert"
	AgentTypeOffTopic   AgentType = "offtopic_expert"
	AgentTypeExtractor  AgentType = "extractor"
	AgentTypeDiagnoser  AgentType = "diagnoser"
)

// Route is the transient classification of one message.
type Route string

const (
	RouteMedical  Route = "medical"
	RouteOffTopic Route = "off_topic"
)

func ParseRoute(v string) (Route, bool) {
	switch Route(strings.ToLower(strings.TrimSpace(v))) {
	case RouteMedical:
		return RouteMedical, true
	case RouteOffTopic, "offtopic", "off-topic":
		return RouteOffTopic, true
	default:
		return "", false
	}
}

func (r Route) Agent() AgentType {
	if r == RouteMedical {
		return AgentTypeMedical
	}
	return AgentTypeOffTopic
}

type ToolKind string

const (
	ToolExtract  ToolKind = "extract_medical_information"
	ToolDiagnose ToolKind = "generate_diagnosis"
	ToolValidate ToolKind = "validate_medical_extraction"
)

func ParseToolKind(name string) (ToolKind, bool) {
	switch k := ToolKind(strings.TrimSpace(name)); k {
	case ToolExtract, ToolDiagnose, ToolValidate:
		return k, true
	default:
		return "", false
	}
}

type ClassifyRequest struct {
	Message string        `json:"message"`
	History []statex.Turn `json:"history,omitempty"`
}

type ClassifyResponse struct {
	Route  Route  `json:"route"`
	Reason string `json:"reason,omitempty"`
}

type MedicalRequest struct {
	Message string        `json:"message"`
	History []statex.Turn `json:"history,omitempty"`
}

type MedicalResponse struct {
	Message      string                      `json:"message"`
	ToolsInvoked []ToolKind                  `json:"tools_invoked,omitempty"`
	Extraction   *medicalx.MedicalExtraction `json:"extraction,omitempty"`
	Diagnosis    *medicalx.DiagnosisResult   `json:"diagnosis,omitempty"`

	// Degraded is set when a tool or the model failed and Message was built
	// from whatever was available locally.
	Degraded bool    `json:"degraded,omitempty"`
	Failures []error `json:"-"`
}

type OffTopicResponse struct {
	Message string `json:"message"`
}

type ToolRequest struct {
	CallID string         `json:"call_id,omitempty"`
	Tool   ToolKind       `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   ToolKind `json:"tool"`
	Result any      `json:"result,omitempty"`
	Error  string   `json:"error,omitempty"`
}

type ChatResponse struct {
	Response     string     `json:"response"`
	AgentUsed    AgentType  `json:"agent_used"`
	SessionID    string     `json:"session_id"`
	NewSession   bool       `json:"new_session"`
	TurnCount    int        `json:"message_count"`
	ToolsInvoked []ToolKind `json:"tools_invoked,omitempty"`
	Degraded     bool       `json:"degraded,omitempty"`
	Errors       []string   `json:"errors,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

type SystemStatus struct {
	Status         string    `json:"status"`
	Model          string    `json:"model"`
	ActiveSessions int       `json:"active_sessions"`
	Operations     []string  `json:"operations"`
	Timestamp      time.Time `json:"timestamp"`
}
