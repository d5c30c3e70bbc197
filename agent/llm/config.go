package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
	openrouterx "github.com/tanpawarit/clinical-intake-orchestrator/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel         string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	MedicalModel        string  `envconfig:"MEDICAL_MODEL" split_words:"true"`
	ExtractModel        string  `envconfig:"EXTRACT_MODEL" split_words:"true"`
	DiagnoseModel       string  `envconfig:"DIAGNOSE_MODEL" split_words:"true"`
	RouterTemperature   float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"0"`
	MedicalTemperature  float32 `envconfig:"MEDICAL_TEMPERATURE" split_words:"true" default:"-1"`
	ExtractTemperature  float32 `envconfig:"EXTRACT_TEMPERATURE" split_words:"true" default:"0"`
	DiagnoseTemperature float32 `envconfig:"DIAGNOSE_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	if c.MaxCompletionToken <= 0 {
		return fmt.Errorf("%w: max completion token must be > 0", contractx.ErrValidation)
	}
	return nil
}

// ModelFor returns the model identifier used for a role, falling back to Model.
func (c Config) ModelFor(agentType contractx.AgentType) string {
	override := ""
	switch agentType {
	case contractx.AgentTypeSupervisor:
		override = c.RouterModel
	case contractx.AgentTypeMedical:
		override = c.MedicalModel
	case contractx.AgentTypeExtractor:
		override = c.ExtractModel
	case contractx.AgentTypeDiagnoser:
		override = c.DiagnoseModel
	}
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return strings.TrimSpace(c.Model)
}

func (c Config) temperatureFor(agentType contractx.AgentType) float32 {
	override := float32(-1)
	switch agentType {
	case contractx.AgentTypeSupervisor:
		override = c.RouterTemperature
	case contractx.AgentTypeMedical:
		override = c.MedicalTemperature
	case contractx.AgentTypeExtractor:
		override = c.ExtractTemperature
	case contractx.AgentTypeDiagnoser:
		override = c.DiagnoseTemperature
	}
	if override >= 0 {
		return override
	}
	return c.Temperature
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              c.ModelFor(agentType),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.temperatureFor(agentType),
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// NewModel builds the chat model configured for one role.
func (c Config) NewModel(ctx context.Context, agentType contractx.AgentType) (einomodel.ToolCallingChatModel, error) {
	rc := c.OpenRouterFor(agentType)
	m, err := rc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s model: %w", contractx.ErrModelInvoke, agentType, err)
	}
	return m, nil
}
