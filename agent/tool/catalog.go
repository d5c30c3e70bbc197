package tool

import (
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

// BuildForAgent returns the tool schemas an agent may call and the gateway
// that executes them. Only the medical agent has tools.
func BuildForAgent(agentType contractx.AgentType, tools contractx.ToolSet) ([]*schema.ToolInfo, Executor) {
	if agentType != contractx.AgentTypeMedical {
		return nil, NewExecutor(nil)
	}
	return Infos(), NewExecutor(tools)
}

func Infos() []*schema.ToolInfo {
	extraction := &schema.ParameterInfo{
		Type: schema.Object,
		Desc: "Structured extraction to use. Omit to reuse the most recent extraction of this turn.",
		SubParams: map[string]*schema.ParameterInfo{
			"symptoms": {
				Type:     schema.Array,
				Desc:     "Reported symptoms",
				ElemInfo: &schema.ParameterInfo{Type: schema.String},
			},
			"patient_info": {
				Type: schema.Object,
				Desc: "Patient identification details",
			},
			"reason_for_consultation": {
				Type: schema.String,
				Desc: "Why the patient seeks care",
			},
		},
	}

	return []*schema.ToolInfo{
		{
			Name: string(contractx.ToolExtract),
			Desc: "Extract symptoms, patient identification and the reason for consultation from the patient's message.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"text": {Type: schema.String, Desc: "The patient's own words", Required: true},
			}),
		},
		{
			Name: string(contractx.ToolDiagnose),
			Desc: "Produce a preliminary diagnosis, treatment plan and recommendations from an extraction with at least one symptom.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"extraction": extraction,
			}),
		},
		{
			Name: string(contractx.ToolValidate),
			Desc: "Check an extraction for missing or invalid required details.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"extraction": extraction,
			}),
		},
	}
}
