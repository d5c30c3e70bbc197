package offtopic

import (
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

// RedirectMessage is returned for every message routed off-topic.
const RedirectMessage = `I'm specialized in medical information extraction and diagnosis generation, and your message appears to be outside my medical expertise.

I can help you with:
- Extracting symptoms, patient information and consultation reasons from medical texts
- Generating preliminary diagnoses and treatment plans
- Processing medical audio transcriptions

Please share a medical question or describe your symptoms so I can help.`

// Handler answers non-medical messages. It has no tools and keeps no state.
type Handler struct{}

var _ contractx.OffTopicResponder = Handler{}

func New() Handler {
	return Handler{}
}

func (Handler) Respond(string) contractx.OffTopicResponse {
	return contractx.OffTopicResponse{Message: RedirectMessage}
}
