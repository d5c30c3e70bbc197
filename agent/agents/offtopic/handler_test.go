package offtopic

import "testing"

func TestRespondIsFixedTemplate(t *testing.T) {
	t.Parallel()

	h := New()
	for _, msg := range []string{"What's the weather like today?", "", "tell me a joke"} {
		if got := h.Respond(msg).Message; got != RedirectMessage {
			t.Fatalf("Respond(%q) = %q", msg, got)
		}
	}
}
