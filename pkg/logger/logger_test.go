package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
)

// Not parallel: Init replaces the global logger.
func TestInitToLevels(t *testing.T) {
	var buf bytes.Buffer

	InitTo(&buf, Config{Quiet: true})
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected quiet output: %s", buf.String())
	}

	buf.Reset()
	InitTo(&buf, Config{Debug: true})
	log.Debug().Msg("debug line")
	if !strings.Contains(buf.String(), "debug line") {
		t.Fatalf("debug output missing: %s", buf.String())
	}

	Init()
}

func TestPreview(t *testing.T) {
	if got := Preview("héllo world", 5); got != "héllo…" {
		t.Fatalf("Preview() = %q", got)
	}
	if got := Preview("short", 10); got != "short" {
		t.Fatalf("Preview() = %q", got)
	}
}
