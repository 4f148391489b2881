package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	log := New(&buf, "warn", "json")
	log.Info().Msg("hidden")
	log.Warn().Str("component", "test").Msg("shown")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "shown" || line["service"] != "trivia-game" || line["component"] != "test" {
		t.Fatalf("unexpected line: %v", line)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	New(&bytes.Buffer{}, "loud", "pretty")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %s", zerolog.GlobalLevel())
	}
}
