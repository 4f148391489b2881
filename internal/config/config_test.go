package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"trivia-game-service/internal/domain"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	game := cfg.AppConfig()
	if game.QuestionSeconds != 80 || game.FeedbackDelay != 2*time.Second || game.MaxWrongAnswers != 0 {
		t.Fatalf("unexpected defaults: %+v", game)
	}
	if game.Scoring.StartingScore != 100 || game.Scoring.Penalty != 50 || game.Scoring.HelperCosts[domain.HelperFreezeTime] != 100 {
		t.Fatalf("unexpected scoring defaults: %+v", game.Scoring)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
server:
  port: "9090"
game:
  questionSeconds: 30
  feedbackDelay: 500ms
  maxWrongAnswers: 3
  startingScore: 0
  penalty: 0
  reward: 250
  helperCosts:
    fiftyFifty: 40
telemetry:
  brokers: "kafka-1:9092, kafka-2:9092,"
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	game := cfg.AppConfig()
	if game.QuestionSeconds != 30 || game.FeedbackDelay != 500*time.Millisecond || game.MaxWrongAnswers != 3 {
		t.Fatalf("overrides not applied: %+v", game)
	}
	if game.Scoring.StartingScore != 0 {
		t.Fatalf("expected explicit zero starting score, got %d", game.Scoring.StartingScore)
	}
	if game.Scoring.Penalty != 0 || game.Scoring.Reward != 250 {
		t.Fatalf("expected penalty 0 and reward 250, got %d and %d", game.Scoring.Penalty, game.Scoring.Reward)
	}
	if game.Scoring.HelperCosts[domain.HelperFiftyFifty] != 40 || game.Scoring.HelperCosts[domain.HelperFreezeTime] != 100 {
		t.Fatalf("unexpected helper costs: %v", game.Scoring.HelperCosts)
	}
	if brokers := cfg.Brokers(); len(brokers) != 2 || brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", brokers)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
