package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/domain"
)

type Config struct {
	Server struct {
		Port          string `yaml:"port"`
		AllowedOrigin string `yaml:"allowedOrigin"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		File string `yaml:"file"`
		TTL  string `yaml:"ttl"`
	} `yaml:"questions"`
	Game        GameConfig `yaml:"game"`
	Leaderboard struct {
		TTL        string `yaml:"ttl"`
		MaxEntries int    `yaml:"maxEntries"`
	} `yaml:"leaderboard"`
	Results struct {
		Timeout       string `yaml:"timeout"`
		RetryInterval string `yaml:"retryInterval"`
	} `yaml:"results"`
	Telemetry struct {
		Brokers string `yaml:"brokers"`
		Topic   string `yaml:"topic"`
	} `yaml:"telemetry"`
	Preferences struct {
		Path string `yaml:"path"`
	} `yaml:"preferences"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// GameConfig holds the gameplay rules. Zero values keep the defaults.
type GameConfig struct {
	QuestionSeconds int                       `yaml:"questionSeconds"`
	FeedbackDelay   string                    `yaml:"feedbackDelay"`
	MaxWrongAnswers int                       `yaml:"maxWrongAnswers"`
	StartCooldown   string                    `yaml:"startCooldown"`
	StartingScore   *int                      `yaml:"startingScore"`
	Reward          *int                      `yaml:"reward"`
	Penalty         *int                      `yaml:"penalty"`
	HelperCosts     map[domain.HelperKind]int `yaml:"helperCosts"`
	SkipBase        int                       `yaml:"skipBase"`
	SkipIncrement   int                       `yaml:"skipIncrement"`
	Levels          []domain.Level            `yaml:"levels"`
}

// Load reads YAML config from path. A missing file yields the defaults so the
// service can run from flags and environment alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// AppConfig merges the game section over the engine defaults.
func (c Config) AppConfig() app.Config {
	out := app.DefaultConfig()
	g := c.Game
	if g.QuestionSeconds > 0 {
		out.QuestionSeconds = g.QuestionSeconds
	}
	out.FeedbackDelay = TTLDuration(g.FeedbackDelay, out.FeedbackDelay)
	if g.MaxWrongAnswers > 0 {
		out.MaxWrongAnswers = g.MaxWrongAnswers
	}
	if len(g.Levels) > 0 {
		out.Levels = g.Levels
	}
	if g.StartingScore != nil {
		out.Scoring.StartingScore = *g.StartingScore
	}
	if g.Reward != nil {
		out.Scoring.Reward = *g.Reward
	}
	if g.Penalty != nil {
		out.Scoring.Penalty = *g.Penalty
	}
	for kind, cost := range g.HelperCosts {
		out.Scoring.HelperCosts[kind] = cost
	}
	out.Scoring.SkipBase = g.SkipBase
	out.Scoring.SkipIncrement = g.SkipIncrement
	return out
}

// Brokers splits the comma separated broker list.
func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.Telemetry.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
