package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Grading.MaxScore != 100 || cfg.Session.CodeLength != 6 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Session.MaxPlayers != nil {
		t.Fatalf("max_players should be unset by default")
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
llm:
  api_key: from-file
  timeout: 30s
grading:
  min_score: 1
  max_score: 10
  correct_points: 10
topic:
  mode: categorized
  taxonomy: [Phishing, Malware]
session:
  max_players: 0
users: [alice, bob]
`)
	t.Setenv("LLM_API_KEY", "from-env")
	t.Setenv("POSTGRES_URL", "postgres://localhost/quiz")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Grading.MinScore != 1 || cfg.Grading.MaxScore != 10 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Grading.CorrectPoints == nil || *cfg.Grading.CorrectPoints != 10 || cfg.Grading.IncorrectPoints != nil {
		t.Fatalf("unexpected points: %+v", cfg.Grading)
	}
	if cfg.LLM.APIKey != "from-env" || cfg.Postgres.URL != "postgres://localhost/quiz" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Session.MaxPlayers == nil || *cfg.Session.MaxPlayers != 0 {
		t.Fatalf("explicit zero max_players must survive")
	}
	if len(cfg.Users) != 2 || cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected users or default model: %+v", cfg)
	}
	if got := TTLDuration(cfg.LLM.Timeout, time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %v", got)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := map[string]string{
		"inverted range":    "grading:\n  min_score: 50\n  max_score: 10\n",
		"unknown mode":      "topic:\n  mode: random\n",
		"empty taxonomy":    "topic:\n  mode: categorized\n",
		"bad duration":      "explanation:\n  ttl: soon\n",
		"negative capacity": "session:\n  max_players: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("nonsense", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}
