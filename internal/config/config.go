package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         string   `yaml:"port"`
		AllowOrigins []string `yaml:"allow_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	LLM struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"llm"`
	Grading struct {
		MinScore        int  `yaml:"min_score"`
		MaxScore        int  `yaml:"max_score"`
		CorrectPoints   *int `yaml:"correct_points"`
		IncorrectPoints *int `yaml:"incorrect_points"`
	} `yaml:"grading"`
	Topic struct {
		Mode     string   `yaml:"mode"`
		Taxonomy []string `yaml:"taxonomy"`
	} `yaml:"topic"`
	Session struct {
		CodeLength      int    `yaml:"code_length"`
		MaxCodeAttempts int    `yaml:"max_code_attempts"`
		MaxPlayers      *int   `yaml:"max_players"`
		CodeTTL         string `yaml:"code_ttl"`
		LobbyTTL        string `yaml:"lobby_ttl"`
	} `yaml:"session"`
	Explanation struct {
		TTL string `yaml:"ttl"`
	} `yaml:"explanation"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	AMQP struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"amqp"`
	// Users are registered at startup so a fresh store can host sessions.
	Users []string `yaml:"users"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// Default is the configuration used for anything the file leaves out.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.Timeout = "60s"
	cfg.Grading.MinScore = 0
	cfg.Grading.MaxScore = 100
	cfg.Topic.Mode = "verbatim"
	cfg.Session.CodeLength = 6
	cfg.Session.MaxCodeAttempts = 10
	cfg.Session.CodeTTL = "6h"
	cfg.Session.LobbyTTL = "6h"
	cfg.Explanation.TTL = "24h"
	cfg.Auth.Issuer = "cyberhoot"
	cfg.Auth.TokenTTL = "24h"
	cfg.AMQP.Queue = "quiz.events"
	return cfg
}

var envOverrides = []struct {
	name string
	dst  func(*Config) *string
}{
	{"LLM_API_KEY", func(c *Config) *string { return &c.LLM.APIKey }},
	{"LLM_BASE_URL", func(c *Config) *string { return &c.LLM.BaseURL }},
	{"LLM_MODEL", func(c *Config) *string { return &c.LLM.Model }},
	{"JWT_SECRET", func(c *Config) *string { return &c.Auth.JWTSecret }},
	{"POSTGRES_URL", func(c *Config) *string { return &c.Postgres.URL }},
	{"REDIS_ADDR", func(c *Config) *string { return &c.Redis.Addr }},
	{"REDIS_PASSWORD", func(c *Config) *string { return &c.Redis.Password }},
	{"AMQP_URL", func(c *Config) *string { return &c.AMQP.URL }},
}

func (c *Config) applyEnv() {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			*o.dst(c) = v
		}
	}
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	if c.Grading.MinScore > c.Grading.MaxScore {
		return fmt.Errorf("grading.min_score %d exceeds grading.max_score %d", c.Grading.MinScore, c.Grading.MaxScore)
	}
	switch strings.ToLower(strings.TrimSpace(c.Topic.Mode)) {
	case "", "verbatim":
	case "categorized":
		if len(c.Topic.Taxonomy) == 0 {
			return fmt.Errorf("topic.mode categorized needs a non-empty topic.taxonomy")
		}
	default:
		return fmt.Errorf("topic.mode must be verbatim or categorized, got %q", c.Topic.Mode)
	}
	if c.Session.CodeLength < 0 || c.Session.CodeLength > 32 {
		return fmt.Errorf("session.code_length must be between 1 and 32 (0 picks the default), got %d", c.Session.CodeLength)
	}
	if c.Session.MaxPlayers != nil && *c.Session.MaxPlayers < 0 {
		return fmt.Errorf("session.max_players must not be negative")
	}
	for name, raw := range map[string]string{
		"llm.timeout":       c.LLM.Timeout,
		"session.code_ttl":  c.Session.CodeTTL,
		"session.lobby_ttl": c.Session.LobbyTTL,
		"explanation.ttl":   c.Explanation.TTL,
		"auth.token_ttl":    c.Auth.TokenTTL,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
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
