// Package config reads process configuration once at startup. Values come
// from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	OpenAI   OpenAIConfig
	Logging  LogConfig
	Accounts AccountsConfig
	Contact  ContactConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"5000"`
	Host           string        `envconfig:"HOST"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:5174,http://localhost:5175"`
	ShutdownGrace  time.Duration `envconfig:"SHUTDOWN_GRACE" default:"10s"`
}

// OpenAIConfig names where the completion credential comes from. The key
// itself is resolved on every request, never cached here.
type OpenAIConfig struct {
	KeyEnv   string        `envconfig:"OPENAI_KEY_ENV" default:"OPENAI_API_KEY"`
	KeyParam string        `envconfig:"OPENAI_KEY_PARAM"`
	BaseURL  string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Timeout  time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
}

type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// AccountsConfig enables the account and profile routes when fully set.
type AccountsConfig struct {
	ProfileTable  string        `envconfig:"PROFILE_TABLE"`
	RedisURL      string        `envconfig:"REDIS_URL"`
	SessionSecret string        `envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

func (c AccountsConfig) Enabled() bool {
	return c.ProfileTable != "" && c.RedisURL != "" && c.SessionSecret != ""
}

type ContactConfig struct {
	Endpoint string        `envconfig:"CONTACT_ENDPOINT"`
	Timeout  time.Duration `envconfig:"CONTACT_TIMEOUT" default:"10s"`
}

func (c ContactConfig) Enabled() bool {
	return c.Endpoint != ""
}

type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

// Addr is the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Load reads .env (if present) and then the environment. Variables already
// set in the environment win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.AllowedOrigins = cleanList(cfg.Server.AllowedOrigins)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("config: PORT must not be empty")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return errors.New("config: ALLOWED_ORIGINS must list at least one origin")
	}
	if c.OpenAI.Timeout <= 0 {
		return errors.New("config: OPENAI_TIMEOUT must be positive")
	}
	a := c.Accounts
	set := 0
	for _, v := range []string{a.ProfileTable, a.RedisURL, a.SessionSecret} {
		if v != "" {
			set++
		}
	}
	if set > 0 && set < 3 {
		return errors.New("config: PROFILE_TABLE, REDIS_URL and SESSION_SECRET must be set together")
	}
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
