// Package config loads service configuration from YAML with environment
// overrides for deploy-time secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port              string   `yaml:"port"`
	LogLevel          string   `yaml:"logLevel"`
	DatabaseURL       string   `yaml:"databaseURL"`
	GeminiAPIKey      string   `yaml:"geminiApiKey"`
	GeminiModel       string   `yaml:"geminiModel"`
	JWKSURL           string   `yaml:"jwksUrl"`
	TokenIssuer       string   `yaml:"tokenIssuer"`
	TokenAudience     string   `yaml:"tokenAudience"`
	RedisAddr         string   `yaml:"redisAddr"`
	RedisPassword     string   `yaml:"redisPassword"`
	RevalidateChannel string   `yaml:"revalidateChannel"`
	SweepCron         string   `yaml:"sweepCron"`
	SweepToken        string   `yaml:"sweepToken"`
	QuizRateLimit     int      `yaml:"quizRateLimit"`
	QuizRateWindowSec int      `yaml:"quizRateWindowSeconds"`
	AIRateLimit       int      `yaml:"aiRateLimit"`
	AIRateWindowSec   int      `yaml:"aiRateWindowSeconds"`
	TrustedProxies    []string `yaml:"trustedProxies"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := os.Getenv("CAREERPILOT_JWKS_URL"); v != "" {
		cfg.JWKSURL = v
	}
	if v := os.Getenv("CAREERPILOT_TOKEN_ISSUER"); v != "" {
		cfg.TokenIssuer = v
	}
	if v := os.Getenv("CAREERPILOT_TOKEN_AUDIENCE"); v != "" {
		cfg.TokenAudience = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("CAREERPILOT_REVALIDATE_CHANNEL"); v != "" {
		cfg.RevalidateChannel = v
	}
	if v := os.Getenv("CAREERPILOT_SWEEP_CRON"); v != "" {
		cfg.SweepCron = v
	}
	if v := os.Getenv("CAREERPILOT_SWEEP_TOKEN"); v != "" {
		cfg.SweepToken = v
	}
	if v := os.Getenv("CAREERPILOT_QUIZ_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QuizRateLimit = n
		}
	}
	if v := os.Getenv("CAREERPILOT_QUIZ_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QuizRateWindowSec = n
		}
	}
	if v := os.Getenv("CAREERPILOT_AI_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AIRateLimit = n
		}
	}
	if v := os.Getenv("CAREERPILOT_AI_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AIRateWindowSec = n
		}
	}
	if v := os.Getenv("CAREERPILOT_TRUSTED_PROXIES"); v != "" {
		entries := strings.Split(v, ",")
		cfg.TrustedProxies = cfg.TrustedProxies[:0]
		for _, e := range entries {
			if e = strings.TrimSpace(e); e != "" {
				cfg.TrustedProxies = append(cfg.TrustedProxies, e)
			}
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.SweepCron == "" {
		cfg.SweepCron = "0 0 * * 0"
	}
	if cfg.QuizRateLimit == 0 {
		cfg.QuizRateLimit = 10
	}
	if cfg.QuizRateWindowSec == 0 {
		cfg.QuizRateWindowSec = 60
	}
	if cfg.AIRateLimit == 0 {
		cfg.AIRateLimit = 10
	}
	if cfg.AIRateWindowSec == 0 {
		cfg.AIRateWindowSec = 60
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return errors.New("config: geminiApiKey is required (set in config.yaml or GEMINI_API_KEY)")
	}
	if cfg.JWKSURL == "" {
		return errors.New("config: jwksUrl is required (set in config.yaml or CAREERPILOT_JWKS_URL)")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	if _, err := cron.ParseStandard(cfg.SweepCron); err != nil {
		return fmt.Errorf("config: sweepCron %q is not a valid cron spec: %w", cfg.SweepCron, err)
	}
	if cfg.QuizRateLimit < 0 || cfg.AIRateLimit < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if cfg.QuizRateWindowSec <= 0 || cfg.AIRateWindowSec <= 0 {
		return errors.New("config: rate limit windows must be > 0 seconds")
	}
	return nil
}
