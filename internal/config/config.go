package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading API.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	// Matching calibration. The 70/40 tier split and the +15 bonus are
	// a starting calibration, tunable per deployment.
	MatchedThreshold       int
	LowConfidenceThreshold int
	SpecificityBonus       int
	MatchWorkers           int
	RosterCacheTTL         time.Duration
	ReviewBatchTTL         time.Duration

	// Evaluation orchestration.
	EvaluatorConcurrency int
	EvaluatorTimeout     time.Duration

	AIProvider      string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and an
// optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SARA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SARA Grading API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("match.threshold_matched", 70)
	v.SetDefault("match.threshold_low", 40)
	v.SetDefault("match.specificity_bonus", 15)
	v.SetDefault("match.workers", 8)
	v.SetDefault("roster.cache_ttl", "5m")
	v.SetDefault("review.batch_ttl", "2h")
	v.SetDefault("evaluator.concurrency", 4)
	v.SetDefault("evaluator.timeout_ms", 45000)
	v.SetDefault("ai.provider", "anthropic")

	rosterTTL, err := time.ParseDuration(v.GetString("roster.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid roster cache ttl: %w", err)
	}

	batchTTL, err := time.ParseDuration(v.GetString("review.batch_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid review batch ttl: %w", err)
	}

	timeoutMs := v.GetInt("evaluator.timeout_ms")
	if timeoutMs <= 0 {
		timeoutMs = 45000
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		MatchedThreshold:       v.GetInt("match.threshold_matched"),
		LowConfidenceThreshold: v.GetInt("match.threshold_low"),
		SpecificityBonus:       v.GetInt("match.specificity_bonus"),
		MatchWorkers:           v.GetInt("match.workers"),
		RosterCacheTTL:         rosterTTL,
		ReviewBatchTTL:         batchTTL,
		EvaluatorConcurrency:   v.GetInt("evaluator.concurrency"),
		EvaluatorTimeout:       time.Duration(timeoutMs) * time.Millisecond,
		AIProvider:             strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIModel:            v.GetString("openai_model"),
		AnthropicAPIKey:        v.GetString("anthropic_api_key"),
		AnthropicModel:         v.GetString("anthropic_model"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.MatchWorkers <= 0 {
		cfg.MatchWorkers = 8
	}

	if cfg.EvaluatorConcurrency <= 0 {
		cfg.EvaluatorConcurrency = 4
	}

	return cfg, nil
}
