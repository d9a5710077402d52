package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Catalog   CatalogConfig
	Cache     CacheConfig
	Matching  MatchingConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AdminToken     string   `mapstructure:"admin_token"`
	MaxImageBytes  int64    `mapstructure:"max_image_bytes"`
}

// ProviderConfig holds one model provider's settings
type ProviderConfig struct {
	Provider  string `mapstructure:"provider"` // "anthropic" or "openai"
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// Enabled reports whether the provider is configured
func (p ProviderConfig) Enabled() bool {
	return p.Provider != ""
}

// LLMConfig holds model provider configuration
type LLMConfig struct {
	Primary           ProviderConfig `mapstructure:"primary"`
	Secondary         ProviderConfig `mapstructure:"secondary"`
	Timeout           time.Duration  `mapstructure:"timeout"`
	RequestsPerMinute int            `mapstructure:"requests_per_minute"`
}

// CatalogConfig holds inventory catalog configuration
type CatalogConfig struct {
	Type           string `mapstructure:"type"` // "file" or "sqlite"
	Path           string `mapstructure:"path"`
	ProductURLBase string `mapstructure:"product_url_base"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// MatchingConfig holds inventory matching configuration
type MatchingConfig struct {
	AcceptanceFloor     int  `mapstructure:"acceptance_floor"`
	ConfidenceThreshold int  `mapstructure:"confidence_threshold"`
	BackfillConfidence  int  `mapstructure:"backfill_confidence"`
	DefaultConfidence   int  `mapstructure:"default_confidence"`
	MaxRecommendations  int  `mapstructure:"max_recommendations"`
	MaxReferenceImages  int  `mapstructure:"max_reference_images"`
	StrictChatInventory bool `mapstructure:"strict_chat_inventory"`
	EnableDebugLogging  bool `mapstructure:"enable_debug_logging"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/humidor/")

	v.SetEnvPrefix("HUMIDOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads .env from the working directory when present.
// Variables already in the environment are not overridden.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values.
// Every key needs a default so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.max_image_bytes", 8<<20)

	v.SetDefault("llm.primary.provider", "anthropic")
	v.SetDefault("llm.primary.api_key", "")
	v.SetDefault("llm.primary.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.primary.base_url", "")
	v.SetDefault("llm.primary.max_tokens", 1024)
	v.SetDefault("llm.secondary.provider", "")
	v.SetDefault("llm.secondary.api_key", "")
	v.SetDefault("llm.secondary.model", "")
	v.SetDefault("llm.secondary.base_url", "")
	v.SetDefault("llm.secondary.max_tokens", 1024)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.requests_per_minute", 60)

	v.SetDefault("catalog.type", "file")
	v.SetDefault("catalog.path", "data/catalog.yaml")
	v.SetDefault("catalog.product_url_base", "")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "6h")

	v.SetDefault("matching.acceptance_floor", 25)
	v.SetDefault("matching.confidence_threshold", 75)
	v.SetDefault("matching.backfill_confidence", 80)
	v.SetDefault("matching.default_confidence", 50)
	v.SetDefault("matching.max_recommendations", 2)
	v.SetDefault("matching.max_reference_images", 6)
	v.SetDefault("matching.strict_chat_inventory", true)
	v.SetDefault("matching.enable_debug_logging", false)

	v.SetDefault("ratelimit.per_ip", 30)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if !config.LLM.Primary.Enabled() {
		return fmt.Errorf("a primary model provider is required (set HUMIDOR_LLM_PRIMARY_PROVIDER)")
	}
	providers := []struct {
		name string
		cfg  ProviderConfig
	}{
		{"primary", config.LLM.Primary},
		{"secondary", config.LLM.Secondary},
	}
	for _, entry := range providers {
		name, p := entry.name, entry.cfg
		if !p.Enabled() {
			continue
		}
		if p.Provider != "anthropic" && p.Provider != "openai" {
			return fmt.Errorf("llm.%s.provider must be 'anthropic' or 'openai', got: %s", name, p.Provider)
		}
		if p.APIKey == "" {
			return fmt.Errorf("llm.%s.api_key is required (set HUMIDOR_LLM_%s_API_KEY)", name, strings.ToUpper(name))
		}
		if p.Model == "" {
			return fmt.Errorf("llm.%s.model is required", name)
		}
	}

	if config.Catalog.Type != "file" && config.Catalog.Type != "sqlite" {
		return fmt.Errorf("catalog type must be 'file' or 'sqlite', got: %s", config.Catalog.Type)
	}
	if config.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}
	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	m := config.Matching
	for name, v := range map[string]int{
		"acceptance_floor":     m.AcceptanceFloor,
		"confidence_threshold": m.ConfidenceThreshold,
		"backfill_confidence":  m.BackfillConfidence,
		"default_confidence":   m.DefaultConfidence,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("matching.%s must be between 0 and 100, got: %d", name, v)
		}
	}
	if m.MaxRecommendations < 1 {
		return fmt.Errorf("matching.max_recommendations must be at least 1")
	}

	if config.Server.MaxImageBytes <= 0 {
		return fmt.Errorf("server.max_image_bytes must be positive")
	}

	return nil
}
