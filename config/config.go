package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Matching   MatchingConfig
	Extraction ExtractionConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MatchingConfig holds the matching engine knobs
type MatchingConfig struct {
	MinConfidence            string  `mapstructure:"min_confidence"`
	TitleSimilarityThreshold float64 `mapstructure:"title_similarity_threshold"`
	DebugLogging             bool    `mapstructure:"debug_logging"`
}

// ExtractionConfig holds URL identifier extraction limits
type ExtractionConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxCandidates int           `mapstructure:"max_candidates"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// RateLimitConfig holds rate limiting configuration. PerIP is requests per
// second; zero disables throttling.
type RateLimitConfig struct {
	PerIP float64 `mapstructure:"per_ip"`
	Burst int     `mapstructure:"burst"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cartlens/")

	// Environment variable settings
	v.SetEnvPrefix("CARTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a local .env file when one exists. Variables already set
// in the environment are never overridden.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})

	// Matching defaults
	v.SetDefault("matching.min_confidence", "high")
	v.SetDefault("matching.title_similarity_threshold", 0.8)
	v.SetDefault("matching.debug_logging", false)

	// Extraction defaults
	v.SetDefault("extraction.timeout", "100ms")
	v.SetDefault("extraction.max_candidates", 12)
	v.SetDefault("extraction.cache_ttl", "1h")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 25.0)
	v.SetDefault("ratelimit.burst", 50)

	// Log defaults
	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Matching.MinConfidence {
	case "high", "medium", "low", "none":
	default:
		return fmt.Errorf("matching min_confidence must be one of high, medium, low, none, got: %s", config.Matching.MinConfidence)
	}

	if t := config.Matching.TitleSimilarityThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("matching title_similarity_threshold must be in (0, 1], got: %v", t)
	}

	if config.Extraction.MaxCandidates < 1 {
		return fmt.Errorf("extraction max_candidates must be at least 1, got: %d", config.Extraction.MaxCandidates)
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("ratelimit per_ip cannot be negative, got: %v", config.RateLimit.PerIP)
	}
	if config.RateLimit.PerIP > 0 && config.RateLimit.Burst < 1 {
		return fmt.Errorf("ratelimit burst must be at least 1 when throttling is on, got: %d", config.RateLimit.Burst)
	}

	switch config.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error, got: %s", config.Log.Level)
	}

	return nil
}
