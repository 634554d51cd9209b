package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DefaultAnimeMappingURL is the Fribb anime-lists dataset bridging AniList ids to TMDB ids
const DefaultAnimeMappingURL = "https://raw.githubusercontent.com/Fribb/anime-lists/master/anime-list-full.json"

// Config holds all application configuration
type Config struct {
	// Availability checks
	AvailabilityConcurrency int // Concurrent status lookups against the destination (default: 5)
	AvailabilityBatchSize   int // Items settled together before the next batch starts (default: 5)

	// Outbound HTTP
	HTTPTimeout time.Duration

	// Anime id mapping
	AnimeMappingURL string
	AnimeMappingTTL time.Duration

	// Scheduling
	DefaultTimezone string // Used when the stored settings carry no timezone

	// Server
	ServerPort      string
	ShutdownTimeout time.Duration

	// Paths
	DatabaseFile string // $CONFIG_DIR/listarr.db

	// Logging and tracing
	LogLevel       string
	LogFormat      string
	TracingEnabled bool
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("AVAILABILITY_CONCURRENCY", 5)
	v.SetDefault("AVAILABILITY_BATCH_SIZE", 5)
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("ANIME_MAPPING_URL", DefaultAnimeMappingURL)
	v.SetDefault("ANIME_MAPPING_TTL_HOURS", 24)
	v.SetDefault("DEFAULT_TIMEZONE", "UTC")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 30)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("TRACING_ENABLED", false)

	configDir := v.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "listarr")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	databaseFile := v.GetString("DATABASE_FILE")
	if databaseFile == "" {
		databaseFile = filepath.Join(configDir, "listarr.db")
	}

	config := &Config{
		AvailabilityConcurrency: v.GetInt("AVAILABILITY_CONCURRENCY"),
		AvailabilityBatchSize:   v.GetInt("AVAILABILITY_BATCH_SIZE"),

		HTTPTimeout: time.Duration(v.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second,

		AnimeMappingURL: v.GetString("ANIME_MAPPING_URL"),
		AnimeMappingTTL: time.Duration(v.GetInt("ANIME_MAPPING_TTL_HOURS")) * time.Hour,

		DefaultTimezone: v.GetString("DEFAULT_TIMEZONE"),

		ServerPort:      v.GetString("SERVER_PORT"),
		ShutdownTimeout: time.Duration(v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,

		DatabaseFile: databaseFile,

		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		TracingEnabled: v.GetBool("TRACING_ENABLED"),
	}

	// Validate
	if config.AvailabilityConcurrency < 1 {
		return nil, fmt.Errorf("AVAILABILITY_CONCURRENCY must be at least 1")
	}
	if config.AvailabilityBatchSize < 1 {
		return nil, fmt.Errorf("AVAILABILITY_BATCH_SIZE must be at least 1")
	}
	if config.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive")
	}
	if config.AnimeMappingTTL <= 0 {
		return nil, fmt.Errorf("ANIME_MAPPING_TTL_HOURS must be positive")
	}
	if _, err := time.LoadLocation(config.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("DEFAULT_TIMEZONE is invalid: %w", err)
	}

	return config, nil
}
