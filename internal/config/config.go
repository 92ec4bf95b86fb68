package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"requiem/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" validate:"required"`
	Backend  BackendConfig  `yaml:"backend" validate:"required"`
	Render   RenderConfig   `yaml:"render"`
	Analysis AnalysisConfig `yaml:"analysis" validate:"required"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	UIPort  string `yaml:"ui_port" validate:"required,numeric"`
	APIPort string `yaml:"api_port" validate:"required,numeric"`
	GinMode string `yaml:"gin_mode" validate:"oneof=debug release test"`
	// StaticDir overrides the embedded UI assets when set
	StaticDir string `yaml:"static_dir"`
}

// BackendConfig locates the analysis service used by report hosts
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
}

// RenderConfig paces the progressive report
type RenderConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval" validate:"gte=0"`
	TypesetDelay  time.Duration `yaml:"typeset_delay" validate:"gte=0"`
}

// AnalysisConfig holds defaults and limits of the analysis service
type AnalysisConfig struct {
	DefaultThreshold  float64       `yaml:"default_threshold"`
	DefaultConfidence float64       `yaml:"default_confidence" validate:"gt=0,lt=1"`
	MaxConcurrency    int64         `yaml:"max_concurrency" validate:"gte=1"`
	CacheSize         int           `yaml:"cache_size" validate:"gte=0"`
	SessionTTL        time.Duration `yaml:"session_ttl" validate:"gte=0"`
}

// DatabaseConfig holds database connection settings. An empty URL keeps
// datasets in memory.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			UIPort:  "8080",
			APIPort: "5000",
			GinMode: "release",
		},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:5000",
			RequestTimeout: 30 * time.Second,
		},
		Render: RenderConfig{
			FrameInterval: 50 * time.Millisecond,
			TypesetDelay:  150 * time.Millisecond,
		},
		Analysis: AnalysisConfig{
			DefaultThreshold:  5.0,
			DefaultConfidence: 0.95,
			MaxConcurrency:    5,
			CacheSize:         256,
			SessionTTL:        24 * time.Hour,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by REQUIEM_CONFIG, a .env file and environment variables, in that order of
// precedence from lowest to highest, and validates it
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	config := Defaults()

	if path := os.Getenv("REQUIEM_CONFIG"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}

	applyEnv(config)

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(errors.ConfigInvalid(err.Error()), "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return errors.Wrapf(errors.ConfigInvalid(err.Error()), "failed to parse config file %s", path)
	}
	return nil
}

func applyEnv(config *Config) {
	config.Server.UIPort = getEnvOrDefault("PORT", config.Server.UIPort)
	config.Server.APIPort = getEnvOrDefault("API_PORT", config.Server.APIPort)
	config.Server.GinMode = getEnvOrDefault("GIN_MODE", config.Server.GinMode)
	config.Server.StaticDir = getEnvOrDefault("REQUIEM_STATIC_DIR", config.Server.StaticDir)

	config.Backend.BaseURL = getEnvOrDefault("REQUIEM_BACKEND_URL", config.Backend.BaseURL)
	config.Backend.RequestTimeout = getEnvDurationOrDefault("REQUIEM_REQUEST_TIMEOUT", config.Backend.RequestTimeout)

	config.Render.FrameInterval = getEnvDurationOrDefault("REQUIEM_FRAME_INTERVAL", config.Render.FrameInterval)
	config.Render.TypesetDelay = getEnvDurationOrDefault("REQUIEM_TYPESET_DELAY", config.Render.TypesetDelay)

	config.Analysis.DefaultThreshold = getEnvFloatOrDefault("REQUIEM_THRESHOLD", config.Analysis.DefaultThreshold)
	config.Analysis.DefaultConfidence = getEnvFloatOrDefault("REQUIEM_CONFIDENCE", config.Analysis.DefaultConfidence)
	config.Analysis.MaxConcurrency = int64(getEnvIntOrDefault("REQUIEM_MAX_CONCURRENCY", int(config.Analysis.MaxConcurrency)))
	config.Analysis.CacheSize = getEnvIntOrDefault("REQUIEM_CACHE_SIZE", config.Analysis.CacheSize)
	config.Analysis.SessionTTL = getEnvDurationOrDefault("REQUIEM_SESSION_TTL", config.Analysis.SessionTTL)

	config.Database.URL = getEnvOrDefault("DATABASE_URL", config.Database.URL)
}

// Validate checks the struct tags of config
func Validate(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
