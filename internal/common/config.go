package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	OCR      OCRConfig
	Vision   VisionConfig
	LLM      LLMConfig
	Analysis AnalysisConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// StoreConfig selects where analysis results are persisted.
// DSN wins over SQLitePath; both empty means no persistence.
type StoreConfig struct {
	DSN             string
	SQLitePath      string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// OCRConfig holds the async read service configuration
type OCRConfig struct {
	Endpoint     string
	APIKey       string
	PollInterval time.Duration
}

// VisionConfig holds the image analyze service configuration
type VisionConfig struct {
	Endpoint string
	APIKey   string
}

// LLMConfig holds the completion service configuration
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// AnalysisConfig bounds a single analysis request
type AnalysisConfig struct {
	Timeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Store: StoreConfig{
			DSN:             getEnv("DB_URL", ""),
			SQLitePath:      getEnv("SQLITE_PATH", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		OCR: OCRConfig{
			Endpoint:     getEnv("OCR_ENDPOINT", ""),
			APIKey:       getEnv("OCR_API_KEY", ""),
			PollInterval: getEnvAsDuration("OCR_POLL_INTERVAL", 500*time.Millisecond),
		},
		Vision: VisionConfig{
			Endpoint: getEnv("VISION_ENDPOINT", ""),
			APIKey:   getEnv("VISION_API_KEY", ""),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			MaxTokens:   getEnvAsInt("OPENAI_MAX_TOKENS", 1000),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 120*time.Second),
		},
		Analysis: AnalysisConfig{
			Timeout: getEnvAsDuration("ANALYSIS_TIMEOUT", 60*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.OCR.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "OCR_ENDPOINT is required", ErrInvalidInput)
	}
	if c.Vision.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "VISION_ENDPOINT is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
