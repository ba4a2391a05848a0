/**
 * Configuration for the dictation OCR service
 *
 * Resolved through viper: built-in defaults, then an optional config
 * file, then environment variables (a .env file is loaded by main).
 */

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds service configuration
type Config struct {
	// HTTP server
	ListenAddr  string
	MaxUploadMB int64

	// Corpus store (at least one source is required)
	DatabaseURL string
	LexiconFile string
	LexiconTTL  time.Duration

	// Redis: shared corpus snapshot, job queue and job records
	RedisURL       string
	CorpusCacheTTL time.Duration

	// Worker configuration
	QueueName         string
	WorkerConcurrency int
	ProcessingTimeout int // milliseconds

	// OCR configuration
	OCREnabled             bool
	TesseractLanguage      string
	DeskewEnabled          bool
	EnhanceEnabled         bool
	VisionOCRURL           string
	LowConfidenceThreshold float64

	// Refinement (LLM) configuration
	LLMProvider    string
	LLMModel       string
	LLMAPIKey      string
	LLMBaseURL     string
	LLMTemperature float64
	LLMMaxTokens   int
	RefineTimeout  time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	Environment string
}

var defaults = map[string]interface{}{
	"listen_addr":              ":8001",
	"max_upload_mb":            10,
	"database_url":             "",
	"lexicon_file":             "",
	"lexicon_ttl":              300 * time.Second,
	"redis_url":                "",
	"corpus_cache_ttl":         300 * time.Second,
	"queue_name":               "diktim:analyze",
	"worker_concurrency":       4,
	"processing_timeout":       120000, // 2 minutes
	"ocr_enabled":              true,
	"tesseract_language":       "sqi",
	"deskew_enabled":           true,
	"enhance_enabled":          true,
	"vision_ocr_url":           "",
	"low_confidence_threshold": 60.0,
	"llm_provider":             "",
	"llm_model":                "",
	"llm_api_key":              "",
	"llm_base_url":             "",
	"llm_temperature":          0.3,
	"llm_max_tokens":           1500,
	"refine_timeout":           time.Duration(0),
	"log_level":                "info",
	"log_format":               "text",
	"environment":              "development",
}

// LoadConfig loads configuration; configFile may be empty.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		ListenAddr:             v.GetString("listen_addr"),
		MaxUploadMB:            v.GetInt64("max_upload_mb"),
		DatabaseURL:            v.GetString("database_url"),
		LexiconFile:            v.GetString("lexicon_file"),
		LexiconTTL:             v.GetDuration("lexicon_ttl"),
		RedisURL:               v.GetString("redis_url"),
		CorpusCacheTTL:         v.GetDuration("corpus_cache_ttl"),
		QueueName:              v.GetString("queue_name"),
		WorkerConcurrency:      v.GetInt("worker_concurrency"),
		ProcessingTimeout:      v.GetInt("processing_timeout"),
		OCREnabled:             v.GetBool("ocr_enabled"),
		TesseractLanguage:      v.GetString("tesseract_language"),
		DeskewEnabled:          v.GetBool("deskew_enabled"),
		EnhanceEnabled:         v.GetBool("enhance_enabled"),
		VisionOCRURL:           v.GetString("vision_ocr_url"),
		LowConfidenceThreshold: v.GetFloat64("low_confidence_threshold"),
		LLMProvider:            strings.ToLower(v.GetString("llm_provider")),
		LLMModel:               v.GetString("llm_model"),
		LLMAPIKey:              v.GetString("llm_api_key"),
		LLMBaseURL:             v.GetString("llm_base_url"),
		LLMTemperature:         v.GetFloat64("llm_temperature"),
		LLMMaxTokens:           v.GetInt("llm_max_tokens"),
		RefineTimeout:          v.GetDuration("refine_timeout"),
		LogLevel:               v.GetString("log_level"),
		LogFormat:              v.GetString("log_format"),
		Environment:            v.GetString("environment"),
	}

	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = providerKeyFromEnv(cfg.LLMProvider)
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModel(cfg.LLMProvider)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.LexiconFile == "" {
		return fmt.Errorf("DATABASE_URL or LEXICON_FILE is required")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.MaxUploadMB < 1 || c.MaxUploadMB > 100 {
		return fmt.Errorf("MAX_UPLOAD_MB must be between 1 and 100, got %d", c.MaxUploadMB)
	}

	if c.LexiconTTL <= 0 {
		return fmt.Errorf("LEXICON_TTL must be positive, got %v", c.LexiconTTL)
	}

	if c.LowConfidenceThreshold < 0 || c.LowConfidenceThreshold > 100 {
		return fmt.Errorf("LOW_CONFIDENCE_THRESHOLD must be between 0 and 100, got %v", c.LowConfidenceThreshold)
	}

	switch c.LLMProvider {
	case "", "ollama":
	case "openai", "anthropic":
		if c.LLMAPIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required for provider %s", c.LLMProvider)
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %s", c.LLMProvider)
	}

	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", c.LLMTemperature)
	}

	return nil
}

// RefinementConfigured reports whether an LLM provider is set up.
func (c *Config) RefinementConfigured() bool {
	return c.LLMProvider != ""
}

func providerKeyFromEnv(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4-turbo"
	case "anthropic":
		return "claude-3-5-sonnet-latest"
	case "ollama":
		return "llama3.1"
	}
	return ""
}
