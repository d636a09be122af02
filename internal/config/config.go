// Package config provides Viper-based hierarchical configuration management:
// defaults, then an optional config file, then FINDEX_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	DB struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"db" yaml:"db"`

	AI struct {
		Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
		Model          string `mapstructure:"model" yaml:"model"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		APIKey         string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
	} `mapstructure:"ai" yaml:"ai"`

	Classification struct {
		KeywordCeiling      float64 `mapstructure:"keyword_ceiling" yaml:"keyword_ceiling"`
		ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	} `mapstructure:"classification" yaml:"classification"`

	Conflict struct {
		// AmountTolerance is the relative difference below which two amounts
		// are treated as equal, e.g. 0.02 for 2%.
		AmountTolerance      float64 `mapstructure:"amount_tolerance" yaml:"amount_tolerance"`
		DuplicateWindowDays  int     `mapstructure:"duplicate_window_days" yaml:"duplicate_window_days"`
		SimilarityWindowDays int     `mapstructure:"similarity_window_days" yaml:"similarity_window_days"`
	} `mapstructure:"conflict" yaml:"conflict"`

	OCR struct {
		Pdftotext string `mapstructure:"pdftotext" yaml:"pdftotext"`
		Pdftoppm  string `mapstructure:"pdftoppm" yaml:"pdftoppm"`
		Tesseract string `mapstructure:"tesseract" yaml:"tesseract"`
		Language  string `mapstructure:"language" yaml:"language"`
		DPI       int    `mapstructure:"dpi" yaml:"dpi"`
		MaxPages  int    `mapstructure:"max_pages" yaml:"max_pages"`
	} `mapstructure:"ocr" yaml:"ocr"`

	Batch struct {
		Workers int `mapstructure:"workers" yaml:"workers"`
	} `mapstructure:"batch" yaml:"batch"`

	Categories struct {
		File string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"categories" yaml:"categories"`

	CSV struct {
		Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	} `mapstructure:"csv" yaml:"csv"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.findex")
	v.AddConfigPath(".findex")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FINDEX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Log the error but don't fail - continue with defaults and env vars
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// The API key is always taken from the conventional unprefixed variable.
	if err := v.BindEnv("ai.api_key", "GEMINI_API_KEY"); err != nil {
		fmt.Printf("Warning: failed to bind GEMINI_API_KEY environment variable: %v\n", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("db.path", "findex.db")

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout_seconds", 30)

	v.SetDefault("classification.keyword_ceiling", 0.70)
	v.SetDefault("classification.confidence_threshold", 0.5)

	v.SetDefault("conflict.amount_tolerance", 0.02)
	v.SetDefault("conflict.duplicate_window_days", 1)
	v.SetDefault("conflict.similarity_window_days", 5)

	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_pages", 50)

	v.SetDefault("batch.workers", 4)

	v.SetDefault("categories.file", "categories.yaml")

	v.SetDefault("csv.delimiter", ",")
}

// validateConfig checks configuration values for consistency
func validateConfig(c *Config) error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be one of debug/info/warn/error, got '%s'", c.Log.Level)
	}

	if c.Conflict.AmountTolerance < 0 || c.Conflict.AmountTolerance >= 1 {
		return fmt.Errorf("conflict.amount_tolerance must be in [0,1), got %v", c.Conflict.AmountTolerance)
	}
	if c.Conflict.DuplicateWindowDays < 0 || c.Conflict.SimilarityWindowDays < 0 {
		return fmt.Errorf("conflict windows must be non-negative")
	}
	if c.Classification.KeywordCeiling <= 0 || c.Classification.KeywordCeiling >= 1 {
		return fmt.Errorf("classification.keyword_ceiling must be in (0,1), got %v", c.Classification.KeywordCeiling)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if c.AI.Enabled && c.AI.TimeoutSeconds < 1 {
		return fmt.Errorf("ai.timeout_seconds must be at least 1 when AI is enabled")
	}
	return nil
}
