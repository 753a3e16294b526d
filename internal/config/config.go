// Package config defines the application configuration and its loader.
package config

import (
	"time"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/dataset"
	"github.com/medquorum/medquorum/internal/evidence"
)

// Config is the root application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Evidence EvidenceConfig `mapstructure:"evidence"`
	Results  ResultsConfig  `mapstructure:"results"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// LLMConfig configures the generation service.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Temperature float64       `mapstructure:"temperature"`
}

// PipelineConfig configures the deliberation pipeline.
type PipelineConfig struct {
	NumQuestionDomains int `mapstructure:"num_question_domains"`
	NumOptionDomains   int `mapstructure:"num_option_domains"`
	MaxAttemptVote     int `mapstructure:"max_attempt_vote"`
	Workers            int `mapstructure:"workers"`
}

// DatasetConfig locates and bounds the input dataset.
type DatasetConfig struct {
	Kind  string `mapstructure:"kind"`
	Path  string `mapstructure:"path"`
	Start int    `mapstructure:"start"`
	Limit int    `mapstructure:"limit"` // 0 means no limit
}

// EvidenceConfig configures retrieval-context injection.
type EvidenceConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Path         string `mapstructure:"path"`
	TopK         int    `mapstructure:"topk"`
	MaxChars     int    `mapstructure:"max_chars"`
	MinSnipChars int    `mapstructure:"min_snip_chars"`
	FilterMode   string `mapstructure:"filter_mode"`
}

// FormatConfig converts the evidence settings into the gate's config.
func (e EvidenceConfig) FormatConfig() evidence.FormatConfig {
	return evidence.FormatConfig{
		TopK:         e.TopK,
		MaxChars:     e.MaxChars,
		MinSnipChars: e.MinSnipChars,
		FilterMode:   evidence.FilterMode(e.FilterMode),
	}
}

// ResultsConfig configures record persistence.
type ResultsConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// ServerConfig configures the read-only results API.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	Watch          bool     `mapstructure:"watch"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks cross-field consistency ahead of a run.
func (c *Config) Validate() error {
	if c.LLM.BaseURL == "" {
		return core.ErrValidation(core.CodeInvalidConfig, "llm.base_url is required")
	}
	if c.LLM.Model == "" {
		return core.ErrValidation(core.CodeInvalidConfig, "llm.model is required")
	}
	if c.Pipeline.MaxAttemptVote < 1 {
		return core.ErrValidation(core.CodeInvalidConfig, "pipeline.max_attempt_vote must be at least 1")
	}
	if c.Pipeline.Workers < 1 {
		return core.ErrValidation(core.CodeInvalidConfig, "pipeline.workers must be at least 1")
	}
	if c.Dataset.Kind != "" && !dataset.ValidKind(dataset.Kind(c.Dataset.Kind)) {
		return core.ErrValidation(core.CodeInvalidConfig, "unknown dataset.kind: "+c.Dataset.Kind)
	}
	if !evidence.ValidFilterMode(evidence.FilterMode(c.Evidence.FilterMode)) {
		return core.ErrValidation(core.CodeInvalidConfig, "unknown evidence.filter_mode: "+c.Evidence.FilterMode)
	}
	if c.Evidence.Enabled && c.Evidence.Path == "" {
		return core.ErrValidation(core.CodeInvalidConfig, "evidence.path is required when evidence.enabled")
	}
	return nil
}
