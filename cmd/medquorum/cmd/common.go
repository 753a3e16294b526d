package cmd

import (
	"github.com/spf13/viper"

	"github.com/medquorum/medquorum/internal/adapters/llm"
	"github.com/medquorum/medquorum/internal/config"
	"github.com/medquorum/medquorum/internal/logging"
)

// loadConfig loads configuration with the global viper instance so CLI
// flag bindings take effect.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}
	return loader.Load()
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// newGenerator builds the chat-completions adapter from config.
func newGenerator(cfg *config.Config, log *logging.Logger) *llm.OpenAICompatible {
	retry := llm.DefaultRetryPolicy()
	if cfg.LLM.MaxRetries > 0 {
		retry.MaxAttempts = cfg.LLM.MaxRetries
	}
	return llm.NewOpenAICompatible(llm.ClientConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLM.Timeout,
		Retry:       retry,
		Temperature: cfg.LLM.Temperature,
	}, log)
}
