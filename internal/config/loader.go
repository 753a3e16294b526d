package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "MEDQUORUM",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "MEDQUORUM",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (MEDQUORUM_*)
// 3. Project config (.medquorum.yaml in current directory)
// 4. User config (~/.config/medquorum/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".medquorum")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "medquorum"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	l.v.SetDefault("llm.model", "gpt-4o-mini")
	l.v.SetDefault("llm.timeout", "120s")
	l.v.SetDefault("llm.max_retries", 3)
	l.v.SetDefault("llm.temperature", 0.0)

	l.v.SetDefault("pipeline.num_question_domains", 5)
	l.v.SetDefault("pipeline.num_option_domains", 5)
	l.v.SetDefault("pipeline.max_attempt_vote", 3)
	l.v.SetDefault("pipeline.workers", 1)

	l.v.SetDefault("dataset.kind", "medqa")
	l.v.SetDefault("dataset.start", 0)
	l.v.SetDefault("dataset.limit", 0)

	l.v.SetDefault("evidence.enabled", false)
	l.v.SetDefault("evidence.topk", 5)
	l.v.SetDefault("evidence.max_chars", 2500)
	l.v.SetDefault("evidence.min_snip_chars", 80)
	l.v.SetDefault("evidence.filter_mode", "artifact_only")

	l.v.SetDefault("results.backend", "jsonl")
	l.v.SetDefault("results.path", ".medquorum/results.jsonl")

	l.v.SetDefault("server.addr", "127.0.0.1:8714")
	l.v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	l.v.SetDefault("server.watch", true)

	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")
}
