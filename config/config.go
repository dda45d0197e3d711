// Package config loads chatcore settings from an optional config file, a .env
// file and CHATCORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider names understood by BackendConfig.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds application configuration.
type Config struct {
	Backends     []BackendConfig  `mapstructure:"backends"`
	History      HistoryConfig    `mapstructure:"history"`
	Enrichment   EnrichmentConfig `mapstructure:"enrichment"`
	Probe        ProbeConfig      `mapstructure:"probe"`
	Generation   GenerationConfig `mapstructure:"generation"`
	Action       ActionConfig     `mapstructure:"action"`
	Stream       StreamConfig     `mapstructure:"stream"`
	SystemPrompt string           `mapstructure:"system_prompt"`
	Storage      StorageConfig    `mapstructure:"storage"`
	Server       ServerConfig     `mapstructure:"server"`
	Log          LogConfig        `mapstructure:"log"`
	Portfolio    PortfolioConfig  `mapstructure:"portfolio"`
}

// BackendConfig describes one generation backend.
type BackendConfig struct {
	Name        string  `mapstructure:"name"`
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Rank        int     `mapstructure:"rank"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// HistoryConfig bounds stored conversation history.
type HistoryConfig struct {
	Window int `mapstructure:"window"`
}

// EnrichmentConfig bounds context enrichment.
type EnrichmentConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	SourceTimeout time.Duration `mapstructure:"source_timeout"`
	MaxSignals    int           `mapstructure:"max_signals"`
}

// ProbeConfig bounds backend health checks.
type ProbeConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// GenerationConfig bounds one backend completion call.
type GenerationConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ActionConfig bounds one action execution.
type ActionConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// StreamConfig paces streamed chunks.
type StreamConfig struct {
	Pace time.Duration `mapstructure:"pace"`
}

// StorageConfig selects the conversation store.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // memory | sqlite
	DSN    string `mapstructure:"dsn"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

// PortfolioConfig seeds the paper portfolio.
type PortfolioConfig struct {
	Cash      float64            `mapstructure:"cash"`
	Prices    map[string]float64 `mapstructure:"prices"`
	Positions map[string]float64 `mapstructure:"positions"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("history.window", 20)
	v.SetDefault("enrichment.timeout", 2*time.Second)
	v.SetDefault("enrichment.source_timeout", 1500*time.Millisecond)
	v.SetDefault("enrichment.max_signals", 3)
	v.SetDefault("probe.timeout", 3*time.Second)
	v.SetDefault("generation.timeout", 30*time.Second)
	v.SetDefault("action.timeout", 15*time.Second)
	v.SetDefault("stream.pace", 20*time.Millisecond)
	v.SetDefault("system_prompt", "")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "chatcore.db")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("portfolio.cash", 10000.0)
}

// Load reads configuration. An empty path searches for chatcore.{yaml,toml,json}
// in the working directory and tolerates its absence; an explicit path must
// exist. Env var overrides use prefix CHATCORE_.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("chatcore")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("CHATCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(c.Backends) == 0 {
		c.Backends = BackendsFromEnv()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// BackendsFromEnv derives backends from well-known provider variables, in
// rank order ollama, openai, anthropic.
func BackendsFromEnv() []BackendConfig {
	var out []BackendConfig
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		out = append(out, BackendConfig{
			Name:     ProviderOllama,
			Provider: ProviderOllama,
			Model:    os.Getenv("OLLAMA_MODEL"),
			BaseURL:  url,
			Rank:     0,
		})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		out = append(out, BackendConfig{
			Name:     ProviderOpenAI,
			Provider: ProviderOpenAI,
			Model:    os.Getenv("OPENAI_MODEL"),
			APIKey:   key,
			BaseURL:  os.Getenv("OPENAI_BASE_URL"),
			Rank:     1,
		})
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		out = append(out, BackendConfig{
			Name:     ProviderAnthropic,
			Provider: ProviderAnthropic,
			Model:    os.Getenv("ANTHROPIC_MODEL"),
			APIKey:   key,
			Rank:     2,
		})
	}
	return out
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.History.Window < 2 {
		errs = append(errs, fmt.Errorf("history.window must be at least 2, got %d", c.History.Window))
	}
	for key, d := range map[string]time.Duration{
		"enrichment.timeout":        c.Enrichment.Timeout,
		"enrichment.source_timeout": c.Enrichment.SourceTimeout,
		"probe.timeout":             c.Probe.Timeout,
		"generation.timeout":        c.Generation.Timeout,
		"action.timeout":            c.Action.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, d))
		}
	}
	if c.Stream.Pace < 0 {
		errs = append(errs, fmt.Errorf("stream.pace must not be negative, got %s", c.Stream.Pace))
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	seen := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("backends[%d].name is required", i))
		} else if seen[b.Name] {
			errs = append(errs, fmt.Errorf("duplicate backend name %q", b.Name))
		}
		seen[b.Name] = true
		switch b.Provider {
		case ProviderOllama, ProviderOpenAI, ProviderAnthropic:
		default:
			errs = append(errs, fmt.Errorf("backends[%d]: unknown provider %q", i, b.Provider))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
