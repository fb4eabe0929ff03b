package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Weather WeatherConfig `yaml:"weather" mapstructure:"weather"`
	Mandi   MandiConfig   `yaml:"mandi" mapstructure:"mandi"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	CORSOrigins         []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LLMConfig holds the chat provider chain settings. Providers are tried in
// the order nvidia, groq, anthropic; a provider without a key is skipped.
type LLMConfig struct {
	TimeoutSecs  int             `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	HistoryLimit int             `yaml:"history_limit" mapstructure:"history_limit"`
	NVIDIA       ProviderConfig  `yaml:"nvidia" mapstructure:"nvidia"`
	Groq         ProviderConfig  `yaml:"groq" mapstructure:"groq"`
	Anthropic    AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
}

// ProviderConfig describes one OpenAI-compatible chat endpoint.
type ProviderConfig struct {
	Name             string   `yaml:"name" mapstructure:"name"`
	Key              string   `yaml:"key" mapstructure:"key"`
	BaseURL          string   `yaml:"base_url" mapstructure:"base_url"`
	Model            string   `yaml:"model" mapstructure:"model"`
	Temperature      float64  `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens        int64    `yaml:"max_tokens" mapstructure:"max_tokens"`
	TopP             *float64 `yaml:"top_p" mapstructure:"top_p"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty" mapstructure:"frequency_penalty"`
	PresencePenalty  *float64 `yaml:"presence_penalty" mapstructure:"presence_penalty"`
}

// AnthropicConfig holds the optional Anthropic provider settings.
type AnthropicConfig struct {
	Name        string  `yaml:"name" mapstructure:"name"`
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// WeatherConfig holds WeatherAPI.com settings.
type WeatherConfig struct {
	Key             string `yaml:"key" mapstructure:"key"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	DefaultLocation string `yaml:"default_location" mapstructure:"default_location"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheMaxAgeSecs int    `yaml:"cache_max_age_secs" mapstructure:"cache_max_age_secs"`
}

// MandiConfig holds data.gov.in commodity price settings.
type MandiConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	ResourceID   string `yaml:"resource_id" mapstructure:"resource_id"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLSecs int    `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	DefaultLimit int    `yaml:"default_limit" mapstructure:"default_limit"`
}

// StoreConfig configures the conversation history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// RedisConfig configures the optional response cache.
type RedisConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// envAliases maps config keys to the bare environment variable names used by
// existing deployments. The prefixed AGRIMATE_* form is always accepted too.
var envAliases = map[string]string{
	"llm.nvidia.key":     "NVIDIA_API_KEY",
	"llm.groq.key":       "GROQ_API_KEY",
	"llm.anthropic.key":  "ANTHROPIC_API_KEY",
	"weather.key":        "WEATHER_API_KEY",
	"mandi.key":          "DATA_GOV_API_KEY",
	"redis.url":          "REDIS_URL",
	"store.database_url": "DATABASE_URL",
}

// Load reads configuration from .env files, config.yaml, and the environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path falls back to
// an optional config.yaml in the working directory; a named file must exist.
func LoadFile(path string) (*Config, error) {
	if err := loadDotEnv(".env.local", ".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("AGRIMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		prefixed := "AGRIMATE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", env)
		}
	}

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.timeout_secs", 60)
	v.SetDefault("llm.history_limit", 20)
	v.SetDefault("llm.nvidia.name", "NVIDIA Nemotron Super 49B")
	v.SetDefault("llm.nvidia.base_url", "https://integrate.api.nvidia.com/v1")
	v.SetDefault("llm.nvidia.model", "nvidia/llama-3.3-nemotron-super-49b-v1.5")
	v.SetDefault("llm.nvidia.temperature", 0.6)
	v.SetDefault("llm.nvidia.max_tokens", 4096)
	v.SetDefault("llm.nvidia.top_p", 0.95)
	v.SetDefault("llm.nvidia.frequency_penalty", 0.0)
	v.SetDefault("llm.nvidia.presence_penalty", 0.0)
	v.SetDefault("llm.groq.name", "Groq Llama 3.3 70B")
	v.SetDefault("llm.groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.groq.temperature", 0.7)
	v.SetDefault("llm.groq.max_tokens", 4096)
	v.SetDefault("llm.anthropic.name", "Anthropic Claude Haiku 4.5")
	v.SetDefault("llm.anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.anthropic.max_tokens", 4096)
	v.SetDefault("llm.anthropic.temperature", 0.7)
	v.SetDefault("weather.base_url", "https://api.weatherapi.com/v1")
	v.SetDefault("weather.default_location", "New Delhi")
	v.SetDefault("weather.timeout_secs", 10)
	v.SetDefault("weather.cache_max_age_secs", 600)
	v.SetDefault("mandi.base_url", "https://api.data.gov.in/resource")
	v.SetDefault("mandi.resource_id", "9ef84268-d588-465a-a308-a864a43d0070")
	v.SetDefault("mandi.timeout_secs", 5)
	v.SetDefault("mandi.cache_ttl_secs", 300)
	v.SetDefault("mandi.default_limit", 50)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "agrimate.db")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks required fields for the given command mode.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		errs = append(errs, c.validateStore()...)
	case "history":
		errs = append(errs, c.validateStore()...)
	case "chat", "analyze":
		if !c.LLM.HasProvider() {
			errs = append(errs, "one of llm.nvidia.key, llm.groq.key or llm.anthropic.key is required")
		}
	case "weather":
		if c.Weather.Key == "" {
			errs = append(errs, "weather.key is required")
		}
	case "mandi":
		if c.Mandi.DefaultLimit <= 0 {
			errs = append(errs, "mandi.default_limit must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite", "bolt":
		if c.Store.Path == "" {
			return []string{"store.path is required for driver " + c.Store.Driver}
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for driver postgres"}
		}
	default:
		return []string{"unknown store.driver " + c.Store.Driver}
	}
	return nil
}

// HasProvider reports whether any chat provider has a credential.
func (l LLMConfig) HasProvider() bool {
	return l.NVIDIA.Key != "" || l.Groq.Key != "" || l.Anthropic.Key != ""
}

// loadDotEnv populates the process environment from the given files. Earlier
// files win; variables already set in the environment are never overridden.
func loadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return eris.Wrapf(err, "config: load %s", f)
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
