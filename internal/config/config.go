package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dtb-digital/prospect-agent/internal/cost"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the full application configuration.
type Config struct {
	Hunter    HunterConfig    `yaml:"hunter" mapstructure:"hunter"`
	LinkedIn  LinkedInConfig  `yaml:"linkedin" mapstructure:"linkedin"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Profile   ProfileConfig   `yaml:"profile" mapstructure:"profile"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	NATS      NATSConfig      `yaml:"nats" mapstructure:"nats"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// HunterConfig holds contact-discovery API settings.
type HunterConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// LinkedInConfig holds profile API settings (RapidAPI).
type LinkedInConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Host    string `yaml:"host" mapstructure:"host"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LLMConfig selects the model provider and its call policy.
type LLMConfig struct {
	Provider         string  `yaml:"provider" mapstructure:"provider"`
	Temperature      float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// PipelineConfig configures stage behavior.
type PipelineConfig struct {
	MaxConcurrency   int     `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RequireRoleTitle bool    `yaml:"require_role_title" mapstructure:"require_role_title"`
	EnforceRankCap   bool    `yaml:"enforce_rank_cap" mapstructure:"enforce_rank_cap"`
	StageTimeoutSecs int     `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
	PromptsFile      string  `yaml:"prompts_file" mapstructure:"prompts_file"`
}

// ProfileConfig configures the profile document cache.
type ProfileConfig struct {
	CacheTTLHours int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// NATSConfig configures run event publishing. An empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Subject string `yaml:"subject" mapstructure:"subject"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RunTimeoutSecs int      `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    map[string]ModelPricing `yaml:"gemini" mapstructure:"gemini"`
	Hunter    RequestPricing          `yaml:"hunter" mapstructure:"hunter"`
	LinkedIn  RequestPricing          `yaml:"linkedin" mapstructure:"linkedin"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// RequestPricing is a flat price per API request.
type RequestPricing struct {
	PerRequest float64 `yaml:"per_request" mapstructure:"per_request"`
}

// Rates returns the built-in pricing with any configured entries layered
// on top. Viper splits keys on dots, so a model whose name contains one
// (gemini-2.5-flash) can only be priced through the built-in table.
func (p PricingConfig) Rates() cost.Rates {
	rates := cost.DefaultRates()
	for name, m := range p.Anthropic {
		rates.Anthropic[name] = cost.ModelRate(m)
	}
	for name, m := range p.Gemini {
		rates.Gemini[name] = cost.ModelRate(m)
	}
	if p.Hunter.PerRequest > 0 {
		rates.Hunter.PerRequest = p.Hunter.PerRequest
	}
	if p.LinkedIn.PerRequest > 0 {
		rates.LinkedIn.PerRequest = p.LinkedIn.PerRequest
	}
	return rates
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// Load reads configuration from .env, config.yaml and the environment.
// Environment variables use the PROSPECT_ prefix with dots replaced by
// underscores, e.g. PROSPECT_HUNTER_KEY.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about, so keys
	// without defaults are bound explicitly.
	for _, key := range []string{
		"hunter.key", "linkedin.key", "anthropic.key", "gemini.key",
		"gemini.base_url", "store.database_url", "nats.url", "log.file",
		"pipeline.prompts_file",
	} {
		_ = v.BindEnv(key)
	}

	v.SetDefault("hunter.base_url", "https://api.hunter.io/v2")
	v.SetDefault("hunter.page_size", 50)
	v.SetDefault("linkedin.host", "fresh-linkedin-profile-data.p.rapidapi.com")
	v.SetDefault("linkedin.base_url", "https://fresh-linkedin-profile-data.p.rapidapi.com")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.max_tokens", 8192)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.breaker_threshold", 5)
	v.SetDefault("llm.breaker_reset_secs", 30)
	v.SetDefault("pipeline.max_concurrency", 4)
	v.SetDefault("pipeline.rate_limit_rps", 5.0)
	v.SetDefault("pipeline.require_role_title", false)
	v.SetDefault("pipeline.enforce_rank_cap", false)
	v.SetDefault("pipeline.stage_timeout_secs", 120)
	v.SetDefault("profile.cache_ttl_hours", 168)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospect.db")
	v.SetDefault("nats.subject", "prospect.runs.completed")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.run_timeout_secs", 600)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pricing.hunter.per_request", 0.049)
	v.SetDefault("pricing.linkedin.per_request", 0.01)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration required by a command. mode is one of
// "run" (pipeline execution from the CLI), "serve" (HTTP server) or
// "store" (commands that only touch persistence).
func (c *Config) Validate(mode string) error {
	var missing []string
	check := func(name, val string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, name)
		}
	}

	switch mode {
	case "run", "serve":
		check("hunter.key", c.Hunter.Key)
		check("linkedin.key", c.LinkedIn.Key)
		switch c.LLM.Provider {
		case "anthropic":
			check("anthropic.key", c.Anthropic.Key)
			check("anthropic.model", c.Anthropic.Model)
		case "gemini":
			check("gemini.key", c.Gemini.Key)
			check("gemini.model", c.Gemini.Model)
		default:
			return eris.Errorf("config: unknown llm.provider %q (want anthropic or gemini)", c.LLM.Provider)
		}
		if c.Pipeline.MaxConcurrency < 1 || c.Pipeline.MaxConcurrency > 64 {
			return eris.Errorf("config: pipeline.max_concurrency must be between 1 and 64, got %d", c.Pipeline.MaxConcurrency)
		}
		if c.Pipeline.RateLimitRPS < 0 {
			return eris.Errorf("config: pipeline.rate_limit_rps must not be negative, got %v", c.Pipeline.RateLimitRPS)
		}
		if c.Hunter.PageSize < 1 || c.Hunter.PageSize > 100 {
			return eris.Errorf("config: hunter.page_size must be between 1 and 100, got %d", c.Hunter.PageSize)
		}
		if mode == "serve" && (c.Server.Port < 1 || c.Server.Port > 65535) {
			return eris.Errorf("config: server.port must be between 1 and 65535, got %d", c.Server.Port)
		}
	case "store":
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store.driver %q (want sqlite or postgres)", c.Store.Driver)
	}
	check("store.database_url", c.Store.DatabaseURL)

	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger. When cfg.File is set, JSON
// logs are also written to a size-rotated file.
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

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotator),
			zapCfg.Level,
		)
		logger = logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}

	zap.ReplaceGlobals(logger)
	return nil
}
