// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jonathan/campaign-briefing/internal/fetch"
	"github.com/jonathan/campaign-briefing/internal/llm"
	"github.com/jonathan/campaign-briefing/internal/ranking"
	"github.com/jonathan/campaign-briefing/internal/retry"
	"github.com/jonathan/campaign-briefing/internal/server/ratelimit"
)

// EnvPrefix is prepended to every environment override, e.g. CAMPAIGN_SERVER_PORT.
const EnvPrefix = "CAMPAIGN"

// Config is the complete application configuration
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Feeds   FeedsConfig   `mapstructure:"feeds"`
	Ranking RankingConfig `mapstructure:"ranking"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Verbose bool          `mapstructure:"verbose"`
}

// LLMConfig selects and tunes the generation provider
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=openrouter gemini"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Referer     string        `mapstructure:"referer"`
	Title       string        `mapstructure:"title"`
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// RetryConfig bounds generation retries. Backoff shapes the wait between
// attempts: fixed waits Delay every time, linear waits attempt*Delay and
// exponential doubles Delay up to eight times its value.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
	Delay       time.Duration `mapstructure:"delay" validate:"gte=0"`
	Backoff     string        `mapstructure:"backoff" validate:"oneof=fixed linear exponential"`
}

// FeedsConfig tunes feed fetching
type FeedsConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxBytes          int64         `mapstructure:"max_bytes" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int           `mapstructure:"burst" validate:"gte=0"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// RankingConfig controls the shortlist handed to the model
type RankingConfig struct {
	ShortlistSize int `mapstructure:"shortlist_size" validate:"min=1,max=50"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port               int           `mapstructure:"port" validate:"min=1,max=65535"`
	ArticlesTTL        time.Duration `mapstructure:"articles_ttl" validate:"gte=0"`
	DeepDiveTTL        time.Duration `mapstructure:"deep_dive_ttl" validate:"gte=0"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	RateLimit          bool          `mapstructure:"rate_limit"`
	RateLimitWhitelist []string      `mapstructure:"rate_limit_whitelist" validate:"dive,ip"`
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Load reads configuration from defaults, an optional YAML/JSON file and the
// environment, in increasing precedence. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindProviderEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(v, cfg.LLM.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	llmDefaults := llm.DefaultOpenRouterConfig()
	v.SetDefault("llm.provider", string(llm.ProviderOpenRouter))
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.referer", llmDefaults.Referer)
	v.SetDefault("llm.title", llmDefaults.Title)
	v.SetDefault("llm.temperature", llmDefaults.Temperature)
	v.SetDefault("llm.timeout", llmDefaults.Timeout)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay", 500*time.Millisecond)
	v.SetDefault("retry.backoff", "exponential")

	fetchDefaults := fetch.DefaultOptions()
	v.SetDefault("feeds.timeout", 10*time.Second)
	v.SetDefault("feeds.max_bytes", fetchDefaults.MaxBytes)
	v.SetDefault("feeds.requests_per_second", fetchDefaults.RequestsPerSecond)
	v.SetDefault("feeds.burst", fetchDefaults.Burst)
	v.SetDefault("feeds.user_agent", fetchDefaults.UserAgent)

	v.SetDefault("ranking.shortlist_size", ranking.DefaultShortlistLimit)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.articles_ttl", time.Hour)
	v.SetDefault("server.deep_dive_ttl", 24*time.Hour)
	v.SetDefault("server.request_timeout", 90*time.Second)
	v.SetDefault("server.rate_limit", true)
	v.SetDefault("server.rate_limit_whitelist", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("verbose", false)
}

// bindProviderEnv maps the provider-native variable names onto config keys.
func bindProviderEnv(v *viper.Viper) {
	_ = v.BindEnv("llm.model", EnvPrefix+"_LLM_MODEL", "OPENROUTER_MODEL")
	_ = v.BindEnv("openrouter_api_key", "OPENROUTER_API_KEY")
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY")
}

func providerKey(v *viper.Viper, provider string) string {
	if llm.Provider(provider) == llm.ProviderGemini {
		return v.GetString("gemini_api_key")
	}
	return v.GetString("openrouter_api_key")
}

var validate = validator.New()

// Validate checks that the configuration has valid values.
// The API key is not required here; commands that call a model check it.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.LLM.Provider == "" {
		result.LLM.Provider = defaults.LLM.Provider
	}
	if result.LLM.BaseURL == "" {
		result.LLM.BaseURL = defaults.LLM.BaseURL
	}
	if result.LLM.Model == "" {
		result.LLM.Model = defaults.LLM.Model
	}
	if result.LLM.APIKey == "" {
		result.LLM.APIKey = defaults.LLM.APIKey
	}
	if result.LLM.Referer == "" {
		result.LLM.Referer = defaults.LLM.Referer
	}
	if result.LLM.Title == "" {
		result.LLM.Title = defaults.LLM.Title
	}
	if result.LLM.Temperature == 0 {
		result.LLM.Temperature = defaults.LLM.Temperature
	}
	if result.LLM.Timeout == 0 {
		result.LLM.Timeout = defaults.LLM.Timeout
	}

	if result.Retry.MaxAttempts == 0 {
		result.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if result.Retry.Delay == 0 {
		result.Retry.Delay = defaults.Retry.Delay
	}
	if result.Retry.Backoff == "" {
		result.Retry.Backoff = defaults.Retry.Backoff
	}

	if result.Feeds.Timeout == 0 {
		result.Feeds.Timeout = defaults.Feeds.Timeout
	}
	if result.Feeds.MaxBytes == 0 {
		result.Feeds.MaxBytes = defaults.Feeds.MaxBytes
	}
	if result.Feeds.RequestsPerSecond == 0 {
		result.Feeds.RequestsPerSecond = defaults.Feeds.RequestsPerSecond
	}
	if result.Feeds.Burst == 0 {
		result.Feeds.Burst = defaults.Feeds.Burst
	}
	if result.Feeds.UserAgent == "" {
		result.Feeds.UserAgent = defaults.Feeds.UserAgent
	}

	if result.Ranking.ShortlistSize == 0 {
		result.Ranking.ShortlistSize = defaults.Ranking.ShortlistSize
	}

	if result.Server.Port == 0 {
		result.Server.Port = defaults.Server.Port
	}
	if result.Server.ArticlesTTL == 0 {
		result.Server.ArticlesTTL = defaults.Server.ArticlesTTL
	}
	if result.Server.DeepDiveTTL == 0 {
		result.Server.DeepDiveTTL = defaults.Server.DeepDiveTTL
	}
	if result.Server.RequestTimeout == 0 {
		result.Server.RequestTimeout = defaults.Server.RequestTimeout
	}

	if result.Logging.Level == "" {
		result.Logging.Level = defaults.Logging.Level
	}
	if result.Logging.Format == "" {
		result.Logging.Format = defaults.Logging.Format
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// LLMClientConfig builds the provider configuration. A configured model
// replaces every tier's default.
func (c *Config) LLMClientConfig() *llm.Config {
	var out *llm.Config
	if llm.Provider(c.LLM.Provider) == llm.ProviderGemini {
		out = llm.DefaultGeminiConfig()
	} else {
		out = llm.DefaultOpenRouterConfig()
	}
	if c.LLM.BaseURL != "" {
		out.BaseURL = c.LLM.BaseURL
	}
	if c.LLM.Referer != "" {
		out.Referer = c.LLM.Referer
	}
	if c.LLM.Title != "" {
		out.Title = c.LLM.Title
	}
	if c.LLM.Timeout > 0 {
		out.Timeout = c.LLM.Timeout
	}
	out.Temperature = c.LLM.Temperature
	if c.LLM.Model != "" {
		out = out.WithAllModels(c.LLM.Model)
	}
	return out
}

// FetchOptions builds the feed fetcher options.
func (c *Config) FetchOptions() *fetch.Options {
	opts := fetch.DefaultOptions()
	opts.Timeout = c.Feeds.Timeout
	opts.MaxBytes = c.Feeds.MaxBytes
	opts.RequestsPerSecond = c.Feeds.RequestsPerSecond
	opts.Burst = c.Feeds.Burst
	if c.Feeds.UserAgent != "" {
		opts.UserAgent = c.Feeds.UserAgent
	}
	return opts
}

// RateLimitConfig builds the per-client limits for the HTTP API.
func (c *Config) RateLimitConfig() *ratelimit.Config {
	rl := ratelimit.DefaultConfig()
	rl.Enabled = c.Server.RateLimit
	rl.Whitelist = ratelimit.ParseIPList(c.Server.RateLimitWhitelist)
	return rl
}

// RetryDelay builds the wait between generation attempts.
func (c *Config) RetryDelay() retry.Delay {
	base := c.Retry.Delay
	switch c.Retry.Backoff {
	case "fixed":
		return retry.Fixed(base)
	case "linear":
		return retry.Backoff(func(attempt int) time.Duration {
			return time.Duration(attempt) * base
		})
	default:
		return retry.Exponential(base, 8*base)
	}
}

// RequireAPIKey reports a missing provider key with the variable to set.
func (c *Config) RequireAPIKey() error {
	if c.LLM.APIKey != "" {
		return nil
	}
	if llm.Provider(c.LLM.Provider) == llm.ProviderGemini {
		return errors.New("API key is required (set GEMINI_API_KEY or llm.api_key)")
	}
	return errors.New("API key is required (set OPENROUTER_API_KEY or llm.api_key)")
}
