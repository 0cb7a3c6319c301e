package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Formatter  FormatterConfig  `yaml:"formatter" mapstructure:"formatter"`
	OpenRouter OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Prompts    PromptsConfig    `yaml:"prompts" mapstructure:"prompts"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// PerplexityConfig holds Perplexity API settings for the research stage.
type PerplexityConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// FormatterConfig selects the formatting stage provider.
type FormatterConfig struct {
	// Provider is "openrouter" or "anthropic".
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// OpenRouterConfig holds OpenRouter API settings for the formatting stage.
type OpenRouterConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// AnthropicConfig holds Anthropic API settings for the alternate formatter.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PromptsConfig optionally overrides the built-in research templates. Empty
// values keep the built-ins.
type PromptsConfig struct {
	CompanyProfile  string `yaml:"company_profile" mapstructure:"company_profile"`
	ProductSnapshot string `yaml:"product_snapshot" mapstructure:"product_snapshot"`
}

// PricingConfig holds per-provider token pricing (USD per 1k tokens) and the
// USD to EUR conversion applied to the cost summary.
type PricingConfig struct {
	PerplexityPer1K float64 `yaml:"perplexity_per_1k" mapstructure:"perplexity_per_1k"`
	FormatterPer1K  float64 `yaml:"formatter_per_1k" mapstructure:"formatter_per_1k"`
	EURPerUSD       float64 `yaml:"eur_per_usd" mapstructure:"eur_per_usd"`
}

// ServerConfig configures the web server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ANALYSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a meaningful default still get an empty entry so
	// AutomaticEnv can bind them during Unmarshal.
	v.SetDefault("perplexity.key", "")
	v.SetDefault("openrouter.key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("prompts.company_profile", "")
	v.SetDefault("prompts.product_snapshot", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.timeout_secs", 60)
	v.SetDefault("perplexity.rps", 2)
	v.SetDefault("formatter.provider", "openrouter")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "openai/gpt-4o")
	v.SetDefault("openrouter.timeout_secs", 60)
	v.SetDefault("openrouter.rps", 2)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("pricing.perplexity_per_1k", 0.01)
	v.SetDefault("pricing.formatter_per_1k", 0.005)
	v.SetDefault("pricing.eur_per_usd", 0.92)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ValidateCredentials checks that the credentials required by the configured
// providers are present. Called before constructing clients so a missing key
// fails loudly at startup instead of on the first user request.
func (c *Config) ValidateCredentials() error {
	if c.Perplexity.Key == "" {
		return eris.New("config: perplexity.key is required (set ANALYSIS_PERPLEXITY_KEY)")
	}
	switch c.Formatter.Provider {
	case "openrouter":
		if c.OpenRouter.Key == "" {
			return eris.New("config: openrouter.key is required (set ANALYSIS_OPENROUTER_KEY)")
		}
	case "anthropic":
		if c.Anthropic.Key == "" {
			return eris.New("config: anthropic.key is required (set ANALYSIS_ANTHROPIC_KEY)")
		}
	default:
		return eris.Errorf("config: unknown formatter provider %q", c.Formatter.Provider)
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
