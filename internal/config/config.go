package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Dataset    DatasetConfig    `yaml:"dataset" mapstructure:"dataset"`
	Taxonomy   TaxonomyConfig   `yaml:"taxonomy" mapstructure:"taxonomy"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Normalize  NormalizeConfig  `yaml:"normalize" mapstructure:"normalize"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Checkpoint CheckpointConfig `yaml:"checkpoint" mapstructure:"checkpoint"`
	Merge      MergeConfig      `yaml:"merge" mapstructure:"merge"`
	Feeds      []FeedConfig     `yaml:"feeds" mapstructure:"feeds"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DatasetConfig locates the canonical dataset and its run artifacts.
type DatasetConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	BackupPath string `yaml:"backup_path" mapstructure:"backup_path"`
	FinalCopy  string `yaml:"final_copy" mapstructure:"final_copy"`
}

// TaxonomyConfig locates the closed theme/type vocabularies.
type TaxonomyConfig struct {
	ThemesPath  string `yaml:"themes_path" mapstructure:"themes_path"`
	TypesPath   string `yaml:"types_path" mapstructure:"types_path"`
	MaxDistance int    `yaml:"max_distance" mapstructure:"max_distance"`
}

// FetchConfig configures the page fetcher.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	MaxBodyKB   int    `yaml:"max_body_kb" mapstructure:"max_body_kb"`
}

// NormalizeConfig selects how page HTML becomes a model excerpt.
type NormalizeConfig struct {
	Strategy string `yaml:"strategy" mapstructure:"strategy"` // text, readability, markdown
	MaxChars int    `yaml:"max_chars" mapstructure:"max_chars"`
}

// LLMConfig selects the completion provider and shared request settings.
type LLMConfig struct {
	Provider     string  `yaml:"provider" mapstructure:"provider"` // anthropic, openai, gemini
	Temperature  float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens    int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ClampVocab   bool    `yaml:"clamp_vocab" mapstructure:"clamp_vocab"`
	SystemPrompt string  `yaml:"system_prompt" mapstructure:"system_prompt"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OpenAIConfig holds settings for any OpenAI-compatible chat completions API.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// EnrichConfig configures the batch orchestrator.
type EnrichConfig struct {
	Profile         string `yaml:"profile" mapstructure:"profile"`
	IntervalMs      int    `yaml:"interval_ms" mapstructure:"interval_ms"`
	Burst           int    `yaml:"burst" mapstructure:"burst"`
	CheckpointEvery int    `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
	MetricsAddr     string `yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

// CheckpointConfig configures checkpoint artifacts.
type CheckpointConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
	S3Bucket string `yaml:"s3_bucket" mapstructure:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix" mapstructure:"s3_prefix"`
	S3Region string `yaml:"s3_region" mapstructure:"s3_region"`
}

// MergeConfig configures source list consolidation.
type MergeConfig struct {
	Sources []string `yaml:"sources" mapstructure:"sources"`
	Policy  string   `yaml:"policy" mapstructure:"policy"` // last, fill
}

// FeedConfig describes one RSS/Atom feed to ingest.
type FeedConfig struct {
	Name         string            `yaml:"name" mapstructure:"name"`
	URL          string            `yaml:"url" mapstructure:"url"`
	Source       string            `yaml:"source" mapstructure:"source"`
	Type         string            `yaml:"type" mapstructure:"type"`
	DefaultType  string            `yaml:"default_type" mapstructure:"default_type"`
	TypeKeywords map[string]string `yaml:"type_keywords" mapstructure:"type_keywords"`
	ExcludeTypes []string          `yaml:"exclude_types" mapstructure:"exclude_types"`
	MaxItems     int               `yaml:"max_items" mapstructure:"max_items"`
	Output       string            `yaml:"output" mapstructure:"output"`
}

// PricingConfig holds per-model token pricing for cost logging.
type PricingConfig struct {
	Models       map[string]ModelPricing `yaml:"models" mapstructure:"models"`
	PerRecordUSD float64                 `yaml:"per_record_usd" mapstructure:"per_record_usd"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ResilienceConfig tunes retries and the completion circuit breaker.
type ResilienceConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PUBENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("dataset.path", "public/content/publicaties.json")
	v.SetDefault("dataset.backup_path", "publicaties_original_backup.json")
	v.SetDefault("dataset.final_copy", "publicaties_final.json")

	v.SetDefault("taxonomy.themes_path", "public/content/themes.json")
	v.SetDefault("taxonomy.types_path", "public/content/types.json")
	v.SetDefault("taxonomy.max_distance", 2)

	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_attempts", 2)
	v.SetDefault("fetch.max_body_kb", 2048)

	v.SetDefault("normalize.strategy", "text")

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.timeout_secs", 90)
	v.SetDefault("llm.clamp_vocab", true)

	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("gemini.model", "gemini-2.0-flash")

	v.SetDefault("enrich.profile", "basic")
	v.SetDefault("enrich.burst", 1)

	v.SetDefault("checkpoint.dir", "checkpoints")
	v.SetDefault("checkpoint.prefix", "publications_progress")
	v.SetDefault("checkpoint.s3_prefix", "pubenrich/checkpoints")

	v.SetDefault("merge.policy", "last")
	v.SetDefault("merge.sources", []string{
		"public/content/vng_publicaties.json",
		"public/content/burgeroverheid.json",
		"public/content/stibbe.json",
		"public/content/leiden.json",
	})

	v.SetDefault("pricing.per_record_usd", 0.035)

	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 1000)
	v.SetDefault("resilience.max_backoff_ms", 20000)
	v.SetDefault("resilience.multiplier", 2.0)
	v.SetDefault("resilience.jitter_fraction", 0.25)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 60)

	// Zero defaults register keys so environment overrides reach Unmarshal.
	for _, key := range []string{
		"anthropic.key", "openai.key", "gemini.key",
		"checkpoint.s3_bucket", "checkpoint.s3_region",
		"enrich.metrics_addr", "llm.system_prompt",
	} {
		v.SetDefault(key, "")
	}
	for _, key := range []string{
		"normalize.max_chars", "llm.max_tokens",
		"enrich.interval_ms", "enrich.checkpoint_every",
	} {
		v.SetDefault(key, 0)
	}
}

// Validate checks the settings a command mode cannot run without. Every
// problem is reported, not just the first.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "enrich":
		switch c.LLM.Provider {
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required")
			}
		case "openai":
			if c.OpenAI.Key == "" {
				errs = append(errs, "openai.key is required")
			}
		case "gemini":
			if c.Gemini.Key == "" {
				errs = append(errs, "gemini.key is required")
			}
		default:
			errs = append(errs, fmt.Sprintf("llm.provider %q is not one of anthropic, openai, gemini", c.LLM.Provider))
		}
		if c.Dataset.Path == "" {
			errs = append(errs, "dataset.path is required")
		}
		if c.Enrich.Burst < 0 || c.Enrich.IntervalMs < 0 || c.Enrich.CheckpointEvery < 0 {
			errs = append(errs, "enrich interval_ms, burst and checkpoint_every must be >= 0")
		}
		if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
			errs = append(errs, "llm.temperature must be between 0 and 2")
		}
	case "merge":
		if c.Merge.Policy != "fill" && c.Merge.Policy != "last" {
			errs = append(errs, fmt.Sprintf("merge.policy %q is not one of fill, last", c.Merge.Policy))
		}
	case "ingest":
		if len(c.Feeds) == 0 {
			errs = append(errs, "feeds: at least one feed is required")
		}
		for i, f := range c.Feeds {
			if f.URL == "" {
				errs = append(errs, fmt.Sprintf("feeds[%d].url is required", i))
			}
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
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
