// Package config loads actionmesh configuration from YAML files and
// ACTIONMESH_* environment variables using Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// ACTIONMESH_MODEL_PROVIDER=anthropic.
const EnvPrefix = "ACTIONMESH"

// Config is the complete runtime configuration.
type Config struct {
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
	Model        ModelConfig        `mapstructure:"model" yaml:"model"`
	Store        StoreConfig        `mapstructure:"store" yaml:"store"`
	Enrichment   EnrichmentConfig   `mapstructure:"enrichment" yaml:"enrichment"`
	Commitment   CommitmentConfig   `mapstructure:"commitment" yaml:"commitment"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	SMS          SMSConfig          `mapstructure:"sms" yaml:"sms"`
	ErrorBuffer  ErrorBufferConfig  `mapstructure:"error_buffer" yaml:"error_buffer"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json or text
}

// ModelConfig selects the language model provider.
type ModelConfig struct {
	Provider        string        `mapstructure:"provider" yaml:"provider"` // openai, anthropic, gemini or mock
	// Model and ClassifierModel default to the provider's default model.
	Model           string        `mapstructure:"model" yaml:"model"`
	ClassifierModel string        `mapstructure:"classifier_model" yaml:"classifier_model"`
	APIKey          string        `mapstructure:"api_key" yaml:"api_key"`
	Temperature     float64       `mapstructure:"temperature" yaml:"temperature"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst           int           `mapstructure:"burst" yaml:"burst"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // memory, sqlite or postgres
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// EnrichmentConfig bounds the enrichment bundle.
type EnrichmentConfig struct {
	ActivityLimit int    `mapstructure:"activity_limit" yaml:"activity_limit"`
	UpcomingLimit int    `mapstructure:"upcoming_limit" yaml:"upcoming_limit"`
	MessageLimit  int    `mapstructure:"message_limit" yaml:"message_limit"`
	CountryCode   string `mapstructure:"country_code" yaml:"country_code"`
}

// CommitmentConfig configures follow-up due dates.
type CommitmentConfig struct {
	CutoffHour int    `mapstructure:"cutoff_hour" yaml:"cutoff_hour"`
	DueHour    int    `mapstructure:"due_hour" yaml:"due_hour"`
	Timezone   string `mapstructure:"timezone" yaml:"timezone"`
}

// Location resolves Timezone.
func (c CommitmentConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// OrchestratorConfig configures prompts and authorization.
type OrchestratorConfig struct {
	CompanyName         string        `mapstructure:"company_name" yaml:"company_name"`
	ForbiddenCategories []string      `mapstructure:"forbidden_categories" yaml:"forbidden_categories"`
	Integrations        []string      `mapstructure:"integrations" yaml:"integrations"`
	ToolTimeout         time.Duration `mapstructure:"tool_timeout" yaml:"tool_timeout"`
}

// SMSConfig configures the SMS channel.
type SMSConfig struct {
	MaxLength     int    `mapstructure:"max_length" yaml:"max_length"`
	FallbackReply string `mapstructure:"fallback_reply" yaml:"fallback_reply"`
}

// ErrorBufferConfig configures the per-session client error buffer. A
// non-empty RedisAddr selects the Redis backed buffer.
type ErrorBufferConfig struct {
	Size      int           `mapstructure:"size" yaml:"size"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Model: ModelConfig{
			Provider:    "openai",
			Temperature: 0.3,
			Timeout:     30 * time.Second,
			Burst:       1,
		},
		Store:      StoreConfig{Driver: "memory"},
		Enrichment: EnrichmentConfig{ActivityLimit: 10, UpcomingLimit: 5, MessageLimit: 10, CountryCode: "1"},
		Commitment: CommitmentConfig{CutoffHour: 17, DueHour: 17, Timezone: "UTC"},
		Orchestrator: OrchestratorConfig{
			ForbiddenCategories: []string{"payments"},
			ToolTimeout:         15 * time.Second,
		},
		SMS:         SMSConfig{MaxLength: 320, FallbackReply: "Thanks for your message! A member of our team will get back to you shortly."},
		ErrorBuffer: ErrorBufferConfig{Size: 20, TTL: 10 * time.Minute},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.model", d.Model.Model)
	v.SetDefault("model.classifier_model", d.Model.ClassifierModel)
	v.SetDefault("model.api_key", d.Model.APIKey)
	v.SetDefault("model.temperature", d.Model.Temperature)
	v.SetDefault("model.timeout", d.Model.Timeout)
	v.SetDefault("model.rate_limit", d.Model.RateLimit)
	v.SetDefault("model.burst", d.Model.Burst)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)

	v.SetDefault("enrichment.activity_limit", d.Enrichment.ActivityLimit)
	v.SetDefault("enrichment.upcoming_limit", d.Enrichment.UpcomingLimit)
	v.SetDefault("enrichment.message_limit", d.Enrichment.MessageLimit)
	v.SetDefault("enrichment.country_code", d.Enrichment.CountryCode)

	v.SetDefault("commitment.cutoff_hour", d.Commitment.CutoffHour)
	v.SetDefault("commitment.due_hour", d.Commitment.DueHour)
	v.SetDefault("commitment.timezone", d.Commitment.Timezone)

	v.SetDefault("orchestrator.company_name", d.Orchestrator.CompanyName)
	v.SetDefault("orchestrator.forbidden_categories", d.Orchestrator.ForbiddenCategories)
	v.SetDefault("orchestrator.integrations", d.Orchestrator.Integrations)
	v.SetDefault("orchestrator.tool_timeout", d.Orchestrator.ToolTimeout)

	v.SetDefault("sms.max_length", d.SMS.MaxLength)
	v.SetDefault("sms.fallback_reply", d.SMS.FallbackReply)

	v.SetDefault("error_buffer.size", d.ErrorBuffer.Size)
	v.SetDefault("error_buffer.ttl", d.ErrorBuffer.TTL)
	v.SetDefault("error_buffer.redis_addr", d.ErrorBuffer.RedisAddr)
}

// Load reads the YAML file at path, applies ACTIONMESH_* environment
// overrides and validates the result. An empty path or a missing file yields
// the defaults (plus environment overrides).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{"openai", "anthropic", "gemini", "mock"}, c.Model.Provider) {
		errs = append(errs, fmt.Errorf("model.provider: unsupported provider %q", c.Model.Provider))
	}
	if !slices.Contains([]string{"memory", "sqlite", "postgres"}, c.Store.Driver) {
		errs = append(errs, fmt.Errorf("store.driver: unsupported driver %q", c.Store.Driver))
	}
	if c.Store.Driver != "memory" && c.Store.DSN == "" {
		errs = append(errs, fmt.Errorf("store.dsn: required for driver %q", c.Store.Driver))
	}
	if c.Commitment.CutoffHour < 0 || c.Commitment.CutoffHour > 24 {
		errs = append(errs, fmt.Errorf("commitment.cutoff_hour: %d out of range", c.Commitment.CutoffHour))
	}
	if c.Commitment.DueHour < 0 || c.Commitment.DueHour > 23 {
		errs = append(errs, fmt.Errorf("commitment.due_hour: %d out of range", c.Commitment.DueHour))
	}
	if _, err := c.Commitment.Location(); err != nil {
		errs = append(errs, fmt.Errorf("commitment.timezone: %w", err))
	}
	if c.SMS.MaxLength <= 0 {
		errs = append(errs, errors.New("sms.max_length: must be positive"))
	}
	if c.Model.Timeout < 0 || c.Orchestrator.ToolTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}
