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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	SMTP      SMTPConfig      `yaml:"smtp" mapstructure:"smtp"`
	Business  BusinessConfig  `yaml:"business" mapstructure:"business"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// SMTPConfig holds email transport settings.
type SMTPConfig struct {
	Host      string `yaml:"host" mapstructure:"host"`
	Port      int    `yaml:"port" mapstructure:"port"`
	User      string `yaml:"user" mapstructure:"user"`
	Password  string `yaml:"password" mapstructure:"password"`
	FromEmail string `yaml:"from_email" mapstructure:"from_email"`
	FromName  string `yaml:"from_name" mapstructure:"from_name"`
}

// BusinessConfig identifies the business on whose behalf follow-up
// emails are drafted.
type BusinessConfig struct {
	Name  string `yaml:"name" mapstructure:"name"`
	Phone string `yaml:"phone" mapstructure:"phone"`
	Email string `yaml:"email" mapstructure:"email"`
}

// PipelineConfig configures analysis behavior.
type PipelineConfig struct {
	// EmailRule selects the boolean combinator for the email decision:
	// "and" restricts follow-ups to negative-and-urgent reviews, "or"
	// also contacts customers for any medium-or-higher urgency.
	EmailRule  string `yaml:"email_rule" mapstructure:"email_rule"`
	SendEmails bool   `yaml:"send_emails" mapstructure:"send_emails"`
}

// BatchConfig configures spreadsheet batch processing.
type BatchConfig struct {
	MaxConcurrentReviews int `yaml:"max_concurrent_reviews" mapstructure:"max_concurrent_reviews"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("FEEDBACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "feedback.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.temperature", 0.1)
	v.SetDefault("anthropic.requests_per_second", 5)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from_name", "Customer Care Team")
	v.SetDefault("business.name", "Our Business")
	v.SetDefault("pipeline.email_rule", "and")
	v.SetDefault("pipeline.send_emails", false)
	v.SetDefault("batch.max_concurrent_reviews", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:8501"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	if cfg.Pipeline.EmailRule != "and" && cfg.Pipeline.EmailRule != "or" {
		return nil, eris.Errorf("config: pipeline.email_rule must be \"and\" or \"or\", got %q", cfg.Pipeline.EmailRule)
	}

	return &cfg, nil
}

// Validate checks that the configuration required for the given mode is
// present. Mode "analysis" requires an Anthropic key; mode "email"
// additionally requires SMTP settings.
func (c *Config) Validate(mode string) error {
	switch mode {
	case "analysis":
		if c.Anthropic.Key == "" {
			return eris.New("config: anthropic.key is required (set FEEDBACK_ANTHROPIC_KEY)")
		}
	case "email":
		if c.Anthropic.Key == "" {
			return eris.New("config: anthropic.key is required (set FEEDBACK_ANTHROPIC_KEY)")
		}
		if c.SMTP.Host == "" || c.SMTP.FromEmail == "" {
			return eris.New("config: smtp.host and smtp.from_email are required for email dispatch")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
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
