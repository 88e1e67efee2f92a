package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Storage      StorageConfig      `yaml:"storage" mapstructure:"storage"`
	HubSpot      HubSpotConfig      `yaml:"hubspot" mapstructure:"hubspot"`
	Integrations IntegrationsConfig `yaml:"integrations" mapstructure:"integrations"`
	Extractor    ExtractorConfig    `yaml:"extractor" mapstructure:"extractor"`
	Anthropic    AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	Monitoring   MonitoringConfig   `yaml:"monitoring" mapstructure:"monitoring"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	MaxUploadMB int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MaxUploadBytes returns the upload body limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// StorageConfig locates the on-disk state.
type StorageConfig struct {
	UploadDir        string `yaml:"upload_dir" mapstructure:"upload_dir"`
	LedgerFile       string `yaml:"ledger_file" mapstructure:"ledger_file"`
	IntegrationsFile string `yaml:"integrations_file" mapstructure:"integrations_file"`
	DeliveryDB       string `yaml:"delivery_db" mapstructure:"delivery_db"`
}

// HubSpotConfig holds the CRM credential and transport settings.
type HubSpotConfig struct {
	APIKey          string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit       float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	FieldPolicyFile string  `yaml:"field_policy_file" mapstructure:"field_policy_file"`
}

// IntegrationsConfig configures outbound sink calls.
type IntegrationsConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-sink request timeout.
func (c IntegrationsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ExtractorConfig selects and configures the external field extractor.
type ExtractorConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	Command     string `yaml:"command" mapstructure:"command"`
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the extraction deadline.
func (c ExtractorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AnthropicConfig holds Anthropic API settings for the anthropic extractor.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// MonitoringConfig configures delivery health alerts.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinAttempts          int     `yaml:"min_attempts" mapstructure:"min_attempts"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. A .env file in the
// working directory, when present, seeds the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("hubspot.api_key", "INVOICE_HUBSPOT_API_KEY", "HUBSPOT_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind hubspot key")
	}
	if err := v.BindEnv("anthropic.key", "INVOICE_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind anthropic key")
	}

	// Defaults
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.max_upload_mb", 16)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.ledger_file", "uploads/extracted_invoices.csv")
	v.SetDefault("storage.integrations_file", "webhook_config.json")
	v.SetDefault("storage.delivery_db", "uploads/deliveries.db")
	v.SetDefault("hubspot.base_url", "https://api.hubapi.com")
	v.SetDefault("hubspot.rate_limit", 5)
	v.SetDefault("integrations.timeout_secs", 30)
	v.SetDefault("extractor.provider", "command")
	v.SetDefault("extractor.command", "invoice-extractor")
	v.SetDefault("extractor.timeout_secs", 30)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.min_attempts", 5)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
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

	return &cfg, nil
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

// Validate checks the settings a given command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
		errs = append(errs, c.validateStorage()...)
		errs = append(errs, c.validateExtractor()...)
		if c.Monitoring.Enabled && c.Monitoring.WebhookURL == "" {
			errs = append(errs, "monitoring.webhook_url is required when monitoring is enabled")
		}
	case "extract":
		errs = append(errs, c.validateStorage()...)
		errs = append(errs, c.validateExtractor()...)
	case "export":
		if c.Storage.LedgerFile == "" {
			errs = append(errs, "storage.ledger_file is required")
		}
	case "deliveries":
		if c.Storage.DeliveryDB == "" {
			errs = append(errs, "storage.delivery_db is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Integrations.TimeoutSecs <= 0 {
		errs = append(errs, "integrations.timeout_secs must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStorage() []string {
	var errs []string
	if c.Storage.UploadDir == "" {
		errs = append(errs, "storage.upload_dir is required")
	}
	if c.Storage.LedgerFile == "" {
		errs = append(errs, "storage.ledger_file is required")
	}
	if c.Storage.IntegrationsFile == "" {
		errs = append(errs, "storage.integrations_file is required")
	}
	return errs
}

func (c *Config) validateExtractor() []string {
	var errs []string
	switch c.Extractor.Provider {
	case "command", "":
		if c.Extractor.Command == "" {
			errs = append(errs, "extractor.command is required for the command provider")
		}
	case "http":
		if c.Extractor.URL == "" {
			errs = append(errs, "extractor.url is required for the http provider")
		}
	case "anthropic":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required for the anthropic provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("extractor.provider %q is not supported", c.Extractor.Provider))
	}
	if c.Extractor.TimeoutSecs <= 0 {
		errs = append(errs, "extractor.timeout_secs must be > 0")
	}
	return errs
}
