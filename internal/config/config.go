// Package config defines the application configuration and its viper
// bindings. Values come from defaults, an optional yaml file, and
// DEEPREVIEW_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	LLM    LLMConfig    `mapstructure:"llm" yaml:"llm"`
	Audit  AuditConfig  `mapstructure:"audit" yaml:"audit"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// LLMConfig configures the OpenAI-compatible review endpoint.
type LLMConfig struct {
	APIKey         string        `mapstructure:"api_key" yaml:"-"`
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	Model          string        `mapstructure:"model" yaml:"model"`
	Temperature    float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries"`
	Backoff        time.Duration `mapstructure:"backoff" yaml:"backoff"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// Enabled reports whether enough configuration is present to reach
// the endpoint. A disabled LLM is not an error; the audit simply runs
// without model-based findings.
func (l LLMConfig) Enabled() bool {
	return l.APIKey != "" && l.BaseURL != "" && l.Model != ""
}

// AuditConfig tunes the audit pipeline.
type AuditConfig struct {
	DiffTarget          string `mapstructure:"diff_target" yaml:"diff_target"`
	MaxFindings         int    `mapstructure:"max_findings" yaml:"max_findings"`
	ScanContext         bool   `mapstructure:"scan_context" yaml:"scan_context"`
	FunctionScopedTaint bool   `mapstructure:"function_scoped_taint" yaml:"function_scoped_taint"`
	ReportDir           string `mapstructure:"report_dir" yaml:"report_dir"`
}

// SetDefaults initializes default values for all configuration keys.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "deepreview")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- LLM --
	v.SetDefault("llm.base_url", "https://integrate.api.nvidia.com/v1")
	v.SetDefault("llm.model", "qwen/qwen3-coder-480b-a35b-instruct")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.backoff", "2s")
	v.SetDefault("llm.request_timeout", "120s")

	// -- Audit --
	v.SetDefault("audit.diff_target", "")
	v.SetDefault("audit.max_findings", 20)
	v.SetDefault("audit.scan_context", false)
	v.SetDefault("audit.function_scoped_taint", false)
	v.SetDefault("audit.report_dir", "deepreview_runs")
}

// NewDefaultConfig creates a configuration populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper
// object that already has file and env sources attached.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("llm.api_key", "NVIDIA_API_KEY", "DEEPREVIEW_LLM_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("NVIDIA_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.LLM.MaxRetries < 1 {
		return fmt.Errorf("llm.max_retries must be at least 1")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0.0 and 2.0")
	}
	if c.Audit.MaxFindings < 0 {
		return fmt.Errorf("audit.max_findings must not be negative")
	}
	if c.Audit.ReportDir == "" {
		return fmt.Errorf("audit.report_dir is required")
	}
	return nil
}
