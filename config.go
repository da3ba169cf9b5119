package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces environment overrides, e.g. DISPATCH_MAX_RETRIES=5.
const envPrefix = "DISPATCH_"

// Config is the file/env-loadable client configuration. It covers the
// knobs deployments tune; everything programmatic (interceptors, stores,
// hooks) stays in options.
type Config struct {
	BaseURL        string        `koanf:"base_url" validate:"omitempty,url"`
	Timeout        time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxRetries     int           `koanf:"max_retries" validate:"gte=1"`
	RetryDelay     time.Duration `koanf:"retry_delay" validate:"gt=0"`
	RenewalURL     string        `koanf:"renewal_url" validate:"omitempty,url"`
	RenewalTimeout time.Duration `koanf:"renewal_timeout" validate:"gt=0"`
	Debug          bool          `koanf:"debug"`
}

func configDefaults() map[string]any {
	return map[string]any{
		"timeout":         "30s",
		"max_retries":     3,
		"retry_delay":     "1s",
		"renewal_timeout": "10s",
		"debug":           false,
	}
}

// LoadConfig loads configuration with increasing priority: built-in
// defaults, the YAML file at path (skipped when path is empty), then
// DISPATCH_-prefixed environment variables.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(configDefaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(envprovider.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	return unmarshalConfig(k)
}

// ParseConfig parses a raw YAML document over the built-in defaults.
// Primarily for tests and embedded configuration.
func ParseConfig(raw []byte) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(configDefaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return unmarshalConfig(k)
}

func unmarshalConfig(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return &Error{
			Type:        ErrorTypeValidation,
			Message:     fmt.Sprintf("invalid configuration: %v", err),
			UserMessage: userMsgUnknown,
			Cause:       err,
		}
	}
	return nil
}

// Options converts the configuration into client options. Append
// programmatic options (stores, interceptors, hooks) after these.
func (cfg *Config) Options() []Option {
	opts := []Option{
		WithTimeout(cfg.Timeout),
		WithMaxRetries(cfg.MaxRetries),
		WithRetryDelay(cfg.RetryDelay),
		WithRenewalTimeout(cfg.RenewalTimeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.RenewalURL != "" {
		opts = append(opts, WithTokenRenewal(cfg.RenewalURL))
	}
	if cfg.Debug {
		opts = append(opts, WithDebug())
	}
	return opts
}
