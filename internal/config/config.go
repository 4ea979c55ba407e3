// Package config loads the provider catalog and interpreter settings
// from YAML, with BEAVER_* environment overrides layered on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied before any file or environment override.
const (
	DefaultTimeout     = "60s"
	DefaultRetries     = 3
	DefaultLogLevel    = "info"
	DefaultMaxDepth    = 1000
	DefaultUploadMaxMB = 20.0
	DefaultHistoryPath = ".beaver/history.db"
)

// Config is the full runtime configuration: the provider catalog, the
// default provider selection, and interpreter settings.
type Config struct {
	Default   ProviderRef                    `mapstructure:"default" yaml:"default"`
	Providers map[string]map[string]Provider `mapstructure:"providers" yaml:"providers,omitempty"`
	Settings  Settings                       `mapstructure:"settings" yaml:"settings"`
}

// ProviderRef names one provider/model pair.
type ProviderRef struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
}

// FullName renders the pair as "provider/model".
func (r ProviderRef) FullName() string { return r.Provider + "/" + r.Model }

// Provider holds one configured model endpoint.
type Provider struct {
	API   APIConfig   `mapstructure:"api" yaml:"api"`
	Model ModelParams `mapstructure:"model" yaml:"model,omitempty"`
}

// APIConfig is the transport half of a provider entry. Type selects the
// client: "openai" (the default) for any OpenAI-compatible endpoint,
// "gemini" for the Google SDK.
type APIConfig struct {
	URL       string `mapstructure:"url" yaml:"url"`
	Model     string `mapstructure:"model" yaml:"model"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Type      string `mapstructure:"type" yaml:"type,omitempty"`
}

// ModelParams are optional sampling parameters, passed through only when
// set.
type ModelParams struct {
	Temperature *float64 `mapstructure:"temperature" yaml:"temperature,omitempty"`
	TopP        *float64 `mapstructure:"top_p" yaml:"top_p,omitempty"`
	MaxTokens   *int     `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
}

// Settings tune the interpreter itself.
type Settings struct {
	Timeout       string   `mapstructure:"timeout" yaml:"timeout"`
	RetryAttempts int      `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	LogLevel      string   `mapstructure:"log_level" yaml:"log_level"`
	LogFile       string   `mapstructure:"log_file" yaml:"log_file,omitempty"`
	History       bool     `mapstructure:"history" yaml:"history"`
	HistoryPath   string   `mapstructure:"history_path" yaml:"history_path,omitempty"`
	MaxDepth      int      `mapstructure:"max_depth" yaml:"max_depth"`
	UploadMaxMB   float64  `mapstructure:"upload_max_mb" yaml:"upload_max_mb"`
	Sandbox       []string `mapstructure:"sandbox" yaml:"sandbox,omitempty"`
}

// Load reads configuration from path, or from the standard search
// locations when path is empty: ./beaver.yaml, ./configs/beaver.yaml,
// ~/.config/beaver/beaver.yaml. In the search case a missing file is
// fine; defaults plus environment overrides still apply. An explicitly
// named file must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("settings.timeout", DefaultTimeout)
	v.SetDefault("settings.retry_attempts", DefaultRetries)
	v.SetDefault("settings.log_level", DefaultLogLevel)
	v.SetDefault("settings.history", true)
	v.SetDefault("settings.history_path", DefaultHistoryPath)
	v.SetDefault("settings.max_depth", DefaultMaxDepth)
	v.SetDefault("settings.upload_max_mb", DefaultUploadMaxMB)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("beaver")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.config/beaver")
	}
	v.SetEnvPrefix("BEAVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.expand()
	return &cfg, nil
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	return &Config{
		Settings: Settings{
			Timeout:       DefaultTimeout,
			RetryAttempts: DefaultRetries,
			LogLevel:      DefaultLogLevel,
			History:       true,
			HistoryPath:   DefaultHistoryPath,
			MaxDepth:      DefaultMaxDepth,
			UploadMaxMB:   DefaultUploadMaxMB,
		},
	}
}

// expand applies ${VAR} substitution to endpoint fields so secrets can
// live in the environment rather than on disk, and fills the default
// provider type.
func (c *Config) expand() {
	for _, models := range c.Providers {
		for name, p := range models {
			p.API.URL = os.ExpandEnv(p.API.URL)
			p.API.SecretKey = os.ExpandEnv(p.API.SecretKey)
			if p.API.Type == "" {
				p.API.Type = "openai"
			}
			models[name] = p
		}
	}
}

// Provider returns the entry for provider/model.
func (c *Config) Provider(provider, model string) (Provider, error) {
	models, ok := c.Providers[provider]
	if !ok {
		return Provider{}, fmt.Errorf("provider %q is not configured", provider)
	}
	p, ok := models[model]
	if !ok {
		return Provider{}, fmt.Errorf("model %q is not configured for provider %q", model, provider)
	}
	return p, nil
}

// DefaultProvider resolves the configured default pair and confirms it
// exists in the catalog.
func (c *Config) DefaultProvider() (ProviderRef, error) {
	if c.Default.Provider == "" || c.Default.Model == "" {
		return ProviderRef{}, fmt.Errorf("no default provider configured")
	}
	if _, err := c.Provider(c.Default.Provider, c.Default.Model); err != nil {
		return ProviderRef{}, err
	}
	return c.Default, nil
}

// ListProviders returns configured provider names, sorted.
func (c *Config) ListProviders() []string {
	out := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ListModels returns one provider's model names, sorted.
func (c *Config) ListModels(provider string) ([]string, error) {
	models, ok := c.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured", provider)
	}
	out := make([]string, 0, len(models))
	for name := range models {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// ListAll returns every provider/model pair, sorted by full name.
func (c *Config) ListAll() []ProviderRef {
	var out []ProviderRef
	for _, provider := range c.ListProviders() {
		models, _ := c.ListModels(provider)
		for _, model := range models {
			out = append(out, ProviderRef{Provider: provider, Model: model})
		}
	}
	return out
}

// Validation is the outcome of checking one provider entry.
type Validation struct {
	Valid    bool
	Missing  []string
	Warnings []string
}

// Validate checks one provider entry for required fields and common
// mistakes. Warnings do not fail validation.
func (c *Config) Validate(provider, model string) Validation {
	p, err := c.Provider(provider, model)
	if err != nil {
		return Validation{Missing: []string{err.Error()}}
	}
	var res Validation
	if p.API.URL == "" && p.API.Type != "gemini" {
		res.Missing = append(res.Missing, "api.url")
	}
	if p.API.Model == "" {
		res.Missing = append(res.Missing, "api.model")
	}
	if p.API.SecretKey == "" {
		res.Missing = append(res.Missing, "api.secret_key")
	}
	if len(res.Missing) > 0 {
		return res
	}
	res.Valid = true
	if len(p.API.SecretKey) < 10 {
		res.Warnings = append(res.Warnings, "api.secret_key looks too short")
	}
	if p.API.Type == "openai" &&
		!strings.HasPrefix(p.API.URL, "http://") && !strings.HasPrefix(p.API.URL, "https://") {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("api.url %q does not start with http:// or https://", p.API.URL))
	}
	return res
}

// Timeout parses settings.timeout, falling back to the default on bad
// input.
func (c *Config) Timeout() time.Duration {
	if d, err := time.ParseDuration(c.Settings.Timeout); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultTimeout)
	return d
}

// Retries returns the retry budget for provider calls.
func (c *Config) Retries() int {
	if c.Settings.RetryAttempts > 0 {
		return c.Settings.RetryAttempts
	}
	return DefaultRetries
}

// ResolveMaxDepth returns the resolver depth bound.
func (c *Config) ResolveMaxDepth() int {
	if c.Settings.MaxDepth > 0 {
		return c.Settings.MaxDepth
	}
	return DefaultMaxDepth
}

// HistoryPath returns the execution log location.
func (c *Config) HistoryPath() string {
	if c.Settings.HistoryPath != "" {
		return c.Settings.HistoryPath
	}
	return DefaultHistoryPath
}
