package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	env "github.com/netflix/go-env"
	"gopkg.in/yaml.v3"

	"formsearch/internal/domain"
)

const (
	DefaultBackendURL  = "http://localhost:28000"
	DefaultAPISecret   = "formally_secret_key_2024"
	DefaultGatewayAddr = ":3000"
	DefaultGatewayURL  = "http://localhost:3000"
	DefaultDebounceMS  = 300
)

// GatewayConfig configures the proxy gateway in front of the search backend.
type GatewayConfig struct {
	Addr       string  `yaml:"addr"`
	BackendURL string  `yaml:"backend_url"`
	APISecret  string  `yaml:"api_secret"`
	RateLimit  float64 `yaml:"rate_limit"`
}

// ClientConfig configures the search client and its dispatcher.
type ClientConfig struct {
	GatewayURL string            `yaml:"gateway_url"`
	TopN       int               `yaml:"top_n"`
	DebounceMS int               `yaml:"debounce_ms"`
	Primary    domain.Strategy   `yaml:"primary_strategy"`
	Strategies []domain.Strategy `yaml:"strategies"`
}

// LogConfig selects log verbosity and destination.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Client  ClientConfig  `yaml:"client"`
	Log     LogConfig     `yaml:"log"`
}

// envOverrides lists the variables that take precedence over the file.
// Unset variables leave the file value untouched.
type envOverrides struct {
	BackendURL  string  `env:"BACKEND_URL"`
	APISecret   string  `env:"API_SECRET"`
	GatewayAddr string  `env:"GATEWAY_ADDR"`
	GatewayURL  string  `env:"GATEWAY_URL"`
	RateLimit   float64 `env:"GATEWAY_RATE_LIMIT"`
	LogLevel    string  `env:"LOG_LEVEL"`
	LogFile     string  `env:"LOG_FILE"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			if err := finish(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := finish(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/formsearch/config.yaml.
// If neither exists, it writes defaults to ~/.config/formsearch/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	if err := finish(cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "formsearch", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Gateway: GatewayConfig{
			Addr:       DefaultGatewayAddr,
			BackendURL: DefaultBackendURL,
			APISecret:  DefaultAPISecret,
		},
		Client: ClientConfig{
			GatewayURL: DefaultGatewayURL,
			TopN:       domain.DefaultTopN,
			DebounceMS: DefaultDebounceMS,
			Primary:    domain.StrategyMemory,
			Strategies: []domain.Strategy{domain.StrategyMemory, domain.StrategyPostgres},
		},
		Log: LogConfig{Level: "info"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Gateway.Addr == "" {
		cfg.Gateway.Addr = def.Gateway.Addr
	}
	if cfg.Gateway.BackendURL == "" {
		cfg.Gateway.BackendURL = def.Gateway.BackendURL
	}
	if cfg.Gateway.APISecret == "" {
		cfg.Gateway.APISecret = def.Gateway.APISecret
	}
	if cfg.Client.GatewayURL == "" {
		cfg.Client.GatewayURL = def.Client.GatewayURL
	}
	if cfg.Client.TopN <= 0 {
		cfg.Client.TopN = def.Client.TopN
	}
	if cfg.Client.DebounceMS <= 0 {
		cfg.Client.DebounceMS = def.Client.DebounceMS
	}
	if cfg.Client.Primary == "" {
		cfg.Client.Primary = def.Client.Primary
	}
	if len(cfg.Client.Strategies) == 0 {
		cfg.Client.Strategies = def.Client.Strategies
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}

// finish layers the environment over cfg and validates the result.
func finish(cfg *AppConfig) error {
	if err := applyEnv(cfg); err != nil {
		return err
	}
	return validate(cfg)
}

func applyEnv(cfg *AppConfig) error {
	var o envOverrides
	if _, err := env.UnmarshalFromEnviron(&o); err != nil {
		return fmt.Errorf("failed to parse environment variables: %w", err)
	}
	if o.BackendURL != "" {
		cfg.Gateway.BackendURL = o.BackendURL
	}
	if o.APISecret != "" {
		cfg.Gateway.APISecret = o.APISecret
	}
	if o.GatewayAddr != "" {
		cfg.Gateway.Addr = o.GatewayAddr
	}
	if o.GatewayURL != "" {
		cfg.Client.GatewayURL = o.GatewayURL
	}
	if o.RateLimit > 0 {
		cfg.Gateway.RateLimit = o.RateLimit
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFile != "" {
		cfg.Log.File = o.LogFile
	}
	return nil
}

func validate(cfg *AppConfig) error {
	for name, raw := range map[string]string{
		"gateway.backend_url": cfg.Gateway.BackendURL,
		"client.gateway_url":  cfg.Client.GatewayURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if !strings.HasPrefix(u.Scheme, "http") || u.Host == "" {
			return fmt.Errorf("invalid %s %q: must be an http(s) URL with a host", name, raw)
		}
	}
	if cfg.Gateway.RateLimit < 0 {
		return errors.New("gateway.rate_limit must not be negative")
	}
	primaryListed := false
	for _, s := range cfg.Client.Strategies {
		if s == cfg.Client.Primary {
			primaryListed = true
			break
		}
	}
	if !primaryListed {
		return fmt.Errorf("primary strategy %q is not in client.strategies", cfg.Client.Primary)
	}
	return nil
}
