package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	envTelegramBotToken = "TELEGRAM_BOT_TOKEN"
	envWebhookToken     = "CHATRELAY_WEBHOOK_TOKEN"

	defaultCommandPrefix         = "!"
	defaultCacheTTLSeconds       = 10
	defaultRequestTimeoutSeconds = 10
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Relay     RelayConfig     `json:"relay"`
	Providers ProvidersConfig `json:"providers"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// RelayConfig contains router behavior settings.
type RelayConfig struct {
	Host                  string `json:"host"`
	Port                  int    `json:"port"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	CacheTTLSeconds       int    `json:"cache_ttl_seconds"`
	CommandPrefix         string `json:"command_prefix"`
	EnablePrefixCommands  *bool  `json:"enable_prefix_commands"`
	BotName               string `json:"bot_name"`
}

// Prefix returns the configured command prefix or the default "!".
func (r RelayConfig) Prefix() string {
	if prefix := strings.TrimSpace(r.CommandPrefix); prefix != "" {
		return prefix
	}

	return defaultCommandPrefix
}

// PrefixCommandsEnabled reports whether prefix-based commands are active.
//
// Prefix commands default to enabled when the field is absent.
func (r RelayConfig) PrefixCommandsEnabled() bool {
	if r.EnablePrefixCommands == nil {
		return true
	}

	return *r.EnablePrefixCommands
}

// CacheTTL returns the lookup cache time-to-live.
func (r RelayConfig) CacheTTL() time.Duration {
	if r.CacheTTLSeconds > 0 {
		return time.Duration(r.CacheTTLSeconds) * time.Second
	}

	return defaultCacheTTLSeconds * time.Second
}

// RequestTimeout returns the bound applied to synchronous provider calls.
func (r RelayConfig) RequestTimeout() time.Duration {
	if r.RequestTimeoutSeconds > 0 {
		return time.Duration(r.RequestTimeoutSeconds) * time.Second
	}

	return defaultRequestTimeoutSeconds * time.Second
}

// ProvidersConfig stores per-provider connection settings.
type ProvidersConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Webhook  WebhookConfig  `json:"webhook"`
}

// TelegramConfig configures the Telegram chat provider.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allow_from"`
}

// WebhookConfig configures the non-chat HTTP integration.
type WebhookConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Token   string `json:"token"`
}

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// Validate checks that the configuration can bring up a router.
//
// A configuration without any enabled provider is fatal at startup; the
// router never comes up in a degraded zero-provider mode.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}

	enabled := 0
	if c.Providers.Telegram.Enabled {
		if strings.TrimSpace(c.Providers.Telegram.Token) == "" {
			return fmt.Errorf("providers.telegram.token is required")
		}
		enabled++
	}
	if c.Providers.Webhook.Enabled {
		if c.Providers.Webhook.Port <= 0 {
			return fmt.Errorf("providers.webhook.port is required")
		}
		enabled++
	}
	if enabled == 0 {
		return fmt.Errorf("no providers are enabled")
	}

	if c.Relay.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("relay.request_timeout_seconds must be >= 0")
	}
	if c.Relay.CacheTTLSeconds < 0 {
		return fmt.Errorf("relay.cache_ttl_seconds must be >= 0")
	}

	return nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Providers.Telegram.Token = token
	}

	if token := strings.TrimSpace(os.Getenv(envWebhookToken)); token != "" {
		cfg.Providers.Webhook.Token = token
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is CHATRELAY_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("CHATRELAY_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("CHATRELAY_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}
