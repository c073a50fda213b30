// Package config loads and watches the gateway's YAML configuration file,
// and provides structured access to routing, retry, streaming, payload-rule,
// and per-credential settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of the gateway's configuration file.
type Config struct {
	Port          int  `yaml:"port"`
	Debug         bool `yaml:"debug"`
	LoggingToFile bool `yaml:"logging-to-file"`

	Routing Routing `yaml:"routing"`
	Retry   Retry   `yaml:"retry"`

	Streaming              Streaming `yaml:"streaming"`
	NonStreamKeepaliveSecs int       `yaml:"non-stream-keepalive-secs"`

	ForceModelPrefix bool   `yaml:"force-model-prefix"`
	ProxyURL         string `yaml:"proxy-url"`

	BodyLimitMB        int `yaml:"body-limit-mb"`
	ConnectTimeoutSecs int `yaml:"connect-timeout-secs"`
	RequestTimeoutSecs int `yaml:"request-timeout-secs"`

	PassthroughHeaders   []string          `yaml:"passthrough-headers"`
	ClaudeHeaderDefaults map[string]string `yaml:"claude-header-defaults"`

	APIKeys []string `yaml:"api-keys"`

	Payload PayloadConfig `yaml:"payload"`

	ClaudeAPIKey        []CredentialConfig        `yaml:"claude-api-key"`
	OpenAIAPIKey        []CredentialConfig        `yaml:"openai-api-key"`
	GeminiAPIKey        []CredentialConfig        `yaml:"gemini-api-key"`
	OpenAICompatibility []OpenAICompatibleConfig  `yaml:"openai-compatibility"`

	// Access holds explicitly declared authentication providers. When empty,
	// BuildProviders falls back to a single provider synthesized from
	// APIKeys (see SyncInlineAPIKeys/ConfigAPIKeyProvider).
	Access Access `yaml:"access"`
}

// Routing controls credential-selection strategy.
type Routing struct {
	// Strategy is "round-robin" or "fill-first".
	Strategy string `yaml:"strategy"`
}

// Retry controls the dispatch loop's retry/backoff/cooldown behavior.
type Retry struct {
	MaxRetries          int `yaml:"max-retries"`
	MaxBackoffSecs      int `yaml:"max-backoff-secs"`
	Cooldown429Secs     int `yaml:"cooldown-429-secs"`
	Cooldown5xxSecs     int `yaml:"cooldown-5xx-secs"`
	CooldownNetworkSecs int `yaml:"cooldown-network-secs"`
}

// Streaming controls the SSE bridge's keepalive and bootstrap behavior.
type Streaming struct {
	KeepaliveSeconds  int `yaml:"keepalive-seconds"`
	BootstrapRetries  int `yaml:"bootstrap-retries"`
}

// CloakConfig is the per-credential cloak settings block.
type CloakConfig struct {
	Mode           string   `yaml:"mode"`
	StrictMode     bool     `yaml:"strict-mode"`
	SensitiveWords []string `yaml:"sensitive-words"`
	CacheUserID    bool     `yaml:"cache-user-id"`
}

// ModelMapping is a single upstream-id/caller-visible-alias pair.
type ModelMapping struct {
	ID    string `yaml:"id"`
	Alias string `yaml:"alias"`
}

// CredentialConfig is one entry under claude-api-key / openai-api-key /
// gemini-api-key.
type CredentialConfig struct {
	APIKey         string         `yaml:"api-key"`
	Name           string         `yaml:"name"`
	BaseURL        string         `yaml:"base-url"`
	ProxyURL       string         `yaml:"proxy-url"`
	Models         []ModelMapping `yaml:"models"`
	ExcludedModels []string       `yaml:"excluded-models"`
	ModelPrefix    string         `yaml:"model-prefix"`
	Disabled       bool           `yaml:"disabled"`
	Cloak          CloakConfig    `yaml:"cloak"`
}

// OpenAICompatibleConfig is one entry under openai-compatibility.
type OpenAICompatibleConfig struct {
	Name        string         `yaml:"name"`
	BaseURL     string         `yaml:"base-url"`
	APIKeys     []string       `yaml:"api-keys"`
	WireAPI     string         `yaml:"wire-api"`
	Models      []ModelMapping `yaml:"models"`
	ModelPrefix string         `yaml:"model-prefix"`
}

// ModelMatcher matches a payload rule against a request's model name and,
// optionally, its wire protocol.
type ModelMatcher struct {
	Name     string  `yaml:"name"`
	Protocol *string `yaml:"protocol"`
}

// PayloadRule sets params on matching requests.
type PayloadRule struct {
	Models []ModelMatcher         `yaml:"models"`
	Params map[string]interface{} `yaml:"params"`
}

// FilterRule removes named params from matching requests.
type FilterRule struct {
	Models []ModelMatcher `yaml:"models"`
	Params []string       `yaml:"params"`
}

// PayloadConfig is the three-phase payload rules engine's configuration.
type PayloadConfig struct {
	Default  []PayloadRule `yaml:"default"`
	Override []PayloadRule `yaml:"override"`
	Filter   []FilterRule  `yaml:"filter"`
}

// Access declares explicit authentication providers.
type Access struct {
	Providers []AccessProvider `yaml:"providers"`
}

// AccessProvider is one authentication provider declaration.
type AccessProvider struct {
	Type    string   `yaml:"type"`
	Name    string   `yaml:"name"`
	APIKeys []string `yaml:"api-keys"`
}

// AccessProviderTypeConfigAPIKey is the built-in provider type backed by the
// flat api-keys allowlist.
const AccessProviderTypeConfigAPIKey = "config-api-key"

// DefaultAccessProviderName names the provider synthesized from api-keys
// when no explicit access.providers are configured.
const DefaultAccessProviderName = "config-api-key"

// SyncInlineAPIKeys ensures cfg carries a config-api-key access provider
// backed by keys, inserting one at the front of Access.Providers if none
// exists yet.
func SyncInlineAPIKeys(cfg *Config, keys []string) {
	if cfg == nil {
		return
	}
	for i := range cfg.Access.Providers {
		if cfg.Access.Providers[i].Type == AccessProviderTypeConfigAPIKey {
			cfg.Access.Providers[i].APIKeys = keys
			return
		}
	}
	cfg.Access.Providers = append([]AccessProvider{{
		Type:    AccessProviderTypeConfigAPIKey,
		Name:    DefaultAccessProviderName,
		APIKeys: keys,
	}}, cfg.Access.Providers...)
}

// ConfigAPIKeyProvider returns the config-api-key provider declaration, if
// any, after SyncInlineAPIKeys has run.
func (c *Config) ConfigAPIKeyProvider() *AccessProvider {
	if c == nil {
		return nil
	}
	for i := range c.Access.Providers {
		if c.Access.Providers[i].Type == AccessProviderTypeConfigAPIKey {
			return &c.Access.Providers[i]
		}
	}
	return nil
}

// LoadConfig reads and parses the YAML file at path, applying documented
// defaults for fields left unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a Config populated with the same defaults documented in
// the configuration contract's YAML example.
func Default() *Config {
	return &Config{
		Port:                8317,
		Routing:             Routing{Strategy: "round-robin"},
		Retry: Retry{
			MaxRetries:          3,
			MaxBackoffSecs:      30,
			Cooldown429Secs:     60,
			Cooldown5xxSecs:     30,
			CooldownNetworkSecs: 15,
		},
		Streaming: Streaming{
			KeepaliveSeconds: 15,
			BootstrapRetries: 2,
		},
		BodyLimitMB:        20,
		ConnectTimeoutSecs: 10,
		RequestTimeoutSecs: 600,
	}
}
