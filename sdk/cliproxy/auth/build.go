package auth

import (
	"fmt"

	"github.com/nexusgate/aigateway/internal/config"
)

// StrategyFromConfig maps the routing.strategy config string onto a
// Strategy value, defaulting to RoundRobin for anything unrecognized.
func StrategyFromConfig(s string) Strategy {
	if s == "fill-first" {
		return FillFirst
	}
	return RoundRobin
}

func fromCredentialConfig(format Format, idx int, c config.CredentialConfig) *Credential {
	models := make([]ModelMapping, 0, len(c.Models))
	for _, m := range c.Models {
		models = append(models, ModelMapping{ID: m.ID, Alias: m.Alias})
	}
	return &Credential{
		ID:             fmt.Sprintf("%s-%d-%s", format, idx, c.Name),
		Format:         format,
		Name:           c.Name,
		APIKey:         c.APIKey,
		BaseURL:        c.BaseURL,
		ProxyURL:       c.ProxyURL,
		Models:         models,
		ExcludedModels: append([]string(nil), c.ExcludedModels...),
		Prefix:         c.ModelPrefix,
		Disabled:       c.Disabled,
		Cloak: CloakConfig{
			Mode:           CloakMode(c.Cloak.Mode),
			StrictMode:     c.Cloak.StrictMode,
			SensitiveWords: append([]string(nil), c.Cloak.SensitiveWords...),
			CacheUserID:    c.Cloak.CacheUserID,
		},
	}
}

func fromOpenAICompatConfig(idx int, c config.OpenAICompatibleConfig) []*Credential {
	models := make([]ModelMapping, 0, len(c.Models))
	for _, m := range c.Models {
		models = append(models, ModelMapping{ID: m.ID, Alias: m.Alias})
	}
	wire := WireAPIChat
	if c.WireAPI == "responses" {
		wire = WireAPIResponses
	}
	out := make([]*Credential, 0, len(c.APIKeys))
	for ki, key := range c.APIKeys {
		out = append(out, &Credential{
			ID:       fmt.Sprintf("openai-compat-%d-%d-%s", idx, ki, c.Name),
			Format:   OpenAICompat,
			Name:     c.Name,
			APIKey:   key,
			BaseURL:  c.BaseURL,
			Models:   models,
			Prefix:   c.ModelPrefix,
			WireAPI:  wire,
		})
	}
	return out
}

// BuildFromConfig converts a config.Config's credential lists into the
// per-format map a Pool's UpdateFromConfig consumes.
func BuildFromConfig(cfg *config.Config) map[Format][]*Credential {
	out := make(map[Format][]*Credential)
	for i, c := range cfg.ClaudeAPIKey {
		cred := fromCredentialConfig(Claude, i, c)
		applyGlobalProxy(cred, cfg.ProxyURL)
		out[Claude] = append(out[Claude], cred)
	}
	for i, c := range cfg.OpenAIAPIKey {
		cred := fromCredentialConfig(OpenAI, i, c)
		applyGlobalProxy(cred, cfg.ProxyURL)
		out[OpenAI] = append(out[OpenAI], cred)
	}
	for i, c := range cfg.GeminiAPIKey {
		cred := fromCredentialConfig(Gemini, i, c)
		applyGlobalProxy(cred, cfg.ProxyURL)
		out[Gemini] = append(out[Gemini], cred)
	}
	for i, c := range cfg.OpenAICompatibility {
		creds := fromOpenAICompatConfig(i, c)
		for _, cred := range creds {
			applyGlobalProxy(cred, cfg.ProxyURL)
		}
		out[OpenAICompat] = append(out[OpenAICompat], creds...)
	}
	return out
}

// applyGlobalProxy sets cred's proxy to the top-level proxy-url when the
// credential didn't declare its own, so a single operator-wide proxy
// setting covers every credential by default.
func applyGlobalProxy(cred *Credential, globalProxyURL string) {
	if cred.ProxyURL == "" {
		cred.ProxyURL = globalProxyURL
	}
}
