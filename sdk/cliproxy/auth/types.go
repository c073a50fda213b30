// Package auth holds the credential pool: the in-process routing table of
// upstream API keys, their model mappings, and the cooldown/availability
// state the dispatch loop consults on every attempt.
package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/nexusgate/aigateway/internal/glob"
)

// Format is the upstream wire-protocol family a credential speaks.
type Format string

const (
	OpenAI       Format = "openai"
	Claude       Format = "claude"
	Gemini       Format = "gemini"
	OpenAICompat Format = "openai-compat"
)

// WireAPI selects the OpenAI-compat request/response body shape.
type WireAPI string

const (
	WireAPIChat      WireAPI = "chat"
	WireAPIResponses WireAPI = "responses"
)

// ModelMapping associates the model id the credential's upstream expects
// (ID) with an optional caller-visible alias (Alias) that resolves to it.
type ModelMapping struct {
	ID    string
	Alias string
}

// CloakMode controls when the cloak engine rewrites a Claude-bound request.
type CloakMode string

const (
	CloakAuto   CloakMode = "auto"
	CloakAlways CloakMode = "always"
	CloakNever  CloakMode = "never"
)

// CloakConfig is the per-credential cloak configuration (Claude-only).
type CloakConfig struct {
	Mode           CloakMode
	StrictMode     bool
	SensitiveWords []string
	CacheUserID    bool
}

// Credential is one upstream API key with its routing metadata, matching the
// data model's Credential type.
type Credential struct {
	// ID uniquely identifies the credential within the process.
	ID string
	// Format is the provider-format this credential serves.
	Format Format
	// Name is an optional human-readable label for logging/debug headers.
	Name string
	// APIKey is the secret token forwarded upstream.
	APIKey string
	// BaseURL overrides the provider's default base URL when non-empty.
	BaseURL string
	// ProxyURL overrides the global proxy for this credential's outbound
	// traffic when non-empty.
	ProxyURL string
	// Headers are static headers merged into every outgoing request after
	// the executor's own and any extra headers, so they take precedence.
	Headers map[string]string
	// Models lists the model ids/aliases this credential supports. An empty
	// list means "supports everything not in ExcludedModels".
	Models []ModelMapping
	// ExcludedModels holds glob patterns of model ids this credential must
	// never be picked for even if Models would otherwise match.
	ExcludedModels []string
	// Prefix is an optional required model-name prefix (e.g. "claude/").
	Prefix string
	// Disabled marks the credential permanently unavailable until config
	// reload clears the flag.
	Disabled bool
	// Cloak holds the Claude-only cloak configuration.
	Cloak CloakConfig
	// WireAPI selects Chat vs Responses body shape for OpenAICompat.
	WireAPI WireAPI

	mu            sync.Mutex
	cooldownUntil time.Time
}

// Clone deep-copies c, duplicating maps/slices so the copy may be mutated
// independently (used when rebuilding the pool on config reload).
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	cooldown := c.cooldownUntil
	c.mu.Unlock()

	clone := &Credential{
		ID:            c.ID,
		Format:        c.Format,
		Name:          c.Name,
		APIKey:        c.APIKey,
		BaseURL:       c.BaseURL,
		ProxyURL:      c.ProxyURL,
		Prefix:        c.Prefix,
		Disabled:      c.Disabled,
		Cloak:         c.Cloak,
		WireAPI:       c.WireAPI,
		cooldownUntil: cooldown,
	}
	if len(c.Headers) > 0 {
		clone.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			clone.Headers[k] = v
		}
	}
	if len(c.Models) > 0 {
		clone.Models = append([]ModelMapping(nil), c.Models...)
	}
	if len(c.ExcludedModels) > 0 {
		clone.ExcludedModels = append([]string(nil), c.ExcludedModels...)
	}
	if len(c.Cloak.SensitiveWords) > 0 {
		clone.Cloak.SensitiveWords = append([]string(nil), c.Cloak.SensitiveWords...)
	}
	return clone
}

// IsAvailable reports whether c may currently be picked: not disabled and
// not within an active cooldown window.
func (c *Credential) IsAvailable() bool {
	if c.Disabled {
		return false
	}
	c.mu.Lock()
	until := c.cooldownUntil
	c.mu.Unlock()
	return until.IsZero() || !time.Now().Before(until)
}

// CooldownUntil returns the credential's current cooldown expiry, the zero
// value when none is set.
func (c *Credential) CooldownUntil() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cooldownUntil
}

// SetCooldown sets the cooldown to expire after duration from now.
func (c *Credential) SetCooldown(duration time.Duration) {
	c.mu.Lock()
	c.cooldownUntil = time.Now().Add(duration)
	c.mu.Unlock()
}

// stripPrefix removes c.Prefix from model if present, reporting whether the
// strip was required-and-successful. When c.Prefix is empty the strip
// trivially succeeds with the model unchanged.
func (c *Credential) stripPrefix(model string) (string, bool) {
	if c.Prefix == "" {
		return model, true
	}
	if strings.HasPrefix(model, c.Prefix) {
		return strings.TrimPrefix(model, c.Prefix), true
	}
	return "", false
}

// SupportsModel reports whether c can serve model, per the invariant in the
// data model: prefix strips cleanly, the post-prefix name matches at least
// one model entry by id or alias via glob (or Models is empty), and no
// excluded pattern matches.
func (c *Credential) SupportsModel(model string) bool {
	stripped, ok := c.stripPrefix(model)
	if !ok {
		return false
	}
	if glob.MatchAny(c.ExcludedModels, stripped) {
		return false
	}
	if len(c.Models) == 0 {
		return true
	}
	for _, m := range c.Models {
		if glob.Match(m.ID, stripped) || (m.Alias != "" && glob.Match(m.Alias, stripped)) {
			return true
		}
	}
	return false
}

// ResolveModelID strips c.Prefix from model and substitutes the real
// upstream id when the post-strip string matches a configured alias.
func (c *Credential) ResolveModelID(model string) string {
	stripped, ok := c.stripPrefix(model)
	if !ok {
		return model
	}
	for _, m := range c.Models {
		if m.Alias != "" && glob.Match(m.Alias, stripped) {
			return m.ID
		}
	}
	return stripped
}

// HasPrefix reports whether model begins with c.Prefix (used by the
// force-model-prefix policy check, evaluated across every credential via
// the pool).
func (c *Credential) HasPrefix(model string) bool {
	if c.Prefix == "" {
		return true
	}
	return strings.HasPrefix(model, c.Prefix)
}

// ModelInfo is a single entry in the aggregated /v1/models listing.
type ModelInfo struct {
	ID      string
	Created int64
	OwnedBy string
}
