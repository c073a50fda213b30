package auth

import (
	"strings"
	"sync"
	"time"
)

// Pool is the in-process credential router: a per-format list of
// credentials plus the routing strategy and round-robin state needed to
// pick among them.
type Pool struct {
	mu       sync.RWMutex
	byFormat map[Format][]*Credential
	strategy Strategy
	counters *roundRobinCounters
}

// NewPool returns an empty pool using strategy.
func NewPool(strategy Strategy) *Pool {
	return &Pool{
		byFormat: make(map[Format][]*Credential),
		strategy: strategy,
		counters: newRoundRobinCounters(),
	}
}

// Pick selects an available credential of format that supports model and is
// not in tried, using the pool's configured strategy. Returns nil if no
// candidate qualifies.
func (p *Pool) Pick(format Format, model string, tried map[string]bool) *Credential {
	p.mu.RLock()
	list := p.byFormat[format]
	strategy := p.strategy
	p.mu.RUnlock()

	candidates := make([]*Credential, 0, len(list))
	for _, c := range list {
		if tried != nil && tried[c.ID] {
			continue
		}
		if !c.IsAvailable() {
			continue
		}
		if !c.SupportsModel(model) {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil
	}
	key := string(format) + ":" + model
	return pick(strategy, key, p.counters, candidates)
}

// MarkUnavailable puts the credential identified by id into cooldown for
// duration, across whichever format list it lives in.
func (p *Pool) MarkUnavailable(id string, duration time.Duration) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, list := range p.byFormat {
		for _, c := range list {
			if c.ID == id {
				c.SetCooldown(duration)
				return
			}
		}
	}
}

// ResolveProviders returns the distinct formats that carry at least one
// credential supporting model, in a stable order (OpenAI, Claude, Gemini,
// OpenAICompat).
func (p *Pool) ResolveProviders(model string) []Format {
	order := []Format{OpenAI, Claude, Gemini, OpenAICompat}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Format, 0, len(order))
	for _, f := range order {
		for _, c := range p.byFormat[f] {
			if c.SupportsModel(model) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// ModelHasPrefix reports whether model satisfies this one credential's
// configured prefix (see HasPrefix); Pool.ModelHasPrefixAny asks the same
// question of the whole pool for the force-model-prefix check.
func (c *Credential) ModelHasPrefix(model string) bool {
	return c.HasPrefix(model)
}

// ModelHasPrefixAny reports whether model carries a prefix recognized by at
// least one credential in the pool, backing the force-model-prefix policy
// check in the dispatch loop.
func (p *Pool) ModelHasPrefixAny(model string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, list := range p.byFormat {
		for _, c := range list {
			if c.Prefix != "" && strings.HasPrefix(model, c.Prefix) {
				return true
			}
		}
	}
	return false
}

// AllModels aggregates the model listing across every available credential
// in the pool, preferring each mapping's alias (the caller-visible id) over
// its upstream id, and skipping disabled/unavailable credentials. Duplicate
// ids are collapsed, first-seen wins.
func (p *Pool) AllModels(createdAt int64) []ModelInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[string]bool)
	out := make([]ModelInfo, 0)
	for format, list := range p.byFormat {
		for _, c := range list {
			if !c.IsAvailable() {
				continue
			}
			owner := string(format)
			if len(c.Models) == 0 {
				continue
			}
			for _, m := range c.Models {
				id := m.Alias
				if id == "" {
					id = m.ID
				}
				if c.Prefix != "" {
					id = c.Prefix + id
				}
				if seen[id] {
					continue
				}
				seen[id] = true
				out = append(out, ModelInfo{ID: id, Created: createdAt, OwnedBy: owner})
			}
		}
	}
	return out
}

// UpdateFromConfig rebuilds the pool's per-format credential lists from
// fresh, replacing every existing entry except that a new credential whose
// (Format, APIKey) pair matches an existing one inherits that existing
// entry's live cooldown, so an in-flight cooldown survives a config reload
// that doesn't actually change the underlying key.
func (p *Pool) UpdateFromConfig(fresh map[Format][]*Credential, strategy Strategy) {
	p.mu.Lock()
	defer p.mu.Unlock()

	type key struct {
		format Format
		apiKey string
	}
	prevCooldown := make(map[key]time.Time)
	for format, list := range p.byFormat {
		for _, c := range list {
			if until := c.CooldownUntil(); !until.IsZero() {
				prevCooldown[key{format, c.APIKey}] = until
			}
		}
	}

	next := make(map[Format][]*Credential, len(fresh))
	for format, list := range fresh {
		copied := make([]*Credential, 0, len(list))
		for _, c := range list {
			nc := c.Clone()
			if until, ok := prevCooldown[key{format, nc.APIKey}]; ok && until.After(time.Now()) {
				nc.mu.Lock()
				nc.cooldownUntil = until
				nc.mu.Unlock()
			}
			copied = append(copied, nc)
		}
		next[format] = copied
	}
	p.byFormat = next
	p.strategy = strategy
}
