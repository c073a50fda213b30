// Package payloadrules applies the configured default/override/filter
// rules to an outgoing request body, matched by model-name glob and
// optional wire protocol.
package payloadrules

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/nexusgate/aigateway/internal/config"
	"github.com/nexusgate/aigateway/internal/glob"
)

// matches reports whether any matcher in matchers matches model/protocol. A
// matcher with no Protocol set matches any protocol; one with a Protocol set
// only matches when protocol is non-empty and case-insensitively equal.
func matches(matchers []config.ModelMatcher, model, protocol string) bool {
	for _, m := range matchers {
		if !glob.Match(m.Name, model) {
			continue
		}
		if m.Protocol == nil {
			return true
		}
		if protocol != "" && strings.EqualFold(protocol, *m.Protocol) {
			return true
		}
	}
	return false
}

// Apply runs the three-phase payload rules engine over body (a JSON
// document) for the given model and protocol ("openai", "claude", "gemini",
// "" if not applicable), returning the rewritten document.
//
// Phase order is significant: defaults only fill in fields the request
// doesn't already set, overrides always win, and filters run last so they
// can strip anything the first two phases just set.
func Apply(body []byte, cfg config.PayloadConfig, model, protocol string) ([]byte, error) {
	out := body
	var err error

	for _, rule := range cfg.Default {
		if !matches(rule.Models, model, protocol) {
			continue
		}
		for path, value := range rule.Params {
			if gjson.GetBytes(out, path).Exists() {
				continue
			}
			out, err = sjson.SetBytes(out, path, value)
			if err != nil {
				return nil, err
			}
		}
	}

	for _, rule := range cfg.Override {
		if !matches(rule.Models, model, protocol) {
			continue
		}
		for path, value := range rule.Params {
			out, err = sjson.SetBytes(out, path, value)
			if err != nil {
				return nil, err
			}
		}
	}

	for _, rule := range cfg.Filter {
		if !matches(rule.Models, model, protocol) {
			continue
		}
		for _, path := range rule.Params {
			out, err = sjson.DeleteBytes(out, path)
			if err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}
