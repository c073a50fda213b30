// Package cloak rewrites outgoing Claude Messages API requests so they are
// indistinguishable from traffic sent by the official Claude Code CLI: it
// injects the CLI's system prompt, a synthetic user_id, official fingerprint
// headers, and optionally obfuscates configured sensitive words.
package cloak

import (
	_ "embed"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/nexusgate/aigateway/internal/misc"
	"github.com/nexusgate/aigateway/internal/util"
)

//go:embed identity.txt
var systemPrompt string

// Mode controls when cloaking is applied to a request.
type Mode string

const (
	Auto   Mode = "auto"
	Always Mode = "always"
	Never  Mode = "never"
)

// Config is the per-credential cloak configuration.
type Config struct {
	Mode           Mode
	StrictMode     bool
	SensitiveWords []string
	CacheUserID    bool
}

// ShouldCloak reports whether a request with the given User-Agent should be
// cloaked under cfg. Auto mode skips native Claude Code clients, identified
// by a "claude-cli" or "claude-code" prefixed User-Agent.
func ShouldCloak(cfg Config, userAgent string) bool {
	switch cfg.Mode {
	case Always:
		return true
	case Never:
		return false
	case Auto:
		fallthrough
	default:
		return !strings.HasPrefix(userAgent, "claude-cli") && !strings.HasPrefix(userAgent, "claude-code")
	}
}

// Apply rewrites body (a Claude Messages API JSON request) per cfg: the
// system prompt is replaced (strict mode) or prepended to, a synthetic
// user_id is injected into metadata, and any configured sensitive words are
// obfuscated with an inline zero-width space.
func Apply(body []byte, cfg Config, apiKey string) ([]byte, error) {
	out := body
	var err error

	existing := gjson.GetBytes(out, "system").String()
	var system string
	if cfg.StrictMode || existing == "" {
		system = systemPrompt
	} else {
		system = systemPrompt + "\n\n" + existing
	}
	out, err = sjson.SetBytes(out, "system", system)
	if err != nil {
		return nil, err
	}

	userID := GenerateUserID(apiKey, cfg.CacheUserID)
	out, err = sjson.SetBytes(out, "metadata.user_id", userID)
	if err != nil {
		return nil, err
	}

	if len(cfg.SensitiveWords) > 0 {
		out, err = obfuscateSensitiveWords(out, cfg.SensitiveWords)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

// obfuscateSensitiveWords walks every "text"/"content"-keyed string found
// under "messages" and "system" and inserts a zero-width space after the
// first character of each case-insensitive match of one of words.
func obfuscateSensitiveWords(body []byte, words []string) ([]byte, error) {
	escaped := make([]string, 0, len(words))
	for _, w := range words {
		escaped = append(escaped, regexp.QuoteMeta(w))
	}
	re, err := regexp.Compile("(?i)(" + strings.Join(escaped, "|") + ")")
	if err != nil {
		return body, nil
	}

	out := body
	for _, root := range []string{"messages", "system"} {
		result := gjson.GetBytes(out, root)
		if !result.Exists() {
			continue
		}
		var paths []string
		util.Walk(result, root, "text", &paths)
		util.Walk(result, root, "content", &paths)
		for _, path := range paths {
			val := gjson.GetBytes(out, path)
			if val.Type != gjson.String {
				continue
			}
			rewritten := obfuscateString(val.String(), re)
			out, err = sjson.SetBytes(out, path, rewritten)
			if err != nil {
				return nil, err
			}
		}
		// "system" itself may be a bare string rather than an object tree.
		if root == "system" && result.Type == gjson.String {
			rewritten := obfuscateString(result.String(), re)
			out, err = sjson.SetBytes(out, root, rewritten)
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func obfuscateString(s string, re *regexp.Regexp) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		if match == "" {
			return match
		}
		runes := []rune(match)
		return string(runes[0]) + "​" + string(runes[1:])
	})
}

// ApplyHeaders merges claude-header-defaults and the official Claude Code
// CLI fingerprint headers into target; a header already present in target is
// kept, and defaults win over the built-in fingerprint values. The executor
// sets the result over its own protocol headers; only the credential's
// static headers override it.
func ApplyHeaders(target http.Header, defaults map[string]string) {
	for k, v := range defaults {
		misc.EnsureHeader(target, nil, k, v)
	}
	misc.EnsureHeader(target, nil, "anthropic-version", "2023-06-01")
	misc.EnsureHeader(target, nil, "x-stainless-helper-method", "stream")
	misc.EnsureHeader(target, nil, "x-stainless-retry-count", "0")
	misc.EnsureHeader(target, nil, "x-stainless-runtime-version", "v24.3.0")
	misc.EnsureHeader(target, nil, "x-stainless-package-version", "0.55.1")
	misc.EnsureHeader(target, nil, "x-stainless-runtime", "node")
	misc.EnsureHeader(target, nil, "x-stainless-lang", "js")
	misc.EnsureHeader(target, nil, "x-stainless-arch", "arm64")
	misc.EnsureHeader(target, nil, "x-stainless-os", "MacOS")
	misc.EnsureHeader(target, nil, "x-stainless-timeout", "60")
}
