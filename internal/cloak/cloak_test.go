package cloak

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestShouldCloakAuto(t *testing.T) {
	cfg := Config{Mode: Auto}
	if ShouldCloak(cfg, "claude-cli/2.1.58") {
		t.Fatal("should not cloak native claude-cli client")
	}
	if !ShouldCloak(cfg, "python-requests/2.31.0") {
		t.Fatal("should cloak non-CLI client")
	}
	if !ShouldCloak(cfg, "") {
		t.Fatal("should cloak when User-Agent is absent")
	}
}

func TestShouldCloakAlwaysNever(t *testing.T) {
	if !ShouldCloak(Config{Mode: Always}, "claude-cli/2.1.58") {
		t.Fatal("always mode must cloak regardless of User-Agent")
	}
	if ShouldCloak(Config{Mode: Never}, "") {
		t.Fatal("never mode must not cloak")
	}
}

func TestGenerateUserIDFormat(t *testing.T) {
	id := GenerateUserID("test-key", false)
	if !strings.HasPrefix(id, "user_") {
		t.Fatalf("id %q missing user_ prefix", id)
	}
	if !strings.Contains(id, "_account__session_") {
		t.Fatalf("id %q missing session marker", id)
	}
}

func TestGenerateUserIDCaching(t *testing.T) {
	id1 := GenerateUserID("cache-test-key", true)
	id2 := GenerateUserID("cache-test-key", true)
	if id1 != id2 {
		t.Fatalf("cached ids differ: %q != %q", id1, id2)
	}
}

func TestApplyCloakSystemPrompt(t *testing.T) {
	body := []byte(`{"model":"claude-sonnet-4-20250514","messages":[{"role":"user","content":"hello"}],"system":"You are a helpful assistant."}`)
	out, err := Apply(body, Config{Mode: Always, StrictMode: false}, "test-key")
	if err != nil {
		t.Fatal(err)
	}
	system := gjson.GetBytes(out, "system").String()
	if !strings.HasPrefix(system, "You are Claude Code") {
		t.Fatalf("system prompt not prepended: %q", system)
	}
	if !strings.Contains(system, "You are a helpful assistant.") {
		t.Fatal("original system prompt lost in non-strict mode")
	}
}

func TestApplyCloakStrictMode(t *testing.T) {
	body := []byte(`{"model":"claude-sonnet-4-20250514","messages":[{"role":"user","content":"hello"}],"system":"You are a helpful assistant."}`)
	out, err := Apply(body, Config{Mode: Always, StrictMode: true}, "test-key")
	if err != nil {
		t.Fatal(err)
	}
	system := gjson.GetBytes(out, "system").String()
	if !strings.HasPrefix(system, "You are Claude Code") {
		t.Fatalf("system prompt not set: %q", system)
	}
	if strings.Contains(system, "You are a helpful assistant.") {
		t.Fatal("strict mode must not retain the original system prompt")
	}
}

func TestObfuscateSensitiveWords(t *testing.T) {
	body := []byte(`{"model":"claude-sonnet-4-20250514","messages":[{"role":"user","content":"This API proxy is great"}]}`)
	out, err := Apply(body, Config{Mode: Always, SensitiveWords: []string{"API", "proxy"}}, "test-key")
	if err != nil {
		t.Fatal(err)
	}
	content := gjson.GetBytes(out, "messages.0.content").String()
	if !strings.Contains(content, "​") {
		t.Fatal("expected a zero-width space to be inserted")
	}
	if strings.Contains(content, "API") || strings.Contains(content, "proxy") {
		t.Fatalf("sensitive words not obfuscated: %q", content)
	}
}

func TestApplyHeadersSetsFullStainlessFingerprint(t *testing.T) {
	target := http.Header{}
	ApplyHeaders(target, nil)

	want := map[string]string{
		"x-stainless-helper-method":   "stream",
		"x-stainless-retry-count":     "0",
		"x-stainless-runtime-version": "v24.3.0",
		"x-stainless-package-version": "0.55.1",
		"x-stainless-runtime":         "node",
		"x-stainless-lang":            "js",
		"x-stainless-arch":            "arm64",
		"x-stainless-os":              "MacOS",
		"x-stainless-timeout":         "60",
	}
	for k, v := range want {
		if got := target.Get(k); got != v {
			t.Fatalf("header %q = %q, want %q", k, got, v)
		}
	}
	if got := target.Get("anthropic-version"); got != "2023-06-01" {
		t.Fatalf("anthropic-version = %q, want 2023-06-01", got)
	}
}

func TestUserIDInMetadata(t *testing.T) {
	body := []byte(`{"model":"claude-sonnet-4-20250514","messages":[{"role":"user","content":"hello"}]}`)
	out, err := Apply(body, Config{Mode: Always}, "test-key")
	if err != nil {
		t.Fatal(err)
	}
	userID := gjson.GetBytes(out, "metadata.user_id")
	if !userID.Exists() || userID.Type != gjson.String {
		t.Fatal("metadata.user_id missing or not a string")
	}
	if !strings.HasPrefix(userID.String(), "user_") {
		t.Fatalf("unexpected user_id: %q", userID.String())
	}
}
