package payloadrules

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/nexusgate/aigateway/internal/config"
)

func protoPtr(s string) *string { return &s }

func TestDefaultSetsMissingNested(t *testing.T) {
	cfg := config.PayloadConfig{
		Default: []config.PayloadRule{{
			Models: []config.ModelMatcher{{Name: "gemini-*"}},
			Params: map[string]interface{}{
				"generationConfig.thinkingConfig.thinkingBudget": 32768,
			},
		}},
	}
	out, err := Apply([]byte(`{"model":"gemini-2.5-pro"}`), cfg, "gemini-2.5-pro", "gemini")
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(out, "generationConfig.thinkingConfig.thinkingBudget").Int(); got != 32768 {
		t.Fatalf("thinkingBudget = %d, want 32768", got)
	}
}

func TestDefaultDoesNotOverwrite(t *testing.T) {
	cfg := config.PayloadConfig{
		Default: []config.PayloadRule{{
			Models: []config.ModelMatcher{{Name: "*"}},
			Params: map[string]interface{}{"temperature": 1.0},
		}},
	}
	out, err := Apply([]byte(`{"temperature":0.5}`), cfg, "any-model", "")
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(out, "temperature").Float(); got != 0.5 {
		t.Fatalf("temperature = %v, want 0.5", got)
	}
}

func TestOverrideAlwaysSets(t *testing.T) {
	cfg := config.PayloadConfig{
		Override: []config.PayloadRule{{
			Models: []config.ModelMatcher{{Name: "gpt-*", Protocol: protoPtr("openai")}},
			Params: map[string]interface{}{"reasoning.effort": "high"},
		}},
	}
	out, err := Apply([]byte(`{"reasoning":{"effort":"low"}}`), cfg, "gpt-4o", "openai")
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(out, "reasoning.effort").String(); got != "high" {
		t.Fatalf("reasoning.effort = %q, want high", got)
	}
}

func TestFilterRemovesFields(t *testing.T) {
	cfg := config.PayloadConfig{
		Filter: []config.FilterRule{{
			Models: []config.ModelMatcher{{Name: "gemini-*"}},
			Params: []string{"generationConfig.responseJsonSchema"},
		}},
	}
	body := `{"generationConfig":{"responseJsonSchema":{"type":"object"},"temperature":0.7}}`
	out, err := Apply([]byte(body), cfg, "gemini-2.0-flash", "gemini")
	if err != nil {
		t.Fatal(err)
	}
	if gjson.GetBytes(out, "generationConfig.responseJsonSchema").Exists() {
		t.Fatal("responseJsonSchema should have been removed")
	}
	if got := gjson.GetBytes(out, "generationConfig.temperature").Float(); got != 0.7 {
		t.Fatalf("temperature = %v, want 0.7", got)
	}
}

func TestProtocolFilter(t *testing.T) {
	cfg := config.PayloadConfig{
		Override: []config.PayloadRule{{
			Models: []config.ModelMatcher{{Name: "*", Protocol: protoPtr("openai")}},
			Params: map[string]interface{}{"stream_options.include_usage": true},
		}},
	}
	out, err := Apply([]byte(`{}`), cfg, "any-model", "claude")
	if err != nil {
		t.Fatal(err)
	}
	if gjson.GetBytes(out, "stream_options").Exists() {
		t.Fatal("stream_options should not be set for protocol claude")
	}

	out, err = Apply([]byte(`{}`), cfg, "any-model", "openai")
	if err != nil {
		t.Fatal(err)
	}
	if !gjson.GetBytes(out, "stream_options.include_usage").Bool() {
		t.Fatal("stream_options.include_usage should be true for protocol openai")
	}
}
