package openai

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestConvertOpenAIRequestToGeminiExtractsSystemAndRoles(t *testing.T) {
	in := `{
		"model": "gpt-4",
		"temperature": 0.5,
		"max_tokens": 128,
		"messages": [
			{"role": "system", "content": "be terse"},
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello"}
		]
	}`
	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(in), false)
	root := gjson.ParseBytes(out)

	if got := root.Get("systemInstruction.parts.0.text").String(); got != "be terse" {
		t.Fatalf("systemInstruction = %q, want %q", got, "be terse")
	}
	if got := root.Get("generationConfig.temperature").Float(); got != 0.5 {
		t.Fatalf("temperature = %v, want 0.5", got)
	}
	if got := root.Get("generationConfig.maxOutputTokens").Int(); got != 128 {
		t.Fatalf("maxOutputTokens = %v, want 128", got)
	}

	contents := root.Get("contents")
	if !contents.IsArray() || len(contents.Array()) != 2 {
		t.Fatalf("expected 2 contents (system message excluded), got %d", len(contents.Array()))
	}
	first := contents.Array()[0]
	if got := first.Get("role").String(); got != "user" {
		t.Fatalf("first content role = %q, want user", got)
	}
	second := contents.Array()[1]
	if got := second.Get("role").String(); got != "model" {
		t.Fatalf("assistant role should map to model, got %q", got)
	}
}

func TestConvertOpenAIRequestToGeminiToolCallAndResponse(t *testing.T) {
	in := `{
		"model": "gpt-4",
		"messages": [
			{"role": "user", "content": "what's the weather"},
			{"role": "assistant", "content": "", "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\":\"nyc\"}"}}
			]},
			{"role": "tool", "tool_call_id": "call_1", "content": "{\"temp\":72}"}
		],
		"tools": [
			{"type": "function", "function": {"name": "get_weather", "description": "gets weather", "parameters": {"type": "object"}}}
		],
		"tool_choice": "auto"
	}`
	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(in), false)
	root := gjson.ParseBytes(out)

	contents := root.Get("contents").Array()
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}

	fnCall := contents[1].Get("parts.0.functionCall")
	if got := fnCall.Get("name").String(); got != "get_weather" {
		t.Fatalf("functionCall name = %q, want get_weather", got)
	}

	fnResp := contents[2]
	if got := fnResp.Get("role").String(); got != "function" {
		t.Fatalf("tool message role = %q, want function", got)
	}
	if got := fnResp.Get("parts.0.functionResponse.name").String(); got != "get_weather" {
		t.Fatalf("functionResponse name = %q, want get_weather (resolved from tool_call_id)", got)
	}

	if got := root.Get("toolConfig.functionCallingConfig.mode").String(); got != "AUTO" {
		t.Fatalf("toolConfig mode = %q, want AUTO", got)
	}
	if got := root.Get("tools.0.functionDeclarations.0.name").String(); got != "get_weather" {
		t.Fatalf("tool declaration name = %q, want get_weather", got)
	}
}

func TestConvertOpenAIRequestToGeminiStopSequences(t *testing.T) {
	in := `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}],"stop":["END","STOP"]}`
	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(in), false)
	root := gjson.ParseBytes(out)
	stops := root.Get("generationConfig.stopSequences").Array()
	if len(stops) != 2 || stops[0].String() != "END" || stops[1].String() != "STOP" {
		t.Fatalf("unexpected stopSequences: %v", stops)
	}
}
