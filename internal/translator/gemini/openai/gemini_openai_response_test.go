package openai

import (
	"context"
	"testing"

	"github.com/tidwall/gjson"
)

func TestConvertGeminiResponseToOpenAIStreamChunk(t *testing.T) {
	var param any
	chunk := `{
		"modelVersion": "gemini-2.5-pro",
		"candidates": [{"content": {"parts": [{"text": "hi"}]}, "finishReason": "STOP"}],
		"usageMetadata": {"promptTokenCount": 5, "candidatesTokenCount": 2, "totalTokenCount": 7}
	}`
	lines := ConvertGeminiResponseToOpenAI(context.Background(), "m", nil, nil, "", []byte(chunk), &param)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	root := gjson.Parse(lines[0])
	if got := root.Get("choices.0.delta.content").String(); got != "hi" {
		t.Fatalf("delta.content = %q, want hi", got)
	}
	if got := root.Get("choices.0.finish_reason").String(); got != "stop" {
		t.Fatalf("finish_reason = %q, want stop", got)
	}
	if got := root.Get("usage.total_tokens").Int(); got != 7 {
		t.Fatalf("usage.total_tokens = %v, want 7", got)
	}
	if got := root.Get("model").String(); got != "gemini-2.5-pro" {
		t.Fatalf("model = %q, want gemini-2.5-pro", got)
	}

	state, ok := param.(*ConvertGeminiResponseToOpenAIParams)
	if !ok || state == nil {
		t.Fatal("expected param to be populated with accumulator state")
	}
}

func TestConvertGeminiResponseToOpenAIFunctionCall(t *testing.T) {
	var param any
	chunk := `{
		"candidates": [{"content": {"parts": [{"functionCall": {"name": "get_weather", "args": {"city": "nyc"}}}]}}]
	}`
	lines := ConvertGeminiResponseToOpenAI(context.Background(), "m", nil, nil, "", []byte(chunk), &param)
	root := gjson.Parse(lines[0])
	if got := root.Get("choices.0.delta.tool_calls.0.function.name").String(); got != "get_weather" {
		t.Fatalf("tool call name = %q, want get_weather", got)
	}
}

func TestConvertGeminiResponseToOpenAIAssignsStableStreamID(t *testing.T) {
	var param any
	first := ConvertGeminiResponseToOpenAI(context.Background(), "m", nil, nil, "", []byte(`{"candidates":[{"content":{"parts":[{"text":"a"}]}}]}`), &param)
	second := ConvertGeminiResponseToOpenAI(context.Background(), "m", nil, nil, "", []byte(`{"candidates":[{"content":{"parts":[{"text":"b"}]}}]}`), &param)

	id1 := gjson.Parse(first[0]).Get("id").String()
	id2 := gjson.Parse(second[0]).Get("id").String()
	if id1 == "" {
		t.Fatal("expected a non-empty chunk id")
	}
	if id1 != id2 {
		t.Fatalf("expected the same response id across chunks of one stream, got %q and %q", id1, id2)
	}
}

func TestConvertGeminiResponseToOpenAIFunctionCallIDsDontCollide(t *testing.T) {
	var param any
	chunk := `{
		"candidates": [{"content": {"parts": [
			{"functionCall": {"name": "get_weather", "args": {"city": "nyc"}}},
			{"functionCall": {"name": "get_weather", "args": {"city": "sf"}}}
		]}}]
	}`
	lines := ConvertGeminiResponseToOpenAI(context.Background(), "m", nil, nil, "", []byte(chunk), &param)
	root := gjson.Parse(lines[0])
	id0 := root.Get("choices.0.delta.tool_calls.0.id").String()
	id1 := root.Get("choices.0.delta.tool_calls.1.id").String()
	if id0 == "" || id1 == "" {
		t.Fatal("expected non-empty tool call ids")
	}
	if id0 == id1 {
		t.Fatalf("expected distinct tool call ids for repeated function name, got %q twice", id0)
	}
}

func TestConvertGeminiResponseToOpenAINonStreamSetsResponseID(t *testing.T) {
	resp := `{"candidates": [{"content": {"parts": [{"text": "hi"}]}, "finishReason": "STOP"}]}`
	out := ConvertGeminiResponseToOpenAINonStream(context.Background(), "m", nil, nil, []byte(resp), nil)
	if gjson.Get(out, "id").String() == "" {
		t.Fatal("expected a non-empty response id")
	}
}

func TestConvertGeminiResponseToOpenAINoCandidateReturnsNoLines(t *testing.T) {
	var param any
	lines := ConvertGeminiResponseToOpenAI(context.Background(), "m", nil, nil, "", []byte(`{}`), &param)
	if len(lines) != 0 {
		t.Fatalf("expected no lines when candidates missing, got %v", lines)
	}
}

func TestConvertGeminiResponseToOpenAINonStreamAggregatesTextAndToolCalls(t *testing.T) {
	resp := `{
		"modelVersion": "gemini-2.5-pro",
		"candidates": [{"content": {"parts": [
			{"text": "partial "},
			{"functionCall": {"name": "get_weather", "args": {"city": "nyc"}}}
		]}}]
	}`
	out := ConvertGeminiResponseToOpenAINonStream(context.Background(), "m", nil, nil, []byte(resp), nil)
	root := gjson.Parse(out)
	if got := root.Get("choices.0.message.content").String(); got != "partial " {
		t.Fatalf("message.content = %q, want %q", got, "partial ")
	}
	if got := root.Get("choices.0.message.tool_calls.0.function.name").String(); got != "get_weather" {
		t.Fatalf("tool_calls.0.function.name = %q, want get_weather", got)
	}
	if got := root.Get("choices.0.finish_reason").String(); got != "tool_calls" {
		t.Fatalf("finish_reason = %q, want tool_calls when tool calls present", got)
	}
}

func TestConvertGeminiResponseToOpenAINonStreamPlainTextFinish(t *testing.T) {
	resp := `{
		"candidates": [{"content": {"parts": [{"text": "done"}]}, "finishReason": "MAX_TOKENS"}]
	}`
	out := ConvertGeminiResponseToOpenAINonStream(context.Background(), "m", nil, nil, []byte(resp), nil)
	root := gjson.Parse(out)
	if got := root.Get("choices.0.finish_reason").String(); got != "length" {
		t.Fatalf("finish_reason = %q, want length", got)
	}
}
