package openai

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestConvertOpenAIRequestExtractsSystemMessages(t *testing.T) {
	in := []byte(`{"model":"m","messages":[{"role":"system","content":"A"},{"role":"system","content":"B"},{"role":"user","content":"hi"}],"max_tokens":100}`)
	out := ConvertOpenAIRequestToAnthropic(in)
	root := gjson.Parse(out)

	if got := root.Get("system").String(); got != "A\n\nB" {
		t.Fatalf("expected system to join consecutive system messages with a blank line, got %q", got)
	}
	if got := root.Get("max_tokens").Int(); got != 100 {
		t.Fatalf("expected max_tokens to pass through unchanged, got %d", got)
	}

	messages := root.Get("messages").Array()
	if len(messages) != 1 {
		t.Fatalf("expected exactly one message once system turns are extracted, got %d", len(messages))
	}
	if messages[0].Get("role").String() != "user" {
		t.Fatalf("expected the sole remaining message to keep its user role, got %q", messages[0].Get("role").String())
	}

	content := messages[0].Get("content")
	var text string
	if content.Type == gjson.String {
		text = content.String()
	} else {
		text = content.Get("0.text").String()
	}
	if text != "hi" {
		t.Fatalf("expected message content to carry the original text, got %q", content.Raw)
	}
}

func TestConvertOpenAIRequestPassesModelAndSamplingFields(t *testing.T) {
	in := []byte(`{"model":"gpt-4","temperature":0.5,"top_p":0.9,"stream":true,"messages":[]}`)
	out := ConvertOpenAIRequestToAnthropic(in)
	root := gjson.Parse(out)

	if root.Get("temperature").Float() != 0.5 {
		t.Fatalf("expected temperature to pass through, got %v", root.Get("temperature").Float())
	}
	if root.Get("top_p").Float() != 0.9 {
		t.Fatalf("expected top_p to pass through, got %v", root.Get("top_p").Float())
	}
	if !root.Get("stream").Bool() {
		t.Fatal("expected stream to pass through as true")
	}
}

func TestConvertOpenAIRequestToolCalls(t *testing.T) {
	in := []byte(`{"model":"m","messages":[{"role":"assistant","tool_calls":[{"id":"call_1","type":"function","function":{"name":"lookup","arguments":"{\"q\":\"x\"}"}}]}]}`)
	out := ConvertOpenAIRequestToAnthropic(in)
	root := gjson.Parse(out)

	toolUse := root.Get("messages.0.content.0")
	if toolUse.Get("type").String() != "tool_use" {
		t.Fatalf("expected a tool_use content block, got %q", toolUse.Raw)
	}
	if toolUse.Get("name").String() != "lookup" {
		t.Fatalf("expected tool name lookup, got %q", toolUse.Get("name").String())
	}
	if toolUse.Get("input.q").String() != "x" {
		t.Fatalf("expected parsed tool arguments, got %q", toolUse.Get("input").Raw)
	}
}
