package claude

import (
	"context"
	"testing"

	"github.com/tidwall/gjson"
)

func TestConvertClaudeRequestToClaudeRewritesModel(t *testing.T) {
	out := ConvertClaudeRequestToClaude("claude-sonnet-4-20250514", []byte(`{"model":"claude-sonnet-4","messages":[]}`), false)
	if got := gjson.GetBytes(out, "model").String(); got != "claude-sonnet-4-20250514" {
		t.Fatalf("expected model to be rewritten, got %q", got)
	}
}

func TestPassthroughClaudeResponseStreamPreservesEventName(t *testing.T) {
	lines := PassthroughClaudeResponseStream(context.Background(), "m", nil, nil, "content_block_delta", []byte(`{"type":"content_block_delta"}`), nil)
	if len(lines) != 1 || lines[0] != "event: content_block_delta\ndata: {\"type\":\"content_block_delta\"}" {
		t.Fatalf("expected a composite event/data line, got %v", lines)
	}
}

func TestPassthroughClaudeResponseStreamWithoutEventName(t *testing.T) {
	lines := PassthroughClaudeResponseStream(context.Background(), "m", nil, nil, "", []byte(`{"type":"ping"}`), nil)
	if len(lines) != 1 || lines[0] != `{"type":"ping"}` {
		t.Fatalf("expected raw data with no event name, got %v", lines)
	}
}
