package executor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/nexusgate/aigateway/internal/sse"
	coreauth "github.com/nexusgate/aigateway/sdk/cliproxy/auth"
)

// OpenAICompatExecutor sends requests to an OpenAI-compatible endpoint,
// either the Chat Completions or the Responses wire shape depending on the
// credential's WireAPI.
type OpenAICompatExecutor struct {
	RoundTrippers  RoundTripperProvider
	ConnectTimeout time.Duration
}

// NewOpenAICompatExecutor returns an executor for OpenAI-compat credentials.
func NewOpenAICompatExecutor(rp RoundTripperProvider, connectTimeout time.Duration) *OpenAICompatExecutor {
	return &OpenAICompatExecutor{RoundTrippers: rp, ConnectTimeout: connectTimeout}
}

func compatBaseURL(cred *coreauth.Credential) string {
	return strings.TrimRight(cred.BaseURL, "/")
}

func (e *OpenAICompatExecutor) path(cred *coreauth.Credential) string {
	if cred.WireAPI == coreauth.WireAPIResponses {
		return "/v1/responses"
	}
	return "/v1/chat/completions"
}

func (e *OpenAICompatExecutor) buildRequest(ctx context.Context, cred *coreauth.Credential, body []byte, stream bool) (*http.Request, error) {
	url := compatBaseURL(cred) + e.path(cred)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cred.APIKey)
	for k, v := range cred.Headers {
		httpReq.Header.Set(k, v)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	return httpReq, nil
}

// chatToResponses rewrites a Chat Completions body into a Responses body:
// messages -> input, system messages collected into instructions,
// max_tokens -> max_output_tokens, stream removed.
func chatToResponses(body []byte) []byte {
	out := []byte(`{}`)
	root := gjson.ParseBytes(body)

	if model := root.Get("model"); model.Exists() {
		out, _ = sjson.SetBytes(out, "model", model.String())
	}

	var instructions []string
	var input []interface{}
	root.Get("messages").ForEach(func(_, msg gjson.Result) bool {
		role := msg.Get("role").String()
		content := msg.Get("content").String()
		if role == "system" || role == "developer" {
			instructions = append(instructions, content)
			return true
		}
		input = append(input, map[string]interface{}{"role": role, "content": content})
		return true
	})
	if len(instructions) > 0 {
		out, _ = sjson.SetBytes(out, "instructions", strings.Join(instructions, "\n\n"))
	}
	if len(input) > 0 {
		inputJSON, _ := json.Marshal(input)
		out, _ = sjson.SetRawBytes(out, "input", inputJSON)
	}
	if maxTokens := root.Get("max_tokens"); maxTokens.Exists() {
		out, _ = sjson.SetBytes(out, "max_output_tokens", maxTokens.Int())
	}
	if temp := root.Get("temperature"); temp.Exists() {
		out, _ = sjson.SetBytes(out, "temperature", temp.Float())
	}
	return out
}

func mapResponsesStatus(status string) string {
	switch status {
	case "completed":
		return "stop"
	case "incomplete":
		return "length"
	default:
		return "stop"
	}
}

// responsesToChat folds a Responses body into a Chat Completions body:
// output[*].content[*].text (type output_text) concatenated into
// choices[0].message.content; status mapped to finish_reason.
func responsesToChat(body []byte) []byte {
	out := []byte(`{"object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"stop"}]}`)
	root := gjson.ParseBytes(body)

	if id := root.Get("id"); id.Exists() {
		out, _ = sjson.SetBytes(out, "id", id.String())
	}
	if model := root.Get("model"); model.Exists() {
		out, _ = sjson.SetBytes(out, "model", model.String())
	}
	if created := root.Get("created_at"); created.Exists() {
		out, _ = sjson.SetBytes(out, "created", created.Int())
	}

	var textParts []string
	root.Get("output").ForEach(func(_, item gjson.Result) bool {
		item.Get("content").ForEach(func(_, c gjson.Result) bool {
			if c.Get("type").String() == "output_text" {
				textParts = append(textParts, c.Get("text").String())
			}
			return true
		})
		return true
	})
	if len(textParts) > 0 {
		out, _ = sjson.SetBytes(out, "choices.0.message.content", strings.Join(textParts, ""))
	}
	if status := root.Get("status"); status.Exists() {
		out, _ = sjson.SetBytes(out, "choices.0.finish_reason", mapResponsesStatus(status.String()))
	}
	if usage := root.Get("usage"); usage.Exists() {
		out, _ = sjson.SetBytes(out, "usage.prompt_tokens", usage.Get("input_tokens").Int())
		out, _ = sjson.SetBytes(out, "usage.completion_tokens", usage.Get("output_tokens").Int())
		out, _ = sjson.SetBytes(out, "usage.total_tokens", usage.Get("input_tokens").Int()+usage.Get("output_tokens").Int())
	}
	return out
}

// Execute performs a non-streamed call, translating the body to/from the
// Responses wire shape when the credential requires it.
func (e *OpenAICompatExecutor) Execute(ctx context.Context, cred *coreauth.Credential, req Request) (Response, error) {
	body := req.Payload
	if cred.WireAPI == coreauth.WireAPIResponses {
		body = chatToResponses(body)
	}

	httpReq, err := e.buildRequest(ctx, cred, body, false)
	if err != nil {
		return Response{}, &NetworkError{Err: err}
	}
	client := httpClientFor(e.RoundTrippers, cred, e.ConnectTimeout)
	resp, err := client.Do(httpReq)
	if err != nil {
		return Response{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &NetworkError{Err: err}
	}
	if resp.StatusCode >= 400 {
		return Response{}, &UpstreamError{Status: resp.StatusCode, Body: respBody, RetryAfterSecs: parseRetryAfter(resp.Header)}
	}
	if cred.WireAPI == coreauth.WireAPIResponses {
		respBody = responsesToChat(respBody)
	}
	return Response{StatusCode: resp.StatusCode, Payload: respBody, Headers: resp.Header}, nil
}

// ExecuteStream performs a streamed call. For the Chat wire shape the
// upstream SSE stream is decoded and forwarded as-is. For the Responses
// wire shape, streaming is synthesized: the non-stream call is performed
// and its result is split into four synthetic chunks (role, content,
// stop-with-usage, [DONE]), since the Responses event stream shape is not
// translated by this gateway.
func (e *OpenAICompatExecutor) ExecuteStream(ctx context.Context, cred *coreauth.Credential, req Request) (<-chan StreamChunk, error) {
	if cred.WireAPI == coreauth.WireAPIResponses {
		return e.executeSyntheticStream(ctx, cred, req)
	}

	httpReq, err := e.buildRequest(ctx, cred, req.Payload, true)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	client := httpClientFor(e.RoundTrippers, cred, e.ConnectTimeout)
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{Status: resp.StatusCode, Body: body, RetryAfterSecs: parseRetryAfter(resp.Header)}
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		dec := sse.NewDecoder(resp.Body)
		for {
			ev, err := dec.Next()
			if err != nil {
				if err != io.EOF {
					out <- StreamChunk{Err: err}
				}
				return
			}
			out <- StreamChunk{EventName: ev.Name, Data: ev.Data}
		}
	}()
	return out, nil
}

func (e *OpenAICompatExecutor) executeSyntheticStream(ctx context.Context, cred *coreauth.Credential, req Request) (<-chan StreamChunk, error) {
	resp, err := e.Execute(ctx, cred, req)
	if err != nil {
		return nil, err
	}

	content := gjson.GetBytes(resp.Payload, "choices.0.message.content").String()
	finishReason := gjson.GetBytes(resp.Payload, "choices.0.finish_reason").String()
	model := gjson.GetBytes(resp.Payload, "model").String()
	id := gjson.GetBytes(resp.Payload, "id").String()
	promptTokens := gjson.GetBytes(resp.Payload, "usage.prompt_tokens").Int()
	completionTokens := gjson.GetBytes(resp.Payload, "usage.completion_tokens").Int()
	totalTokens := gjson.GetBytes(resp.Payload, "usage.total_tokens").Int()

	roleChunk, _ := sjson.Set(`{"object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}`, "id", id)
	roleChunk, _ = sjson.Set(roleChunk, "model", model)

	contentChunk, _ := sjson.Set(`{"object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":null}]}`, "id", id)
	contentChunk, _ = sjson.Set(contentChunk, "model", model)
	contentChunk, _ = sjson.Set(contentChunk, "choices.0.delta.content", content)

	stopChunk, _ := sjson.Set(`{"object":"chat.completion.chunk","choices":[{"index":0,"delta":{}}]}`, "id", id)
	stopChunk, _ = sjson.Set(stopChunk, "model", model)
	stopChunk, _ = sjson.Set(stopChunk, "choices.0.finish_reason", finishReason)
	stopChunk, _ = sjson.Set(stopChunk, "usage.prompt_tokens", promptTokens)
	stopChunk, _ = sjson.Set(stopChunk, "usage.completion_tokens", completionTokens)
	stopChunk, _ = sjson.Set(stopChunk, "usage.total_tokens", totalTokens)

	out := make(chan StreamChunk, 4)
	out <- StreamChunk{Data: []byte(roleChunk)}
	out <- StreamChunk{Data: []byte(contentChunk)}
	out <- StreamChunk{Data: []byte(stopChunk)}
	out <- StreamChunk{Data: []byte("[DONE]")}
	close(out)
	return out, nil
}
