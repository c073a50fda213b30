package executor

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nexusgate/aigateway/internal/sse"
	coreauth "github.com/nexusgate/aigateway/sdk/cliproxy/auth"
)

// GeminiExecutor sends requests to the Gemini generateContent API.
type GeminiExecutor struct {
	RoundTrippers  RoundTripperProvider
	ConnectTimeout time.Duration
}

// NewGeminiExecutor returns an executor for Gemini-format credentials.
func NewGeminiExecutor(rp RoundTripperProvider, connectTimeout time.Duration) *GeminiExecutor {
	return &GeminiExecutor{RoundTrippers: rp, ConnectTimeout: connectTimeout}
}

func geminiBaseURL(cred *coreauth.Credential) string {
	if cred.BaseURL != "" {
		return strings.TrimRight(cred.BaseURL, "/")
	}
	return "https://generativelanguage.googleapis.com"
}

func (e *GeminiExecutor) buildRequest(ctx context.Context, cred *coreauth.Credential, req Request, stream bool) (*http.Request, error) {
	model := req.Model
	verb := "generateContent"
	suffix := ""
	if stream {
		verb = "streamGenerateContent"
		suffix = "?alt=sse"
	}
	url := geminiBaseURL(cred) + "/v1beta/models/" + model + ":" + verb + suffix
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(req.Payload)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", cred.APIKey)
	for k, values := range req.ExtraHeaders {
		for _, v := range values {
			httpReq.Header.Set(k, v)
		}
	}
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

// Execute performs a non-streamed Gemini generateContent call.
func (e *GeminiExecutor) Execute(ctx context.Context, cred *coreauth.Credential, req Request) (Response, error) {
	httpReq, err := e.buildRequest(ctx, cred, req, false)
	if err != nil {
		return Response{}, &NetworkError{Err: err}
	}
	client := httpClientFor(e.RoundTrippers, cred, e.ConnectTimeout)
	resp, err := client.Do(httpReq)
	if err != nil {
		return Response{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &NetworkError{Err: err}
	}
	if resp.StatusCode >= 400 {
		return Response{}, &UpstreamError{Status: resp.StatusCode, Body: body, RetryAfterSecs: parseRetryAfter(resp.Header)}
	}
	return Response{StatusCode: resp.StatusCode, Payload: body, Headers: resp.Header}, nil
}

// ExecuteStream performs a streamed Gemini streamGenerateContent call.
func (e *GeminiExecutor) ExecuteStream(ctx context.Context, cred *coreauth.Credential, req Request) (<-chan StreamChunk, error) {
	httpReq, err := e.buildRequest(ctx, cred, req, true)
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
