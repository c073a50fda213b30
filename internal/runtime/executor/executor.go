// Package executor builds and sends the outbound HTTP request for one
// provider family (Claude, Gemini, OpenAI-compat) and classifies the result
// back into the dispatch loop's retryable/terminal error shapes.
package executor

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	coreauth "github.com/nexusgate/aigateway/sdk/cliproxy/auth"
)

// Request is an already-translated, payload-ruled (and, for Claude, cloaked)
// request body ready to send upstream.
type Request struct {
	Model        string
	Payload      []byte
	ExtraHeaders http.Header
}

// Response is a complete non-streamed upstream response.
type Response struct {
	StatusCode int
	Payload    []byte
	Headers    http.Header
}

// StreamChunk is one decoded SSE event read from an upstream stream, or a
// terminal error that ends the stream.
type StreamChunk struct {
	EventName string
	Data      []byte
	Err       error
}

// UpstreamError is returned when the upstream responds with a non-2xx
// status; it carries enough information for the dispatch loop's error
// classification (cooldown duration selection).
type UpstreamError struct {
	Status         int
	Body           []byte
	RetryAfterSecs int
}

func (e *UpstreamError) Error() string {
	return "executor: upstream status " + strconv.Itoa(e.Status)
}

// NetworkError wraps a transport-level failure (DNS, connect, TLS, timeout)
// that never reached the upstream far enough to get a status code.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "executor: network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// Executor is implemented once per provider family.
type Executor interface {
	Execute(ctx context.Context, cred *coreauth.Credential, req Request) (Response, error)
	ExecuteStream(ctx context.Context, cred *coreauth.Credential, req Request) (<-chan StreamChunk, error)
}

// parseRetryAfter reads the Retry-After header as unsigned seconds; the
// HTTP-date form is not supported and yields 0 (caller falls back to the
// configured default cooldown).
func parseRetryAfter(h http.Header) int {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}

// httpClientFor builds a request-scoped HTTP client using rp's cached
// transport for cred's proxy (if any) and connectTimeout for the dial.
func httpClientFor(rp RoundTripperProvider, cred *coreauth.Credential, connectTimeout time.Duration) *http.Client {
	client := &http.Client{}
	if rp != nil {
		if rt := rp.RoundTripperFor(cred); rt != nil {
			client.Transport = rt
			return client
		}
	}
	client.Transport = &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}
	return client
}
