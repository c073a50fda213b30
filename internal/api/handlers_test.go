package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nexusgate/aigateway/internal/dispatcherr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseRequestRequiresModel(t *testing.T) {
	_, _, _, err := parseRequest([]byte(`{"messages":[]}`))
	if err == nil || err.Code != "bad_request" {
		t.Fatalf("expected bad_request for a missing model field, got %+v", err)
	}
}

func TestParseRequestRejectsInvalidJSON(t *testing.T) {
	_, _, _, err := parseRequest([]byte(`not json`))
	if err == nil || err.Code != "bad_request" {
		t.Fatalf("expected bad_request for invalid JSON, got %+v", err)
	}
}

func TestParseRequestDefaultsFallbackToPrimaryModel(t *testing.T) {
	model, fallback, stream, err := parseRequest([]byte(`{"model":"gpt-4","stream":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if model != "gpt-4" || !stream {
		t.Fatalf("unexpected model/stream: %q %v", model, stream)
	}
	if len(fallback) != 1 || fallback[0] != "gpt-4" {
		t.Fatalf("expected fallback chain to default to [model], got %v", fallback)
	}
}

func TestParseRequestReadsModelsArray(t *testing.T) {
	_, fallback, _, err := parseRequest([]byte(`{"model":"gpt-4","models":["gpt-4","claude-3"]}`))
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if len(fallback) != 2 || fallback[0] != "gpt-4" || fallback[1] != "claude-3" {
		t.Fatalf("unexpected fallback chain: %v", fallback)
	}
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestWriteDispatchErrorForwardsUpstreamJSONVerbatim(t *testing.T) {
	c, w := newTestContext()
	writeDispatchError(c, dispatcherr.Upstream(429, `{"error":{"message":"rate limited"}}`))

	if w.Code != 429 {
		t.Fatalf("expected upstream status 429 to be forwarded, got %d", w.Code)
	}
	if w.Body.String() != `{"error":{"message":"rate limited"}}` {
		t.Fatalf("expected the upstream body verbatim, got %q", w.Body.String())
	}
}

func TestWriteDispatchErrorWrapsNonJSONUpstreamBody(t *testing.T) {
	c, w := newTestContext()
	writeDispatchError(c, dispatcherr.Upstream(500, "internal server error"))

	if w.Code != 500 {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected a well-formed error envelope, got %q: %v", w.Body.String(), err)
	}
	if resp.Error.Message != "internal server error" {
		t.Fatalf("unexpected message: %q", resp.Error.Message)
	}
}

func TestWriteDispatchErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{dispatcherr.BadRequest("bad"), 400, "invalid_request_error"},
		{dispatcherr.ModelNotFound("gpt-5"), 404, "invalid_request_error"},
		{dispatcherr.NoCredentials(), 503, "invalid_request_error"},
		{dispatcherr.PrefixRequired("m"), 400, "invalid_request_error"},
	}
	for _, tc := range cases {
		c, w := newTestContext()
		writeDispatchError(c, tc.err)
		if w.Code != tc.code {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.code, w.Code)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unexpected body: %v", err)
		}
		if resp.Error.Type != tc.kind {
			t.Fatalf("%v: expected kind %q, got %q", tc.err, tc.kind, resp.Error.Type)
		}
	}
}

func TestWriteDispatchErrorFallsBackToServerErrorForUnknownErrors(t *testing.T) {
	c, w := newTestContext()
	writeDispatchError(c, errPlain("boom"))

	if w.Code != 500 {
		t.Fatalf("expected status 500 for a non-dispatcherr error, got %d", w.Code)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
