package dispatcherr

import "testing"

func TestUpstreamCarriesStatusAndBody(t *testing.T) {
	e := Upstream(429, `{"error":"rate limited"}`)
	if e.Status != 429 || e.Code != "upstream_error" || e.Message != `{"error":"rate limited"}` {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestNetworkDefaultsTo502(t *testing.T) {
	e := Network(errString("dial tcp: timeout"))
	if e.Status != 502 || e.Code != "network_error" {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestModelNotFoundIs404(t *testing.T) {
	e := ModelNotFound("gpt-5")
	if e.Status != 404 || e.Code != "model_not_found" {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestNoCredentialsIs503(t *testing.T) {
	e := NoCredentials()
	if e.Status != 503 || e.Code != "no_credentials" {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestPrefixRequiredIs400(t *testing.T) {
	e := PrefixRequired("sonnet-4")
	if e.Status != 400 || e.Code != "prefix_required" {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestErrorImplementsError(t *testing.T) {
	var err error = BadRequest("missing model")
	if err.Error() != "bad_request: missing model" {
		t.Fatalf("unexpected Error() string: %q", err.Error())
	}
}

type errString string

func (e errString) Error() string { return string(e) }
