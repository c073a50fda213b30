// Package dispatcherr defines the small typed error hierarchy the dispatch
// loop and HTTP handlers share: every error the gateway can surface to a
// caller knows its own HTTP status code.
package dispatcherr

import "fmt"

// Error is a dispatch-surfaced error that carries the HTTP status the
// handler layer should respond with.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Upstream wraps a non-2xx response received from a provider after retries
// were exhausted.
func Upstream(status int, body string) *Error {
	return &Error{Status: status, Code: "upstream_error", Message: body}
}

// Network reports a transport-level failure after retries were exhausted.
func Network(err error) *Error {
	return &Error{Status: 502, Code: "network_error", Message: err.Error()}
}

// BadRequest reports a malformed or unsupported request body.
func BadRequest(message string) *Error {
	return &Error{Status: 400, Code: "bad_request", Message: message}
}

// ModelNotFound reports that no credential supports the requested model.
func ModelNotFound(model string) *Error {
	return &Error{Status: 404, Code: "model_not_found", Message: "no credential supports model " + model}
}

// NoCredentials reports that every candidate credential was exhausted
// without success.
func NoCredentials() *Error {
	return &Error{Status: 503, Code: "no_credentials", Message: "no available credential could serve this request"}
}

// PrefixRequired reports that force-model-prefix is enabled and the
// requested model carries no recognized provider prefix.
func PrefixRequired(model string) *Error {
	return &Error{Status: 400, Code: "prefix_required", Message: "model " + model + " must carry a provider prefix"}
}
