// Package dispatch drives the model-fallback x provider x retry loop: for
// one inbound request it repeatedly asks the credential router for an
// untried candidate, translates and rewrites the payload, invokes the
// matching provider executor, and either returns a response or classifies
// the failure into a cooldown and tries again.
package dispatch

import (
	"context"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tidwall/sjson"

	"github.com/nexusgate/aigateway/internal/cloak"
	"github.com/nexusgate/aigateway/internal/config"
	"github.com/nexusgate/aigateway/internal/dispatcherr"
	"github.com/nexusgate/aigateway/internal/payloadrules"
	"github.com/nexusgate/aigateway/internal/runtime/executor"
	coreauth "github.com/nexusgate/aigateway/sdk/cliproxy/auth"
	"github.com/nexusgate/aigateway/sdk/translator"
)

// Request is the inbound call normalized for the dispatch loop: just enough
// parsed out of the caller's JSON body to drive routing, plus the raw body
// itself.
type Request struct {
	SourceFormat   translator.Format
	PrimaryModel   string
	FallbackModels []string
	Stream         bool
	RawBody        []byte
	AllowedFormats []coreauth.Format
	UserAgent      string
	Debug          bool
}

// Attempt records one (model, target-format) pair tried during dispatch,
// regardless of outcome, for the debug attempt trail.
type Attempt struct {
	Model  string
	Target coreauth.Format
	Error  string
}

// StreamItem is one logical output line handed to the streaming bridge.
type StreamItem struct {
	Line string
}

// Result is the outcome of a successful dispatch.
type Result struct {
	NonStream    bool
	Body         string
	Stream       <-chan StreamItem
	AttemptTrail []Attempt
	Headers      http.Header
	Model        string
	Target       coreauth.Format
	CredentialID string
}

// Dispatcher owns the shared state a request needs: the credential router,
// the per-format executors, and the live config snapshot.
type Dispatcher struct {
	Pool      *coreauth.Pool
	executors atomic.Pointer[map[coreauth.Format]executor.Executor]
	Config    func() *config.Config
}

// New returns a Dispatcher wired to pool, executors, and a config accessor
// returning the current live snapshot (so a config reload is picked up by
// the next dispatched request without restarting the process).
func New(pool *coreauth.Pool, executors map[coreauth.Format]executor.Executor, cfgFn func() *config.Config) *Dispatcher {
	d := &Dispatcher{Pool: pool, Config: cfgFn}
	d.SetExecutors(executors)
	return d
}

// SetExecutors atomically replaces the per-format executor table, letting a
// config reload (which can change connect timeouts or proxy routing) take
// effect for the next dispatched request without restarting the process.
func (d *Dispatcher) SetExecutors(executors map[coreauth.Format]executor.Executor) {
	d.executors.Store(&executors)
}

// Executor returns the executor currently wired for format, for callers
// (the Responses-API passthrough handler) that bypass the model-fallback
// loop and need direct access to a single provider's executor.
func (d *Dispatcher) Executor(format coreauth.Format) executor.Executor {
	return (*d.executors.Load())[format]
}

func targetTranslatorFormat(f coreauth.Format) translator.Format {
	switch f {
	case coreauth.Claude:
		return translator.Claude
	case coreauth.Gemini:
		return translator.Gemini
	default:
		return translator.OpenAI
	}
}

func protocolName(f coreauth.Format) string {
	return string(f)
}

// rewriteModel overwrites the top-level "model" field of body with model;
// on any failure the original bytes are returned unchanged.
func rewriteModel(body []byte, model string) []byte {
	out, err := sjson.SetBytes(body, "model", model)
	if err != nil {
		return body
	}
	return out
}

func fullJitterBackoff(attempt, maxBackoffSecs int) time.Duration {
	cap := 1 << attempt
	if cap > maxBackoffSecs {
		cap = maxBackoffSecs
	}
	if cap <= 0 {
		return 0
	}
	return time.Duration(rand.Intn(cap)) * time.Second
}

func classifyAndCooldown(pool *coreauth.Pool, credID string, err error, retry config.Retry) {
	switch e := err.(type) {
	case *executor.UpstreamError:
		switch {
		case e.Status == 429:
			secs := e.RetryAfterSecs
			if secs == 0 {
				secs = retry.Cooldown429Secs
			}
			pool.MarkUnavailable(credID, time.Duration(secs)*time.Second)
		case e.Status >= 500 && e.Status <= 599:
			secs := e.RetryAfterSecs
			if secs == 0 {
				secs = retry.Cooldown5xxSecs
			}
			pool.MarkUnavailable(credID, time.Duration(secs)*time.Second)
		}
	case *executor.NetworkError:
		pool.MarkUnavailable(credID, time.Duration(retry.CooldownNetworkSecs)*time.Second)
	}
}

// isTerminal reports whether err should surface to the caller immediately
// instead of continuing to the next candidate: a 4xx status other than 429
// indicates a configuration problem with this credential, not a transient
// failure, so it gets no cooldown and ends dispatch with that upstream error.
func isTerminal(err error) bool {
	if e, ok := err.(*executor.UpstreamError); ok {
		return e.Status >= 400 && e.Status < 500 && e.Status != 429
	}
	return false
}

// Dispatch runs the full model x attempt x provider loop for req and
// returns either a Result ready for the streaming bridge / handler, or a
// *dispatcherr.Error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	cfg := d.Config()
	chain := req.FallbackModels
	if len(chain) == 0 {
		chain = []string{req.PrimaryModel}
	}

	executors := *d.executors.Load()

	var trail []Attempt
	var lastErr error

modelLoop:
	for _, model := range chain {
		if cfg.ForceModelPrefix && !d.Pool.ModelHasPrefixAny(model) {
			lastErr = dispatcherr.PrefixRequired(model)
			continue
		}

		providers := req.AllowedFormats
		if len(providers) == 0 {
			providers = d.Pool.ResolveProviders(model)
		}
		if len(providers) == 0 {
			lastErr = dispatcherr.ModelNotFound(model)
			continue
		}

		body := rewriteModel(req.RawBody, model)
		tried := make(map[string]bool)
		bootstrapAttempts := 0

		for attempt := 0; attempt < cfg.Retry.MaxRetries; attempt++ {
			for _, target := range providers {
				exec := executors[target]
				if exec == nil {
					continue
				}
				cred := d.Pool.Pick(target, model, tried)
				if cred == nil {
					continue
				}

				actual := cred.ResolveModelID(model)
				reqTransform, respTransform, ok := translator.Lookup(req.SourceFormat, targetTranslatorFormat(target))
				if !ok {
					tried[cred.ID] = true
					continue
				}

				payload := reqTransform(actual, body, req.Stream)
				payload, _ = payloadrules.Apply(payload, cfg.Payload, actual, protocolName(target))

				var extraHeaders http.Header
				if target == coreauth.Claude && cloak.ShouldCloak(cloakConfigFor(cred), req.UserAgent) {
					cloaked, err := cloak.Apply(payload, cloakConfigFor(cred), cred.APIKey)
					if err == nil {
						payload = cloaked
					}
					extraHeaders = make(http.Header)
					cloak.ApplyHeaders(extraHeaders, cfg.ClaudeHeaderDefaults)
				}

				execReq := executor.Request{Model: actual, Payload: payload, ExtraHeaders: extraHeaders}

				if req.Stream {
					chunks, err := exec.ExecuteStream(ctx, cred, execReq)
					if err != nil {
						trail = append(trail, Attempt{Model: model, Target: target, Error: err.Error()})
						bootstrapAttempts++
						tried[cred.ID] = true
						classifyAndCooldown(d.Pool, cred.ID, err, cfg.Retry)
						lastErr = err
						if isTerminal(err) {
							break modelLoop
						}
						if bootstrapAttempts > cfg.Streaming.BootstrapRetries {
							continue modelLoop
						}
						continue
					}
					trail = append(trail, Attempt{Model: model, Target: target})
					return &Result{
						Stream:       bridgeStream(ctx, chunks, respTransform, actual, body, payload),
						AttemptTrail: trail,
						Model:        actual,
						Target:       target,
						CredentialID: cred.ID,
					}, nil
				}

				resp, err := exec.Execute(ctx, cred, execReq)
				if err != nil {
					trail = append(trail, Attempt{Model: model, Target: target, Error: err.Error()})
					tried[cred.ID] = true
					classifyAndCooldown(d.Pool, cred.ID, err, cfg.Retry)
					lastErr = err
					if isTerminal(err) {
						break modelLoop
					}
					continue
				}
				trail = append(trail, Attempt{Model: model, Target: target})
				var param any
				out := respTransform.NonStream(ctx, actual, body, payload, resp.Payload, &param)
				return &Result{
					NonStream:    true,
					Body:         out,
					AttemptTrail: trail,
					Headers:      resp.Headers,
					Model:        actual,
					Target:       target,
					CredentialID: cred.ID,
				}, nil
			}
			if attempt < cfg.Retry.MaxRetries-1 {
				sleepCtx(ctx, fullJitterBackoff(attempt, cfg.Retry.MaxBackoffSecs))
			}
		}
	}

	if lastErr == nil {
		return nil, dispatcherr.NoCredentials()
	}
	if de, ok := lastErr.(*dispatcherr.Error); ok {
		return nil, de
	}
	if e, ok := lastErr.(*executor.UpstreamError); ok {
		return nil, dispatcherr.Upstream(e.Status, string(e.Body))
	}
	if e, ok := lastErr.(*executor.NetworkError); ok {
		return nil, dispatcherr.Network(e.Err)
	}
	return nil, dispatcherr.NoCredentials()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func cloakConfigFor(cred *coreauth.Credential) cloak.Config {
	return cloak.Config{
		Mode:           cloak.Mode(cred.Cloak.Mode),
		StrictMode:     cred.Cloak.StrictMode,
		SensitiveWords: cred.Cloak.SensitiveWords,
		CacheUserID:    cred.Cloak.CacheUserID,
	}
}

// bridgeStream adapts a raw executor.StreamChunk channel into dispatch
// StreamItems by running each chunk's data through the response stream
// transform and flattening its output lines. A mid-stream read error ends
// the stream with one final JSON error line.
func bridgeStream(ctx context.Context, chunks <-chan executor.StreamChunk, respTransform translator.ResponseTransform, model string, originalBody, requestBody []byte) <-chan StreamItem {
	out := make(chan StreamItem)
	go func() {
		defer close(out)
		var param any
		for chunk := range chunks {
			if chunk.Err != nil {
				errLine, _ := sjson.Set(`{"error":{}}`, "error.message", chunk.Err.Error())
				select {
				case out <- StreamItem{Line: errLine}:
				case <-ctx.Done():
				}
				return
			}
			if len(chunk.Data) == 0 {
				continue
			}
			lines := respTransform.Stream(ctx, model, originalBody, requestBody, chunk.EventName, chunk.Data, &param)
			for _, line := range lines {
				select {
				case out <- StreamItem{Line: line}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
