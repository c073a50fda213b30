package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/nexusgate/aigateway/internal/config"
	"github.com/nexusgate/aigateway/internal/dispatch"
	"github.com/nexusgate/aigateway/internal/dispatcherr"
	"github.com/nexusgate/aigateway/internal/runtime/executor"
	"github.com/nexusgate/aigateway/internal/sse"
	coreauth "github.com/nexusgate/aigateway/sdk/cliproxy/auth"
	"github.com/nexusgate/aigateway/sdk/translator"
)

type handler struct {
	pool       *coreauth.Pool
	dispatcher *dispatch.Dispatcher
	cfg        func() *config.Config
}

func isDebug(c *gin.Context) bool {
	v := strings.ToLower(c.GetHeader("x-debug"))
	return v == "true" || v == "1"
}

// parseRequest reads model, models and stream out of the caller's JSON body.
func parseRequest(body []byte) (model string, fallback []string, stream bool, err *dispatcherr.Error) {
	if !gjson.ValidBytes(body) {
		return "", nil, false, dispatcherr.BadRequest("request body is not valid JSON")
	}
	model = gjson.GetBytes(body, "model").String()
	if model == "" {
		return "", nil, false, dispatcherr.BadRequest("missing required field: model")
	}
	stream = gjson.GetBytes(body, "stream").Bool()
	if models := gjson.GetBytes(body, "models"); models.IsArray() {
		for _, m := range models.Array() {
			if s := m.String(); s != "" {
				fallback = append(fallback, s)
			}
		}
	}
	if len(fallback) == 0 {
		fallback = []string{model}
	}
	return model, fallback, stream, nil
}

func (h *handler) setDebugHeaders(c *gin.Context, result *dispatch.Result) {
	if result == nil {
		return
	}
	c.Header("x-debug-provider", string(result.Target))
	c.Header("x-debug-model", result.Model)
	c.Header("x-debug-credential", result.CredentialID)
	tuples := make([]string, 0, len(result.AttemptTrail))
	for _, a := range result.AttemptTrail {
		tuples = append(tuples, fmt.Sprintf("%s@%s", a.Model, a.Target))
	}
	c.Header("x-debug-attempts", strings.Join(tuples, ","))
}

func (h *handler) forwardPassthroughHeaders(c *gin.Context, upstream http.Header) {
	if upstream == nil {
		return
	}
	for _, name := range h.cfg().PassthroughHeaders {
		if v := upstream.Get(name); v != "" {
			c.Header(name, v)
		}
	}
}

func (h *handler) run(c *gin.Context, source translator.Format, allowed []coreauth.Format) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request_error", "failed to read request body")
		return
	}
	model, fallback, stream, derr := parseRequest(body)
	if derr != nil {
		writeError(c, derr.Status, "invalid_request_error", derr.Message)
		return
	}

	req := dispatch.Request{
		SourceFormat:   source,
		PrimaryModel:   model,
		FallbackModels: fallback,
		Stream:         stream,
		RawBody:        body,
		AllowedFormats: allowed,
		UserAgent:      c.GetHeader("User-Agent"),
		Debug:          isDebug(c),
	}

	if !stream {
		h.serveNonStream(c, func() (nonStreamResult, error) {
			result, err := h.dispatcher.Dispatch(c.Request.Context(), req)
			if err != nil {
				return nonStreamResult{}, err
			}
			return nonStreamResult{
				body:    []byte(result.Body),
				headers: result.Headers,
				debug: func(c *gin.Context) {
					if req.Debug {
						h.setDebugHeaders(c, result)
					}
				},
			}, nil
		})
		return
	}

	result, err2 := h.dispatcher.Dispatch(c.Request.Context(), req)
	if err2 != nil {
		writeDispatchError(c, err2)
		return
	}

	if req.Debug {
		h.setDebugHeaders(c, result)
	}

	h.streamOut(c, result.Stream)
}

// nonStreamResult is the outcome of a non-stream unit of work passed to
// serveNonStream: the body to send, any upstream headers to forward, and an
// optional callback to set response headers before the first byte is
// written (skipped once the keepalive path has already committed headers).
type nonStreamResult struct {
	body    []byte
	headers http.Header
	debug   func(c *gin.Context)
}

// serveNonStream runs work in the background and races it against the
// configured non-stream keepalive interval. If work finishes first, its
// result is written as a normal 200 JSON response, or its error as the
// usual dispatch error response with that error's status. If the interval elapses
// first, the gateway commits to 200 OK and streams a single ASCII space
// per interval until work finishes, then appends the real body (or, on
// failure, a JSON error object) and closes the response.
func (h *handler) serveNonStream(c *gin.Context, work func() (nonStreamResult, error)) {
	type outcome struct {
		res nonStreamResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := work()
		done <- outcome{res, err}
	}()

	keepaliveSecs := h.cfg().NonStreamKeepaliveSecs
	if keepaliveSecs <= 0 {
		o := <-done
		h.writeNonStream(c, o.res, o.err)
		return
	}

	timer := time.NewTimer(time.Duration(keepaliveSecs) * time.Second)
	defer timer.Stop()

	select {
	case o := <-done:
		h.writeNonStream(c, o.res, o.err)
		return
	case <-timer.C:
	}

	c.Header("Content-Type", "application/json")
	c.Status(http.StatusOK)
	flusher, _ := c.Writer.(http.Flusher)

	ticker := time.NewTicker(time.Duration(keepaliveSecs) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case o := <-done:
			if o.err != nil {
				errBody, _ := json.Marshal(gin.H{"error": gin.H{"message": o.err.Error(), "type": "server_error"}})
				_, _ = c.Writer.Write(errBody)
			} else {
				_, _ = c.Writer.Write(o.res.body)
			}
			if flusher != nil {
				flusher.Flush()
			}
			return
		case <-ticker.C:
			_, _ = c.Writer.Write([]byte(" "))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (h *handler) writeNonStream(c *gin.Context, res nonStreamResult, err error) {
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	if res.debug != nil {
		res.debug(c)
	}
	h.forwardPassthroughHeaders(c, res.headers)
	c.Data(http.StatusOK, "application/json", res.body)
}

func (h *handler) streamOut(c *gin.Context, items <-chan dispatch.StreamItem) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	enc := sse.NewEncoder(c.Writer)
	interval := h.cfg().Streaming.KeepaliveSeconds

	activity := make(chan struct{}, 1)
	stop := make(chan struct{})
	if interval > 0 {
		go enc.KeepaliveLoop(time.Duration(interval)*time.Second, flusher, stop, activity)
	}
	defer close(stop)

	for item := range items {
		_ = enc.WriteItem(item.Line)
		if flusher != nil {
			flusher.Flush()
		}
		select {
		case activity <- struct{}{}:
		default:
		}
	}
}

func (h *handler) chatCompletions(c *gin.Context) {
	h.run(c, translator.OpenAI, nil)
}

func (h *handler) messages(c *gin.Context) {
	h.run(c, translator.Claude, []coreauth.Format{coreauth.Claude})
}

func (h *handler) models(c *gin.Context) {
	models := h.pool.AllModels(modelsCreatedAt)
	out := make([]gin.H, 0, len(models))
	for _, m := range models {
		out = append(out, gin.H{"id": m.ID, "object": "model", "created": m.Created, "owned_by": m.OwnedBy})
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": out})
}

// responses implements POST /v1/responses as a pure passthrough to an
// OpenAI-compat credential: no translator lookup, no payload rules, the
// caller's Responses-API body goes upstream unchanged apart from the model
// field being rewritten to the credential's resolved upstream id.
func (h *handler) responses(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request_error", "failed to read request body")
		return
	}
	model, _, stream, derr := parseRequest(body)
	if derr != nil {
		writeError(c, derr.Status, "invalid_request_error", derr.Message)
		return
	}

	cred := h.pool.Pick(coreauth.OpenAICompat, model, nil)
	if cred == nil {
		writeDispatchError(c, dispatcherr.ModelNotFound(model))
		return
	}
	actual := cred.ResolveModelID(model)
	payload, serr := sjson.SetBytes(body, "model", actual)
	if serr != nil {
		payload = body
	}

	exec := h.dispatcher.Executor(coreauth.OpenAICompat)
	if exec == nil {
		writeDispatchError(c, dispatcherr.NoCredentials())
		return
	}

	execReq := executor.Request{Model: actual, Payload: payload}

	if stream {
		chunks, err := exec.ExecuteStream(c.Request.Context(), cred, execReq)
		if err != nil {
			writeDispatchError(c, dispatcherr.Network(err))
			return
		}
		items := make(chan dispatch.StreamItem)
		go func() {
			defer close(items)
			for chunk := range chunks {
				if chunk.Err != nil {
					errLine, _ := sjson.Set(`{"error":{}}`, "error.message", chunk.Err.Error())
					items <- dispatch.StreamItem{Line: errLine}
					return
				}
				line := string(chunk.Data)
				if chunk.EventName != "" {
					line = "event: " + chunk.EventName + "\ndata: " + line
				}
				items <- dispatch.StreamItem{Line: line}
			}
		}()
		h.streamOut(c, items)
		return
	}

	h.serveNonStream(c, func() (nonStreamResult, error) {
		resp, err := exec.Execute(c.Request.Context(), cred, execReq)
		if err != nil {
			switch e := err.(type) {
			case *executor.UpstreamError:
				return nonStreamResult{}, dispatcherr.Upstream(e.Status, string(e.Body))
			case *executor.NetworkError:
				return nonStreamResult{}, dispatcherr.Network(e.Err)
			default:
				return nonStreamResult{}, dispatcherr.Network(err)
			}
		}
		return nonStreamResult{body: resp.Payload, headers: resp.Headers}, nil
	})
}

// modelsCreatedAt is a fixed, deterministic timestamp used for every entry
// in the /v1/models listing; the gateway has no per-model creation time to
// report and callers only use this field for cache-busting.
const modelsCreatedAt int64 = 1700000000
