package translator

import "sync"

// Format identifies a wire-protocol family a translator converts to/from.
type Format string

const (
	OpenAI Format = "openai"
	Claude Format = "claude"
	Gemini Format = "gemini"
)

type entry struct {
	request  RequestTransform
	response ResponseTransform
}

var (
	mu       sync.RWMutex
	registry = make(map[[2]Format]entry)
)

// Register installs the request/response transform pair converting from
// source's wire shape to target's. Called from each translator package's
// init.
func Register(source, target Format, request RequestTransform, response ResponseTransform) {
	mu.Lock()
	defer mu.Unlock()
	registry[[2]Format{source, target}] = entry{request: request, response: response}
}

// Lookup returns the registered transform pair for (source, target), or ok
// is false if none is registered.
func Lookup(source, target Format) (RequestTransform, ResponseTransform, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[[2]Format{source, target}]
	if !ok {
		return nil, ResponseTransform{}, false
	}
	return e.request, e.response, true
}
