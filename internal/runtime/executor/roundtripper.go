package executor

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"

	coreauth "github.com/nexusgate/aigateway/sdk/cliproxy/auth"
)

// RoundTripperProvider returns the http.RoundTripper a credential's outbound
// requests should use, or nil when the credential has no usable proxy URL
// (httpClientFor then builds its own transport with a connect-timeout dialer).
type RoundTripperProvider interface {
	RoundTripperFor(cred *coreauth.Credential) http.RoundTripper
}

// transportCache hands out one *http.Transport per distinct proxy URL
// string, reused across every credential that shares a proxy, with HTTP/2
// keepalive ping tuning applied so long-lived streaming connections are
// detected as dead promptly instead of hanging until the OS TCP timeout.
type transportCache struct {
	mu    sync.RWMutex
	cache map[string]http.RoundTripper
}

// NewTransportCache returns an empty provider.
func NewTransportCache() RoundTripperProvider {
	return &transportCache{cache: make(map[string]http.RoundTripper)}
}

// RoundTripperFor implements RoundTripperProvider.
func (p *transportCache) RoundTripperFor(cred *coreauth.Credential) http.RoundTripper {
	if cred == nil {
		return nil
	}
	proxy := strings.TrimSpace(cred.ProxyURL)
	if proxy == "" {
		return nil
	}
	p.mu.RLock()
	rt := p.cache[proxy]
	p.mu.RUnlock()
	if rt != nil {
		return rt
	}

	u, err := url.Parse(proxy)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}

	transport := &http.Transport{
		Proxy:               http.ProxyURL(u),
		ForceAttemptHTTP2:   true,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 15 * time.Second,
	}
	if h2, err := http2.ConfigureTransports(transport); err == nil && h2 != nil {
		h2.ReadIdleTimeout = 30 * time.Second
		h2.PingTimeout = 15 * time.Second
	}

	p.mu.Lock()
	p.cache[proxy] = transport
	p.mu.Unlock()
	return transport
}
