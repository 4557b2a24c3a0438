package httpclient

import (
	"encoding/base64"
	"net/http"
)

const (
	HeaderTargetURL = "X-Target-URL"
	HeaderProxyAuth = "Proxy-Authorization"
)

// ProxyConfig routes requests through a local forwarding proxy instead of
// straight to the origin. The proxy reads the real destination from the
// X-Target-URL header.
type ProxyConfig struct {
	URL      string
	Username string
	Password string
}

func (c ProxyConfig) Enabled() bool {
	return c.URL != ""
}

type proxyClient struct {
	inner  HttpClient
	config ProxyConfig
}

// NewWithProxy wraps a client so every request is rewritten to hit the proxy
// with the original destination carried in X-Target-URL. With an empty
// proxy URL the inner client is returned untouched.
func NewWithProxy(inner HttpClient, config ProxyConfig) HttpClient {
	if !config.Enabled() {
		return inner
	}
	return &proxyClient{inner: inner, config: config}
}

func (p *proxyClient) Do(req *http.Request) (*http.Response, error) {
	target := req.URL.String()

	proxied, err := http.NewRequestWithContext(req.Context(), req.Method, p.config.URL, req.Body)
	if err != nil {
		return nil, err
	}
	proxied.Header = req.Header.Clone()
	if proxied.Header == nil {
		proxied.Header = make(http.Header)
	}
	proxied.Header.Set(HeaderTargetURL, target)
	if p.config.Username != "" {
		cred := p.config.Username + ":" + p.config.Password
		proxied.Header.Set(HeaderProxyAuth, "Basic "+base64.StdEncoding.EncodeToString([]byte(cred)))
	}
	proxied.ContentLength = req.ContentLength

	return p.inner.Do(proxied)
}
