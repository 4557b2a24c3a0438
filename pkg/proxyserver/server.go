// Package proxyserver implements the local CORS-bypass proxy. Browsers hand
// it the real destination in an X-Target-URL header (or ?url= query) and it
// replays the request from outside the browser's origin rules.
package proxyserver

import (
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/cors"

	"apiclient-backend/pkg/httpclient"
)

const (
	HeaderTargetURL = "X-Target-URL"
	HeaderProxyAuth = "Proxy-Authorization"

	DefaultUpstreamTimeout = 30 * time.Second
	Version                = "1.0.0"
)

// Headers that identify the proxy hop or the browser origin; they must not
// reach the upstream. Keys are in canonical form to match http.Header.
var skipHeaders = func() map[string]bool {
	out := make(map[string]bool)
	for _, key := range []string{
		"Host", "Connection", HeaderProxyAuth, HeaderTargetURL, "Origin", "Referer",
	} {
		out[http.CanonicalHeaderKey(key)] = true
	}
	return out
}()

type Config struct {
	Origin          string
	Username        string
	Password        string
	UpstreamTimeout time.Duration
}

type healthResponse struct {
	Status  string  `json:"status"`
	Version string  `json:"version"`
	Uptime  float64 `json:"uptime"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type Server struct {
	config    Config
	client    httpclient.HttpClient
	logger    *slog.Logger
	startedAt time.Time
}

func New(config Config, client httpclient.HttpClient, logger *slog.Logger) *Server {
	if config.Origin == "" {
		config.Origin = "*"
	}
	if config.UpstreamTimeout == 0 {
		config.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: config.UpstreamTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:    config,
		client:    client,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Handler returns the full proxy handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleProxy)

	options := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	if s.config.Origin == "*" {
		// Reflect the caller's origin; "*" is invalid with credentials.
		options.AllowOriginFunc = func(string) bool { return true }
	} else {
		options.AllowedOrigins = []string{s.config.Origin}
	}
	return cors.New(options).Handler(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if !s.checkAuth(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="Proxy"`)
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:   "Unauthorized",
			Message: "proxy credentials required",
		})
		return
	}

	target := r.Header.Get(HeaderTargetURL)
	if target == "" {
		target = r.URL.Query().Get("url")
	}
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Missing target URL",
			Message: "use the X-Target-URL header or the ?url= query parameter",
		})
		return
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid target URL",
			Message: err.Error(),
		})
		return
	}

	upstream, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid target URL",
			Message: err.Error(),
		})
		return
	}
	for key, values := range r.Header {
		if skipHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, value := range values {
			upstream.Header.Add(key, value)
		}
	}

	s.logger.Debug("forwarding request", "method", r.Method, "target", target)

	resp, err := s.client.Do(upstream)
	if err != nil {
		s.logger.Warn("upstream request failed", "method", r.Method, "target", target, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Proxy error",
			Message: err.Error(),
		})
		return
	}
	defer func() { _ = resp.Body.Close() }()

	s.logger.Debug("upstream responded", "method", r.Method, "target", target, "status", resp.StatusCode)

	for key, values := range resp.Header {
		if key == "Connection" || key == "Transfer-Encoding" {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (s *Server) checkAuth(r *http.Request) bool {
	if s.config.Username == "" || s.config.Password == "" {
		return true
	}

	auth := r.Header.Get(HeaderProxyAuth)
	if auth == "" {
		auth = r.Header.Get("Authorization")
	}
	if auth == "" {
		return false
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || parts[0] != "Basic" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}
	return credentials[0] == s.config.Username && credentials[1] == s.config.Password
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
