package api

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"lendit/internal/config"

	"golang.org/x/time/rate"
)

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP routes.
// It is independent of the caller identity header, which names a user of the
// rental service rather than an API client.
type HTTPAuth struct {
	cfg      *config.APIConfig
	clients  map[string]config.APIClientKey
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg *config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.headerAPIKey()))
	if apiKey == "" {
		return fmt.Errorf("missing api key header")
	}
	if _, ok := a.clients[apiKey]; !ok {
		return fmt.Errorf("invalid api key")
	}
	return nil
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	lim := a.getLimiter(a.clientKey(r))
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *HTTPAuth) headerAPIKey() string {
	header := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey)
	if header == "" {
		header = "x-api-key"
	}
	return header
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.headerAPIKey())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

// callerID extracts the acting user from the identity header.
func callerID(r *http.Request, header string) (int64, error) {
	if header == "" {
		header = "x-user-id"
	}
	raw := strings.TrimSpace(r.Header.Get(header))
	if raw == "" {
		return 0, fmt.Errorf("missing %s header", header)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s header: %s", header, raw)
	}
	return id, nil
}
