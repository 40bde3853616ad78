package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterGCThreshold = 1000
	limiterIdleTTL     = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a per-client token bucket. Paths under any of
// the exempt prefixes (served images, health, metrics) are never limited.
type RateLimitMiddleware struct {
	rpm      int
	exempt   []string
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	disabled bool
}

// NewRateLimitMiddleware limits each client to rpm requests per minute with
// an equal burst. rpm <= 0 disables limiting.
func NewRateLimitMiddleware(rpm int, exemptPrefixes ...string) *RateLimitMiddleware {
	exempt := make([]string, 0, len(exemptPrefixes))
	for _, prefix := range exemptPrefixes {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			exempt = append(exempt, strings.ToLower(trimmed))
		}
	}

	return &RateLimitMiddleware{
		rpm:      rpm,
		exempt:   exempt,
		clients:  map[string]*clientLimiter{},
		disabled: rpm <= 0,
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled || m.isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if !m.getLimiter(extractClientIP(r)).Allow() {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) isExempt(path string) bool {
	lowered := strings.ToLower(path)
	for _, prefix := range m.exempt {
		if lowered == prefix || strings.HasPrefix(lowered, strings.TrimRight(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if client, exists := m.clients[clientIP]; exists {
		client.lastSeen = now
		return client.limiter
	}

	m.gcLocked(now)
	created := &clientLimiter{
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.rpm)), m.rpm),
		lastSeen: now,
	}
	m.clients[clientIP] = created

	return created.limiter
}

func (m *RateLimitMiddleware) gcLocked(now time.Time) {
	if len(m.clients) < limiterGCThreshold {
		return
	}

	cutoff := now.Add(-limiterIdleTTL)
	for ip, client := range m.clients {
		if client.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

func extractClientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}

	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}

	return r.RemoteAddr
}
