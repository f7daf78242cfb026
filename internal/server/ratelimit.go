package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dvcrn/ledgerlink/internal/env"
	"golang.org/x/time/rate"
)

const (
	defaultRateLimitRPS   = 10
	defaultRateLimitBurst = 20
	limiterIdleAfter      = 5 * time.Minute
)

// RateLimitConfig is the per-client request budget. RPS <= 0 disables
// limiting. TrustForwardedFor keys clients by X-Forwarded-For; enable it
// only behind a proxy that overwrites that header.
type RateLimitConfig struct {
	RPS               float64
	Burst             int
	TrustForwardedFor bool
}

// RateLimitConfigFromEnv reads RATE_LIMIT_RPS, RATE_LIMIT_BURST and
// RATE_LIMIT_TRUST_FORWARDED_FOR, keeping the defaults for unset or invalid
// values.
func RateLimitConfigFromEnv() RateLimitConfig {
	cfg := RateLimitConfig{RPS: defaultRateLimitRPS, Burst: defaultRateLimitBurst}
	if v, ok := env.Get("RATE_LIMIT_TRUST_FORWARDED_FOR"); ok {
		if trust, err := strconv.ParseBool(v); err == nil {
			cfg.TrustForwardedFor = trust
		}
	}
	if v, ok := env.Get("RATE_LIMIT_RPS"); ok {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RPS = rps
		}
	}
	if v, ok := env.Get("RATE_LIMIT_BURST"); ok {
		if burst, err := strconv.Atoi(v); err == nil && burst > 0 {
			cfg.Burst = burst
		}
	}
	return cfg
}

type rateLimiter struct {
	cfg         RateLimitConfig
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	return &rateLimiter{
		cfg:         cfg,
		limiters:    make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}
}

func (rl *rateLimiter) allow(key string) bool {
	if rl.cfg.RPS <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Limiters with a full bucket have been idle and can be rebuilt on demand.
	if time.Since(rl.lastCleanup) > limiterIdleAfter {
		for k, l := range rl.limiters {
			if l.Tokens() >= float64(rl.cfg.Burst) {
				delete(rl.limiters, k)
			}
		}
		rl.lastCleanup = time.Now()
	}

	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst)
		rl.limiters[key] = l
	}
	return l.Allow()
}

// clientKey identifies the caller by remote address. X-Forwarded-For is
// client-controlled, so it is only used when trustForwarded is set.
func clientKey(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r, s.limiter.cfg.TrustForwardedFor)
		if !s.limiter.allow(key) {
			s.logger.Warn().
				Str("client", key).
				Str("uri", r.RequestURI).
				Msg("🚦 Rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}
