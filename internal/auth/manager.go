package auth

import (
	"context"
	"sync"
	"time"

	"github.com/dvcrn/ledgerlink/internal/config"
	"github.com/dvcrn/ledgerlink/internal/upstream"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const exchangeKey = "exchange"

// TokenManager caches a single bearer token for one application/client key
// pair and exchanges client credentials for a new one when needed.
type TokenManager struct {
	cfg      config.IntegrationConfig
	tokenURL string
	client   upstream.HTTPClient
	now      func() time.Time
	timeout  time.Duration
	logger   zerolog.Logger

	mu      sync.RWMutex
	current *AccessToken
	// generation is bumped by Clear and Refresh. An exchange only stores
	// its token if the generation it started under is still current.
	generation uint64

	exchanges singleflight.Group
}

// Option configures a TokenManager
type Option func(*TokenManager)

// WithHTTPClient replaces the client used for token exchanges
func WithHTTPClient(c upstream.HTTPClient) Option {
	return func(m *TokenManager) { m.client = c }
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) { m.now = now }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(m *TokenManager) { m.logger = logger }
}

// WithTokenURL overrides the token endpoint derived from the config
func WithTokenURL(u string) Option {
	return func(m *TokenManager) { m.tokenURL = u }
}

// WithTimeout bounds each exchange
func WithTimeout(d time.Duration) Option {
	return func(m *TokenManager) { m.timeout = d }
}

// NewTokenManager creates a manager with an empty cache.
func NewTokenManager(cfg config.IntegrationConfig, opts ...Option) *TokenManager {
	m := &TokenManager{
		cfg:      cfg,
		tokenURL: cfg.Endpoints().TokenURL,
		client:   upstream.NewHTTPClient(),
		now:      time.Now,
		timeout:  DefaultExchangeTimeout,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AccessToken returns the cached token while it is valid and exchanges for a
// new one otherwise.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()

	if current != nil && current.ValidAt(m.now()) {
		m.logger.Debug().
			Dur("expires_in", current.ExpiresAt.Sub(m.now())).
			Msg("✅ Cached access token is still valid")
		return current.Token, nil
	}

	if current != nil {
		m.logger.Info().Msg("🔄 Access token expired or expiring soon, exchanging credentials...")
	}

	m.mu.RLock()
	gen := m.generation
	m.mu.RUnlock()

	tok, err := m.exchangeShared(ctx, gen)
	if err != nil {
		return "", err
	}
	return tok.Token, nil
}

// Refresh forces an exchange regardless of the cache state. It never joins
// an exchange that was already in flight, and such an exchange no longer
// updates the cache once it completes.
func (m *TokenManager) Refresh(ctx context.Context) (string, error) {
	gen := m.invalidate(false)
	tok, err := m.exchangeShared(ctx, gen)
	if err != nil {
		return "", err
	}
	return tok.Token, nil
}

// Clear drops the cached token. The next AccessToken call exchanges again.
// An exchange in flight at the time of the call does not repopulate the
// cache.
func (m *TokenManager) Clear() {
	m.invalidate(true)
	m.logger.Debug().Msg("Cleared cached access token")
}

// invalidate starts a new generation and detaches any in-flight exchange so
// that later callers start a fresh one.
func (m *TokenManager) invalidate(drop bool) uint64 {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	if drop {
		m.current = nil
	}
	m.mu.Unlock()
	m.exchanges.Forget(exchangeKey)
	return gen
}

// Current returns a copy of the cached token, if any.
func (m *TokenManager) Current() (AccessToken, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return AccessToken{}, false
	}
	return *m.current, true
}

// Status reports validity and expiry of the cached token.
func (m *TokenManager) Status() TokenStatus {
	tok, ok := m.Current()
	if !ok {
		return TokenStatus{}
	}
	now := m.now()
	return TokenStatus{
		Present:   true,
		Valid:     tok.ValidAt(now),
		TokenType: tok.TokenType,
		ExpiresAt: tok.ExpiresAt,
		ExpiresIn: tok.ExpiresAt.Sub(now),
	}
}

// exchangeShared runs at most one exchange at a time; callers arriving while
// one is in flight wait for its result. The exchange itself is detached from
// the first caller's cancellation so an abandoned caller does not fail the
// others, but each caller stops waiting when its own context ends.
func (m *TokenManager) exchangeShared(ctx context.Context, gen uint64) (*AccessToken, error) {
	ch := m.exchanges.DoChan(exchangeKey, func() (interface{}, error) {
		exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()

		m.logger.Info().Str("token_url", m.tokenURL).Msg("🔑 Exchanging client credentials for an access token")
		tok, err := m.exchange(exCtx)
		if err != nil {
			m.logger.Error().Err(err).Msg("❌ Token exchange failed")
			return nil, err
		}

		m.mu.Lock()
		stale := m.generation != gen
		if !stale {
			m.current = tok
		}
		m.mu.Unlock()

		if stale {
			m.logger.Debug().Msg("Discarding token from an exchange that started before a clear or refresh")
			return tok, nil
		}

		m.logger.Info().
			Int("expires_in_seconds", tok.LifetimeSeconds).
			Int("token_length", len(tok.Token)).
			Msg("✅ Access token issued")
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*AccessToken), nil
	}
}
