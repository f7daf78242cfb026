package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dvcrn/ledgerlink/internal/auth"
	"github.com/dvcrn/ledgerlink/internal/config"
	"github.com/dvcrn/ledgerlink/internal/metrics"
	"github.com/dvcrn/ledgerlink/internal/upstream"
	"github.com/rs/zerolog"
)

// DefaultRequestTimeout bounds a single resource call.
const DefaultRequestTimeout = 15 * time.Second

// Response is a successful upstream reply as received.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// DirectTransport calls the provider's API with a bearer token from a
// TokenManager. It needs the credentials locally.
type DirectTransport struct {
	tokens          *auth.TokenManager
	baseURL         string
	subscriptionKey string
	client          upstream.HTTPClient
	timeout         time.Duration
	logger          zerolog.Logger
}

// Send performs rd and returns the raw 2xx response. Any other status is an
// *upstream.APIError carrying the raw body.
func (t *DirectTransport) Send(ctx context.Context, rd RequestDescriptor) (*Response, error) {
	token, err := t.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := rd.encodeBody()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	target := rd.target(t.baseURL)
	req, err := http.NewRequestWithContext(ctx, rd.Method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(upstream.SubscriptionKeyHeader, t.subscriptionKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		metrics.RecordUpstream("direct", rd.Method, 0, time.Since(start))
		t.logger.Error().Err(err).Str("method", rd.Method).Str("path", rd.Path).Msg("Upstream request failed")
		return nil, upstream.ClassifyTransport(rd.Method, target, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstream.ClassifyTransport(rd.Method, target, err)
	}
	metrics.RecordUpstream("direct", rd.Method, resp.StatusCode, time.Since(start))

	t.logger.Debug().
		Str("method", rd.Method).
		Str("path", rd.Path).
		Int("status_code", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Upstream request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.logger.Warn().
			Str("method", rd.Method).
			Str("path", rd.Path).
			Int("status_code", resp.StatusCode).
			Int("body_length", len(respBody)).
			Msg("Received error response from upstream API")
		return nil, &upstream.APIError{
			Method:     rd.Method,
			Path:       rd.Path,
			StatusCode: resp.StatusCode,
			Status:     upstream.StatusText(resp),
			Body:       string(respBody),
		}
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

// Do implements Transport. Non-JSON success responses yield nil.
func (t *DirectTransport) Do(ctx context.Context, rd RequestDescriptor) (json.RawMessage, error) {
	resp, err := t.Send(ctx, rd)
	if err != nil {
		return nil, err
	}
	if !isJSON(resp.ContentType) || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, nil
	}
	if !json.Valid(resp.Body) {
		return nil, fmt.Errorf("%s %s: failed to decode response: invalid JSON", rd.Method, rd.Path)
	}
	return json.RawMessage(resp.Body), nil
}

// DirectClient is the resource surface over a DirectTransport plus token
// housekeeping.
type DirectClient struct {
	*Client
	transport *DirectTransport
	tokens    *auth.TokenManager
}

type directOptions struct {
	tokens   *auth.TokenManager
	tokenURL string
	baseURL  string
	client   upstream.HTTPClient
	timeout  time.Duration
	logger   zerolog.Logger
}

// DirectOption configures NewDirectClient
type DirectOption func(*directOptions)

// WithTokenManager shares an existing TokenManager instead of creating one
func WithTokenManager(m *auth.TokenManager) DirectOption {
	return func(o *directOptions) { o.tokens = m }
}

// WithTokenURL overrides the token endpoint used when no TokenManager is
// supplied
func WithTokenURL(u string) DirectOption {
	return func(o *directOptions) { o.tokenURL = u }
}

// WithAPIBaseURL overrides the API base URL derived from the config
func WithAPIBaseURL(u string) DirectOption {
	return func(o *directOptions) { o.baseURL = u }
}

// WithHTTPClient sets the HTTP client for resource calls and, when no
// TokenManager is supplied, for token exchanges too
func WithHTTPClient(c upstream.HTTPClient) DirectOption {
	return func(o *directOptions) { o.client = c }
}

// WithRequestTimeout bounds each resource call
func WithRequestTimeout(d time.Duration) DirectOption {
	return func(o *directOptions) { o.timeout = d }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) DirectOption {
	return func(o *directOptions) { o.logger = l }
}

// NewDirectClient builds a client that talks to the provider directly.
func NewDirectClient(cfg config.IntegrationConfig, opts ...DirectOption) *DirectClient {
	o := directOptions{
		baseURL: cfg.Endpoints().APIBaseURL,
		client:  upstream.NewHTTPClient(),
		timeout: DefaultRequestTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tokens == nil {
		tokenOpts := []auth.Option{auth.WithHTTPClient(o.client), auth.WithLogger(o.logger)}
		if o.tokenURL != "" {
			tokenOpts = append(tokenOpts, auth.WithTokenURL(o.tokenURL))
		}
		o.tokens = auth.NewTokenManager(cfg, tokenOpts...)
	}

	t := &DirectTransport{
		tokens:          o.tokens,
		baseURL:         o.baseURL,
		subscriptionKey: cfg.SubscriptionKey(),
		client:          o.client,
		timeout:         o.timeout,
		logger:          o.logger,
	}
	return &DirectClient{Client: NewClient(t), transport: t, tokens: o.tokens}
}

// NewDirectClientFromCredentials validates raw before building the client.
// Invalid credentials fail with *config.ConfigurationError and nothing is
// sent over the network.
func NewDirectClientFromCredentials(raw config.RawCredentials, opts ...DirectOption) (*DirectClient, error) {
	cfg, err := config.FromRaw(raw)
	if err != nil {
		return nil, err
	}
	return NewDirectClient(cfg, opts...), nil
}

// Transport exposes the underlying transport for raw forwarding.
func (c *DirectClient) Transport() *DirectTransport { return c.transport }

// TokenStatus reports the cached token's validity without any network call.
func (c *DirectClient) TokenStatus() auth.TokenStatus { return c.tokens.Status() }

// RefreshToken forces a new token exchange.
func (c *DirectClient) RefreshToken(ctx context.Context) error {
	_, err := c.tokens.Refresh(ctx)
	return err
}

// ClearToken drops the cached token.
func (c *DirectClient) ClearToken() { c.tokens.Clear() }
