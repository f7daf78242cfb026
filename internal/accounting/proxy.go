package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvcrn/ledgerlink/internal/metrics"
	"github.com/dvcrn/ledgerlink/internal/upstream"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader correlates a proxied call with the intermediary's logs.
const RequestIDHeader = "X-Request-Id"

// ProxyTransport sends every call to an intermediary that holds the
// credentials. No token or subscription key is attached here.
type ProxyTransport struct {
	baseURL string
	client  upstream.HTTPClient
	timeout time.Duration
	logger  zerolog.Logger
}

// Do implements Transport.
func (t *ProxyTransport) Do(ctx context.Context, rd RequestDescriptor) (json.RawMessage, error) {
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
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		metrics.RecordUpstream("proxy", rd.Method, 0, time.Since(start))
		return nil, upstream.ClassifyTransport(rd.Method, target, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstream.ClassifyTransport(rd.Method, target, err)
	}
	metrics.RecordUpstream("proxy", rd.Method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := upstream.ErrorMessage(respBody, resp.StatusCode)
		t.logger.Warn().
			Str("request_id", requestID).
			Str("method", rd.Method).
			Str("path", rd.Path).
			Int("status_code", resp.StatusCode).
			Str("message", msg).
			Msg("Proxy request failed")
		return nil, &upstream.APIError{
			Method:     rd.Method,
			Path:       rd.Path,
			StatusCode: resp.StatusCode,
			Status:     upstream.StatusText(resp),
			Body:       string(respBody),
			Message:    msg,
		}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, nil
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("%s %s: failed to decode response: invalid JSON", rd.Method, rd.Path)
	}
	return json.RawMessage(respBody), nil
}

// ProxyClient is the resource surface over a ProxyTransport.
type ProxyClient struct {
	*Client
}

type proxyOptions struct {
	client  upstream.HTTPClient
	timeout time.Duration
	logger  zerolog.Logger
}

// ProxyOption configures NewProxyClient
type ProxyOption func(*proxyOptions)

// WithProxyHTTPClient sets the HTTP client
func WithProxyHTTPClient(c upstream.HTTPClient) ProxyOption {
	return func(o *proxyOptions) { o.client = c }
}

// WithProxyTimeout bounds each call
func WithProxyTimeout(d time.Duration) ProxyOption {
	return func(o *proxyOptions) { o.timeout = d }
}

// WithProxyLogger sets the logger
func WithProxyLogger(l zerolog.Logger) ProxyOption {
	return func(o *proxyOptions) { o.logger = l }
}

// NewProxyClient builds a client for the intermediary mounted at baseURL,
// e.g. https://dashboard.example.com/api/accounting.
func NewProxyClient(baseURL string, opts ...ProxyOption) *ProxyClient {
	o := proxyOptions{
		client:  upstream.NewHTTPClient(),
		timeout: DefaultRequestTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	t := &ProxyTransport{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  o.client,
		timeout: o.timeout,
		logger:  o.logger,
	}
	return &ProxyClient{Client: NewClient(t)}
}
