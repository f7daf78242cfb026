package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dvcrn/ledgerlink/internal/accounting"
	"github.com/dvcrn/ledgerlink/internal/auth"
	"github.com/dvcrn/ledgerlink/internal/config"
	"github.com/dvcrn/ledgerlink/internal/upstream"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu  sync.Mutex
	raw config.RawCredentials
}

func (m *memStore) Fetch() (config.RawCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raw, nil
}

func (m *memStore) Save(raw config.RawCredentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = raw
	return nil
}

var validCreds = config.RawCredentials{
	ApplicationKey:  "app-key",
	ClientKey:       "client-key",
	SubscriptionKey: "sub-key",
}

// provider fakes the token endpoint and the resource API under /v2.
type provider struct {
	*httptest.Server
	tokenCalls atomic.Int32
	tokenFail  atomic.Bool
	last       atomic.Pointer[http.Request]
	lastBody   atomic.Pointer[string]
	handler    http.HandlerFunc
}

func newProvider(t *testing.T, handler http.HandlerFunc) *provider {
	p := &provider{handler: handler}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			n := p.tokenCalls.Add(1)
			if p.tokenFail.Load() {
				w.WriteHeader(http.StatusUnauthorized)
				io.WriteString(w, `{"error":"invalid_client"}`)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"access_token":"tok%d","token_type":"Bearer","expires_in":600}`, n)
			return
		}
		body, _ := io.ReadAll(r.Body)
		s := string(body)
		p.lastBody.Store(&s)
		p.last.Store(r.Clone(context.Background()))
		p.handler(w, r)
	}))
	t.Cleanup(p.Close)
	return p
}

func newTestServer(t *testing.T, p *provider, store *memStore, opts ...Option) *Server {
	opts = append([]Option{
		WithDirectOptions(
			accounting.WithTokenURL(p.URL+"/token"),
			accounting.WithAPIBaseURL(p.URL+"/v2"),
		),
		WithRateLimit(RateLimitConfig{}),
	}, opts...)
	return New(zerolog.Nop(), store, opts...)
}

func do(t *testing.T, h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error
}

func TestHealth(t *testing.T) {
	srv := New(zerolog.Nop(), &memStore{})

	rec := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestForwardGet(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		io.WriteString(w, `[{"Id":1,"Name":"Acme"}]`)
	})
	srv := newTestServer(t, p, &memStore{raw: validCreds})

	rec := do(t, srv, http.MethodGet, "/api/accounting/Customers?page=2&pageSize=50", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"Id":1,"Name":"Acme"}]`, rec.Body.String())

	got := p.last.Load()
	require.NotNil(t, got)
	assert.Equal(t, "/v2/Customers?page=2&pageSize=50", got.URL.RequestURI())
	assert.Equal(t, "Bearer tok1", got.Header.Get("Authorization"))
	assert.Equal(t, "sub-key", got.Header.Get(upstream.SubscriptionKeyHeader))
}

func TestForwardBody(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"Id":7}`)
	})
	srv := newTestServer(t, p, &memStore{raw: validCreds})

	rec := do(t, srv, http.MethodPatch, "/api/accounting/Customers/7",
		`[{"op":"replace","path":"/Name","value":"New"}]`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	got := p.last.Load()
	require.NotNil(t, got)
	assert.Equal(t, http.MethodPatch, got.Method)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.JSONEq(t, `[{"op":"replace","path":"/Name","value":"New"}]`, *p.lastBody.Load())

	rec = do(t, srv, http.MethodPost, "/api/accounting/Customers", "not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForwardRejectsUnknownMethodAndEmptyPath(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	srv := newTestServer(t, p, &memStore{raw: validCreds})

	rec := do(t, srv, http.MethodOptions, "/api/accounting/Customers", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/accounting/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, p.last.Load())
}

func TestForwardKeepsEscapedPath(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[]`)
	})
	srv := newTestServer(t, p, &memStore{raw: validCreds})

	rec := do(t, srv, http.MethodGet, "/api/accounting/Customers%3Fpage%3D9", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := p.last.Load()
	require.NotNil(t, got)
	assert.Empty(t, got.URL.RawQuery)
	assert.Equal(t, "/v2/Customers%3Fpage%3D9", got.URL.EscapedPath())

	rec = do(t, srv, http.MethodGet, "/api/accounting/Customers?page=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got = p.last.Load()
	assert.Equal(t, "/v2/Customers", got.URL.Path)
	assert.Equal(t, "page=2", got.URL.RawQuery)
}

func TestForwardUpstreamErrorEnvelope(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"Message":"bad customer id"}`)
	})
	srv := newTestServer(t, p, &memStore{raw: validCreds})

	rec := do(t, srv, http.MethodGet, "/api/accounting/Customers/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "bad customer id", errorBody(t, rec))
}

func TestProxyClientAgainstServer(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/Customers/5" {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"Id":5}`)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"bad customer id"}`)
	})
	srv := newTestServer(t, p, &memStore{raw: validCreds})
	front := httptest.NewServer(srv)
	defer front.Close()

	client := accounting.NewProxyClient(front.URL + "/api/accounting")

	got, err := client.GetCustomer(context.Background(), 5)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Id":5}`, string(got))

	_, err = client.GetCustomer(context.Background(), 6)
	require.Error(t, err)
	assert.Equal(t, "bad customer id", err.Error())
}

func TestForwardAuthenticationFailure(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	p.tokenFail.Store(true)
	srv := newTestServer(t, p, &memStore{raw: validCreds})

	rec := do(t, srv, http.MethodGet, "/api/accounting/Customers", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, errorBody(t, rec), "authentication")
	assert.Nil(t, p.last.Load())
}

func TestForwardMissingConfiguration(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	srv := newTestServer(t, p, &memStore{raw: config.RawCredentials{ApplicationKey: "only"}})

	rec := do(t, srv, http.MethodGet, "/api/accounting/Customers", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "accounting integration is not configured", errorBody(t, rec))
	assert.Zero(t, p.tokenCalls.Load())
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"api error", &upstream.APIError{StatusCode: 409, Body: `{"error":"conflict"}`}, 409},
		{"auth", &auth.AuthenticationError{StatusCode: 401}, http.StatusBadGateway},
		{"auth transport", &auth.AuthenticationError{Err: &upstream.TransportError{Timeout: true}}, http.StatusBadGateway},
		{"timeout", &upstream.TransportError{Timeout: true, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"unreachable", &upstream.TransportError{Err: errors.New("connection refused")}, http.StatusBadGateway},
		{"config", &config.ConfigurationError{Missing: []string{"clientKey"}}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestRequestIDPropagation(t *testing.T) {
	srv := New(zerolog.Nop(), &memStore{})

	rec := do(t, srv, http.MethodGet, "/health", "", map[string]string{accounting.RequestIDHeader: "req-42"})
	assert.Equal(t, "req-42", rec.Header().Get(accounting.RequestIDHeader))

	rec = do(t, srv, http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, rec.Header().Get(accounting.RequestIDHeader))
}

func TestNotFound(t *testing.T) {
	srv := New(zerolog.Nop(), &memStore{})
	rec := do(t, srv, http.MethodGet, "/v1/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", errorBody(t, rec))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := New(zerolog.Nop(), &memStore{})
	do(t, srv, http.MethodGet, "/health", "", nil)

	rec := do(t, srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ledgerlink_http_requests_total")
}
