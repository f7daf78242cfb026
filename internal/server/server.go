package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/dvcrn/ledgerlink/internal/accounting"
	"github.com/dvcrn/ledgerlink/internal/credentials"
	"github.com/dvcrn/ledgerlink/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server is the intermediary that holds the integration credentials and
// forwards accounting calls for clients that must not see them.
type Server struct {
	credsFetcher credentials.Fetcher
	clientOpts   []accounting.DirectOption
	limiter      *rateLimiter
	mux          *http.ServeMux
	logger       zerolog.Logger

	mu     sync.Mutex
	client *accounting.DirectClient
}

// Option configures New
type Option func(*Server)

// WithDirectOptions passes options through to the accounting.DirectClient
// built from the fetched credentials.
func WithDirectOptions(opts ...accounting.DirectOption) Option {
	return func(s *Server) { s.clientOpts = append(s.clientOpts, opts...) }
}

// WithRateLimit overrides the per-client limit read from the environment.
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(s *Server) { s.limiter = newRateLimiter(cfg) }
}

func New(logger zerolog.Logger, credsFetcher credentials.Fetcher, opts ...Option) *Server {
	s := &Server{
		credsFetcher: credsFetcher,
		limiter:      newRateLimiter(RateLimitConfigFromEnv()),
		mux:          http.NewServeMux(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/accounting/", s.rateLimitMiddleware(s.accountingHandler))
	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.HandleFunc("/admin/token", s.adminMiddleware(s.tokenHandler))
	s.mux.HandleFunc("/admin/credentials", s.adminMiddleware(s.credentialsHandler))
	s.mux.HandleFunc("/", s.notFoundHandler)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.loggingMiddleware(metrics.InstrumentHandler(s.mux)).ServeHTTP(w, r)
}

// directClient builds the accounting client on first use so that a worker
// can start before its credentials are provisioned.
func (s *Server) directClient() (*accounting.DirectClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	cfg, err := credentials.Load(s.credsFetcher)
	if err != nil {
		return nil, err
	}

	opts := append([]accounting.DirectOption{accounting.WithLogger(s.logger)}, s.clientOpts...)
	s.client = accounting.NewDirectClient(cfg, opts...)
	s.logger.Info().
		Str("environment", string(cfg.Environment())).
		Str("api_base_url", cfg.Endpoints().APIBaseURL).
		Msg("🔌 Accounting client initialized")
	return s.client, nil
}

// resetClient drops the cached client and its token, e.g. after the stored
// credentials change.
func (s *Server) resetClient() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.ClearToken()
	}
	s.client = nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(accounting.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(accounting.RequestIDHeader, requestID)
		}
		w.Header().Set(accounting.RequestIDHeader, requestID)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("Incoming request")
		next.ServeHTTP(w, r)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Dur("duration", time.Since(start)).
			Msg("Finished request")
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn().
		Str("method", r.Method).
		Str("uri", r.RequestURI).
		Str("remote_addr", r.RemoteAddr).
		Str("user_agent", r.UserAgent()).
		Msg("Unhandled route")
	writeError(w, http.StatusNotFound, "not found")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the {"error": "..."} envelope the proxy client parses.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
