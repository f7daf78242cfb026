package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dvcrn/ledgerlink/internal/accounting"
	"github.com/dvcrn/ledgerlink/internal/auth"
	"github.com/dvcrn/ledgerlink/internal/config"
	"github.com/dvcrn/ledgerlink/internal/upstream"
)

const (
	accountingPrefix = "/api/accounting"
	maxForwardBody   = 4 << 20
)

// accountingHandler forwards /api/accounting/<path> to the provider's API
// with the intermediary's own credentials.
func (s *Server) accountingHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// The escaped form keeps %3F and %23 inside the path segment.
	path := strings.TrimPrefix(r.URL.EscapedPath(), accountingPrefix)
	if path == "" || path == "/" {
		writeError(w, http.StatusNotFound, "missing resource path")
		return
	}

	rd := accounting.RequestDescriptor{
		Method:   r.Method,
		Path:     path,
		RawQuery: r.URL.RawQuery,
	}

	bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxForwardBody))
	if err != nil {
		s.logger.Error().Err(err).Msg("Error reading request body")
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()
	if len(bytes.TrimSpace(bodyBytes)) > 0 {
		if !json.Valid(bodyBytes) {
			writeError(w, http.StatusBadRequest, "request body must be JSON")
			return
		}
		rd.Body = json.RawMessage(bodyBytes)
	}

	client, err := s.directClient()
	if err != nil {
		s.writeForwardError(w, r, err)
		return
	}

	resp, err := client.Transport().Send(r.Context(), rd)
	if err != nil {
		s.writeForwardError(w, r, err)
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write forwarded response")
	}
}

// errorStatus maps a forwarding failure to the status and message returned
// to the caller.
func errorStatus(err error) (int, string) {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, upstream.ErrorMessage([]byte(apiErr.Body), apiErr.StatusCode)
	}

	var authErr *auth.AuthenticationError
	if errors.As(err, &authErr) {
		return http.StatusBadGateway, "authentication with the accounting provider failed"
	}

	var transportErr *upstream.TransportError
	if errors.As(err, &transportErr) {
		if transportErr.Timeout {
			return http.StatusGatewayTimeout, "accounting provider timed out"
		}
		return http.StatusBadGateway, "accounting provider unreachable"
	}

	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return http.StatusInternalServerError, "accounting integration is not configured"
	}

	return http.StatusInternalServerError, "internal error"
}

func (s *Server) writeForwardError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	event := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).
		Str("request_id", r.Header.Get(accounting.RequestIDHeader)).
		Str("method", r.Method).
		Str("uri", r.RequestURI).
		Int("status_code", status).
		Msg("❌ Forwarded request failed")
	writeError(w, status, msg)
}
