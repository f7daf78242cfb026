package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dvcrn/ledgerlink/internal/config"
	"github.com/dvcrn/ledgerlink/internal/credentials"
	"github.com/dvcrn/ledgerlink/internal/env"
)

// adminMiddleware checks for valid admin API key from either
// 'Authorization: Bearer <key>' or 'X-API-Key: <key>' headers.
func (s *Server) adminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminKey, ok := env.Get("ADMIN_API_KEY")
		if !ok || adminKey == "" {
			s.logger.Error().Msg("ADMIN_API_KEY environment variable not set")
			writeError(w, http.StatusInternalServerError, "admin API not configured")
			return
		}

		var providedToken string
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				s.logger.Warn().
					Str("method", r.Method).
					Str("uri", r.RequestURI).
					Str("remote_addr", r.RemoteAddr).
					Msg("Invalid Authorization header format for admin endpoint")
				writeError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}
			providedToken = token
		} else if key := r.Header.Get("X-API-Key"); key != "" {
			providedToken = key
		} else {
			s.logger.Warn().
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Str("remote_addr", r.RemoteAddr).
				Msg("Missing required Authorization or X-API-Key header for admin endpoint")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if subtle.ConstantTimeCompare([]byte(providedToken), []byte(adminKey)) != 1 {
			s.logger.Warn().
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Str("remote_addr", r.RemoteAddr).
				Msg("Invalid admin API key provided")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Msg("Admin request authorized")

		next(w, r)
	}
}

// tokenHandler handles /admin/token: GET reports the cached token, POST
// forces a new exchange and DELETE drops the cache.
func (s *Server) tokenHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodDelete:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	client, err := s.directClient()
	if err != nil {
		s.writeForwardError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodPost:
		if err := client.RefreshToken(r.Context()); err != nil {
			s.writeForwardError(w, r, err)
			return
		}
		s.logger.Info().Msg("🔄 Access token refreshed by admin")
	case http.MethodDelete:
		client.ClearToken()
		s.logger.Info().Msg("🧹 Access token cache cleared by admin")
	}

	writeJSON(w, http.StatusOK, client.TokenStatus())
}

// credentialsHandler handles PUT /admin/credentials for stores that can
// persist credentials. The body uses the same JSON shape as the credentials
// file.
func (s *Server) credentialsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	saver, ok := s.credsFetcher.(credentials.Saver)
	if !ok {
		s.logger.Error().Msg("Credentials fetcher does not support saving")
		writeError(w, http.StatusBadRequest, "credential store is read-only")
		return
	}

	var raw config.RawCredentials
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.logger.Error().Err(err).Msg("Failed to parse request body")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := config.FromRaw(raw); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := saver.Save(raw); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save credentials")
		writeError(w, http.StatusInternalServerError, "failed to save credentials")
		return
	}
	s.resetClient()

	s.logger.Info().Msg("🔑 Integration credentials updated")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Credentials updated successfully",
	})
}
