package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dvcrn/ledgerlink/internal/metrics"
	"github.com/dvcrn/ledgerlink/internal/upstream"
)

const (
	// TokenExpiryBuffer is how long before expiry a cached token stops being handed out
	TokenExpiryBuffer = 60 * time.Second
	// DefaultExchangeTimeout bounds a single token exchange
	DefaultExchangeTimeout = 5 * time.Second
)

func basicCredentials(applicationKey, clientKey string) string {
	return base64.StdEncoding.EncodeToString([]byte(applicationKey + ":" + clientKey))
}

// exchange performs one client-credentials grant against the token endpoint.
func (m *TokenManager) exchange(ctx context.Context) (*AccessToken, error) {
	start := time.Now()

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthenticationError{Err: fmt.Errorf("failed to create token request: %w", err)}
	}
	req.Header.Set("Authorization", "Basic "+basicCredentials(m.cfg.ApplicationKey(), m.cfg.ClientKey()))
	req.Header.Set(upstream.SubscriptionKeyHeader, m.cfg.SubscriptionKey())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		metrics.RecordTokenExchange("transport_error", time.Since(start))
		return nil, &AuthenticationError{Err: upstream.ClassifyTransport(http.MethodPost, m.tokenURL, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordTokenExchange("transport_error", time.Since(start))
		return nil, &AuthenticationError{Err: upstream.ClassifyTransport(http.MethodPost, m.tokenURL, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordTokenExchange("rejected", time.Since(start))
		return nil, &AuthenticationError{
			StatusCode: resp.StatusCode,
			Status:     upstream.StatusText(resp),
			Body:       string(body),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		metrics.RecordTokenExchange("rejected", time.Since(start))
		return nil, &AuthenticationError{Err: fmt.Errorf("failed to decode token response: %w", err)}
	}
	if tr.AccessToken == "" {
		metrics.RecordTokenExchange("rejected", time.Since(start))
		return nil, &AuthenticationError{Err: errors.New("token response did not contain an access_token")}
	}
	if tr.TokenType == "" {
		tr.TokenType = "Bearer"
	}

	metrics.RecordTokenExchange("success", time.Since(start))
	return &AccessToken{
		Token:           tr.AccessToken,
		TokenType:       tr.TokenType,
		LifetimeSeconds: tr.ExpiresIn,
		ExpiresAt:       m.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
