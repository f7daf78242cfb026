package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dvcrn/ledgerlink/internal/upstream"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	status := &cobra.Command{
		Use:   "status",
		Short: "Show the intermediary's cached access token (requires --proxy)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())
			if a.flags.Proxy == "" {
				return fmt.Errorf("token status needs --proxy; a local client starts without a token, use 'token refresh' instead")
			}
			return a.adminToken(cmd.Context(), http.MethodGet)
		},
	}

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the integration credentials for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())
			if a.flags.Proxy != "" {
				return a.adminToken(cmd.Context(), http.MethodPost)
			}
			_, direct, err := a.client()
			if err != nil {
				return err
			}
			if err := direct.RefreshToken(cmd.Context()); err != nil {
				return err
			}
			return printValue(a.out, direct.TokenStatus())
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop the intermediary's cached access token (requires --proxy)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())
			if a.flags.Proxy == "" {
				return fmt.Errorf("token clear needs --proxy")
			}
			return a.adminToken(cmd.Context(), http.MethodDelete)
		},
	}

	return groupCmd("token", "Inspect and manage access tokens", status, refresh, clearCmd)
}

// adminToken calls /admin/token on the intermediary's origin.
func (a *appContext) adminToken(ctx context.Context, method string) error {
	if a.flags.AdminKey == "" {
		return fmt.Errorf("an admin key is required (--admin-key or ADMIN_API_KEY)")
	}
	u, err := url.Parse(a.flags.Proxy)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid --proxy URL %q", a.flags.Proxy)
	}
	u.Path = "/admin/token"
	u.RawQuery = ""

	ctx, cancel := context.WithTimeout(ctx, a.flags.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", a.flags.AdminKey)
	req.Header.Set("Accept", "application/json")

	resp, err := upstream.NewHTTPClient().Do(req)
	if err != nil {
		return upstream.ClassifyTransport(method, u.String(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &upstream.APIError{
			Method:     method,
			Path:       u.Path,
			StatusCode: resp.StatusCode,
			Status:     upstream.StatusText(resp),
			Body:       string(body),
			Message:    upstream.ErrorMessage(body, resp.StatusCode),
		}
	}
	return printJSON(a.out, body)
}
