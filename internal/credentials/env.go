package credentials

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/dvcrn/ledgerlink/internal/config"
	"github.com/dvcrn/ledgerlink/internal/env"
	"github.com/joho/godotenv"
)

const (
	EnvApplicationKey  = "LEDGERLINK_APPLICATION_KEY"
	EnvClientKey       = "LEDGERLINK_CLIENT_KEY"
	EnvSubscriptionKey = "LEDGERLINK_SUBSCRIPTION_KEY"
	EnvEnvironment     = "LEDGERLINK_ENVIRONMENT"
)

// EnvCredentialsFetcher retrieves credentials from environment variables
type EnvCredentialsFetcher struct{}

// NewEnvCredentialsFetcher creates a new environment-based credentials fetcher
func NewEnvCredentialsFetcher() *EnvCredentialsFetcher {
	return &EnvCredentialsFetcher{}
}

// Fetch reads the LEDGERLINK_* variables. Unset variables come back empty.
func (e *EnvCredentialsFetcher) Fetch() (config.RawCredentials, error) {
	get := func(name string) string {
		v, _ := env.Get(name)
		return v
	}
	return config.RawCredentials{
		ApplicationKey:  get(EnvApplicationKey),
		ClientKey:       get(EnvClientKey),
		SubscriptionKey: get(EnvSubscriptionKey),
		Environment:     get(EnvEnvironment),
	}, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding variables that are already set. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}
