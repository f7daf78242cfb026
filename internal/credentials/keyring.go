package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dvcrn/ledgerlink/internal/config"
	"github.com/zalando/go-keyring"
)

const keyringService = "ledgerlink"

// KeyringCredentialsFetcher stores credentials in the OS keychain, one JSON
// blob per profile.
type KeyringCredentialsFetcher struct {
	Profile string
}

func NewKeyringCredentialsFetcher(profile string) *KeyringCredentialsFetcher {
	if profile == "" {
		profile = "default"
	}
	return &KeyringCredentialsFetcher{Profile: profile}
}

func (k *KeyringCredentialsFetcher) key() string {
	return "ledgerlink::" + k.Profile
}

func (k *KeyringCredentialsFetcher) Fetch() (config.RawCredentials, error) {
	data, err := keyring.Get(keyringService, k.key())
	if errors.Is(err, keyring.ErrNotFound) {
		return config.RawCredentials{}, fmt.Errorf("no credentials stored in keyring for profile %q", k.Profile)
	}
	if err != nil {
		return config.RawCredentials{}, fmt.Errorf("failed to read keyring: %w", err)
	}

	var raw config.RawCredentials
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return config.RawCredentials{}, fmt.Errorf("failed to parse keyring credentials: %w", err)
	}
	return raw, nil
}

func (k *KeyringCredentialsFetcher) Save(raw config.RawCredentials) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := keyring.Set(keyringService, k.key(), string(data)); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

func (k *KeyringCredentialsFetcher) Delete() error {
	err := keyring.Delete(keyringService, k.key())
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}
	return nil
}
