package credentials

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dvcrn/ledgerlink/internal/config"
)

// FSCredentialsFetcher reads credentials from a JSON file.
type FSCredentialsFetcher struct {
	Path string
}

func NewFSCredentialsFetcher(path string) *FSCredentialsFetcher {
	return &FSCredentialsFetcher{Path: path}
}

func (f *FSCredentialsFetcher) Fetch() (config.RawCredentials, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return config.RawCredentials{}, fmt.Errorf("failed to read credentials file: %w", err)
	}
	var raw config.RawCredentials
	if err := json.Unmarshal(b, &raw); err != nil {
		return config.RawCredentials{}, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return raw, nil
}

// Save writes raw to the file with owner-only permissions, creating parent
// directories as needed.
func (f *FSCredentialsFetcher) Save(raw config.RawCredentials) error {
	if err := EnsureParentDir(f.Path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(f.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(f.Path, 0600); err != nil {
		return fmt.Errorf("failed to restrict credentials file: %w", err)
	}
	return nil
}
