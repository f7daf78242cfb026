//go:build js && wasm

package credentials

import (
	"encoding/json"
	"fmt"

	"github.com/dvcrn/ledgerlink/internal/config"
	"github.com/syumai/workers/cloudflare/kv"
)

const (
	kvNamespace      = "ledgerlink_kv"
	kvCredentialsKey = "integration_credentials"
)

// CloudflareKVFetcher retrieves credentials from Cloudflare KV
type CloudflareKVFetcher struct {
	kvStore *kv.Namespace
}

// NewCloudflareKVFetcher creates a new Cloudflare KV-based credentials fetcher
func NewCloudflareKVFetcher() (*CloudflareKVFetcher, error) {
	// The binding name is configured in wrangler.toml
	kvStore, err := kv.NewNamespace(kvNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KV namespace: %w", err)
	}
	return &CloudflareKVFetcher{kvStore: kvStore}, nil
}

// Fetch reads the credentials JSON stored under integration_credentials
func (c *CloudflareKVFetcher) Fetch() (config.RawCredentials, error) {
	credsJSON, err := c.kvStore.GetString(kvCredentialsKey, nil)
	if err != nil {
		return config.RawCredentials{}, fmt.Errorf("failed to get credentials from KV: %w", err)
	}
	if credsJSON == "" {
		return config.RawCredentials{}, fmt.Errorf("no credentials found in KV")
	}

	var raw config.RawCredentials
	if err := json.Unmarshal([]byte(credsJSON), &raw); err != nil {
		return config.RawCredentials{}, fmt.Errorf("failed to parse credentials JSON: %w", err)
	}
	return raw, nil
}

// Save stores credentials in KV (used for initial setup)
func (c *CloudflareKVFetcher) Save(raw config.RawCredentials) error {
	credsJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := c.kvStore.PutString(kvCredentialsKey, string(credsJSON), nil); err != nil {
		return fmt.Errorf("failed to store credentials in KV: %w", err)
	}
	return nil
}
