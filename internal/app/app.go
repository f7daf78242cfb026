package app

import (
	"fmt"

	"github.com/dvcrn/ledgerlink/internal/credentials"
	"github.com/dvcrn/ledgerlink/internal/server"
	"github.com/rs/zerolog"
)

// Credential sources accepted by NewFetcher.
const (
	SourceEnv     = "env"
	SourceFile    = "file"
	SourceKeyring = "keyring"
)

// NewServer creates a new server instance with the given credentials fetcher
func NewServer(credsFetcher credentials.Fetcher, logger zerolog.Logger, opts ...server.Option) *server.Server {
	return server.New(logger, credsFetcher, opts...)
}

// NewFetcher returns the credentials store for source. path is used by the
// file source (default: the XDG credentials path) and profile by the keyring
// source.
func NewFetcher(source, path, profile string) (credentials.Fetcher, error) {
	switch source {
	case SourceEnv, "":
		return credentials.NewEnvCredentialsFetcher(), nil
	case SourceFile:
		if path == "" {
			path = credentials.DefaultCredsPath()
		}
		return credentials.NewFSCredentialsFetcher(path), nil
	case SourceKeyring:
		return credentials.NewKeyringCredentialsFetcher(profile), nil
	default:
		return nil, fmt.Errorf("unknown credentials source %q (want env, file or keyring)", source)
	}
}
