//go:build js && wasm

package main

import (
	"github.com/dvcrn/ledgerlink/internal/app"
	"github.com/dvcrn/ledgerlink/internal/credentials"
	"github.com/dvcrn/ledgerlink/internal/env"
	"github.com/dvcrn/ledgerlink/internal/logger"
	"github.com/syumai/workers"
)

func main() {
	log := logger.New()

	var credsFetcher credentials.Fetcher
	if source, _ := env.Get("CREDENTIALS_SOURCE"); source == app.SourceEnv {
		log.Info().Msg("📝 Using worker environment credentials fetcher")
		credsFetcher = credentials.NewEnvCredentialsFetcher()
	} else {
		log.Info().Msg("📦 Using Cloudflare KV credentials fetcher")
		kvFetcher, err := credentials.NewCloudflareKVFetcher()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Cloudflare KV fetcher")
		}
		credsFetcher = kvFetcher
	}

	// Credentials are loaded lazily, so a fresh KV namespace can be
	// provisioned through PUT /admin/credentials.
	srv := app.NewServer(credsFetcher, log)

	workers.Serve(srv)
}
