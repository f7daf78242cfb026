package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/dvcrn/ledgerlink/internal/accounting"
	"github.com/dvcrn/ledgerlink/internal/app"
	"github.com/dvcrn/ledgerlink/internal/config"
	"github.com/dvcrn/ledgerlink/internal/credentials"
	"github.com/dvcrn/ledgerlink/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	source := flag.String("creds-source", app.SourceEnv, "Where to read integration credentials from: env, file or keyring")
	credsPath := flag.String("creds-path", credentials.DefaultCredsPath(), "Path to the credentials JSON file (file source)")
	profile := flag.String("keyring-profile", "default", "Keyring profile name (keyring source)")
	envFile := flag.String("env-file", ".env", "Optional .env file loaded before reading the environment")
	validate := flag.Bool("validate-token", false, "Exchange a token at startup to verify the credentials")
	flag.Parse()

	if err := credentials.LoadDotEnv(*envFile); err != nil {
		// The logger reads ENV and LOG_LEVEL, so it is built after .env is loaded.
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load env file")
	}
	log := logger.New()

	credsFetcher, err := app.NewFetcher(*source, *credsPath, *profile)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid credentials source")
	}
	switch *source {
	case app.SourceFile:
		log.Info().Str("path", *credsPath).Msg("📄 Using filesystem credentials fetcher")
	case app.SourceKeyring:
		log.Info().Str("profile", *profile).Msg("🔑 Using keyring credentials fetcher")
	default:
		log.Info().Msg("📝 Using environment credentials fetcher")
	}

	// Validate credentials at startup
	validateCredentialsAtStartup(credsFetcher, *validate, log)

	srv := app.NewServer(credsFetcher, log)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9879"
	}

	log.Info().Str("port", port).Msg("Starting server")
	log.Fatal().Err(http.ListenAndServe(":"+port, srv)).Msg("Server failed to start")
}

func validateCredentialsAtStartup(credsFetcher credentials.Fetcher, exchange bool, log zerolog.Logger) {
	cfg, err := credentials.Load(credsFetcher)
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			log.Fatal().Err(err).Msg("❌ Integration credentials are incomplete")
		}
		log.Fatal().Err(err).Msg("❌ Failed to load integration credentials")
	}

	log.Info().
		Str("environment", string(cfg.Environment())).
		Str("token_url", cfg.Endpoints().TokenURL).
		Int("application_key_length", len(cfg.ApplicationKey())).
		Int("client_key_length", len(cfg.ClientKey())).
		Msg("✅ Credentials loaded successfully")

	if !exchange {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := accounting.NewDirectClient(cfg, accounting.WithLogger(log))
	if err := client.RefreshToken(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️  Token exchange failed at startup, will retry on first request")
		return
	}
	status := client.TokenStatus()
	log.Info().
		Dur("expires_in", status.ExpiresIn).
		Msg("✅ Token exchange succeeded")
}
