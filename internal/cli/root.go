package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dvcrn/ledgerlink/internal/accounting"
	"github.com/dvcrn/ledgerlink/internal/app"
	"github.com/dvcrn/ledgerlink/internal/credentials"
	"github.com/dvcrn/ledgerlink/internal/logger"
	"github.com/dvcrn/ledgerlink/internal/upstream"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	Proxy     string
	AdminKey  string
	Source    string
	CredsPath string
	Profile   string
	EnvFile   string
	Timeout   time.Duration
	Verbose   bool
}

type appCtxKey struct{}

// appContext is what PersistentPreRunE hands down to the subcommands.
type appContext struct {
	flags  GlobalFlags
	out    io.Writer
	logger zerolog.Logger
}

func fromContext(ctx context.Context) *appContext {
	a, _ := ctx.Value(appCtxKey{}).(*appContext)
	return a
}

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags GlobalFlags

	cmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Command-line client for the accounting integration",
		Long: `ledgerctl calls the accounting provider either directly, using
integration credentials from the environment, a file or the OS keyring,
or through a ledgerlink intermediary (--proxy) that holds them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := credentials.LoadDotEnv(flags.EnvFile); err != nil {
				return err
			}
			log := zerolog.Nop()
			if flags.Verbose {
				log = logger.NewDevelopment().Level(zerolog.DebugLevel)
			}
			if flags.AdminKey == "" {
				flags.AdminKey = os.Getenv("ADMIN_API_KEY")
			}
			a := &appContext{flags: flags, out: cmd.OutOrStdout(), logger: log}
			cmd.SetContext(context.WithValue(cmd.Context(), appCtxKey{}, a))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.Proxy, "proxy", "", "Intermediary base URL, e.g. https://host/api/accounting")
	cmd.PersistentFlags().StringVar(&flags.AdminKey, "admin-key", "", "Admin API key for token commands via --proxy (default $ADMIN_API_KEY)")
	cmd.PersistentFlags().StringVar(&flags.Source, "source", app.SourceEnv, "Credentials source: env, file or keyring")
	cmd.PersistentFlags().StringVar(&flags.CredsPath, "creds-path", "", "Credentials file (default: XDG config dir)")
	cmd.PersistentFlags().StringVar(&flags.Profile, "profile", "default", "Keyring profile")
	cmd.PersistentFlags().StringVar(&flags.EnvFile, "env-file", ".env", "Optional .env file")
	cmd.PersistentFlags().DurationVar(&flags.Timeout, "timeout", accounting.DefaultRequestTimeout, "Per-request timeout")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Log requests to stderr")

	cmd.AddCommand(
		newTokenCmd(),
		newIntegrationCmd(),
		newCustomersCmd(),
		newProductsCmd(),
		newInvoicesCmd(),
		newProjectsCmd(),
		newEmployeesCmd(),
		newTimeCmd(),
		newAccountsCmd(),
		newCredentialsCmd(),
	)

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}

// describe adds the status code to API errors whose message alone would be
// ambiguous.
func describe(err error) string {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s (HTTP %d)", upstream.ErrorMessage([]byte(apiErr.Body), apiErr.StatusCode), apiErr.StatusCode)
	}
	return err.Error()
}

// client returns the resource client for the selected transport. direct is
// nil in proxy mode.
func (a *appContext) client() (*accounting.Client, *accounting.DirectClient, error) {
	if a.flags.Proxy != "" {
		p := accounting.NewProxyClient(a.flags.Proxy,
			accounting.WithProxyTimeout(a.flags.Timeout),
			accounting.WithProxyLogger(a.logger),
		)
		return p.Client, nil, nil
	}

	fetcher, err := a.fetcher()
	if err != nil {
		return nil, nil, err
	}
	raw, err := fetcher.Fetch()
	if err != nil {
		return nil, nil, err
	}
	d, err := accounting.NewDirectClientFromCredentials(raw,
		accounting.WithRequestTimeout(a.flags.Timeout),
		accounting.WithLogger(a.logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return d.Client, d, nil
}

func (a *appContext) fetcher() (credentials.Fetcher, error) {
	return app.NewFetcher(a.flags.Source, a.flags.CredsPath, a.flags.Profile)
}
