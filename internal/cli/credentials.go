package cli

import (
	"fmt"

	"github.com/dvcrn/ledgerlink/internal/app"
	"github.com/dvcrn/ledgerlink/internal/config"
	"github.com/dvcrn/ledgerlink/internal/credentials"
	"github.com/spf13/cobra"
)

func newCredentialsCmd() *cobra.Command {
	var to string
	save := &cobra.Command{
		Use:   "save",
		Short: "Copy credentials from --source into a file or the keyring",
		Long: `Reads the integration credentials from the configured --source
(by default the LEDGERLINK_* environment variables), validates them and
stores them in the chosen store so later runs can use --source file or
--source keyring.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())
			if to == a.flags.Source {
				return fmt.Errorf("--to must differ from --source")
			}

			src, err := a.fetcher()
			if err != nil {
				return err
			}
			raw, err := src.Fetch()
			if err != nil {
				return err
			}
			cfg, err := config.FromRaw(raw)
			if err != nil {
				return err
			}
			raw.Environment = string(cfg.Environment())

			dst, err := app.NewFetcher(to, a.flags.CredsPath, a.flags.Profile)
			if err != nil {
				return err
			}
			saver, ok := dst.(credentials.Saver)
			if !ok {
				return fmt.Errorf("credentials store %q is read-only", to)
			}
			if err := saver.Save(raw); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Saved %s credentials to %s\n", cfg.Environment(), to)
			return nil
		},
	}
	save.Flags().StringVar(&to, "to", app.SourceFile, "Destination store: file or keyring")

	return groupCmd("credentials", "Manage stored integration credentials", save)
}
