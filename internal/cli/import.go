package cmd

import (
	"errors"
	"fmt"

	"github.com/rohmanhakim/listing-enricher/internal/events"
	"github.com/spf13/cobra"
)

func newImportEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-events",
		Short: "Copy events from --events-file into the --database-url store",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				if a.cfg.EventsFile() == "" || a.cfg.DatabaseURL() == "" {
					return errors.New("import-events needs both --events-file and --database-url")
				}

				collections, err := events.Load(c.Context(), events.NewFileSource(a.cfg.EventsFile()))
				if err != nil {
					return err
				}

				store, err := a.openStore(c.Context())
				if err != nil {
					return err
				}
				defer store.Close()

				inserted, err := store.Import(c.Context(), collections)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "imported %d of %d events\n", inserted, collections.Len())
				return nil
			})
		},
	}
}
