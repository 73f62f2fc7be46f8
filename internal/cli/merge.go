package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/rohmanhakim/listing-enricher/internal/events"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge listing events with resolved metadata",
		Long: `merge loads the event collections from --events-file or --database-url,
resolves every referenced metadata identifier and writes one snapshot of
enhanced listings to the output directory. With --dry-run the listings
are printed to stdout instead.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				source, _, closeSource, err := a.openSource(c.Context())
				defer closeSource()
				if err != nil {
					return err
				}

				collections, err := events.Load(c.Context(), source)
				if err != nil {
					return err
				}
				listings := a.merger.MergeCollections(c.Context(), collections)

				if a.cfg.DryRun() {
					encoder := json.NewEncoder(c.OutOrStdout())
					encoder.SetIndent("", "  ")
					return encoder.Encode(listings)
				}

				result, writeErr := a.storage.WriteListings(a.cfg.OutputDir(), listings, a.cfg.HashAlgo())
				if writeErr != nil {
					return writeErr
				}
				fmt.Fprintf(c.OutOrStdout(), "wrote %d listings to %s\n", result.Entries(), result.Path())
				return nil
			})
		},
	}
}
