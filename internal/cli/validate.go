package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/rohmanhakim/listing-enricher/internal/identifier"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <id>...",
		Short: "Classify identifiers without fetching them",
		Long: `validate prints the version, codec and hash function of each identifier.
It exits with an error when any identifier is ill-formed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "IDENTIFIER\tVALID\tVERSION\tCODEC\tHASH")

			invalid := 0
			for _, id := range args {
				classification := identifier.Validate(id)
				switch {
				case classification.AbsoluteURL:
					fmt.Fprintf(w, "%s\t%t\turl\t-\t-\n", id, true)
				case !classification.WellFormed:
					invalid++
					fmt.Fprintf(w, "%s\t%t\t%s\t-\t-\n", id, false, classification.Version)
				default:
					details, err := identifier.Decode(id)
					if err != nil {
						fmt.Fprintf(w, "%s\t%t\t%s\t?\t?\n", id, true, classification.Version)
						continue
					}
					fmt.Fprintf(w, "%s\t%t\t%s\t0x%x\t%s\n", id, true, classification.Version, details.Codec, details.HashFunction)
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d identifiers are ill-formed", invalid, len(args))
			}
			return nil
		},
	}
}
