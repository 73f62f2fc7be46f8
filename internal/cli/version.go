package cmd

import (
	"fmt"

	"github.com/rohmanhakim/listing-enricher/internal/build"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(c.OutOrStdout(), "listing-enricher %s (built %s)\n", build.FullVersion(), build.BuildTime)
			return err
		},
	}
}
