package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var saveResolutions bool

func newResolveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "resolve <id>...",
		Short: "Resolve identifiers to metadata records",
		Long: `resolve fetches each identifier through the gateway chain and prints
the identifier -> record mapping as JSON. Unresolvable identifiers map to
degraded placeholder records; the command itself never fails on them.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				resolutions := a.resolver.ResolveMany(c.Context(), args)

				if saveResolutions && !a.cfg.DryRun() {
					result, err := a.storage.WriteResolutions(a.cfg.OutputDir(), resolutions, a.cfg.HashAlgo())
					if err != nil {
						return err
					}
					fmt.Fprintf(c.ErrOrStderr(), "wrote %d resolutions to %s\n", result.Entries(), result.Path())
				}

				encoder := json.NewEncoder(c.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(resolutions)
			})
		},
	}
	c.Flags().BoolVar(&saveResolutions, "save", false, "also write the mapping to the output directory")
	return c
}
