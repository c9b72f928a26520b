package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima-assets/engine/assets"
)

func newLoadCmd(opts *rootOptions) *cobra.Command {
	var (
		typeName string
		raw      bool
	)

	cmd := &cobra.Command{
		Use:   "load <path>...",
		Short: "Load assets through the registry and report what came back",
		Long: `Load each path through the registry, printing the resolved type and the Go
type of the resource. Sub-assets are addressed as "parent#id". Every path is
attempted; the command fails if any of them failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(typeName)
			if err != nil {
				return err
			}
			r, _, err := opts.openRegistry(nil)
			if err != nil {
				return err
			}
			defer r.Shutdown()

			loadOpts := []assets.LoadOption{assets.WithType(t)}
			if raw {
				loadOpts = append(loadOpts, assets.Raw())
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tSTATUS\tGO TYPE")
			var errs []error
			for _, p := range args {
				res, err := r.Load(p, loadOpts...)
				if err != nil {
					errs = append(errs, err)
					fmt.Fprintf(w, "%s\tfailed\t-\n", p)
					continue
				}
				fmt.Fprintf(w, "%s\tok\t%T\n", p, res)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			stats := r.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d cached, %d loader calls\n", len(r.Paths()), stats.Loads)
			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Force the resource type instead of inferring it")
	cmd.Flags().BoolVar(&raw, "raw", false, "Use the paths as given, bypassing the asset root")
	return cmd
}
