package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

func newTypesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered resource types and what their loaders support",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := opts.openRegistry(nil)
			if err != nil {
				return err
			}
			defer r.Shutdown()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tEXTENSIONS\tICON\tCAPABILITIES")
			for _, t := range r.Types() {
				l, ok := r.Loader(t)
				if !ok {
					continue
				}
				icon := "-"
				if info, ok := l.(resources.EditorInfo); ok {
					icon = info.Icon()
				}
				exts := strings.Join(l.Extensions(), " ")
				if exts == "" {
					exts = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t, exts, icon, capabilities(l))
			}
			return w.Flush()
		},
	}
}

func capabilities(l resources.Loader) string {
	var caps []string
	if _, ok := l.(resources.Saver); ok {
		caps = append(caps, "save")
	}
	if _, ok := l.(resources.HotReloader); ok {
		caps = append(caps, "reload")
	}
	if _, ok := l.(resources.SubAssetProvider); ok {
		caps = append(caps, "sub-assets")
	}
	if _, ok := l.(resources.Placeholder); ok {
		caps = append(caps, "placeholder")
	}
	if len(caps) == 0 {
		return "-"
	}
	return strings.Join(caps, ",")
}
