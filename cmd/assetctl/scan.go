package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "List the assets under a directory of the asset root",
		Args:  cobra.MaximumNArgs(1),
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

			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			var paths []string
			if typeName == "" {
				paths, err = r.ScanAll(dir)
			} else {
				paths, err = r.ScanByType(t, dir)
			}
			if err != nil {
				return err
			}

			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Only list assets of this resource type")
	return cmd
}
