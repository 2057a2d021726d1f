package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <archive> <entry>",
		Short: "print the name, containing pack, and size of a single archive entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, name := args[0], args[1]

			v, id, err := openSinglePack(archive)
			if err != nil {
				return err
			}
			defer v.Shutdown()

			n := v.PackNumFiles(id)
			for i := range n {
				if v.PackEntryName(id, i) != name {
					continue
				}

				fmt.Fprintf(cmd.OutOrStdout(), "name:  %s\n", name)
				fmt.Fprintf(cmd.OutOrStdout(), "pack:  %s\n", v.PackName(id))
				fmt.Fprintf(cmd.OutOrStdout(), "size:  %s (%d bytes)\n", humanize.IBytes(uint64(v.PackEntrySize(id, i))), v.PackEntrySize(id, i)) //nolint:gosec

				return nil
			}

			return fmt.Errorf("entry %q not found in %q", name, archive)
		},
	}
}
