package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <archive>",
		Short: "list the entries of a PAK or PK3 archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, id, err := openSinglePack(args[0])
			if err != nil {
				return err
			}
			defer v.Shutdown()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush() //nolint:errcheck

			n := v.PackNumFiles(id)
			for i := range n {
				fmt.Fprintf(w, "%s\t%s\n", v.PackEntryName(id, i), humanize.IBytes(uint64(v.PackEntrySize(id, i)))) //nolint:gosec
			}

			return nil
		},
	}
}
