package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/desertwitch/qvfs/internal/vfs"
)

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <archive> <entry>",
		Short: "stream a single archive entry to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, name := args[0], args[1]

			v, id, err := openSinglePack(archive)
			if err != nil {
				return err
			}
			defer v.Shutdown()

			paths := []vfs.SearchPathEntry{{Kind: vfs.KindPack, PackID: id}}

			h, _, err := v.Open(paths, name, false)
			if err != nil {
				return fmt.Errorf("failed to open %q in %q: %w", name, archive, err)
			}
			defer h.Close() //nolint:errcheck

			buf := make([]byte, 64*1024)
			for {
				n, err := h.Read(buf)
				if n > 0 {
					if _, werr := cmd.OutOrStdout().Write(buf[:n]); werr != nil {
						return werr
					}
				}
				if err != nil {
					if err == io.EOF { //nolint:errorlint
						return nil
					}

					return fmt.Errorf("failed to read %q: %w", name, err)
				}
			}
		},
	}
}
