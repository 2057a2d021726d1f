package main

import (
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve <archive-or-dir>...",
		Short: "build a multi-path search front-end and serve its diagnostics dashboard",
		Long: `serve is equivalent to "mount --dashboard <addr>": it builds the search
path from the given archives/directories and serves the diagnostics
dashboard until interrupted (Ctrl-C).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(cmd, args, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to serve the diagnostics dashboard on")

	return cmd
}
