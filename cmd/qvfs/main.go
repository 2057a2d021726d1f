/*
qvfs is a read-only virtual file system CLI that unifies loose files, PAK
archives, and PK3 (zip) archives behind a single handle abstraction. It
offers inspection (ls/stat/cat) of a single archive as well as a mounted
multi-path search front-end (mount/serve) with a diagnostics dashboard.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the program version ("dev" unless set at link time with
// -ldflags "-X main.Version=...").
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "qvfs",
		Short:   "inspect and serve a unified virtual file system of loose files, PAK, and PK3 archives",
		Version: Version,
		Long: `qvfs unifies loose files on disk, concatenated PAK archives, and DEFLATE
PK3 (zip) archives behind a single read-oriented handle abstraction.

When serving (mount/serve), the following routes are exposed by the
diagnostics dashboard:
  "/"             pack-registry dashboard and event log
  "/metrics.json" the same data, as JSON
  "/packs/{id}"   entry listing for a loaded pack
  "/gc"           force a garbage collection run
  "/reset"        reset the running metrics`,
		SilenceUsage: true,
	}

	root.AddCommand(newLsCmd())
	root.AddCommand(newStatCmd())
	root.AddCommand(newCatCmd())
	root.AddCommand(newMountCmd())
	root.AddCommand(newServeCmd())

	return root
}
