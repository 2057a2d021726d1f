package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/desertwitch/qvfs/internal/diagnostics"
	"github.com/desertwitch/qvfs/internal/vfs"
	"github.com/desertwitch/qvfs/internal/vfslog"
)

const stackTraceBuffer = 1 << 24

func newMountCmd() *cobra.Command {
	var dashboardAddr string

	cmd := &cobra.Command{
		Use:   "mount <archive-or-dir>...",
		Short: "build a multi-path search front-end and hold it open",
		Long: `mount loads every archive and registers every directory given on
the command line, in order, into one search path. It then blocks, keeping
the packs open, until interrupted (Ctrl-C).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(cmd, args, dashboardAddr)
		},
	}

	cmd.Flags().StringVar(&dashboardAddr, "dashboard", "", "address to serve the diagnostics dashboard on (e.g. :8080); disabled if empty")

	return cmd
}

// runResident builds the search path from args, optionally starts the
// diagnostics dashboard, and blocks until SIGINT/SIGTERM is received.
// SIGUSR1 dumps a goroutine stacktrace to stderr, for debugging a stuck
// process without killing it.
func runResident(cmd *cobra.Command, args []string, dashboardAddr string) error {
	v := vfs.New()
	defer v.Shutdown()

	paths, err := buildSearchPaths(v, args)
	if err != nil {
		return err
	}

	vfslog.Sink{}.Printf("qvfs %s: resident search path ready (%d entries)", Version, len(paths))

	var srv interface{ Close() error }

	if dashboardAddr != "" {
		d, err := diagnostics.New(v, vfslog.Buffer, Version)
		if err != nil {
			return fmt.Errorf("failed to build dashboard: %w", err)
		}

		srv = d.Serve(dashboardAddr)
		fmt.Fprintf(cmd.OutOrStdout(), "dashboard listening on %s\n", dashboardAddr)
	}

	if srv != nil {
		defer srv.Close() //nolint:errcheck
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	sigUsr1 := make(chan os.Signal, 1)
	signal.Notify(sigUsr1, syscall.SIGUSR1)

	for {
		select {
		case <-sig:
			vfslog.Sink{}.Printf("signal received, shutting down")

			return nil
		case <-sigUsr1:
			buf := make([]byte, stackTraceBuffer)
			n := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:n]) //nolint:errcheck
		}
	}
}
