package main

import (
	"fmt"
	"strings"

	"github.com/desertwitch/qvfs/internal/vfs"
)

// openSinglePack loads the single archive at path into a fresh VFS and
// returns both, for the inspection subcommands (ls/stat/cat) that operate
// on one archive at a time rather than a full search-path mount.
func openSinglePack(path string) (*vfs.VFS, int, error) {
	v := vfs.New()

	id, err := v.LoadPack(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load %q: %w", path, err)
	}

	return v, id, nil
}

// buildSearchPaths interprets each CLI argument as either a directory (used
// as-is) or an archive file (loaded via LoadPack), producing the ordered
// search path that VFS.Open (internal/vfs/search.go) expects. Archives are searched before any
// directory that follows them, matching the order given on the command line.
func buildSearchPaths(v *vfs.VFS, args []string) ([]vfs.SearchPathEntry, error) {
	paths := make([]vfs.SearchPathEntry, 0, len(args))

	for i, a := range args {
		if isArchivePath(a) {
			id, err := v.LoadPack(a)
			if err != nil {
				return nil, fmt.Errorf("failed to load %q: %w", a, err)
			}

			paths = append(paths, vfs.SearchPathEntry{Kind: vfs.KindPack, PackID: id, PathID: i})

			continue
		}

		paths = append(paths, vfs.SearchPathEntry{Kind: vfs.KindDirectory, Directory: a, PathID: i})
	}

	return paths, nil
}

func isArchivePath(p string) bool {
	lower := strings.ToLower(p)

	return strings.HasSuffix(lower, ".pk3") || strings.HasSuffix(lower, ".zip") || strings.HasSuffix(lower, ".pak")
}
