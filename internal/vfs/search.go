package vfs

import (
	"fmt"
	"os"
	"path"
	"strings"
)

// SearchPathKind distinguishes the two kinds of mount point the
// externally-supplied search path may contain (spec §6).
type SearchPathKind int

const (
	KindDirectory SearchPathKind = iota
	KindPack
)

// SearchPathEntry is one externally-supplied mount point (spec §6's
// "search-path iterator" collaborator interface): either a loaded pack or
// a plain directory. PathID is opaque provenance, propagated through to
// Open's caller but never interpreted by this package.
type SearchPathEntry struct {
	Kind       SearchPathKind
	PackID     int
	Directory  string
	PathID     int
	Restricted bool
}

// FileProbe is the "filesystem probe" collaborator of spec §6: is this
// path a regular file? Implemented by callers; osProbe below is the
// default backed by the real filesystem.
type FileProbe interface {
	IsRegularFile(path string) bool
}

// DiagnosticSink is spec §6's "printf-style log lines for warnings"
// collaborator.
type DiagnosticSink interface {
	Printf(format string, args ...any)
}

type osProbe struct{}

func (osProbe) IsRegularFile(p string) bool {
	info, err := os.Stat(p)

	return err == nil && info.Mode().IsRegular()
}

type nopSink struct{}

func (nopSink) Printf(string, ...any) {}

// VFS ties the pack registry, options, metrics, and a search-path walk
// together as the "Search & open front-end" (component G) plus the
// exposed collaborator interfaces of spec §6 (LoadPack/FreePack/...).
type VFS struct {
	Registry *Registry
	Options  *Options
	Metrics  *Metrics
	Probe    FileProbe
	Log      DiagnosticSink
}

// New returns a VFS with fresh registry/options/metrics and OS-backed
// defaults for its collaborators.
func New() *VFS {
	m := &Metrics{}

	return &VFS{
		Registry: NewRegistry(m),
		Options:  NewOptions(),
		Metrics:  m,
		Probe:    osProbe{},
		Log:      nopSink{},
	}
}

// LoadPack implements spec §6's load_pack: detects PK3 by a case-insensitive
// ".pk3" (or ".zip", a common real-world alias for the same format) file
// extension, falling back to PAK otherwise, parses the archive, and
// registers it. It returns pack id 0 alongside an error for a soft load
// failure (spec §7 kind 2); a FatalError is returned unaltered for
// corruption (spec §7 kind 3) so the caller can decide to terminate.
func (v *VFS) LoadPack(osPath string) (int, error) {
	var (
		pack *Pack
		err  error
	)

	if isPK3Extension(osPath) {
		pack, err = openPK3(osPath, v.Options)
	} else {
		pack, err = openPAK(osPath, v.Options)
	}

	if err != nil {
		if IsFatal(err) {
			return 0, err
		}

		v.Log.Printf("warning: failed to load pack %q: %v\n", osPath, err)

		return 0, err
	}

	id := v.Registry.Register(pack)
	if id == 0 {
		v.Log.Printf("warning: pack registry full, could not register %q\n", osPath)

		return 0, ErrRegistryFull
	}

	return id, nil
}

func isPK3Extension(p string) bool {
	ext := strings.ToLower(path.Ext(p))

	return ext == ".pk3" || ext == ".zip"
}

// FreePack detaches and destroys the pack registered under id.
func (v *VFS) FreePack(id int) { v.Registry.Free(id) }

// Shutdown destroys every registered pack.
func (v *VFS) Shutdown() { v.Registry.Shutdown() }

// PackName, PackNumFiles, PackEntryName, and PackEntrySize implement
// spec §6's exposed introspection collaborators.
func (v *VFS) PackName(id int) string { return v.Registry.Name(id) }

func (v *VFS) PackNumFiles(id int) int {
	p, ok := v.Registry.Lookup(id, false)
	if !ok {
		return 0
	}

	return p.NumFiles()
}

func (v *VFS) PackEntryName(id int, idx int) string {
	p, ok := v.Registry.Lookup(id, false)
	if !ok {
		return ""
	}

	return p.EntryName(idx)
}

func (v *VFS) PackEntrySize(id int, idx int) int64 {
	p, ok := v.Registry.Lookup(id, false)
	if !ok {
		return -1
	}

	return p.EntrySize(idx)
}

// Open implements spec §4.5/§4.8: walk paths in order, return the first
// match as an open Handle plus its declared size, or ErrNotFound. reopen
// selects the cross-thread-safe clone path of spec §4.6 for pack hits;
// it has no effect on directory hits, which always open an independent
// *os.File already.
func (v *VFS) Open(paths []SearchPathEntry, name string, reopen bool) (*Handle, int64, error) {
	for _, entry := range paths {
		switch entry.Kind {
		case KindPack:
			p, ok := v.Registry.Lookup(entry.PackID, false)
			if !ok {
				continue
			}

			idx, hit := p.findEntry(name)
			if !hit {
				continue
			}

			h, err := openEntry(p, idx, reopen, v.Registry, v.Metrics)
			if err != nil {
				return nil, -1, err
			}

			if v.Metrics != nil {
				v.Metrics.TotalHandlesOpened.Add(1)
			}

			return h, p.entries[idx].Filelen, nil

		case KindDirectory:
			if entry.Restricted && (strings.Contains(name, "/") || strings.Contains(name, "\\")) {
				continue
			}

			full := joinPath(entry.Directory, name)
			if !v.Probe.IsRegularFile(full) {
				continue
			}

			b, err := openLooseBackend(full)
			if err != nil {
				v.Log.Printf("warning: could not open %q: %v\n", full, err)

				continue
			}

			h := newHandle(b, v.Metrics)
			if v.Metrics != nil {
				v.Metrics.TotalHandlesOpened.Add(1)
			}

			return h, b.size, nil

		default:
			return nil, -1, fmt.Errorf("vfs: unknown search path kind %d", entry.Kind)
		}
	}

	return nil, -1, ErrNotFound
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}

	return strings.TrimSuffix(dir, "/") + "/" + name
}
