package vfs

import (
	"fmt"
	"os"
)

// byteSource is the narrow interface component A provides: a positioned
// read over an OS file. It is the only abstraction in this package that
// touches the OS directly; everything above it (PAK/PK3 parsing, the
// unified handle) goes through byteSource so that cloned ("reopen")
// backends only need to swap out this one thing.
//
// Short reads against archive-internal regions (directory, local headers)
// are always treated by the caller as corruption; short reads surfaced to
// VFS clients (end of an entry's payload) are ordinary EOF.
type byteSource interface {
	ReadAt(off int64, buf []byte) (int, error)
	Size() (int64, error)
	Close() error
}

// fileSource is the byteSource backed by an *os.File.
type fileSource struct {
	f *os.File
}

// openFileSource opens path for reading and wraps it as a byteSource.
func openFileSource(path string) (*fileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vfs: open %q: %w", path, err)
	}

	return &fileSource{f: f}, nil
}

// cloneFileSource opens an independent *os.File on the same path, used by
// the handle reopen/clone path (spec §4.6) so that a cloned handle never
// shares an OS file position with the pack it was cloned from.
func cloneFileSource(path string) (*fileSource, error) {
	return openFileSource(path)
}

func (s *fileSource) ReadAt(off int64, buf []byte) (int, error) {
	return s.f.ReadAt(buf, off) //nolint:wrapcheck
}

func (s *fileSource) Size() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("vfs: stat %q: %w", s.f.Name(), err)
	}

	return info.Size(), nil
}

func (s *fileSource) Close() error {
	return s.f.Close() //nolint:wrapcheck
}

// Name returns the OS path backing this source, for diagnostics.
func (s *fileSource) Name() string {
	return s.f.Name()
}
