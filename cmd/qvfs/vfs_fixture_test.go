package main

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/desertwitch/qvfs/internal/vfs"
)

const (
	pakHeaderSize = 12
	pakDirentSize = 64
	pakDirentName = 56
)

func newTestVFS(t *testing.T) *vfs.VFS {
	t.Helper()

	v := vfs.New()
	t.Cleanup(v.Shutdown)

	return v
}

// writeMinimalPAK writes a single-entry, valid PAK (pakver 1) archive to
// path, for CLI helper tests that only need a pack to exist on disk.
func writeMinimalPAK(t *testing.T, path string) {
	t.Helper()

	payload := []byte("hello")

	nameBuf := make([]byte, pakDirentName)
	copy(nameBuf, "a.txt")

	dir := make([]byte, pakDirentSize)
	copy(dir, nameBuf)
	binary.LittleEndian.PutUint32(dir[pakDirentName:], pakHeaderSize)
	binary.LittleEndian.PutUint32(dir[pakDirentName+4:], uint32(len(payload))) //nolint:gosec

	dirofs := pakHeaderSize + len(payload)

	out := make([]byte, 0, dirofs+len(dir))
	out = append(out, 'P', 'A', 'C', 'K')

	ofsBuf := make([]byte, 4)
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(ofsBuf, uint32(dirofs))   //nolint:gosec
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(dir))) //nolint:gosec

	out = append(out, ofsBuf...)
	out = append(out, lenBuf...)
	out = append(out, payload...)
	out = append(out, dir...)

	require.NoError(t, os.WriteFile(path, out, 0o644))
}
