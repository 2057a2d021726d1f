package vfs

import (
	"encoding/binary"
	"fmt"
)

const (
	// MaxQPath is the maximum logical path length, terminator included.
	MaxQPath = 64
	// MaxFilesInPack is the hard limit on PAK directory entries (spec §4.2).
	MaxFilesInPack = 2048
	// MaxPackFiles is the registry's fixed slot capacity (spec §3).
	MaxPackFiles = 32

	pakHeaderSize = 12
	pakDirentSize = 64
	pakDirentName = 56
)

var pakMagic = [4]byte{'P', 'A', 'C', 'K'}

// openPAK parses a PAK (pakver 1) archive at path, per spec §4.2, and
// returns the assembled *Pack. Bad magic is fatal; a directory that is
// absent or whose size makes no sense is also fatal, since a PAK file
// without a valid header is never a "soft" miss — the caller already
// decided (by extension sniffing) that this file is a PAK. An empty,
// well-formed directory is a soft load failure, per spec §4.2.
func openPAK(path string, opts *Options) (*Pack, error) {
	src, err := openFileSource(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	hdr := make([]byte, pakHeaderSize)
	if _, err := src.ReadAt(0, hdr); err != nil {
		_ = src.Close()

		return nil, fatalf(KindTruncated, path, "short read of header", err)
	}

	if [4]byte(hdr[0:4]) != pakMagic {
		_ = src.Close()

		return nil, fatalf(KindBadMagic, path, "missing PACK signature", nil)
	}

	dirofs := int32(binary.LittleEndian.Uint32(hdr[4:8]))
	dirlen := int32(binary.LittleEndian.Uint32(hdr[8:12]))

	if dirofs < 0 || dirlen < 0 {
		_ = src.Close()

		return nil, fatalf(KindBadDirectory, path, fmt.Sprintf("dirofs=%d dirlen=%d", dirofs, dirlen), nil)
	}

	numfiles := int(dirlen) / pakDirentSize
	if opts != nil && opts.StrictPAKLimits.Load() && numfiles > MaxFilesInPack {
		_ = src.Close()

		return nil, fatalf(KindBadDirectory, path, fmt.Sprintf("numfiles=%d exceeds limit", numfiles), nil)
	}

	if numfiles == 0 {
		_ = src.Close()

		return nil, fmt.Errorf("%w: empty directory", ErrLoadFailed)
	}

	dir := make([]byte, dirlen)
	if _, err := src.ReadAt(int64(dirofs), dir); err != nil {
		_ = src.Close()

		return nil, fatalf(KindTruncated, path, "short read of directory", err)
	}

	entries := make([]PackEntry, 0, numfiles)

	for i := range numfiles {
		rec := dir[i*pakDirentSize : (i+1)*pakDirentSize]

		name := parseDirentName(rec[:pakDirentName])
		filepos := int32(binary.LittleEndian.Uint32(rec[pakDirentName : pakDirentName+4]))
		filelen := int32(binary.LittleEndian.Uint32(rec[pakDirentName+4 : pakDirentName+8]))

		if filepos < 0 || filelen < 0 {
			_ = src.Close()

			return nil, fatalf(KindBadDirectory, path, fmt.Sprintf("entry %d: negative filepos/filelen", i), nil)
		}

		entries = append(entries, PackEntry{
			Name:    name,
			Filepos: int64(filepos),
			Filelen: int64(filelen),
		})
	}

	return &Pack{
		Filename: path,
		PakVer:   1,
		src:      src,
		entries:  entries,
		opts:     opts,
	}, nil
}

// parseDirentName copies a NUL-padded, length-bounded PAK directory entry
// name, truncating at the fixed 56-byte field width.
func parseDirentName(raw []byte) string {
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}

	return string(raw[:n])
}
