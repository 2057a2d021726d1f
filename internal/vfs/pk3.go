package vfs

import (
	"fmt"
	"math"

	"github.com/klauspost/compress/zip"
)

// zipUTF8Flag is general-purpose bit 11 (0x0800): when set, the entry name
// is already UTF-8 and must be passed through unchanged (spec §4.3/§6).
const zipUTF8Flag = 0x0800

// openPK3 parses a PK3 (pakver 3) archive at path, per spec §4.3. It opens
// the embedded zip reader over the file's full length, enumerates central
// directory entries, skips directories, rejects oversized entries as
// fatal, and normalizes each name.
func openPK3(path string, opts *Options) (*Pack, error) {
	src, err := openFileSource(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	size, err := src.Size()
	if err != nil {
		_ = src.Close()

		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	zr, err := zip.NewReader(src.f, size)
	if err != nil {
		_ = src.Close()

		return nil, fmt.Errorf("%w: not a valid zip archive: %w", ErrLoadFailed, err)
	}

	forceUnicode := opts != nil && opts.ForceUnicode.Load()

	entries := make([]PackEntry, 0, len(zr.File))

	for idx, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		if f.UncompressedSize64 > math.MaxInt32 {
			_ = src.Close()

			return nil, fatalf(KindBadDirectory, path, fmt.Sprintf("entry %q: uncompressed size exceeds INT_MAX", f.Name), nil)
		}

		switch f.Method {
		case zip.Store, zip.Deflate:
		default:
			_ = src.Close()

			return nil, fatalf(KindUnsupportedMethod, path, fmt.Sprintf("entry %q: method %d", f.Name, f.Method), nil)
		}

		name, err := normalizeZipName(f, idx, forceUnicode)
		if err != nil {
			_ = src.Close()

			return nil, err
		}

		entries = append(entries, PackEntry{
			Name:    name,
			Filepos: int64(idx),
			Filelen: int64(f.UncompressedSize64),
		})
	}

	if len(entries) == 0 {
		_ = src.Close()

		return nil, fmt.Errorf("%w: empty archive", ErrLoadFailed)
	}

	return &Pack{
		Filename: path,
		PakVer:   3,
		src:      src,
		zr:       zr,
		entries:  entries,
		opts:     opts,
	}, nil
}

// normalizeZipName implements spec §4.3's filename normalization: if
// general-purpose bit 11 is clear and the name contains a byte >= 0x80,
// reinterpret it as IBM437 and transcode to UTF-8; if the transcoded form
// overflows MAX_QPATH, fall back to the raw bytes (best-effort) unless
// forceUnicode demands a guaranteed-fitting name, in which case a
// deterministic index-based name is generated instead. A name that still
// would not fit MAX_QPATH is fatal.
func normalizeZipName(f *zip.File, idx int, forceUnicode bool) (string, error) {
	raw := []byte(f.Name)
	name := f.Name

	if f.Flags&zipUTF8Flag == 0 && hasHighByte(raw) {
		transcoded := decodeIBM437(raw)

		switch {
		case len(transcoded) < MaxQPath:
			name = transcoded
		case forceUnicode:
			name = fmt.Sprintf("entry_%d%s", idx, extOf(transcoded))
		default:
			name = f.Name // best-effort: retain raw bytes
		}
	}

	if len(name) >= MaxQPath {
		return "", fatalf(KindNameOverflow, f.Name, fmt.Sprintf("normalized name %q exceeds MAX_QPATH", name), nil)
	}

	return name, nil
}

// extOf returns the filepath-style extension (including the dot) of name,
// or "" if there is none. It is used only to keep generated salvage names
// recognizable by file type.
func extOf(name string) string {
	for i := len(name) - 1; i >= 0 && name[i] != '/'; i-- {
		if name[i] == '.' {
			return name[i:]
		}
	}

	return ""
}
