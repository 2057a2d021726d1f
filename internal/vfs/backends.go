package vfs

import (
	"io"
)

var (
	_ backend = (*looseBackend)(nil)
	_ backend = (*packStoredBackend)(nil)
	_ backend = (*zipDeflatedBackend)(nil)
)

// looseBackend (spec §4.6 "Loose") reads directly against an OS file via
// positioned reads; it never touches the file's seek cursor, so it needs
// no internal position tracking of its own.
type looseBackend struct {
	src  *fileSource
	size int64
}

func openLooseBackend(path string) (*looseBackend, error) {
	src, err := openFileSource(path)
	if err != nil {
		return nil, err
	}

	size, err := src.Size()
	if err != nil {
		_ = src.Close()

		return nil, err
	}

	return &looseBackend{src: src, size: size}, nil
}

func (b *looseBackend) ReadAt(buf []byte, pos int64) (int, error) {
	if pos >= b.size {
		return 0, io.EOF
	}

	n, err := b.src.ReadAt(pos, buf)
	if err != nil && n == 0 {
		return 0, err
	}

	return n, nil
}

func (b *looseBackend) Size() int64 { return b.size }
func (b *looseBackend) Close() error { return b.src.Close() }

// packStoredBackend serves spec §4.6's "PAK-stored" and "zip-stored"
// (method 0) cases, which are identical once payloadOffset has been
// resolved: a positioned read of pack.src at payloadOffset+pos, clamped to
// filelen. releasePack, when non-nil, is called on Close to relinquish
// whatever claim this handle holds on pack — either destroying an
// exclusively-owned clone outright, or dropping one reference to a shared,
// cached reopen clone (see Registry.acquireReopenClone).
type packStoredBackend struct {
	pack          *Pack
	releasePack   func() error
	payloadOffset int64
	filelen       int64
}

func (b *packStoredBackend) ReadAt(buf []byte, pos int64) (int, error) {
	if pos >= b.filelen {
		return 0, io.EOF
	}

	avail := b.filelen - pos
	if int64(len(buf)) > avail {
		buf = buf[:avail]
	}

	n, err := b.pack.src.ReadAt(b.payloadOffset+pos, buf)
	if err != nil && n < len(buf) {
		return n, fatalf(KindIO, b.pack.Filename, "positioned read failed", err)
	}

	return n, nil
}

func (b *packStoredBackend) Size() int64 { return b.filelen }

func (b *packStoredBackend) Close() error {
	if b.releasePack != nil {
		return b.releasePack()
	}

	return nil
}

// zipDeflatedBackend serves spec §4.6's "zip-deflated" (method 8) case,
// wrapping the streaming inflator (component E).
type zipDeflatedBackend struct {
	pack        *Pack
	releasePack func() error
	z           *inflator
	filelen     int64
}

func (b *zipDeflatedBackend) ReadAt(buf []byte, pos int64) (int, error) {
	if pos >= b.filelen {
		return 0, io.EOF
	}

	if pos != b.z.offs() {
		if err := b.z.Seek(pos); err != nil {
			return 0, err
		}
	}

	avail := b.filelen - pos
	if int64(len(buf)) > avail {
		buf = buf[:avail]
	}

	return b.z.Read(buf) //nolint:wrapcheck
}

func (b *zipDeflatedBackend) Size() int64 { return b.filelen }

func (b *zipDeflatedBackend) Close() error {
	_ = b.z.Close()

	if b.releasePack != nil {
		return b.releasePack()
	}

	return nil
}
