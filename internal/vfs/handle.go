package vfs

import (
	"errors"
	"fmt"
	"io"
)

// Whence selects the reference point for Handle.Seek and Handle.IgnoreBytes,
// mirroring the stdlib io.Seeker constants so callers already familiar with
// them need nothing new.
type Whence int

const (
	SeekSet Whence = iota
	SeekCur
	SeekEnd
)

// backend is the vtable spec §4.5 describes: a dispatch bound once at
// Open and never mutated. All three archive-backed variants (PAK-stored,
// zip-stored, zip-deflated) and the loose variant share this shape.
//
// ReadAt reads from pos, a 0-based offset into the backend's own raw
// coordinate space (spec's "raw_size" origin — the start of the entry's
// payload, or of the loose file). Unlike a literal port of the original's
// explicit lseek-then-read, backends here take the position explicitly on
// every call: PAK-stored/zip-stored/loose are all naturally random-access
// (an *os.File ReadAt), and the one genuinely sequential backend
// (zip-deflated) reconciles an out-of-window position via the inflator's
// own Seek before reading. This removes the original design's split
// between "seek is free, just update offs" and "seek needs an OS call"
// without changing observable behavior: Handle itself never calls
// backend.ReadAt except at the position it wants, so there is no separate
// backend-level Seek to get out of sync.
type backend interface {
	ReadAt(buf []byte, pos int64) (int, error)
	Size() int64
	Close() error
}

// Handle is the unified, polymorphic handle of spec §4.5: a visible region
// [start, rawSize-endtrim) over whichever backend was bound at Open, with
// virtual trimming and seek-relative semantics layered on top.
type Handle struct {
	backend backend
	rawSize int64

	offs    int64 // logical position, 0-based over the visible region
	start   int64 // bytes hidden at front
	endtrim int64 // bytes hidden at back

	closed  bool
	metrics *Metrics // optional, for TotalHandlesClosed bookkeeping
}

// newHandle wraps b (whose Size() reports the backend's raw length) as a
// freshly opened Handle with no trimming. m may be nil.
func newHandle(b backend, m *Metrics) *Handle {
	return &Handle{backend: b, rawSize: b.Size(), metrics: m}
}

// visibleSize is raw - start - endtrim (spec's "visible_size").
func (h *Handle) visibleSize() int64 {
	return h.rawSize - h.start - h.endtrim
}

// Read clamps n so that offs+n never exceeds the visible end, then
// delegates to the backend. Per spec §9's open question, this clamps
// against visible_size (raw - start - endtrim), not merely raw - endtrim:
// the original QFS_ReadFile omits "+ start" from its clamp, which this
// reimplementation treats as the off-by-one bug spec §9 flags rather than
// behavior to preserve.
func (h *Handle) Read(buf []byte) (int, error) {
	if h.closed {
		return 0, ErrInvalidHandle
	}

	avail := h.visibleSize() - h.offs
	if avail <= 0 {
		return 0, io.EOF
	}

	n := int64(len(buf))
	if n > avail {
		n = avail
	}

	read, err := h.backend.ReadAt(buf[:n], h.start+h.offs)
	h.offs += int64(read)

	if read > 0 && h.metrics != nil {
		h.metrics.TotalBytesRead.Add(int64(read))
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return read, fmt.Errorf("vfs: read: %w", err)
	}

	return read, nil
}

// Seek computes the target position in raw coordinates per spec §4.5 and
// updates the logical offset on success. It fails if the target would lie
// outside [start, rawSize-endtrim].
func (h *Handle) Seek(off int64, whence Whence) error {
	if h.closed {
		return ErrInvalidHandle
	}

	var target int64

	switch whence {
	case SeekSet:
		target = h.start + off
	case SeekCur:
		target = h.start + h.offs + off
	case SeekEnd:
		target = h.rawSize - h.endtrim + off
	default:
		return fmt.Errorf("vfs: seek: invalid whence %d", whence)
	}

	if target < h.start || target > h.rawSize-h.endtrim {
		return fmt.Errorf("vfs: seek: target %d outside visible window [%d,%d]", target, h.start, h.rawSize-h.endtrim)
	}

	h.offs = target - h.start

	return nil
}

// Tell returns the current logical position, 0-based from start.
func (h *Handle) Tell() int64 {
	return h.offs
}

// Size returns the visible size (raw - start - endtrim).
func (h *Handle) Size() int64 {
	return h.visibleSize()
}

// Eof reports whether the handle has reached (or passed) the visible end.
func (h *Handle) Eof() bool {
	return h.offs >= h.visibleSize()
}

// IgnoreBytes sets virtual trimming. whence == SeekSet sets start = cut
// (cut == 0 resets both start and endtrim to zero, per spec §4.5's special
// case); whence == SeekEnd sets endtrim = cut. If offs now lies outside the
// new visible window, it is clamped to the nearest boundary.
func (h *Handle) IgnoreBytes(cut int64, whence Whence) error {
	if h.closed {
		return ErrInvalidHandle
	}

	switch whence {
	case SeekSet:
		if cut == 0 {
			h.start = 0
			h.endtrim = 0
		} else {
			if cut > h.rawSize-h.endtrim {
				return fmt.Errorf("vfs: ignore_bytes: cut %d exceeds raw-endtrim", cut)
			}
			h.start = cut
		}
	case SeekEnd:
		h.endtrim = cut
	default:
		return fmt.Errorf("vfs: ignore_bytes: invalid whence %d", whence)
	}

	if h.offs < 0 {
		h.offs = 0
	}
	if h.offs > h.visibleSize() {
		h.offs = h.visibleSize()
	}

	return nil
}

// GetChar reads a single byte, returning ('\x00', false) on EOF — matching
// spec §9's preserved contract that callers must consult the bool (or
// Eof()) to distinguish EOF from an embedded NUL.
func (h *Handle) GetChar() (byte, bool) {
	var b [1]byte

	n, err := h.Read(b[:])
	if n == 0 || err != nil {
		return 0, false
	}

	return b[0], true
}

// GetLine reads a line into buf, dropping '\r', stopping at (and not
// including) '\n', and always NUL-terminating within buf's capacity.
// The returned string is truncated at len(buf)-1 visible characters if no
// newline is found first. The bool reports whether any character
// (including one from a final, unterminated line) was read.
func (h *Handle) GetLine(buf []byte) (string, bool) {
	if len(buf) == 0 {
		return "", false
	}

	i := 0

	for i < len(buf)-1 {
		c, ok := h.GetChar()
		if !ok {
			break
		}
		if c == '\r' {
			continue
		}
		if c == '\n' {
			buf[i] = 0

			return string(buf[:i]), true
		}

		buf[i] = c
		i++
	}

	buf[i] = 0

	return string(buf[:i]), i > 0
}

// Close releases the backend and marks the handle invalid for further use.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}

	h.closed = true

	if h.metrics != nil {
		h.metrics.TotalHandlesClosed.Add(1)
	}

	return h.backend.Close()
}
