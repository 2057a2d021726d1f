package vfs

import (
	"errors"
	"io"

	"github.com/klauspost/compress/flate"
)

const (
	// ioBufSize is the fixed capacity of the inflator's output buffer
	// ("outbuf" in spec §3/§4.7); the input buffer is capped at half of
	// this (or the whole compressed stream, if shorter).
	ioBufSize = 32 * 1024
)

// inflateInput is the fixed-capacity input buffer (spec's "inbuf") that
// feeds klauspost/compress/flate's decoder. It is the only thing that
// issues positioned reads against the pack's backing file for a deflated
// entry, so it is also where foffsIn ("bytes consumed from compressed
// stream") is tracked — the observable quantity spec §8 wants unaffected
// by in-buffer seeks.
type inflateInput struct {
	src      byteSource
	path     string // for error messages
	base     int64  // absolute file offset where compressed data begins
	compSize int64

	buf      []byte // fixed capacity
	readszIn int    // valid bytes currently in buf
	pIn      int    // consumed count within buf

	foffsIn int64 // total compressed bytes consumed from the stream
}

func newInflateInput(src byteSource, path string, base, compSize int64) *inflateInput {
	bufCap := compSize
	if bufCap > ioBufSize/2 {
		bufCap = ioBufSize / 2
	}
	if bufCap <= 0 {
		bufCap = 1
	}

	return &inflateInput{
		src:      src,
		path:     path,
		base:     base,
		compSize: compSize,
		buf:      make([]byte, bufCap),
	}
}

// Read implements io.Reader, and is the sole callback klauspost/compress/flate
// uses to pull compressed bytes. A short read against this archive-interior
// region is always fatal corruption (spec §4.1), never ordinary EOF.
func (in *inflateInput) Read(p []byte) (int, error) {
	if in.pIn >= in.readszIn {
		remaining := in.compSize - in.foffsIn
		if remaining <= 0 {
			return 0, io.EOF
		}

		want := int64(len(in.buf))
		if want > remaining {
			want = remaining
		}

		n, err := in.src.ReadAt(in.base+in.foffsIn, in.buf[:want])
		if int64(n) != want {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}

			return 0, fatalf(KindTruncated, in.path, "short read of deflated payload", err)
		}

		in.readszIn = n
		in.pIn = 0
		in.foffsIn += int64(n)
	}

	n := copy(p, in.buf[in.pIn:in.readszIn])
	in.pIn += n

	return n, nil
}

func (in *inflateInput) reset() {
	in.readszIn = 0
	in.pIn = 0
	in.foffsIn = 0
}

// inflator is the streaming inflator of spec §4.7 (component E): a
// seekable view over a deflated zip entry, built on two fixed buffers and
// a restart-on-backward-seek policy, since DEFLATE itself is not randomly
// addressable.
type inflator struct {
	in  *inflateInput
	dec io.ReadCloser // klauspost/compress/flate decoder

	outbuf     []byte // fixed capacity ioBufSize ("outbuf")
	pOut       int    // produced count in outbuf
	outReadPtr int    // consumed count in outbuf

	foffsOut int64 // total decompressed bytes produced
	eof      bool

	metrics *Metrics
}

// newInflator constructs an inflator for a deflated entry whose compressed
// payload begins at absolute file offset base and spans compSize bytes.
func newInflator(src byteSource, path string, base, compSize int64, m *Metrics) *inflator {
	in := newInflateInput(src, path, base, compSize)

	return &inflator{
		in:      in,
		dec:     flate.NewReader(in),
		outbuf:  make([]byte, ioBufSize),
		metrics: m,
	}
}

// offs returns the inflator's logical stream position (spec §3 invariant:
// offs = foffs_out - (p_out - out_read_ptr)).
func (z *inflator) offs() int64 {
	return z.foffsOut - int64(z.pOut-z.outReadPtr)
}

// windowStart returns the logical position corresponding to the start of
// the currently-buffered output window.
func (z *inflator) windowStart() int64 {
	return z.foffsOut - int64(z.pOut)
}

// Read implements spec §4.7's read loop, returning up to len(buf) bytes.
func (z *inflator) Read(buf []byte) (int, error) {
	return z.readOrDiscard(buf, int64(len(buf)))
}

// discard advances the logical stream by n bytes without copying them
// anywhere, implementing spec §4.7's "passing buf = NULL" fast-forward
// path, used by Seek for forward moves and for the backward-seek restart.
func (z *inflator) discard(n int64) error {
	_, err := z.readOrDiscard(nil, n)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// readOrDiscard is the shared engine behind Read and discard. When buf is
// non-nil, up to n bytes (n == len(buf)) are copied into it; when buf is
// nil, n bytes are consumed from the stream and discarded.
func (z *inflator) readOrDiscard(buf []byte, n int64) (int64, error) {
	var produced int64

	for {
		if z.pOut > z.outReadPtr || z.eof {
			avail := int64(z.pOut - z.outReadPtr)
			want := n - produced
			if want > avail {
				want = avail
			}

			if want > 0 {
				if buf != nil {
					copy(buf[produced:produced+want], z.outbuf[z.outReadPtr:int64(z.outReadPtr)+want])
				}
				z.outReadPtr += int(want)
				produced += want
			}

			if z.outReadPtr == z.pOut {
				z.pOut, z.outReadPtr = 0, 0
			}

			if produced == n {
				return produced, nil
			}

			if z.pOut == 0 && z.eof {
				if produced > 0 {
					return produced, nil
				}

				return 0, io.EOF
			}
		}

		read, err := z.dec.Read(z.outbuf[z.pOut:])
		if read > 0 {
			z.pOut += read
			z.foffsOut += int64(read)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				z.eof = true

				continue
			}

			return produced, fatalf(KindInflateFailed, z.in.path, "decoder error", err)
		}
	}
}

// Seek repositions the inflator to pos, the absolute logical offset within
// the decompressed stream, per the three cases of spec §4.7.
func (z *inflator) Seek(pos int64) error {
	start := z.windowStart()

	switch {
	case pos >= start && pos <= start+int64(z.pOut):
		// In-window: O(1) adjustment only.
		z.outReadPtr = int(pos - start)

		return nil

	case pos > z.offs():
		return z.discard(pos - z.offs())

	default:
		// Backward seek: restart the decoder from byte zero, an
		// O(pos) operation since DEFLATE is not randomly addressable.
		if z.metrics != nil {
			z.metrics.TotalInflateRestarts.Add(1)
		}

		z.in.reset()
		_ = z.dec.Close()
		z.dec = flate.NewReader(z.in)
		z.pOut, z.outReadPtr = 0, 0
		z.foffsOut = 0
		z.eof = false

		if pos == 0 {
			return nil
		}

		return z.discard(pos)
	}
}

func (z *inflator) Close() error {
	return z.dec.Close() //nolint:wrapcheck
}
