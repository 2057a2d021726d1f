// Package vfslog implements the handling of diagnostic messages produced
// while loading and serving packs.
package vfslog

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

const bufferLinesMax = 500

// Buffer is the global ring-buffer of diagnostic lines, exposed for a
// dashboard or CLI subcommand to render.
var Buffer = newRing(bufferLinesMax)

// ring is a fixed-capacity ring-buffer of formatted log lines.
type ring struct {
	mu    sync.Mutex
	buf   []string
	index int
	full  bool
	size  int
}

func newRing(size int) *ring {
	return &ring{
		buf:  make([]string, size),
		size: size,
	}
}

func (r *ring) Size() int {
	return r.size
}

// Lines returns the buffered lines in chronological order.
func (r *ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]string, r.index)
		copy(out, r.buf[:r.index])

		return out
	}

	out := make([]string, r.size)
	copy(out, r.buf[r.index:])
	copy(out[r.size-r.index:], r.buf[:r.index])

	return out
}

func (r *ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = make([]string, r.size)
	r.index = 0
	r.full = false
}

func (r *ring) add(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.index] = strings.TrimSuffix(msg, "\n")
	r.index = (r.index + 1) % r.size
	if r.index == 0 {
		r.full = true
	}
}

// Sink implements vfs.DiagnosticSink: every Printf call is appended to the
// ring-buffer (with a timestamp) and also written to stderr via the
// standard log package, so a plain terminal session sees the same warnings
// a dashboard would.
type Sink struct{}

var _ interface {
	Printf(format string, args ...any)
} = Sink{}

// Printf formats msg, appends it to Buffer, and writes it to stderr.
func (Sink) Printf(format string, args ...any) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	msg := fmt.Sprintf(format, args...)
	full := fmt.Sprintf("%s %s", timestamp, msg)

	Buffer.add(full)
	log.Printf(format, args...)
}
