package vfs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/klauspost/compress/zip"
)

const (
	// reopenCacheTTL bounds how long a reopen-cloned Pack may sit idle
	// before the cache considers it stale and releases it.
	reopenCacheTTL = 30 * time.Second
	// reopenCacheCapacity caps how many distinct packs may have a warm
	// reopen clone cached at once; beyond this, the least-recently-used
	// entry is evicted to make room.
	reopenCacheCapacity = 8
)

// PackEntry is one named resource inside a pack (spec §3). For PAK
// archives, Filepos is the absolute byte offset of the entry's payload.
// For PK3 archives, Filepos is the index of the entry in the pack's zip
// reader's File slice, and Filelen is the uncompressed size.
type PackEntry struct {
	Name    string
	Filepos int64
	Filelen int64
}

// Pack is a loaded archive (spec §3): a backing byte source, an ordered,
// read-only entry table, and — for PK3 — the zip reader used to resolve
// entries and to drive the streaming inflator.
type Pack struct {
	Filename string
	PakVer   int // 1 = PAK, 3 = PK3
	ID       int // registry slot, 0 = unregistered

	src     *fileSource
	entries []PackEntry
	zr      *zip.Reader // only set when PakVer == 3
	opts    *Options    // the Options this pack was opened with, carried for read-time knobs

	// cloned marks a Pack produced by cloneForReopen: it owns an
	// independent backing file (and, for PK3, an independent zip
	// reader), but shares the (read-only, immutable) entries slice with
	// the Pack it was cloned from. Go's garbage collector resolves the
	// "don't free entries twice" hazard the original C design has to
	// track explicitly (spec §9 open question): the slice header is
	// just a reference, and the backing array is freed once nothing
	// points at it anymore, clone or original alike.
	cloned bool

	// refs is only meaningful for a cloned Pack held in the registry's
	// reopen cache: the cache itself holds one ref, and every concurrent
	// reopen=true handle bound to this clone holds another, grounded on
	// the teacher's zipReader.Acquire/Release pattern (internal/filesystem
	// readers.go) generalized to a whole Pack rather than a single stream.
	refs atomic.Int32
}

// acquire adds a reference to a cached reopen clone.
func (p *Pack) acquire() { p.refs.Add(1) }

// release drops a reference to a cached reopen clone, closing it once the
// last reference (cache eviction or final handle) is gone.
func (p *Pack) release() error {
	if p.refs.Add(-1) <= 0 {
		return p.close()
	}

	return nil
}

// NumFiles returns the number of entries in the pack.
func (p *Pack) NumFiles() int { return len(p.entries) }

// EntryName returns the name of the entry at idx, or "" if out of range.
func (p *Pack) EntryName(idx int) string {
	if idx < 0 || idx >= len(p.entries) {
		return ""
	}

	return p.entries[idx].Name
}

// EntrySize returns the declared length of the entry at idx, or -1 if out
// of range.
func (p *Pack) EntrySize(idx int) int64 {
	if idx < 0 || idx >= len(p.entries) {
		return -1
	}

	return p.entries[idx].Filelen
}

// findEntry performs the exact-match linear scan spec §4.8 describes for
// search-path pack hits.
func (p *Pack) findEntry(name string) (int, bool) {
	for i, e := range p.entries {
		if e.Name == name {
			return i, true
		}
	}

	return -1, false
}

// close releases the pack's backing file and, for PK3, its zip reader.
// The entries slice is never explicitly freed (see the cloned doc comment).
func (p *Pack) close() error {
	if p.src != nil {
		return p.src.Close()
	}

	return nil
}

// cloneForReopen produces an independent Pack usable concurrently with p
// and with any other handle derived from p, per spec §4.6's "reopen"
// semantics: a fresh OS file handle on the same path, and — for PK3 — a
// fresh zip reader over that fresh file. The entries slice is shared.
func (p *Pack) cloneForReopen() (*Pack, error) {
	src, err := cloneFileSource(p.Filename)
	if err != nil {
		return nil, fmt.Errorf("vfs: reopen %q: %w", p.Filename, err)
	}

	clone := &Pack{
		Filename: p.Filename,
		PakVer:   p.PakVer,
		src:      src,
		entries:  p.entries,
		opts:     p.opts,
		cloned:   true,
	}

	if p.PakVer == 3 {
		size, err := src.Size()
		if err != nil {
			_ = src.Close()

			return nil, fmt.Errorf("vfs: reopen %q: %w", p.Filename, err)
		}

		zr, err := zip.NewReader(src.f, size)
		if err != nil {
			_ = src.Close()

			return nil, fatalf(KindTruncated, p.Filename, "reopen: failed to reinitialize zip reader", err)
		}

		clone.zr = zr
	}

	return clone, nil
}

// Registry is the process-wide, fixed-capacity table of loaded packs
// (spec §3/§4.4). Slot 0 is reserved (0 means "no pack"); slots 1..32
// hold registered packs. Registration/lookup/free are expected to run
// from a single thread (startup/teardown, per spec §5); the mutex here
// only guards against accidental concurrent misuse, it does not make
// steady-state pack reads (which never touch the registry) any safer or
// less safe than the spec already requires.
type Registry struct {
	mu      sync.Mutex
	slots   [MaxPackFiles + 1]*Pack // index 0 unused
	metrics *Metrics

	// reopenCache holds at most one warm clone per pack id, for reuse by
	// concurrent reopen=true handle opens within reopenCacheTTL, per
	// SPEC_FULL.md §3's ttlcache wiring.
	reopenCache *ttlcache.Cache[int, *Pack]
}

// NewRegistry returns an empty Registry reporting into m.
func NewRegistry(m *Metrics) *Registry {
	r := &Registry{metrics: m}

	r.reopenCache = ttlcache.New(
		ttlcache.WithTTL[int, *Pack](reopenCacheTTL),
		ttlcache.WithCapacity[int, *Pack](reopenCacheCapacity),
	)
	r.reopenCache.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[int, *Pack]) {
		if v := item.Value(); v != nil {
			_ = v.release()
		}
	})

	go r.reopenCache.Start()

	return r
}

// acquireReopenClone returns a warm, acquired clone of the pack registered
// under id, creating and caching one on a miss. The caller must release it
// via releaseReopenClone once done (typically from the owning Handle's
// Close). Grounded on the teacher's zipReaderCache.Archive/GetOrSetFunc
// pattern (internal/filesystem/lru_cache.go), generalized to whole packs.
func (r *Registry) acquireReopenClone(id int) (*Pack, error) {
	var setErr error

	item, hit := r.reopenCache.GetOrSetFunc(id, func() *Pack {
		orig, ok := r.Lookup(id, false)
		if !ok {
			setErr = ErrNotFound

			return nil
		}

		clone, err := orig.cloneForReopen()
		if err != nil {
			setErr = err

			return nil
		}

		clone.refs.Store(1) // the cache's own reference

		if r.metrics != nil {
			r.metrics.TotalReopenedPacks.Add(1)
		}

		return clone
	})

	if setErr != nil {
		return nil, setErr
	}

	if item == nil || item.Value() == nil {
		return nil, ErrNotFound
	}

	clone := item.Value()
	clone.acquire()

	if hit && r.metrics != nil {
		r.metrics.TotalReopenCacheHits.Add(1)
	}

	return clone, nil
}

// releaseReopenClone drops the caller's reference to a clone obtained from
// acquireReopenClone.
func (r *Registry) releaseReopenClone(clone *Pack) error {
	return clone.release()
}

// Register assigns the first free slot to p and returns its id, or 0 (with
// p destroyed) if the table is full — a soft failure per spec §4.4.
func (r *Registry) Register(p *Pack) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 1; i <= MaxPackFiles; i++ {
		if r.slots[i] == nil {
			r.slots[i] = p
			p.ID = i
			if r.metrics != nil {
				r.metrics.OpenPacks.Add(1)
				r.metrics.TotalLoadedPacks.Add(1)
			}

			return i
		}
	}

	_ = p.close()

	return 0
}

// Lookup returns the pack registered under id. If take is true, the slot
// is detached (ownership transfers to the caller) and subsequent lookups
// of id will miss until something else is registered there.
func (r *Registry) Lookup(id int, take bool) (*Pack, bool) {
	if id <= 0 || id > MaxPackFiles {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.slots[id]
	if p == nil {
		return nil, false
	}

	if take {
		r.slots[id] = nil
	}

	return p, true
}

// Free detaches and destroys the pack registered under id, if any.
func (r *Registry) Free(id int) {
	if id <= 0 || id > MaxPackFiles {
		return
	}

	r.mu.Lock()
	p := r.slots[id]
	r.slots[id] = nil
	r.mu.Unlock()

	// Any warm reopen clone for this id refers to a pack that is about to
	// be destroyed; the slot may be reused by an unrelated archive next,
	// so the cache entry must not survive it.
	r.reopenCache.Delete(id)

	if p != nil {
		_ = p.close()

		if r.metrics != nil {
			r.metrics.OpenPacks.Add(-1)
			r.metrics.TotalFreedPacks.Add(1)
		}
	}
}

// Shutdown destroys every registered pack and empties the table.
func (r *Registry) Shutdown() {
	r.reopenCache.DeleteAll()
	r.reopenCache.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 1; i <= MaxPackFiles; i++ {
		if p := r.slots[i]; p != nil {
			_ = p.close()

			if r.metrics != nil {
				r.metrics.OpenPacks.Add(-1)
				r.metrics.TotalFreedPacks.Add(1)
			}
		}

		r.slots[i] = nil
	}
}

// Name returns the filename of the pack registered under id, or "".
func (r *Registry) Name(id int) string {
	p, ok := r.Lookup(id, false)
	if !ok {
		return ""
	}

	return p.Filename
}
