package vfs

import "sync/atomic"

// Metrics accumulates process-wide counters for the VFS core. It is
// grounded on the teacher's filesystem.FS atomic counters (OpenZips,
// TotalOpenedZips, ...), generalized from "zip" to "pack" since this
// module has two archive backends rather than one.
type Metrics struct {
	// OpenPacks is the number of currently registered packs.
	OpenPacks atomic.Int64
	// TotalLoadedPacks is the number of packs ever registered.
	TotalLoadedPacks atomic.Int64
	// TotalFreedPacks is the number of packs ever freed.
	TotalFreedPacks atomic.Int64

	// TotalHandlesOpened is the number of VFS.Open calls that succeeded.
	TotalHandlesOpened atomic.Int64
	// TotalHandlesClosed is the number of Handle.Close calls.
	TotalHandlesClosed atomic.Int64

	// TotalBytesRead is the cumulative count of bytes returned by Read
	// across all backends.
	TotalBytesRead atomic.Int64

	// TotalInflateRestarts is the number of times the streaming inflator
	// had to discard its decoder state and restart from byte zero to
	// satisfy a backward Seek.
	TotalInflateRestarts atomic.Int64

	// TotalReopenedPacks is the number of reopen=true clones created
	// (cache misses that actually opened a fresh OS file/zip reader).
	TotalReopenedPacks atomic.Int64
	// TotalReopenCacheHits is the number of reopen=true requests served by
	// a warm, TTL-cached clone instead of opening a new one.
	TotalReopenCacheHits atomic.Int64
}
