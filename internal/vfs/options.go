package vfs

import "sync/atomic"

// Options holds process-wide, runtime-tunable knobs for the VFS core.
// Modeled on the teacher's filesystem.FS.Options pattern of exposing
// atomics directly so callers (CLI flags, a dashboard) can flip them
// without a settings-reload protocol.
type Options struct {
	// ForceUnicode makes PK3 loading salvage a UTF-8 name generated from
	// the entry's index (keeping its extension) instead of retaining raw
	// legacy bytes when IBM437 transcoding does not fit MAX_QPATH.
	ForceUnicode atomic.Bool

	// StrictPAKLimits rejects PAK archives whose directory entry count
	// would exceed MaxFilesInPack, even when the caller otherwise trusts
	// the archive. Disabling this is meant only for recovering slightly
	// oversized archives under controlled circumstances.
	StrictPAKLimits atomic.Bool

	// MustCRC32 makes opening a zip-stored (method 0) entry read its whole
	// payload once and check it against the declared CRC32, failing the
	// open on a mismatch; reads from the opened handle are not re-checked.
	// Mirrors the teacher's MustCRC32 option for its zipFileReader.
	MustCRC32 atomic.Bool
}

// NewOptions returns Options with the teacher-observed defaults: unicode
// salvage and strict PAK limits on, CRC32 checking off (the fast path).
func NewOptions() *Options {
	o := &Options{}
	o.ForceUnicode.Store(true)
	o.StrictPAKLimits.Store(true)
	o.MustCRC32.Store(false)

	return o
}
