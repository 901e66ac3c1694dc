package triagescan

import "io"

// ============================================================================
// Internal I/O backend contract
// ============================================================================
//
// osFS (filesystem.go) is written against a small set of unexported,
// platform-dependent functions and one cursor type. Each supported OS group
// provides them via build-tagged files:
//   - Linux fast path:                 io_linux.go  (getdents64)
//   - Mainstream non-Linux Unix:       io_unix.go   (openat/fstatat + ReadDir)
//   - "Other" platforms (windows/etc): io_other.go  (os package only)
//
// statPath for the Unix groups lives in stat_unix.go.
//
// Semantics expected by the walker:
//
//   - openDirCursor follows a symlink only if it is the path itself (so a
//     symlinked root works). Entries inside the directory are never followed:
//     a symlink entry is reported as KindOther.
//
//   - dirCursor.Next may return "." and "..". Callers skip them.
//
//   - When the platform does not report an entry type, the backend resolves it
//     with a no-follow stat relative to the open directory. If that fails too,
//     the entry is reported as KindUnknown rather than as an error.
//
//   - dirCursor.Next returns io.EOF at the end. Any other error ends the
//     enumeration of that directory; entries returned before it stand.
//
//   - statPath is metadata-only: it never opens the file.

// Function signatures required by osFS.
var (
	_ func(string) (*dirCursor, error)    = openDirCursor
	_ func(string) (FileInfo, error)      = statPath
	_ func(string) (io.ReadCloser, error) = openRead
	_ func(name string) bool              = isDotEntry
	_ DirCursor                           = (*dirCursor)(nil)
)

// isDotEntry reports whether name is one of the "." / ".." pseudo-entries.
func isDotEntry(name string) bool {
	return name == "." || name == ".."
}
