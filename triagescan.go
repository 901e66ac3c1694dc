// Package triagescan enumerates candidate evidence files under a directory
// tree and loads their contents on demand.
//
// It is meant to sit behind an external analysis process: the caller hands
// over a root directory, receives the paths of files worth a closer look, and
// then asks for the raw bytes of individual files.
//
// # Filtering
//
// A file is collected when its final "."-delimited suffix is in the extension
// allow-list (case-sensitive, see [DefaultExtensions] and [WithExtensions])
// and its size is in (0, [MaxFileSize]]. Only regular files are considered.
//
// # Symlinks
//
// Symbolic links inside the tree are not followed and not collected. A
// symlinked root is followed.
//
// # Failures
//
// [Scan] and [ReadFile] never fail as a whole. An unreadable directory
// contributes no entries; an unreadable or vanished file is skipped (Scan) or
// reported absent (ReadFile). Use [WithOnError] to observe what was skipped.
// An inaccessible root is indistinguishable from an empty one; callers that
// care must check the root themselves.
//
// # Ownership
//
// Every [PathSet] and [Content] belongs to the caller once returned and is
// handed back with its Release method exactly once. Nothing is shared between
// calls, and nothing is safe for concurrent use: scan independent subtrees in
// independent calls and merge the results.
//
// # Encoding
//
// Paths are UTF-8 with the platform separator. On Unix, a file whose path is
// not valid UTF-8 is skipped and reported with [ErrInvalidEncoding].
package triagescan

import (
	"errors"
	"fmt"
	"slices"
)

// MaxFileSize is the default size ceiling: 100 MiB.
const MaxFileSize int64 = 100 * 1024 * 1024

var defaultExtensions = []string{
	".db", ".sqlite", ".txt", ".log",
	".json", ".xml", ".plist", ".rdb", ".aof",
}

// DefaultExtensions returns a copy of the default allow-list:
// .db .sqlite .txt .log .json .xml .plist .rdb .aof
func DefaultExtensions() []string {
	return slices.Clone(defaultExtensions)
}

// ErrInvalidEncoding is reported for a path that is not valid UTF-8.
var ErrInvalidEncoding = errors.New("path is not valid UTF-8")

var (
	errContainsNUL = errors.New("contains NUL byte")
	errNotDir      = errors.New("not a directory")
)

// IOError describes a failure the engine absorbed.
type IOError struct {
	// Path is the full path of the entry.
	Path string
	// Op is the operation that failed: "open", "opendir", "readdir", "stat",
	// "read", "close" or "encode".
	Op string
	// Err is the underlying error.
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
