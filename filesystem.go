package triagescan

import (
	"io"
	"io/fs"
)

// EntryKind classifies a directory entry as reported by a [DirCursor].
type EntryKind uint8

const (
	// KindUnknown means the platform could not tell what the entry is.
	KindUnknown EntryKind = iota
	// KindFile is a regular file.
	KindFile
	// KindDir is a directory.
	KindDir
	// KindOther is anything else: symlinks, devices, FIFOs, sockets.
	KindOther
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// DirEntry is one entry produced by a [DirCursor].
type DirEntry struct {
	Name string
	Kind EntryKind
}

// DirCursor iterates the entries of one open directory.
//
// Next returns io.EOF once the directory is exhausted. Cursors may return the
// "." and ".." pseudo-entries; the walker skips them.
type DirCursor interface {
	Next() (DirEntry, error)
	Close() error
}

// FileInfo is the metadata-only view of a path used by the size checks.
type FileInfo struct {
	Size int64
	Kind EntryKind
}

// FS is the filesystem the walker and extractor run against.
//
// [OS] is the native filesystem and is the default. [BillyFS] adapts any
// go-billy filesystem.
//
// Stat must not open the file. It follows symlinks, so Kind describes the
// target. Cursors, on the other hand, must not follow symlinks: a symlink entry
// is reported as [KindOther] and is never descended into.
type FS interface {
	OpenDir(path string) (DirCursor, error)
	Stat(path string) (FileInfo, error)
	Open(path string) (io.ReadCloser, error)
}

// Separator is the path separator the FS expects between a directory and an
// entry name.
type Separator interface {
	Separator() byte
}

// OS returns the native filesystem.
//
// Directory enumeration and stat use the platform backend (getdents64 on
// Linux, openat/fstatat on darwin and the BSDs, the os package elsewhere).
func OS() FS {
	return osFS{}
}

type osFS struct{}

func (osFS) OpenDir(path string) (DirCursor, error) {
	c, err := openDirCursor(path)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (osFS) Stat(path string) (FileInfo, error) {
	return statPath(path)
}

func (osFS) Open(path string) (io.ReadCloser, error) {
	return openRead(path)
}

func (osFS) Separator() byte {
	return pathSeparator
}

func separatorOf(fsys FS) byte {
	if s, ok := fsys.(Separator); ok {
		return s.Separator()
	}

	return '/'
}

func kindFromFileMode(mode fs.FileMode) EntryKind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	default:
		return KindOther
	}
}
