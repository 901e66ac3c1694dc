//go:build windows || android || ios || solaris || illumos || aix || plan9 || js || wasip1

// io_other.go implements the internal I/O backend contract (see io_contract.go)
// for platforms where we don't maintain a syscall-level path.
//
// This backend only uses portable stdlib APIs (os.Open, (*os.File).ReadDir,
// os.Lstat). On Windows the os package already converts UTF-16 names to UTF-8,
// so paths leave this backend in the canonical encoding.
package triagescan

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	readDirBatchSize = 4096
	pathSeparator    = os.PathSeparator
)

// dirCursor wraps a directory opened with os.Open.
type dirCursor struct {
	f       *os.File
	path    string
	pending []fs.DirEntry
	done    bool
}

// openDirCursor opens path for entry enumeration.
func openDirCursor(path string) (*dirCursor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return nil, &os.PathError{Op: "open", Path: path, Err: errNotDir}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return &dirCursor{f: f, path: path}, nil
}

func (c *dirCursor) Next() (DirEntry, error) {
	for len(c.pending) == 0 {
		if c.done || c.f == nil {
			return DirEntry{}, io.EOF
		}

		entries, err := c.f.ReadDir(readDirBatchSize)
		c.pending = entries

		if err != nil {
			c.done = true

			if len(entries) == 0 {
				if errors.Is(err, io.EOF) {
					return DirEntry{}, io.EOF
				}

				return DirEntry{}, fmt.Errorf("readdir: %w", err)
			}
		}
	}

	e := c.pending[0]
	c.pending = c.pending[1:]

	return DirEntry{Name: e.Name(), Kind: c.kindOf(e)}, nil
}

func (c *dirCursor) kindOf(e fs.DirEntry) EntryKind {
	typ := e.Type()

	switch {
	case typ&fs.ModeSymlink != 0:
		return KindOther
	case typ.IsDir():
		return KindDir
	case typ&fs.ModeType != 0:
		return KindOther
	}

	// Type() cannot distinguish "regular" from "untyped"; lstat to be sure.
	info, err := os.Lstat(filepath.Join(c.path, e.Name()))
	if err != nil {
		return KindUnknown
	}

	return kindFromFileMode(info.Mode())
}

func (c *dirCursor) Close() error {
	if c.f == nil {
		return nil
	}

	f := c.f
	c.f = nil
	c.pending = nil

	err := f.Close()
	if err != nil {
		return fmt.Errorf("close dir: %w", err)
	}

	return nil
}

// statPath returns size and type of path via os.Stat. No file is opened.
func statPath(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}

	return FileInfo{Size: info.Size(), Kind: kindFromFileMode(info.Mode())}, nil
}

// openRead opens path read-only. On Windows os.Open shares read and write
// access with other handles.
func openRead(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return f, nil
}
