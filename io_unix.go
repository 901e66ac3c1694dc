//go:build (darwin && !ios) || freebsd || openbsd || netbsd || dragonfly

// io_unix.go implements the internal I/O backend contract (see io_contract.go)
// for "mainstream" non-Linux Unix platforms:
//   - macOS (darwin, excluding iOS)
//   - the BSD family (FreeBSD/OpenBSD/NetBSD/DragonFly)
//
// Enumeration goes through (*os.File).ReadDir on an fd we open ourselves, so
// entries with an unknown type can be resolved with fstatat relative to it.
package triagescan

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

const readDirBatchSize = 4096

// dirCursor wraps a directory for enumeration.
//
// We store both:
//   - fd: used for fstatat on entries with an unknown type
//   - f:  *os.File wrapper used for (*os.File).ReadDir
type dirCursor struct {
	fd      int
	f       *os.File
	pending []fs.DirEntry
	done    bool
}

// openDirCursor opens path for entry enumeration.
func openDirCursor(path string) (*dirCursor, error) {
	for {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
		if errors.Is(err, syscall.EINTR) {
			continue
		}

		if err != nil {
			return nil, &os.PathError{Op: "open", Path: path, Err: err}
		}

		return &dirCursor{fd: fd, f: os.NewFile(uintptr(fd), path)}, nil
	}
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
	// Use Type() instead of IsDir() to avoid following symlinks.
	typ := e.Type()

	switch {
	case typ&fs.ModeSymlink != 0:
		return KindOther
	case typ.IsDir():
		return KindDir
	case typ&fs.ModeType != 0:
		// Pipes, sockets, devices, irregular files.
		return KindOther
	}

	// Type() reports a plain file both for regular files and for entries the
	// filesystem did not type. lstat to tell them apart.
	return classifyAt(c.fd, e.Name())
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

// classifyAt resolves an entry with fstatat(AT_SYMLINK_NOFOLLOW). A failed
// lookup yields KindUnknown.
func classifyAt(dirfd int, name string) EntryKind {
	var st unix.Stat_t

	for {
		err := unix.Fstatat(dirfd, name, &st, unix.AT_SYMLINK_NOFOLLOW)
		if errors.Is(err, syscall.EINTR) {
			continue
		}

		if err != nil {
			return KindUnknown
		}

		break
	}

	return kindFromMode(uint32(st.Mode))
}
