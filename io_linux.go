//go:build linux && !android

package triagescan

// io_linux.go implements the internal I/O backend contract (see io_contract.go)
// for Linux.
//
// Directory enumeration uses getdents64 (via syscall.ReadDirent) and parses
// raw dirent64 records in place. DT_UNKNOWN entries (some filesystems never
// fill d_type) are resolved with fstatat relative to the open directory fd.

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// linux_dirent64 offsets (from linux/dirent.h):
//
//	struct linux_dirent64 {
//	    ino64_t        d_ino;    // 8 bytes  (offset 0)
//	    off64_t        d_off;    // 8 bytes  (offset 8)
//	    unsigned short d_reclen; // 2 bytes  (offset 16)
//	    unsigned char  d_type;   // 1 byte   (offset 18)
//	    char           d_name[]; // variable (offset 19)
//	};
const (
	direntReclenOffset = 16
	direntTypeOffset   = 18
	direntNameOffset   = 19
	direntMinSize      = direntNameOffset

	// direntBufSize is large enough to read many entries per syscall.
	direntBufSize = 32 * 1024
)

var errInvalidDirent = errors.New("invalid dirent")

// dirCursor wraps a directory fd and its getdents64 buffer.
type dirCursor struct {
	fd   int
	buf  []byte
	data []byte // unparsed remainder of buf
}

// openDirCursor opens path for entry enumeration.
func openDirCursor(path string) (*dirCursor, error) {
	for {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC|unix.O_LARGEFILE, 0)
		if errors.Is(err, syscall.EINTR) {
			continue
		}

		if err != nil {
			return nil, &os.PathError{Op: "open", Path: path, Err: err}
		}

		return &dirCursor{fd: fd, buf: make([]byte, direntBufSize)}, nil
	}
}

// Next parses the next dirent64 record, refilling the buffer as needed.
func (c *dirCursor) Next() (DirEntry, error) {
	if c.fd < 0 {
		return DirEntry{}, io.EOF
	}

	for {
		if len(c.data) == 0 {
			err := c.fill()
			if err != nil {
				return DirEntry{}, err
			}
		}

		if len(c.data) < direntMinSize {
			c.data = nil
			return DirEntry{}, errInvalidDirent
		}

		reclen := int(binary.NativeEndian.Uint16(c.data[direntReclenOffset:]))
		if reclen < direntMinSize || reclen > len(c.data) {
			c.data = nil
			return DirEntry{}, errInvalidDirent
		}

		record := c.data[:reclen]
		c.data = c.data[reclen:]

		// Filename ends at the first NUL byte.
		nameBytes := record[direntNameOffset:]
		for i, b := range nameBytes {
			if b == 0 {
				nameBytes = nameBytes[:i]

				break
			}
		}

		if len(nameBytes) == 0 {
			continue
		}

		name := string(nameBytes)

		return DirEntry{Name: name, Kind: c.kindOf(record[direntTypeOffset], name)}, nil
	}
}

func (c *dirCursor) fill() error {
	// Retry ReadDirent on EINTR without an upper bound, matching Go's stdlib.
	var (
		read int
		err  error
	)
	for {
		read, err = syscall.ReadDirent(c.fd, c.buf)
		if err == syscall.EINTR {
			continue
		}

		break
	}

	if err != nil {
		return fmt.Errorf("readdirent: %w", err)
	}

	if read <= 0 {
		return io.EOF
	}

	c.data = c.buf[:read]

	return nil
}

func (c *dirCursor) kindOf(dtype byte, name string) EntryKind {
	switch dtype {
	case syscall.DT_DIR:
		return KindDir
	case syscall.DT_REG:
		return KindFile
	case syscall.DT_UNKNOWN:
		if isDotEntry(name) {
			return KindDir
		}

		return classifyAt(c.fd, name)
	default:
		return KindOther
	}
}

func (c *dirCursor) Close() error {
	if c.fd < 0 {
		return nil
	}

	fd := c.fd
	c.fd = -1
	c.data = nil

	// We intentionally do not retry close(2) on EINTR.
	err := syscall.Close(fd)
	if err != nil {
		return fmt.Errorf("close dir: %w", err)
	}

	return nil
}

// classifyAt resolves an entry with fstatat(AT_SYMLINK_NOFOLLOW).
//
// Only used when d_type == DT_UNKNOWN. A failed lookup (racy entry,
// permissions) yields KindUnknown.
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
