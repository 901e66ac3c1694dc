//go:build (linux && !android) || (darwin && !ios) || freebsd || openbsd || netbsd || dragonfly

package triagescan

import (
	"errors"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

const pathSeparator = '/'

// statPath returns size and type of path via stat(2). No file is opened.
func statPath(path string) (FileInfo, error) {
	var st unix.Stat_t

	for {
		err := unix.Stat(path, &st)
		if errors.Is(err, syscall.EINTR) {
			continue
		}

		if err != nil {
			return FileInfo{}, &os.PathError{Op: "stat", Path: path, Err: err}
		}

		break
	}

	return FileInfo{Size: st.Size, Kind: kindFromMode(uint32(st.Mode))}, nil
}

func kindFromMode(mode uint32) EntryKind {
	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
		return KindFile
	case unix.S_IFDIR:
		return KindDir
	default:
		return KindOther
	}
}

// openRead opens path read-only. Other readers and writers are not blocked.
func openRead(path string) (io.ReadCloser, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}

	return f, nil
}
