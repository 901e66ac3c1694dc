package triagescan

import (
	"errors"
	"io"
)

// ReadFile loads the whole file at path into a freshly allocated buffer.
//
// It does not depend on a prior [Scan]. The size ceiling and the regular-file
// requirement are the same as for Scan; the extension allow-list is not
// applied.
//
// ReadFile returns nil (absent, length 0) when:
//   - path is empty or contains a NUL byte (it is otherwise used as given,
//     without cleaning)
//   - stat fails, or path is not a regular file
//   - the size is 0 or exceeds the ceiling (no read is attempted)
//   - the file cannot be opened
//   - no bytes could be read
//
// Otherwise the returned [Content] holds exactly the bytes transferred. That
// can be fewer than stat reported when the file shrank or the read came up
// short; see [Content.Short]. It is never more: growth after the stat is not
// picked up.
//
// The file is opened read-only. No lock is taken and other readers or writers
// are not excluded.
func ReadFile(path string, opts ...Option) *Content {
	cfg := applyOptions(opts)

	// The path goes to the filesystem as given: "a.txt/" names a directory
	// and fails like stat(2) would.
	if !validPath(path) {
		cfg.report(&IOError{Path: path, Op: "open", Err: invalidPathErr(path)})

		return nil
	}

	info, err := cfg.FS.Stat(path)
	if err != nil {
		cfg.report(&IOError{Path: path, Op: "stat", Err: err})

		return nil
	}

	if info.Kind != KindFile {
		cfg.report(&IOError{Path: path, Op: "stat", Err: errNotRegular})

		return nil
	}

	if info.Size <= 0 || info.Size > cfg.MaxFileSize {
		cfg.Logger.Debug("size out of range", "path", path, "size", info.Size)

		return nil
	}

	f, err := cfg.FS.Open(path)
	if err != nil {
		cfg.report(&IOError{Path: path, Op: "open", Err: err})

		return nil
	}

	// One spare zero byte past the content.
	buf := make([]byte, info.Size+1)

	n, err := io.ReadFull(f, buf[:info.Size])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		cfg.report(&IOError{Path: path, Op: "read", Err: err})
	}

	closeErr := f.Close()
	if closeErr != nil {
		cfg.report(&IOError{Path: path, Op: "close", Err: closeErr})
	}

	if n == 0 {
		return nil
	}

	if int64(n) < info.Size {
		cfg.Logger.Debug("short read", "path", path, "size", info.Size, "read", n)
	}

	return &Content{buf: buf[:n], size: info.Size}
}
