package triagescan

import (
	"errors"
	"slices"
	"unicode/utf8"
)

var errNotRegular = errors.New("not a regular file")

// collector is the acceptance test plus the shared result set. One collector
// serves a whole walk.
type collector struct {
	cfg *options
	set *PathSet
}

// hasAllowedExt reports whether name's final suffix is in the allow-list.
// Matching is exact: "DATA.DB" does not match ".db".
func (c *collector) hasAllowedExt(name string) bool {
	ext, ok := extOf(name)
	if !ok {
		return false
	}

	return slices.Contains(c.cfg.Extensions, ext)
}

// sizeInRange reports whether size is in (0, MaxFileSize].
func (c *collector) sizeInRange(size int64) bool {
	return size > 0 && size <= c.cfg.MaxFileSize
}

// accept runs the extension and size checks for one regular-file candidate
// and appends it to the set when both pass.
//
// The size comes from a metadata-only lookup. A lookup failure (the file
// vanished, permissions) rejects the candidate.
func (c *collector) accept(path, name string) bool {
	if !c.hasAllowedExt(name) {
		return false
	}

	info, err := c.cfg.FS.Stat(path)
	if err != nil {
		c.cfg.report(&IOError{Path: path, Op: "stat", Err: err})

		return false
	}

	// The entry may have changed type since the directory was read.
	if info.Kind != KindFile {
		c.cfg.report(&IOError{Path: path, Op: "stat", Err: errNotRegular})

		return false
	}

	if !c.sizeInRange(info.Size) {
		c.cfg.Logger.Debug("size out of range", "path", path, "size", info.Size)

		return false
	}

	if !utf8.ValidString(path) {
		c.cfg.report(&IOError{Path: path, Op: "encode", Err: ErrInvalidEncoding})

		return false
	}

	c.set.add(path, info.Size)

	return true
}
