package triagescan

import (
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// BillyFS adapts a go-billy filesystem to [FS].
//
// Paths are slash-separated and interpreted by the wrapped filesystem, so a
// chrooted or in-memory tree can be scanned exactly like the native one.
type BillyFS struct {
	fs billy.Filesystem
}

// NewBillyFS wraps fsys.
func NewBillyFS(fsys billy.Filesystem) *BillyFS {
	return &BillyFS{fs: fsys}
}

// NewChrootFS returns a BillyFS confined to baseDir on the native filesystem.
// Paths passed to [Scan] and [ReadFile] are then relative to baseDir.
func NewChrootFS(baseDir string) *BillyFS {
	return &BillyFS{fs: osfs.New(baseDir)}
}

// Raw returns the underlying go-billy filesystem.
//
//nolint:ireturn // exposes the adapter target.
func (b *BillyFS) Raw() billy.Filesystem {
	return b.fs
}

// OpenDir implements FS.OpenDir.
//
// go-billy has no streaming directory API, so the listing is read up front
// and the cursor walks it.
func (b *BillyFS) OpenDir(path string) (DirCursor, error) {
	info, err := b.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("billy: stat %q: %w", path, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("billy: opendir %q: %w", path, errNotDir)
	}

	list, err := b.fs.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("billy: readdir %q: %w", path, err)
	}

	return &billyCursor{entries: list}, nil
}

// Stat implements FS.Stat.
func (b *BillyFS) Stat(path string) (FileInfo, error) {
	info, err := b.fs.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("billy: stat %q: %w", path, err)
	}

	return FileInfo{Size: info.Size(), Kind: kindFromFileMode(info.Mode())}, nil
}

// Open implements FS.Open.
func (b *BillyFS) Open(path string) (io.ReadCloser, error) {
	f, err := b.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("billy: open %q: %w", path, err)
	}

	return f, nil
}

// Separator implements [Separator]. go-billy paths always use "/".
func (b *BillyFS) Separator() byte {
	return '/'
}

type billyCursor struct {
	entries []os.FileInfo
}

func (c *billyCursor) Next() (DirEntry, error) {
	if len(c.entries) == 0 {
		return DirEntry{}, io.EOF
	}

	info := c.entries[0]
	c.entries = c.entries[1:]

	return DirEntry{Name: info.Name(), Kind: kindFromFileMode(info.Mode())}, nil
}

func (c *billyCursor) Close() error {
	c.entries = nil

	return nil
}
