package triagescan_test

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/triagescan"
)

const (
	windowsOS = "windows"

	testNumDirs     = 12
	testFilesPerDir = 7
)

func writeFile(t *testing.T, root, rel string, data []byte) string {
	t.Helper()

	fullPath := filepath.Join(root, rel)
	parent := filepath.Dir(fullPath)

	require.NoError(t, os.MkdirAll(parent, 0o750), "mkdir %s", parent)
	require.NoError(t, os.WriteFile(fullPath, data, 0o600), "write %s", fullPath)

	return fullPath
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, data := range files {
		writeFile(t, root, rel, []byte(data))
	}
}

// writeSparse creates a file of the given size without writing its bytes.
func writeSparse(t *testing.T, root, rel string, size int64) string {
	t.Helper()

	fullPath := writeFile(t, root, rel, nil)
	require.NoError(t, os.Truncate(fullPath, size), "truncate %s", fullPath)

	return fullPath
}

func writeSymlink(t *testing.T, root, targetRel, linkRel string) {
	t.Helper()

	if runtime.GOOS == windowsOS {
		t.Skip("symlinks need extra privileges on windows")
	}

	target := filepath.Join(root, targetRel)
	link := filepath.Join(root, linkRel)

	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0o750))
	require.NoError(t, os.Symlink(target, link), "symlink %s -> %s", link, target)
}

// absPaths joins each rel onto root with the platform separator.
func absPaths(root string, rels ...string) []string {
	out := make([]string, 0, len(rels))
	for _, rel := range rels {
		out = append(out, filepath.Join(root, filepath.FromSlash(rel)))
	}

	return out
}

// assertSameSet compares path lists ignoring order.
func assertSameSet(t *testing.T, got, want []string) {
	t.Helper()

	if diff := cmp.Diff(want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b }), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("path set mismatch (-want +got):\n%s", diff)
	}
}

// scanPaths scans root and returns an owned copy of the result, releasing the
// set.
func scanPaths(t *testing.T, root string, opts ...triagescan.Option) []string {
	t.Helper()

	set := triagescan.Scan(root, opts...)
	require.NotNil(t, set)

	out := append([]string(nil), set.Paths()...)
	set.Release()

	return out
}

// newMemTree builds an in-memory go-billy tree from rel -> content.
func newMemTree(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()

	fsys := memfs.New()
	for rel, data := range files {
		require.NoError(t, util.WriteFile(fsys, rel, []byte(data), 0o644), "write %s", rel)
	}

	return fsys
}

// errorCollector records every error passed to WithOnError.
type errorCollector struct {
	errs []error
}

func (c *errorCollector) option() triagescan.Option {
	return triagescan.WithOnError(func(err error) {
		c.errs = append(c.errs, err)
	})
}

func (c *errorCollector) ops() []string {
	out := make([]string, 0, len(c.errs))
	for _, err := range c.errs {
		var ioErr *triagescan.IOError
		if errors.As(err, &ioErr) {
			out = append(out, ioErr.Op+" "+ioErr.Path)
		}
	}

	return out
}

// faultFS wraps an FS and fails selected operations.
type faultFS struct {
	triagescan.FS

	failOpenDir map[string]error
	failStat    map[string]error
	failOpen    map[string]error
	// shortRead truncates reads of the named path to n bytes.
	shortRead map[string]int
	// readErr makes reads of the named path fail after the short prefix.
	readErr map[string]error

	openDirs int
	closes   int
}

func (f *faultFS) OpenDir(path string) (triagescan.DirCursor, error) {
	if err, ok := f.failOpenDir[path]; ok {
		return nil, err
	}

	c, err := f.FS.OpenDir(path)
	if err != nil {
		return nil, err
	}

	f.openDirs++

	return &countingCursor{DirCursor: c, fs: f}, nil
}

func (f *faultFS) Stat(path string) (triagescan.FileInfo, error) {
	if err, ok := f.failStat[path]; ok {
		return triagescan.FileInfo{}, err
	}

	return f.FS.Stat(path)
}

func (f *faultFS) Open(path string) (io.ReadCloser, error) {
	if err, ok := f.failOpen[path]; ok {
		return nil, err
	}

	rc, err := f.FS.Open(path)
	if err != nil {
		return nil, err
	}

	if n, ok := f.shortRead[path]; ok {
		var r io.Reader = io.LimitReader(rc, int64(n))
		if rerr, ok := f.readErr[path]; ok {
			r = io.MultiReader(r, errReader{err: rerr})
		}

		return readCloser{Reader: r, Closer: rc}, nil
	}

	return rc, nil
}

func (f *faultFS) Separator() byte {
	if s, ok := f.FS.(triagescan.Separator); ok {
		return s.Separator()
	}

	return '/'
}

type countingCursor struct {
	triagescan.DirCursor

	fs *faultFS
}

func (c *countingCursor) Close() error {
	c.fs.closes++

	return c.DirCursor.Close()
}

type readCloser struct {
	io.Reader
	io.Closer
}

type errReader struct {
	err error
}

func (r errReader) Read([]byte) (int, error) {
	return 0, r.err
}

// sliceFS serves fixed directory listings; used to feed pseudo-entries and
// unknown kinds that real filesystems never hand out.
type sliceFS struct {
	dirs  map[string][]triagescan.DirEntry
	files map[string]string
}

func (s *sliceFS) OpenDir(path string) (triagescan.DirCursor, error) {
	entries, ok := s.dirs[path]
	if !ok {
		return nil, fmt.Errorf("opendir %s: %w", path, os.ErrNotExist)
	}

	return &sliceCursor{entries: entries}, nil
}

func (s *sliceFS) Stat(path string) (triagescan.FileInfo, error) {
	if data, ok := s.files[path]; ok {
		return triagescan.FileInfo{Size: int64(len(data)), Kind: triagescan.KindFile}, nil
	}

	if _, ok := s.dirs[path]; ok {
		return triagescan.FileInfo{Size: 4096, Kind: triagescan.KindDir}, nil
	}

	return triagescan.FileInfo{}, fmt.Errorf("stat %s: %w", path, os.ErrNotExist)
}

func (s *sliceFS) Open(path string) (io.ReadCloser, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}

	return io.NopCloser(strings.NewReader(data)), nil
}

func (s *sliceFS) Separator() byte {
	return '/'
}

type sliceCursor struct {
	entries []triagescan.DirEntry
}

func (c *sliceCursor) Next() (triagescan.DirEntry, error) {
	if len(c.entries) == 0 {
		return triagescan.DirEntry{}, io.EOF
	}

	e := c.entries[0]
	c.entries = c.entries[1:]

	return e, nil
}

func (c *sliceCursor) Close() error {
	return nil
}

func writeBenchFile(b *testing.B, size int) string {
	b.Helper()

	path := filepath.Join(b.TempDir(), "bench.db")
	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		b.Fatal(err)
	}

	return path
}
