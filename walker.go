package triagescan

import (
	"errors"
	"io"
)

var errEmptyPath = errors.New("empty path")

// Scan walks the tree under root and returns every qualifying file.
//
// The walk is depth-first and pre-order: when an entry is a directory, its
// subtree is collected before the parent's remaining entries. Entries within
// one directory come in platform enumeration order.
//
// Scan never fails. An empty root, a root with a NUL byte, or a root that
// cannot be opened all yield an empty set. A subdirectory that cannot be opened
// or read contributes nothing (or whatever was read before the failure), and
// the walk continues with its siblings.
//
// The returned set is owned by the caller; see [PathSet.Release].
func Scan(root string, opts ...Option) *PathSet {
	cfg := applyOptions(opts)
	set := newPathSet()
	sep := separatorOf(cfg.FS)

	clean, ok := cleanRoot(root, sep)
	if !ok {
		cfg.report(&IOError{Path: root, Op: "opendir", Err: invalidPathErr(root)})

		return set
	}

	w := walker{
		cfg: &cfg,
		sep: sep,
		col: collector{cfg: &cfg, set: set},
	}
	w.walk(clean)

	cfg.Logger.Debug("scan complete", "root", clean, "files", set.Len())

	return set
}

func invalidPathErr(path string) error {
	if path == "" {
		return errEmptyPath
	}

	return errContainsNUL
}

// frame is one open directory on the walk stack.
type frame struct {
	path   string
	cursor DirCursor
	// depth of the entries in this directory; entries of the root are at 1.
	depth int
}

type walker struct {
	cfg *options
	sep byte
	col collector
}

// walk runs the depth-first traversal with an explicit stack of open cursors.
//
// Only the top cursor is advanced. Pushing a subdirectory and resuming the
// parent once it is exhausted gives the same order a recursive walk would,
// without native stack growth on deep trees.
func (w *walker) walk(root string) {
	cursor, err := w.cfg.FS.OpenDir(root)
	if err != nil {
		w.cfg.report(&IOError{Path: root, Op: "opendir", Err: err})
		w.cfg.Logger.Debug("root not readable", "root", root, "err", err)

		return
	}

	stack := []frame{{path: root, cursor: cursor, depth: 1}}

	// Close whatever is still open if a callback panics.
	defer func() {
		for i := len(stack) - 1; i >= 0; i-- {
			w.closeFrame(stack[i])
		}
	}()

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		entry, err := top.cursor.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				w.cfg.report(&IOError{Path: top.path, Op: "readdir", Err: err})
			}

			stack = stack[:len(stack)-1]
			w.closeFrame(top)

			continue
		}

		if entry.Name == "" || isDotEntry(entry.Name) {
			continue
		}

		full := joinPath(top.path, entry.Name, w.sep)

		switch entry.Kind {
		case KindDir:
			if w.cfg.MaxDepth > 0 && top.depth >= w.cfg.MaxDepth {
				w.cfg.Logger.Debug("max depth reached", "dir", full, "max_depth", w.cfg.MaxDepth)

				continue
			}

			sub, err := w.cfg.FS.OpenDir(full)
			if err != nil {
				w.cfg.report(&IOError{Path: full, Op: "opendir", Err: err})
				w.cfg.Logger.Debug("skipping unreadable directory", "dir", full, "err", err)

				continue
			}

			stack = append(stack, frame{path: full, cursor: sub, depth: top.depth + 1})

		case KindFile:
			w.col.accept(full, entry.Name)

		default:
			w.cfg.Logger.Debug("skipping entry", "path", full, "kind", entry.Kind.String())
		}
	}
}

func (w *walker) closeFrame(f frame) {
	err := f.cursor.Close()
	if err != nil {
		w.cfg.report(&IOError{Path: f.path, Op: "close", Err: err})
	}
}
