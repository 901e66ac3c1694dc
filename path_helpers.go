package triagescan

import (
	"path/filepath"
	"strings"
)

// ============================================================================
// Path helpers
// ============================================================================

// cleanRoot normalizes a caller-supplied path. ok is false for paths the
// engine refuses outright (empty, or containing a NUL byte).
func cleanRoot(path string, sep byte) (string, bool) {
	if !validPath(path) {
		return "", false
	}

	if sep == '/' && pathSeparator != '/' {
		// Non-native FS (e.g. go-billy) on a platform with another separator:
		// keep slash paths as given.
		return cleanSlash(path), true
	}

	return filepath.Clean(path), true
}

// validPath rejects empty paths and paths containing a NUL byte.
func validPath(path string) bool {
	return path != "" && strings.IndexByte(path, 0) < 0
}

func cleanSlash(path string) string {
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))
	if clean == "" {
		return "."
	}

	return clean
}

// joinPath returns parent + sep + name.
//
// A separator is not appended blindly: when parent is a filesystem root ("/"
// on Unix, "C:\" on Windows) it already ends with one.
func joinPath(parent, name string, sep byte) string {
	if parent == "" {
		return name
	}

	var b strings.Builder

	b.Grow(len(parent) + 1 + len(name))
	b.WriteString(parent)

	last := parent[len(parent)-1]
	if last != sep && last != '/' {
		b.WriteByte(sep)
	}

	b.WriteString(name)

	return b.String()
}

// extOf returns the final "."-delimited suffix of name, including the dot.
// ok is false when name has no dot.
func extOf(name string) (string, bool) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", false
	}

	return name[i:], true
}
