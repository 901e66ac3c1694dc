package triagescan

import "iter"

// initialCapacity matches the typical small triage tree; the slice grows
// geometrically beyond it.
const initialCapacity = 100

// PathSet is the ordered result of a [Scan].
//
// Order is traversal order: depth-first, and within one directory whatever
// order the platform enumerated entries in. It is not sorted.
//
// A PathSet is owned by the caller. Call [PathSet.Release] once when done;
// after that the set is empty and its former entries must not be used.
type PathSet struct {
	paths []string
	sizes []int64
}

func newPathSet() *PathSet {
	return &PathSet{
		paths: make([]string, 0, initialCapacity),
		sizes: make([]int64, 0, initialCapacity),
	}
}

// Len returns the number of collected paths. It is 0 for a nil or released
// set.
func (s *PathSet) Len() int {
	if s == nil {
		return 0
	}

	return len(s.paths)
}

// At returns the i-th path. It panics if i is out of range.
func (s *PathSet) At(i int) string {
	return s.paths[i]
}

// Size returns the size the i-th file had when it was accepted.
func (s *PathSet) Size(i int) int64 {
	return s.sizes[i]
}

// Paths returns the collected paths.
//
// The slice aliases the set's storage: it is valid until Release and must not
// be modified.
func (s *PathSet) Paths() []string {
	if s == nil {
		return nil
	}

	return s.paths
}

// All iterates (path, size) pairs in traversal order.
func (s *PathSet) All() iter.Seq2[string, int64] {
	return func(yield func(string, int64) bool) {
		for i := range s.Len() {
			if !yield(s.paths[i], s.sizes[i]) {
				return
			}
		}
	}
}

// Release drops every entry and the backing storage. It is a no-op on nil.
func (s *PathSet) Release() {
	if s == nil {
		return
	}

	clear(s.paths)

	s.paths = nil
	s.sizes = nil
}

// add appends one accepted path.
func (s *PathSet) add(path string, size int64) {
	s.paths = append(s.paths, path)
	s.sizes = append(s.sizes, size)
}
