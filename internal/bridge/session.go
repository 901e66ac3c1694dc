// Package bridge exposes Scan and ReadFile to a separate analysis process.
//
// Every result handed across is parked in a handle table until the peer
// releases it, so the peer controls the lifetime exactly as an in-process
// caller would. Releasing an unknown or already-released handle is an error,
// never a crash.
package bridge

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/calvinalkan/triagescan"
)

// Protocol faults.
var (
	ErrUnknownHandle = errors.New("unknown or released handle")
	ErrUnknownOp     = errors.New("unknown op")
	ErrCountMismatch = errors.New("count does not match path set length")
	ErrBadRequest    = errors.New("bad request")
)

// Session owns the results handed to one peer.
//
// A Session is not safe for concurrent use; requests are served one at a
// time.
type Session struct {
	opts     []triagescan.Option
	log      *slog.Logger
	newID    func() string
	paths    map[string]*triagescan.PathSet
	contents map[string]*triagescan.Content
}

// NewSession creates a session running Scan and ReadFile with opts.
func NewSession(log *slog.Logger, opts ...triagescan.Option) *Session {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Session{
		opts:     opts,
		log:      log,
		newID:    uuid.NewString,
		paths:    make(map[string]*triagescan.PathSet),
		contents: make(map[string]*triagescan.Content),
	}
}

// Scan runs a scan and parks the result. A handle is returned even for an
// empty set; it must be released like any other.
func (s *Session) Scan(root string) (string, *triagescan.PathSet) {
	set := triagescan.Scan(root, s.opts...)
	h := s.newID()
	s.paths[h] = set

	s.log.Debug("scan", "root", root, "handle", h, "count", set.Len())

	return h, set
}

// ReadFile loads one file and parks the content. ok is false when the file
// did not qualify; no handle is created then.
func (s *Session) ReadFile(path string) (string, *triagescan.Content, bool) {
	c := triagescan.ReadFile(path, s.opts...)
	if c == nil {
		s.log.Debug("read_file absent", "path", path)

		return "", nil, false
	}

	h := s.newID()
	s.contents[h] = c

	s.log.Debug("read_file", "path", path, "handle", h, "length", c.Len())

	return h, c, true
}

// ReleasePaths releases a path set. count must equal the set's length; on a
// mismatch the set stays live.
func (s *Session) ReleasePaths(handle string, count int) error {
	set, ok := s.paths[handle]
	if !ok {
		return fmt.Errorf("release_paths %q: %w", handle, ErrUnknownHandle)
	}

	if set.Len() != count {
		return fmt.Errorf("release_paths %q: %w (have %d, got %d)", handle, ErrCountMismatch, set.Len(), count)
	}

	set.Release()
	delete(s.paths, handle)

	return nil
}

// ReleaseContent releases a content buffer.
func (s *Session) ReleaseContent(handle string) error {
	c, ok := s.contents[handle]
	if !ok {
		return fmt.Errorf("release_content %q: %w", handle, ErrUnknownHandle)
	}

	c.Release()
	delete(s.contents, handle)

	return nil
}

// Live returns the number of unreleased results.
func (s *Session) Live() int {
	return len(s.paths) + len(s.contents)
}

// Close releases everything the peer leaked and returns how many results
// that was.
func (s *Session) Close() int {
	leaked := s.Live()

	for h, set := range s.paths {
		set.Release()
		delete(s.paths, h)
	}

	for h, c := range s.contents {
		c.Release()
		delete(s.contents, h)
	}

	if leaked > 0 {
		s.log.Warn("released leaked handles", "count", leaked)
	}

	return leaked
}
