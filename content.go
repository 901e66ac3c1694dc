package triagescan

// Content is the whole body of one file loaded by [ReadFile].
//
// The buffer has one byte of spare capacity past Len holding a zero, so
// callers treating the content as a C-style string never run off the end.
//
// A Content is owned by the caller. Call [Content.Release] once when done.
type Content struct {
	buf  []byte // len == bytes read, cap >= len+1
	size int64  // size reported by stat before the read
}

// Len returns the number of bytes actually read. It is 0 for nil.
func (c *Content) Len() int {
	if c == nil {
		return 0
	}

	return len(c.buf)
}

// Bytes returns the file content. The slice aliases the buffer and is valid
// until Release.
func (c *Content) Bytes() []byte {
	if c == nil {
		return nil
	}

	return c.buf
}

// Text returns the content as a string (a copy).
func (c *Content) Text() string {
	return string(c.Bytes())
}

// StatSize returns the size the file had before it was read.
func (c *Content) StatSize() int64 {
	if c == nil {
		return 0
	}

	return c.size
}

// Short reports whether fewer bytes were read than stat promised, e.g.
// because the file shrank during the read.
func (c *Content) Short() bool {
	return c != nil && int64(len(c.buf)) < c.size
}

// Release drops the buffer. It is a no-op on nil.
func (c *Content) Release() {
	if c == nil {
		return
	}

	c.buf = nil
	c.size = 0
}
