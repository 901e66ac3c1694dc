package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxLine bounds one request line.
const maxLine = 1 << 20

// Ops.
const (
	OpScan           = "scan"
	OpReadFile       = "read_file"
	OpReleasePaths   = "release_paths"
	OpReleaseContent = "release_content"
)

// Request is one JSON line from the peer.
type Request struct {
	ID     int64  `json:"id"`
	Op     string `json:"op"`
	Root   string `json:"root,omitempty"`
	Path   string `json:"path,omitempty"`
	Handle string `json:"handle,omitempty"`
	Count  *int   `json:"count,omitempty"`
}

// Response is one JSON line to the peer. Content is base64 on the wire.
type Response struct {
	ID      int64    `json:"id"`
	Handle  string   `json:"handle,omitempty"`
	Paths   []string `json:"paths,omitempty"`
	Count   *int     `json:"count,omitempty"`
	Content []byte   `json:"content,omitempty"`
	Length  *int     `json:"length,omitempty"`
	OK      bool     `json:"ok,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Handle serves one request.
func (s *Session) Handle(req Request) Response {
	resp := Response{ID: req.ID}

	switch req.Op {
	case OpScan:
		if req.Root == "" {
			return fail(resp, fmt.Errorf("%w: scan needs root", ErrBadRequest))
		}

		h, set := s.Scan(req.Root)
		n := set.Len()
		resp.Handle = h
		resp.Paths = append([]string{}, set.Paths()...)
		resp.Count = &n
	case OpReadFile:
		if req.Path == "" {
			return fail(resp, fmt.Errorf("%w: read_file needs path", ErrBadRequest))
		}

		h, c, ok := s.ReadFile(req.Path)
		n := 0

		if ok {
			n = c.Len()
			resp.Handle = h
			resp.Content = c.Bytes()
		}

		resp.Length = &n
	case OpReleasePaths:
		if req.Count == nil {
			return fail(resp, fmt.Errorf("%w: release_paths needs count", ErrBadRequest))
		}

		if err := s.ReleasePaths(req.Handle, *req.Count); err != nil {
			return fail(resp, err)
		}

		resp.OK = true
	case OpReleaseContent:
		if err := s.ReleaseContent(req.Handle); err != nil {
			return fail(resp, err)
		}

		resp.OK = true
	default:
		return fail(resp, fmt.Errorf("%w %q", ErrUnknownOp, req.Op))
	}

	return resp
}

func fail(resp Response, err error) Response {
	resp.Error = err.Error()

	return resp
}

// Serve reads requests line by line from r and writes one response line per
// request to w until r is exhausted or ctx is done. Malformed lines, and
// lines longer than 1 MiB, get an error response with id 0 and serving goes
// on. Blank lines are ignored.
//
// Cancelling ctx returns immediately, even while r is blocked in Read.
// Serve does not close the session; leaked handles stay with it.
func Serve(ctx context.Context, s *Session, r io.Reader, w io.Writer) error {
	lines := make(chan requestLine)
	done := make(chan struct{})

	defer close(done)

	go readLines(r, lines, done)

	enc := json.NewEncoder(w)

	for {
		var in requestLine

		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}

			in = l
		}

		if in.err != nil {
			return fmt.Errorf("read request: %w", in.err)
		}

		var resp Response

		switch {
		case in.tooLong:
			resp = fail(Response{}, fmt.Errorf("%w: request line exceeds %d bytes", ErrBadRequest, maxLine))
		default:
			line := bytes.TrimSpace(in.data)
			if len(line) == 0 {
				continue
			}

			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				resp = fail(Response{}, fmt.Errorf("%w: %w", ErrBadRequest, err))
			} else {
				resp = s.Handle(req)
			}
		}

		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response %d: %w", resp.ID, err)
		}
	}
}

// requestLine is one line handed from the reader goroutine to Serve.
type requestLine struct {
	data    []byte
	tooLong bool
	err     error
}

// readLines splits r into lines and sends them on out until EOF, a read
// error, or done is closed. A line longer than maxLine is discarded up to its
// newline and sent as tooLong. out is closed on EOF.
func readLines(r io.Reader, out chan<- requestLine, done <-chan struct{}) {
	br := bufio.NewReaderSize(r, 64*1024)

	send := func(l requestLine) bool {
		select {
		case out <- l:
			return true
		case <-done:
			return false
		}
	}

	for {
		var (
			line    []byte
			tooLong bool
		)

		for {
			chunk, err := br.ReadSlice('\n')
			if !tooLong {
				if len(line)+len(chunk) > maxLine+1 {
					tooLong = true
					line = nil
				} else {
					line = append(line, chunk...)
				}
			}

			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}

			if err != nil && !errors.Is(err, io.EOF) {
				send(requestLine{err: err})

				return
			}

			if err != nil {
				// EOF: flush an unterminated last line.
				if tooLong || len(line) > 0 {
					if !send(requestLine{data: line, tooLong: tooLong}) {
						return
					}
				}

				close(out)

				return
			}

			break
		}

		if !send(requestLine{data: line, tooLong: tooLong}) {
			return
		}
	}
}
