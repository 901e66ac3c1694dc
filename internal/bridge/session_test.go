package bridge

import (
	"bufio"
	"context"
	"io"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, data := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	}

	return root
}

func Test_Session_Releases_Set_When_Count_Matches(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "a", "sub/b.db": "bb", "c.bin": "c"})
	s := NewSession(nil)

	h, set := s.Scan(root)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, 1, s.Live())

	err := s.ReleasePaths(h, 3)
	require.ErrorIs(t, err, ErrCountMismatch)
	assert.Equal(t, 2, set.Len(), "mismatched release leaves the set live")

	require.NoError(t, s.ReleasePaths(h, 2))
	assert.Equal(t, 0, set.Len())
	assert.Equal(t, 0, s.Live())

	require.ErrorIs(t, s.ReleasePaths(h, 2), ErrUnknownHandle)
}

func Test_Session_Issues_Handle_When_Scan_Is_Empty(t *testing.T) {
	s := NewSession(nil)

	h, set := s.Scan(filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, 0, set.Len())
	assert.NotEmpty(t, h)

	require.NoError(t, s.ReleasePaths(h, 0))
}

func Test_Session_Releases_Content_When_Handle_Is_Live(t *testing.T) {
	root := writeTree(t, map[string]string{"a.json": `{"x":1}`, "empty.txt": ""})
	s := NewSession(nil)

	h, c, ok := s.ReadFile(filepath.Join(root, "a.json"))
	require.True(t, ok)
	assert.Equal(t, `{"x":1}`, c.Text())

	_, _, ok = s.ReadFile(filepath.Join(root, "empty.txt"))
	assert.False(t, ok)
	assert.Equal(t, 1, s.Live())

	require.NoError(t, s.ReleaseContent(h))
	require.ErrorIs(t, s.ReleaseContent(h), ErrUnknownHandle)
	require.ErrorIs(t, s.ReleaseContent("never-issued"), ErrUnknownHandle)
}

func Test_Session_Rejects_Release_When_Handle_Kind_Differs(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "a"})
	s := NewSession(nil)

	ph, _ := s.Scan(root)
	ch, _, ok := s.ReadFile(filepath.Join(root, "a.txt"))
	require.True(t, ok)

	require.ErrorIs(t, s.ReleaseContent(ph), ErrUnknownHandle)
	require.ErrorIs(t, s.ReleasePaths(ch, 1), ErrUnknownHandle)
	assert.Equal(t, 2, s.Live())
}

func Test_Session_Releases_Leaked_Handles_When_Closed(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "a"})
	s := NewSession(nil)

	_, set := s.Scan(root)
	_, c, ok := s.ReadFile(filepath.Join(root, "a.txt"))
	require.True(t, ok)

	assert.Equal(t, 2, s.Close())
	assert.Equal(t, 0, set.Len())
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, s.Close())
}

func serveLines(t *testing.T, s *Session, lines ...string) []Response {
	t.Helper()

	var out strings.Builder
	require.NoError(t, Serve(t.Context(), s, strings.NewReader(strings.Join(lines, "\n")+"\n"), &out))

	var resps []Response

	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var r Response
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r), sc.Text())
		resps = append(resps, r)
	}

	return resps
}

func Test_Serve_Completes_Exchange_When_Requests_Are_Valid(t *testing.T) {
	root := writeTree(t, map[string]string{"a.log": "line1\n"})
	path := filepath.Join(root, "a.log")
	s := NewSession(nil)

	rootJSON, err := json.Marshal(root)
	require.NoError(t, err)
	pathJSON, err := json.Marshal(path)
	require.NoError(t, err)

	resps := serveLines(t, s,
		fmt.Sprintf(`{"id":1,"op":"scan","root":%s}`, rootJSON),
		fmt.Sprintf(`{"id":2,"op":"read_file","path":%s}`, pathJSON),
	)
	require.Len(t, resps, 2)

	scan := resps[0]
	assert.Equal(t, int64(1), scan.ID)
	assert.Empty(t, scan.Error)
	assert.Equal(t, []string{path}, scan.Paths)
	require.NotNil(t, scan.Count)
	assert.Equal(t, 1, *scan.Count)

	read := resps[1]
	assert.Equal(t, "line1\n", string(read.Content))
	require.NotNil(t, read.Length)
	assert.Equal(t, 6, *read.Length)

	resps = serveLines(t, s,
		fmt.Sprintf(`{"id":3,"op":"release_paths","handle":%q,"count":1}`, scan.Handle),
		fmt.Sprintf(`{"id":4,"op":"release_content","handle":%q}`, read.Handle),
		fmt.Sprintf(`{"id":5,"op":"release_content","handle":%q}`, read.Handle),
	)
	require.Len(t, resps, 3)
	assert.True(t, resps[0].OK)
	assert.True(t, resps[1].OK)
	assert.False(t, resps[2].OK)
	assert.Contains(t, resps[2].Error, ErrUnknownHandle.Error())
	assert.Equal(t, 0, s.Live())
}

func Test_Serve_Replies_With_Error_When_Request_Is_Faulty(t *testing.T) {
	s := NewSession(nil)

	resps := serveLines(t, s,
		`{"id":1,"op":"format_disk"}`,
		`not json`,
		``,
		`{"id":2,"op":"scan"}`,
		`{"id":3,"op":"release_paths","handle":"h"}`,
		`{"id":4,"op":"read_file","path":"/definitely/missing.txt"}`,
	)
	require.Len(t, resps, 5)

	assert.Equal(t, int64(1), resps[0].ID)
	assert.Contains(t, resps[0].Error, ErrUnknownOp.Error())

	assert.Equal(t, int64(0), resps[1].ID)
	assert.Contains(t, resps[1].Error, ErrBadRequest.Error())

	assert.Contains(t, resps[2].Error, "scan needs root")
	assert.Contains(t, resps[3].Error, "needs count")

	assert.Empty(t, resps[4].Error)
	assert.Empty(t, resps[4].Handle)
	require.NotNil(t, resps[4].Length)
	assert.Equal(t, 0, *resps[4].Length)
}

func Test_Serve_Returns_When_Context_Is_Cancelled_While_Reader_Blocks(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(t.Context())

	result := make(chan error, 1)

	go func() {
		result <- Serve(ctx, NewSession(nil), pr, io.Discard)
	}()

	// Nothing is ever written to the pipe, so the reader stays blocked.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func Test_Serve_Keeps_Serving_When_Request_Line_Is_Too_Long(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "a"})
	s := NewSession(nil)

	long := `{"id":1,"op":"scan","root":"` + strings.Repeat("x", maxLine+10) + `"}`

	resps := serveLines(t, s,
		long,
		fmt.Sprintf(`{"id":2,"op":"scan","root":%q}`, root),
	)
	require.Len(t, resps, 2)

	assert.Equal(t, int64(0), resps[0].ID)
	assert.Contains(t, resps[0].Error, ErrBadRequest.Error())
	assert.Contains(t, resps[0].Error, "exceeds")

	assert.Equal(t, int64(2), resps[1].ID)
	assert.Empty(t, resps[1].Error)
	require.NotNil(t, resps[1].Count)
	assert.Equal(t, 1, *resps[1].Count)

	s.Close()
}

func Test_Serve_Answers_Last_Line_When_Input_Lacks_Trailing_Newline(t *testing.T) {
	var out strings.Builder

	require.NoError(t, Serve(t.Context(), NewSession(nil), strings.NewReader(`{"id":9,"op":"nope"}`), &out))

	var r Response
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &r))
	assert.Equal(t, int64(9), r.ID)
	assert.Contains(t, r.Error, ErrUnknownOp.Error())
}
