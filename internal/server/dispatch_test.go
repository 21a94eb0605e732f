package server

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/devwelkin/hermes-static/internal/filesystem"
	"github.com/devwelkin/hermes-static/internal/request"
)

// limitedWriter accepts limit bytes, then fails every write.
type limitedWriter struct {
	limit   int
	written []byte
}

var errPeerGone = errors.New("broken pipe")

func (w *limitedWriter) Write(p []byte) (int, error) {
	room := w.limit - len(w.written)
	if room <= 0 {
		return 0, errPeerGone
	}
	if len(p) > room {
		w.written = append(w.written, p[:room]...)
		return room, errPeerGone
	}
	w.written = append(w.written, p...)
	return len(p), nil
}

func setupDispatch(t *testing.T, fileSize int) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "access.log")
	fs, err := filesystem.Create(dir, logPath)
	if err != nil {
		t.Fatalf("filesystem.Create: %v", err)
	}
	t.Cleanup(func() { fs.Close() })

	if err := os.WriteFile(filepath.Join(dir, "big.bin"), make([]byte, fileSize), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return &Server{fs: fs}, logPath
}

func parse(t *testing.T, raw string) *request.Request {
	t.Helper()
	req, err := request.RequestFromReader(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("RequestFromReader: %v", err)
	}
	return req
}

func readLog(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestStreamStopsWhenPeerDisconnects(t *testing.T) {
	s, logPath := setupDispatch(t, 10000)

	w := &limitedWriter{limit: 3000}
	s.dispatch(w, "10.0.0.1", parse(t, "GET /big.bin HTTP/1.1\r\n\r\n"))

	_, body, ok := strings.Cut(string(w.written), "\r\n\r\n")
	if !ok {
		t.Fatalf("header block was not written")
	}

	lines := readLog(t, logPath)
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %q", lines)
	}
	// the final partial chunk counts toward bytes sent
	want := "\t200 OK " + strconv.Itoa(len(body)) + "/10000"
	if !strings.HasSuffix(lines[0], want) {
		t.Errorf("log line %q does not end with %q", lines[0], want)
	}
	if len(body) >= 10000 {
		t.Errorf("expected a short body, got %d bytes", len(body))
	}
	if strings.Count(string(w.written), "HTTP/1.1") != 1 {
		t.Errorf("a second response was started: %q", w.written)
	}
}

func TestHeaderWriteFailure(t *testing.T) {
	s, logPath := setupDispatch(t, 10)

	w := &limitedWriter{limit: 0}
	s.dispatch(w, "10.0.0.1", parse(t, "GET /big.bin HTTP/1.1\r\n\r\n"))

	lines := readLog(t, logPath)
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %q", lines)
	}
	if !strings.HasSuffix(lines[0], "\t"+OutcomeHeaderAborted) {
		t.Errorf("log line = %q", lines[0])
	}
}

func TestConstantWriteFailureIsStillLogged(t *testing.T) {
	s, logPath := setupDispatch(t, 10)

	s.dispatch(&limitedWriter{limit: 5}, "10.0.0.1", parse(t, "GET /nope HTTP/1.1\r\n\r\n"))

	lines := readLog(t, logPath)
	if len(lines) != 1 || !strings.HasSuffix(lines[0], "\t404 Not Found") {
		t.Errorf("log = %q", lines)
	}
}

func TestLogLineFormat(t *testing.T) {
	s, logPath := setupDispatch(t, 10)

	s.dispatch(&limitedWriter{limit: 1 << 20}, "192.168.1.9", parse(t, "DELETE /big.bin HTTP/1.0\r\n\r\n"))

	lines := readLog(t, logPath)
	fields := strings.Split(lines[0], "\t")
	if len(fields) != 4 {
		t.Fatalf("expected 4 fields, got %q", lines[0])
	}
	if !strings.HasSuffix(fields[0], " GMT") {
		t.Errorf("date = %q", fields[0])
	}
	if fields[1] != "192.168.1.9" {
		t.Errorf("peer = %q", fields[1])
	}
	if fields[2] != "DELETE /big.bin HTTP/1.0" {
		t.Errorf("request = %q", fields[2])
	}
	if fields[3] != "405 Method Not Allowed" {
		t.Errorf("outcome = %q", fields[3])
	}
}
