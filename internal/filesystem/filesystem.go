package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

var (
	ErrNotFound  = errors.New("file not found")
	ErrForbidden = errors.New("forbidden")
	ErrInternal  = errors.New("internal error accessing file")

	ErrBadRoot = errors.New("bad server root directory")
	ErrBadLog  = errors.New("bad log file")
)

// FS is the server's view of the disk: a fixed root to serve from and an
// append-only transaction log. It is safe for concurrent use.
type FS struct {
	root string

	mu  sync.Mutex // guards writes to log, one line at a time
	log *os.File
}

// File is a regular file opened under the root, with its length and
// modification time measured once.
type File struct {
	*os.File
	Size    int64
	ModTime time.Time
}

// Create checks that root is an existing directory and opens logPath for
// appending, creating it if needed.
func Create(root, logPath string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRoot, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrBadRoot, root)
	}

	if info, err := os.Stat(logPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrBadLog, logPath)
	}
	log, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadLog, err)
	}

	return &FS{
		root: strings.TrimRight(abs, "/"),
		log:  log,
	}, nil
}

func (s *FS) Root() string {
	return s.root
}

// Resolve maps a request path to a filesystem path under the root.
//
// Backslashes are treated as separators. Walking the path segment by segment,
// every name descends one level and every ".." ascends one; empty and "."
// segments stay put. Ascending above the root is ErrForbidden no matter what
// follows. Percent-encoding is not decoded.
func (s *FS) Resolve(urlPath string) (string, error) {
	p := strings.ReplaceAll(urlPath, `\`, "/")
	if strings.IndexByte(p, 0) >= 0 {
		return "", fmt.Errorf("%w: %q", ErrNotFound, urlPath)
	}

	depth := 0
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return "", fmt.Errorf("%w: %q escapes the root", ErrForbidden, urlPath)
			}
		default:
			depth++
		}
	}

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return s.root + p, nil
}

// Open resolves urlPath and opens it read-only. Only regular files are
// served: a missing path is ErrNotFound, anything else that is not a
// regular file is ErrForbidden.
func (s *FS) Open(urlPath string) (*File, error) {
	path, err := s.Resolve(urlPath)
	if err != nil {
		return nil, err
	}

	// stat before open so a FIFO never blocks the open call
	info, err := os.Stat(path)
	if err != nil {
		return nil, classify(err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %q is not a regular file", ErrForbidden, urlPath)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, classify(err)
	}
	info, err = f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %q is not a regular file", ErrForbidden, urlPath)
	}

	return &File{File: f, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	default:
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
}

// Log appends one line to the transaction log. Concurrent callers, and other
// processes appending to the same file, never interleave within a line.
func (s *FS) Log(line string) error {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.log == nil {
		return os.ErrClosed
	}
	if err := lockFile(s.log); err != nil {
		return err
	}
	defer unlockFile(s.log)

	_, err := s.log.WriteString(line)
	return err
}

// Close closes the log. The FS must not be used afterwards.
func (s *FS) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.log == nil {
		return nil
	}
	err := s.log.Close()
	s.log = nil
	return err
}
