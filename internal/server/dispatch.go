package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/devwelkin/hermes-static/internal/filesystem"
	"github.com/devwelkin/hermes-static/internal/request"
	"github.com/devwelkin/hermes-static/internal/response"
)

// ChunkSize is how much of a file is read and written per step.
const ChunkSize = 1024

// OutcomeHeaderAborted is logged when the 200 header block could not be sent.
const OutcomeHeaderAborted = "connection unexpectedly terminated while sending response header"

func now() string {
	return response.FormatDate(time.Now())
}

// dispatch sends exactly one response for req and logs exactly one line.
func (s *Server) dispatch(conn io.Writer, peer string, req *request.Request) {
	date := now()

	if req.Method() != "GET" {
		s.respondConstant(conn, peer, req, response.StatusMethodNotAllowed, date)
		return
	}

	if !strings.HasPrefix(req.Target(), "/") {
		s.respondConstant(conn, peer, req, response.StatusBadRequest, date)
		return
	}

	f, err := s.fs.Open(req.Target())
	if err != nil {
		status := statusFor(err)
		if status == response.StatusInternalServerError {
			log.Printf("error opening %q for %s: %v", req.Target(), peer, err)
		}
		s.respondConstant(conn, peer, req, status, date)
		return
	}
	defer f.Close()

	w := response.NewWriter(conn)
	if err := w.WriteStatusLine(response.StatusOK); err != nil {
		log.Printf("error writing status line: %v", err)
		return
	}
	h := response.GetDefaultHeaders(date, f.Size, contentType(f.Name()))
	h.Set("Last-Modified", response.FormatDate(f.ModTime))
	if err := w.WriteHeaders(h); err != nil {
		// part of the header may be out already, so no error status can follow
		s.logTransaction(date, peer, req, OutcomeHeaderAborted)
		return
	}

	if err := stream(w, io.LimitReader(f, f.Size)); err != nil {
		log.Printf("stream to %s cut short: %v", peer, err)
	}

	s.logTransaction(date, peer, req, fmt.Sprintf("%s %d/%d", response.StatusOK, w.Written(), f.Size))
}

// stream copies r to the body in ChunkSize pieces and stops at the first read
// error, write error or short write.
func stream(w *response.Writer, r io.Reader) error {
	buf := make([]byte, ChunkSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			written, werr := w.WriteBody(buf[:n])
			if werr != nil {
				return werr
			}
			if written < n {
				return io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

// respondConstant sends a fixed page and logs it. A failed write ends the
// response, not the worker.
func (s *Server) respondConstant(conn io.Writer, peer string, req *request.Request, status response.StatusCode, date string) {
	if err := response.WriteConstant(conn, status, date); err != nil {
		log.Printf("error writing %s response to %s: %v", status, peer, err)
	}
	s.logTransaction(date, peer, req, status.String())
}

func (s *Server) logTransaction(date, peer string, req *request.Request, outcome string) {
	line := fmt.Sprintf("%s\t%s\t%s %s %s\t%s\n",
		date, peer, req.Method(), req.Target(), req.Version(), outcome)
	if err := s.fs.Log(line); err != nil {
		log.Printf("error writing transaction log: %v", err)
	}
}

func statusFor(err error) response.StatusCode {
	switch {
	case errors.Is(err, filesystem.ErrForbidden):
		return response.StatusForbidden
	case errors.Is(err, filesystem.ErrNotFound):
		return response.StatusNotFound
	default:
		return response.StatusInternalServerError
	}
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
