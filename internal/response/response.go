package response

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

type StatusCode int

const (
	StatusOK                  StatusCode = 200
	StatusBadRequest          StatusCode = 400
	StatusForbidden           StatusCode = 403
	StatusNotFound            StatusCode = 404
	StatusMethodNotAllowed    StatusCode = 405
	StatusInternalServerError StatusCode = 500
)

var reasonPhrases = map[StatusCode]string{
	StatusOK:                  "OK",
	StatusBadRequest:          "Bad Request",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusMethodNotAllowed:    "Method Not Allowed",
	StatusInternalServerError: "Internal Server Error",
}

// String returns the status phrase, e.g. "404 Not Found".
func (c StatusCode) String() string {
	return fmt.Sprintf("%d %s", int(c), reasonPhrases[c])
}

// DateLayout renders as e.g. "Tue 07 Mar 2023 14:05:09 GMT".
const DateLayout = "Mon 02 Jan 2006 15:04:05 GMT"

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

type Header struct {
	Name  string
	Value string
}

// Headers are written in the order they were set.
type Headers []Header

// Set adds or overwrites a header.
func (h *Headers) Set(name, value string) {
	for i := range *h {
		if (*h)[i].Name == name {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Header{Name: name, Value: value})
}

// GetDefaultHeaders returns the headers every response carries.
func GetDefaultHeaders(date string, contentLen int64, contentType string) Headers {
	return Headers{
		{Name: "Date", Value: date},
		{Name: "Content-Type", Value: contentType},
		{Name: "Content-Length", Value: strconv.FormatInt(contentLen, 10)},
		{Name: "Connection", Value: "close"},
	}
}

type writerState int

const (
	stateStatus  writerState = iota // can write status
	stateHeaders                    // can write headers
	stateBody                       // can write body
)

var ErrWrongState = errors.New("response writer called in wrong state")

// Writer is a stateful writer for constructing an http response. The status
// line and headers go out in a single write once WriteHeaders is called.
type Writer struct {
	w       io.Writer    // connection
	state   writerState  // state machine
	head    bytes.Buffer // pending status line and headers
	written int64        // body bytes written
}

// NewWriter creates a new response Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:     w,
		state: stateStatus,
	}
}

// WriteStatusLine records the status line. can only be called once, and first.
func (w *Writer) WriteStatusLine(statusCode StatusCode) error {
	if w.state != stateStatus {
		return fmt.Errorf("%w: WriteStatusLine", ErrWrongState)
	}
	fmt.Fprintf(&w.head, "HTTP/1.1 %s\r\n", statusCode)
	w.state = stateHeaders
	return nil
}

// WriteHeaders sends the status line and the headers. must be called after
// status and before body.
func (w *Writer) WriteHeaders(h Headers) error {
	if w.state != stateHeaders {
		return fmt.Errorf("%w: WriteHeaders", ErrWrongState)
	}

	for _, f := range h {
		fmt.Fprintf(&w.head, "%s: %s\r\n", f.Name, f.Value)
	}
	// final crlf to separate headers from body
	w.head.WriteString("\r\n")

	w.state = stateBody
	_, err := w.w.Write(w.head.Bytes())
	w.head.Reset()
	return err
}

// WriteBody writes to the response body. can be called multiple times, but
// only after headers have been written.
func (w *Writer) WriteBody(p []byte) (int, error) {
	if w.state != stateBody {
		return 0, fmt.Errorf("%w: WriteBody before headers", ErrWrongState)
	}
	n, err := w.w.Write(p)
	w.written += int64(n)
	return n, err
}

// Written reports how many body bytes reached the connection.
func (w *Writer) Written() int64 {
	return w.written
}

// WriteConstant writes a complete response whose body is the fixed page for
// statusCode.
func WriteConstant(w io.Writer, statusCode StatusCode, date string) error {
	body := Page(statusCode)
	rw := NewWriter(w)
	if err := rw.WriteStatusLine(statusCode); err != nil {
		return err
	}
	if err := rw.WriteHeaders(GetDefaultHeaders(date, int64(len(body)), "text/html")); err != nil {
		return err
	}
	_, err := rw.WriteBody(body)
	return err
}
