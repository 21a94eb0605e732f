// request.go

package request

import (
	"errors"
	"fmt"
	"io"

	"github.com/devwelkin/hermes-static/internal/buffer"
	"github.com/devwelkin/hermes-static/internal/headers"
)

// Custom errors
var (
	// ErrBadRequest means the client sent something unparsable; it gets a 400.
	ErrBadRequest = errors.New("bad request")
	// ErrConnection means reading failed or timed out; no response is sent.
	ErrConnection = errors.New("connection error")

	ErrTruncatedBody  = fmt.Errorf("%w: truncated request body", ErrConnection)
	ErrHeaderTooLarge = fmt.Errorf("%w: header section too large", ErrBadRequest)
)

const (
	MaxContentLength = 100 * 1024 * 1024
	MaxHeaderBytes   = 1024 * 1024
)

const (
	stateLineStart    = iota // 0
	stateInLine              // 1
	stateEndOfHeaders        // 2
)

type Request struct {
	RequestLine RequestLine
	Headers     headers.Headers
	Body        []byte

	buf *buffer.Buffer
}

// RequestLine holds spans into the request's receive buffer.
type RequestLine struct {
	Method  buffer.Span
	Target  buffer.Span
	Version buffer.Span
}

func (rl RequestLine) Valid() bool {
	return !rl.Method.Empty() && !rl.Target.Empty() && !rl.Version.Empty()
}

func (r *Request) Method() string  { return r.Text(r.RequestLine.Method) }
func (r *Request) Target() string  { return r.Text(r.RequestLine.Target) }
func (r *Request) Version() string { return r.Text(r.RequestLine.Version) }

// Text returns the bytes a span of this request refers to.
func (r *Request) Text(s buffer.Span) string {
	if r.buf == nil {
		return ""
	}
	return r.buf.String(s)
}

type parser struct {
	req       *Request
	buf       *buffer.Buffer
	state     int
	lineStart int
	lines     int
}

// RequestFromReader reads one request off reader. On error the returned
// Request is still non-nil and holds whatever request line was parsed, so
// callers can log it.
func RequestFromReader(reader io.Reader) (*Request, error) {
	buf := buffer.New(buffer.InitialCapacity)
	req := &Request{
		Headers: headers.NewHeaders(),
		buf:     buf,
	}
	p := &parser{req: req, buf: buf, state: stateLineStart}

	for p.state != stateEndOfHeaders {
		n, err := buf.Fill(reader)

		if n > 0 {
			if pErr := p.scan(); pErr != nil {
				return req, pErr
			}
		}

		if p.state == stateEndOfHeaders {
			break
		}

		if err != nil {
			if err == io.EOF {
				return req, fmt.Errorf("%w: %w", ErrConnection, io.ErrUnexpectedEOF)
			}
			return req, fmt.Errorf("%w: %w", ErrConnection, err)
		}

		if buf.Filled() > MaxHeaderBytes {
			return req, ErrHeaderTooLarge
		}
	}

	if p.lines == 0 {
		return req, fmt.Errorf("%w: missing request line", ErrBadRequest)
	}

	length, ok, err := req.Headers.ContentLength(buf, MaxContentLength)
	if err != nil {
		return req, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if ok && length > 0 {
		body, err := readBody(reader, buf.Unscanned(), length)
		req.Body = body
		if err != nil {
			return req, err
		}
	}

	return req, nil
}

// scan runs the line lexer over bytes received since the last call. The scan
// cursor never rewinds.
func (p *parser) scan() error {
	for i := p.buf.Scanned(); i < p.buf.Filled(); i++ {
		switch p.buf.At(i) {
		case '\r':
			// ignored, state unchanged
		case '\n':
			if p.state == stateLineStart {
				p.state = stateEndOfHeaders
				p.buf.Advance(i + 1 - p.buf.Scanned())
				return nil
			}
			p.state = stateLineStart
			p.lines++
			line := buffer.Span{Off: p.lineStart, Len: i - p.lineStart}
			for line.Len > 0 && p.buf.At(line.Off+line.Len-1) == '\r' {
				line.Len--
			}
			if err := p.parseLine(line); err != nil {
				return err
			}
			p.lineStart = i + 1
		default:
			p.state = stateInLine
		}
	}
	p.buf.Advance(p.buf.Filled() - p.buf.Scanned())
	return nil
}

func (p *parser) parseLine(line buffer.Span) error {
	if p.lines == 1 {
		rl := parseRequestLine(p.buf, line)
		p.req.RequestLine = rl
		if !rl.Valid() {
			return fmt.Errorf("%w: malformed request line %q", ErrBadRequest, p.buf.Bytes(line))
		}
		return nil
	}
	if err := p.req.Headers.Parse(p.buf, line); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// parseRequestLine splits "METHOD SP URL SP VERSION". Runs of spaces separate
// fields; the version runs to the end of the line.
func parseRequestLine(buf *buffer.Buffer, line buffer.Span) RequestLine {
	end := line.Off + line.Len
	i := line.Off

	word := func() buffer.Span {
		start := i
		for i < end && buf.At(i) != ' ' {
			i++
		}
		s := buffer.Span{Off: start, Len: i - start}
		for i < end && buf.At(i) == ' ' {
			i++
		}
		return s
	}

	var rl RequestLine
	rl.Method = word()
	rl.Target = word()

	start := i
	for i < end && buf.At(i) != '\r' && buf.At(i) != '\n' {
		i++
	}
	rl.Version = buffer.Span{Off: start, Len: i - start}
	return rl
}

// readBody collects exactly length bytes, starting with what already arrived
// behind the header block.
func readBody(reader io.Reader, pending []byte, length int64) ([]byte, error) {
	if int64(len(pending)) >= length {
		return append([]byte(nil), pending[:length]...), nil
	}

	body := make([]byte, len(pending), max(int64(len(pending)), min(length, 64*1024)))
	copy(body, pending)

	chunk := make([]byte, 32*1024)
	for int64(len(body)) < length {
		want := min(int64(len(chunk)), length-int64(len(body)))
		n, err := reader.Read(chunk[:want])
		body = append(body, chunk[:n]...)
		if int64(len(body)) == length {
			break
		}
		if err != nil {
			return body, fmt.Errorf("%w: got %d of %d bytes: %w", ErrTruncatedBody, len(body), length, err)
		}
		if n == 0 {
			return body, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedBody, len(body), length)
		}
	}
	return body, nil
}
