package headers

import (
	"errors"
	"fmt"

	"github.com/devwelkin/hermes-static/internal/buffer"
)

var (
	ErrMissingColon     = errors.New("invalid header: no colon found")
	ErrBadContentLength = errors.New("invalid content-length")
)

// ContentLengthLabel is matched case-sensitively.
const ContentLengthLabel = "Content-Length"

// Header is one request header line as spans into the receive buffer.
type Header struct {
	Label buffer.Span
	Value buffer.Span
}

// Headers keeps header lines in declaration order. Labels may repeat.
type Headers []Header

func NewHeaders() Headers {
	return Headers{}
}

// Parse parses the line referenced by line (EOL excluded) as "label: value"
// and appends it. The label runs up to the first ':'; one space after the
// colon is the delimiter, the value runs up to the first '\r'.
func (h *Headers) Parse(buf *buffer.Buffer, line buffer.Span) error {
	end := line.Off + line.Len
	i := line.Off
	for i < end && buf.At(i) != ':' {
		i++
	}
	label := buffer.Span{Off: line.Off, Len: i - line.Off}
	if label.Empty() || i == end {
		return fmt.Errorf("%w: %q", ErrMissingColon, buf.Bytes(line))
	}

	// consume ':' and the delimiter space
	i++
	if i < end && buf.At(i) == ' ' {
		i++
	}

	start := i
	for i < end && buf.At(i) != '\r' && buf.At(i) != '\n' {
		i++
	}

	*h = append(*h, Header{
		Label: label,
		Value: buffer.Span{Off: start, Len: i - start},
	})
	return nil
}

// Get returns the value of the first header with the given label.
func (h Headers) Get(buf *buffer.Buffer, label string) (string, bool) {
	for _, hdr := range h {
		if buf.String(hdr.Label) == label {
			return buf.String(hdr.Value), true
		}
	}
	return "", false
}

// ContentLength looks up the first Content-Length header. ok is false when
// there is none. The value must be a non-empty run of decimal digits no
// greater than max.
func (h Headers) ContentLength(buf *buffer.Buffer, max int64) (n int64, ok bool, err error) {
	value, ok := h.Get(buf, ContentLengthLabel)
	if !ok {
		return 0, false, nil
	}
	n, err = ParseLength(value, max)
	return n, true, err
}

// ParseLength parses an unsigned decimal with no sign, padding or suffix.
func ParseLength(value string, max int64) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: empty value", ErrBadContentLength)
	}
	var n int64
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrBadContentLength, value)
		}
		n = n*10 + int64(c-'0')
		if n > max {
			return 0, fmt.Errorf("%w: %s exceeds %d", ErrBadContentLength, value, max)
		}
	}
	return n, nil
}
