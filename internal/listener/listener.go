package listener

import (
	"fmt"
	"io"
	"net"
	"time"
)

// DefaultTimeout bounds every read and write on an accepted connection.
const DefaultTimeout = 10 * time.Second

// How long and how much a closing connection drains from the peer.
const (
	lingerTimeout = 500 * time.Millisecond
	lingerBytes   = 256 * 1024
)

// Listener owns the listening socket.
type Listener struct {
	ln      net.Listener
	timeout time.Duration
}

// Create listens on the given TCP port on all interfaces.
func Create(port int) (*Listener, error) {
	return Listen(fmt.Sprintf(":%d", port), DefaultTimeout)
}

// Listen listens on addr; accepted connections get timeout applied to each
// read and write.
func Listen(addr string, timeout time.Duration) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, timeout: timeout}, nil
}

func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Accept waits for the next connection. peer is the remote IP address.
func (l *Listener) Accept() (conn net.Conn, peer string, err error) {
	c, err := l.ln.Accept()
	if err != nil {
		return nil, "", err
	}

	peer = c.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if tcp, ok := c.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}
	return &timeoutConn{Conn: c, timeout: l.timeout}, peer, nil
}

// Close stops accepting; a blocked Accept returns an error.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// timeoutConn refreshes the deadline before every operation so the timeout
// applies per read or write rather than to the whole connection.
type timeoutConn struct {
	net.Conn
	timeout time.Duration
}

func (c *timeoutConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *timeoutConn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}

// Close shuts down both directions before releasing the socket. Unread input
// is drained first; closing with data still queued would reset the
// connection and the peer could lose the response.
func (c *timeoutConn) Close() error {
	if tcp, ok := c.Conn.(*net.TCPConn); ok {
		tcp.CloseWrite()
		tcp.SetReadDeadline(time.Now().Add(lingerTimeout))
		io.Copy(io.Discard, io.LimitReader(tcp, lingerBytes))
	}
	return c.Conn.Close()
}
