package server

import (
	"errors"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/devwelkin/hermes-static/internal/filesystem"
	"github.com/devwelkin/hermes-static/internal/listener"
	"github.com/devwelkin/hermes-static/internal/request"
	"github.com/devwelkin/hermes-static/internal/response"
)

// State is the supervisor lifecycle: Init -> Running -> ShuttingDown -> Terminated.
type State int32

const (
	StateInit State = iota
	StateRunning
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Server holds the state for our http server. It owns the listener and the
// filesystem handle until Close returns.
type Server struct {
	listener *listener.Listener
	fs       *filesystem.FS

	closed    atomic.Bool
	state     atomic.Int32
	done      chan struct{} // closed when the accept loop exits
	closeOnce sync.Once
	closeErr  error

	workers sync.WaitGroup
	nextID  atomic.Uint64
	active  *xsync.MapOf[uint64, string] // worker id -> peer address
	served  *xsync.Counter
}

// Serve listens on port and starts accepting connections in the background.
func Serve(port int, fs *filesystem.FS) (*Server, error) {
	ln, err := listener.Create(port)
	if err != nil {
		return nil, err
	}
	return ServeListener(ln, fs), nil
}

// ServeListener starts the accept loop on an existing listener.
func ServeListener(ln *listener.Listener, fs *filesystem.FS) *Server {
	s := &Server{
		listener: ln,
		fs:       fs,
		done:     make(chan struct{}),
		active:   xsync.NewMapOf[uint64, string](),
		served:   xsync.NewCounter(),
	}
	s.state.Store(int32(StateRunning))

	go s.listen()

	return s
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) State() State {
	return State(s.state.Load())
}

// Done is closed once the accept loop has stopped, either because Close was
// called or because accepting failed.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Active returns the number of connections currently being handled.
func (s *Server) Active() int {
	return s.active.Size()
}

// Served returns the number of connections accepted so far.
func (s *Server) Served() int64 {
	return s.served.Value()
}

// Close stops accepting, lets in-flight workers finish, then closes the
// listener and the filesystem handle.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.state.Store(int32(StateShuttingDown))

		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.closeErr = err
		}
		<-s.done

		if n := s.active.Size(); n > 0 {
			log.Printf("waiting for %d in-flight connections", n)
		}
		s.workers.Wait()

		if err := s.fs.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
		s.state.Store(int32(StateTerminated))
	})
	return s.closeErr
}

// listen is the main accept loop
func (s *Server) listen() {
	defer close(s.done)

	for {
		conn, peer, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				log.Println("listener closed, server shutting down.")
				return
			}
			log.Printf("error accepting connection, shutting down: %v", err)
			s.state.CompareAndSwap(int32(StateRunning), int32(StateShuttingDown))
			return
		}

		id := s.nextID.Add(1)
		s.active.Store(id, peer)
		s.served.Inc()
		s.workers.Add(1)
		go s.handle(id, conn, peer)
	}
}

// handle is the worker for one connection. Nothing it does, including a
// panic, reaches the accept loop.
func (s *Server) handle(id uint64, conn net.Conn, peer string) {
	defer s.workers.Done()
	defer s.active.Delete(id)
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker for %s panicked: %v", peer, r)
		}
	}()

	// 1. parse the request
	req, err := request.RequestFromReader(conn)
	if err != nil {
		if errors.Is(err, request.ErrBadRequest) {
			log.Printf("error parsing request from %s: %v", peer, err)
			s.respondConstant(conn, peer, req, response.StatusBadRequest, now())
			return
		}
		// the peer is gone or too slow; there is nobody to answer
		log.Printf("connection error from %s: %v", peer, err)
		return
	}

	// 2. resolve and respond
	s.dispatch(conn, peer, req)
}
