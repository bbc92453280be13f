package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/moyoez/gcomserver-go/staging"
	"github.com/moyoez/gcomserver-go/tool"
	"github.com/moyoez/gcomserver-go/types"
)

// Registry tracks live sessions for status reporting.
type Registry interface {
	Add(id string, status func() types.SessionStatus)
	Remove(id string)
}

type ServerOptions struct {
	Addr           string
	StagingDir     string
	KeepFiles      bool
	MaxConnections int // <= 0 means unbounded
	AcceptRate     int // new connections per second, <= 0 means unlimited
	Handler        types.HandlerInterface
	Registry       Registry
	Logger         *log.Logger
}

// Server accepts device connections and runs one Session per connection.
type Server struct {
	opts    ServerOptions
	log     *log.Logger
	limiter *rate.Limiter
	sem     chan struct{}

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

func NewServer(opts ServerOptions) *Server {
	s := &Server{opts: opts, log: opts.Logger}
	if s.log == nil {
		s.log = tool.NewLogger("server")
	}
	if opts.AcceptRate > 0 {
		burst := opts.AcceptRate
		if burst < 4 {
			burst = 4
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.AcceptRate), burst)
	}
	if opts.MaxConnections > 0 {
		s.sem = make(chan struct{}, opts.MaxConnections)
	}
	return s
}

// Listen binds the configured address. Serve calls it when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %w", types.ErrIO, s.opts.Addr, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until ctx is cancelled, then waits for the
// running sessions to finish.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.wg.Wait()

	s.log.Infof("[Server] Listening on %s, reachable at %v (keep files: %t)", ln.Addr(), tool.ReachableAddrs(ln.Addr().String()), s.opts.KeepFiles)
	for {
		if err := s.acquire(ctx); err != nil {
			return nil
		}
		conn, err := ln.Accept()
		if err != nil {
			s.release()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.Info("[Server] Stopped")
				return nil
			}
			return fmt.Errorf("%w: accept: %w", types.ErrIO, err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release()
			remote := conn.RemoteAddr().String()
			if err := s.ServeConn(ctx, conn, remote); err != nil {
				s.log.Debugf("[Server] Session from %s ended: %v", remote, err)
			}
		}()
	}
}

func (s *Server) acquire(ctx context.Context) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if s.sem == nil {
		return nil
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) release() {
	if s.sem != nil {
		<-s.sem
	}
}

// ServeConn runs a single session over conn with its own staging namespace.
// It is used for accepted connections and for stdio mode.
func (s *Server) ServeConn(ctx context.Context, conn io.ReadWriteCloser, remote string) error {
	stager, err := staging.New(staging.Options{
		Dir:       s.opts.StagingDir,
		KeepFiles: s.opts.KeepFiles,
		Logger:    s.log,
	})
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() {
		if err := stager.Close(); err != nil {
			s.log.Warnf("[Server] Failed to remove staging prefix %s: %v", stager.Prefix(), err)
		}
	}()

	session := NewSession(conn, remote,
		WithStager(stager),
		WithHandler(s.opts.Handler),
		WithLogger(s.log),
	)
	if s.opts.Registry != nil {
		s.opts.Registry.Add(session.Info().ID, session.Status)
		defer s.opts.Registry.Remove(session.Info().ID)
	}
	return session.Run(ctx)
}

// StdioConn joins a reader and writer, typically stdin and stdout, into the
// connection of an inetd-style session.
func StdioConn(in io.ReadCloser, out io.WriteCloser) io.ReadWriteCloser {
	return &stdioConn{in: in, out: out}
}

type stdioConn struct {
	in   io.ReadCloser
	out  io.WriteCloser
	once sync.Once
	err  error
}

func (c *stdioConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *stdioConn) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c *stdioConn) Close() error {
	c.once.Do(func() {
		c.err = errors.Join(c.in.Close(), c.out.Close())
	})
	return c.err
}
