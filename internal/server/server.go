package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/lzulberti/cipsd/internal/config"
	"github.com/lzulberti/cipsd/internal/logging"
)

// keepAliveIdle/Interval/Count match §4.8's TCP keepalive contract
// (idle 10s, interval 10s, count 6 — approximated via Go's single
// SetKeepAlivePeriod knob, since the stdlib does not expose a
// separate probe count).
const (
	keepAliveIdle = 10 * time.Second
)

// Server listens on a single address (per §4.8/§6 — the reference
// design has one listen socket, unlike the teacher's multi-
// listener/TLS-mode setup) and hands accepted connections to a fixed
// worker Pool.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *Pool

	mu       sync.Mutex
	listener net.Listener

	limiter *ConnectionLimiter
}

// Deps holds the collaborators Server needs beyond cfg/logger.
type Deps struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Handler ConnectionHandler
}

// New creates a Server and its worker pool. Run starts accepting.
func New(ctx context.Context, d Deps) (*Server, error) {
	logger := d.Logger
	if logger == nil {
		logger = logging.NewLogger(d.Cfg.LogLevel)
	}
	if d.Handler == nil {
		return nil, fmt.Errorf("server: handler is required")
	}

	pool := NewPool(ctx, d.Cfg.WorkerCount, d.Handler, logger)

	return &Server{
		cfg:     d.Cfg,
		logger:  logger,
		pool:    pool,
		limiter: NewConnectionLimiter(d.Cfg.Limits.MaxConnections),
	}, nil
}

// Run opens the listen socket and blocks, accepting connections and
// handing each to the worker pool, until ctx is cancelled or Shutdown
// is called. Matches §4.8's accept loop: on dispatch it never drops a
// connection silently — Shutdown always closes the listener first so
// Accept returns an error and the loop exits cleanly.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Listeners[0].Address
	lc := net.ListenConfig{KeepAlive: keepAliveIdle}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("listening", slog.String("address", addr), slog.Int("workers", s.cfg.WorkerCount))

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.logger.Info("accept loop stopping for shutdown")
				return nil
			default:
			}
			s.logger.Error("accept error", slog.String("error", err.Error()))
			continue
		}

		if !s.limiter.TryAcquire() {
			s.logger.Warn("connection limit reached, rejecting", slog.String("remote_addr", conn.RemoteAddr().String()))
			conn.Close()
			continue
		}

		if !s.pool.Dispatch(&limitedConn{Conn: conn, release: s.limiter.Release}) {
			s.limiter.Release()
			conn.Close()
		}
	}
}

// limitedConn releases its ConnectionLimiter slot exactly once when
// closed, wherever that close happens — the worker's own deferred
// conn.Close(), or here if Dispatch itself failed.
type limitedConn struct {
	net.Conn
	release  func()
	released sync.Once
}

func (c *limitedConn) Close() error {
	err := c.Conn.Close()
	c.released.Do(c.release)
	return err
}

// Shutdown closes the listener and the worker pool. Idempotent as far
// as the pool is concerned; closing an already-closed listener returns
// an error that is discarded here since shutdown order only requires
// Accept to unblock.
func (s *Server) Shutdown() {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	s.pool.Close()
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}
