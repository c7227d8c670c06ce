package server

import (
	"context"
	"log/slog"
	"net"
	"sync"
)

// ConnectionHandler drives one accepted connection to completion. It
// must return when ctx is cancelled or the peer disconnects; any
// cleanup it owns (releasing held resources) must run regardless of
// exit path.
type ConnectionHandler func(ctx context.Context, conn net.Conn)

// Pool is the fixed-size worker pool (C7): W pre-spawned workers pull
// jobs from a dispatch channel, which is the free-list-with-blocking-
// pop pattern re-expressed with a Go channel instead of the original's
// hand-rolled condition variable over a linked free list — the
// channel's buffer slot count equal to W means a dispatch blocks
// exactly when all W workers are busy, matching the original's
// blocking-pop-until-free-worker contract.
type Pool struct {
	jobs    chan net.Conn
	done    chan struct{}
	handler ConnectionHandler
	logger  *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc

	activeMu sync.Mutex
	active   map[net.Conn]struct{}

	closeOnce sync.Once
}

// NewPool pre-spawns workers workers, each running handler against
// dispatched connections until ctx (derived internally) is cancelled
// by Close.
func NewPool(parent context.Context, workers int, handler ConnectionHandler, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(parent)
	p := &Pool{
		jobs:    make(chan net.Conn),
		done:    make(chan struct{}),
		handler: handler,
		logger:  logger,
		cancel:  cancel,
		active:  make(map[net.Conn]struct{}),
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}

	return p
}

// runWorker is one pool worker's infinite loop: it waits for work (the
// first, cancellable suspension point in §5), then serves the
// connection via handler, then loops to wait again. Cancellation while
// idle unblocks immediately; cancellation while serving a connection
// unblocks the handler's own read by having Close force-close the
// tracked conn (see serve), and the worker's cleanup runs via a
// deferred Close on the connection regardless of how handler returns.
func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case conn, ok := <-p.jobs:
			if !ok {
				return
			}
			p.serve(ctx, conn, id)
		}
	}
}

// serve tracks conn while it's being handled so Close can force it
// shut on shutdown — a worker blocked in the handler's read has no
// other way to observe cancellation (§5: "workers ... blocked in recv
// ... must terminate").
func (p *Pool) serve(ctx context.Context, conn net.Conn, workerID int) {
	p.activeMu.Lock()
	p.active[conn] = struct{}{}
	p.activeMu.Unlock()

	defer func() {
		p.activeMu.Lock()
		delete(p.active, conn)
		p.activeMu.Unlock()
		conn.Close()
	}()

	p.handler(ctx, conn)
}

// Dispatch blocks until a worker is free to take conn, matching the
// reference design's blocking dispatch. Returns false if the pool is
// closed (or closing) and the connection was not handed off — callers
// must close conn themselves in that case.
func (p *Pool) Dispatch(conn net.Conn) bool {
	select {
	case p.jobs <- conn:
		return true
	case <-p.done:
		return false
	}
}

// Close marks the pool closed, cancels every worker, force-closes any
// connection currently being served (unblocking a worker parked in
// the handler's read with no other cancellation point), and waits for
// every worker to terminate. Idempotent.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.cancel()

		p.activeMu.Lock()
		for conn := range p.active {
			conn.Close()
		}
		p.activeMu.Unlock()

		p.wg.Wait()
	})
}
