package cips

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/lzulberti/cipsd/internal/logging"
	"github.com/lzulberti/cipsd/internal/metrics"
	"github.com/lzulberti/cipsd/internal/wire"
)

// Limits bounds the protocol-level defenses §4.6/§6 name as
// configurable compile-time constants.
type Limits struct {
	CmdMax             int
	OversizedThreshold int
}

// DefaultLimits matches spec §6's defaults.
func DefaultLimits() Limits {
	return Limits{CmdMax: 300, OversizedThreshold: 5}
}

// HandleConnection drives one connection's FSM (C6) to completion: it
// reads framed commands, tokenizes and dispatches them against the
// registered command table, and writes framed replies, until the
// client disconnects, issues quit, or ctx is cancelled. store is used
// for the session cleanup hook regardless of exit path, mirroring the
// cleanup-on-cancel contract in §5/§9.
func HandleConnection(ctx context.Context, conn net.Conn, reg *Registry, store *UserStore, collector metrics.Collector, limits Limits) {
	logger := logging.FromContext(ctx).With("remote_addr", conn.RemoteAddr().String())
	sess := NewSession(logger)

	collector.ConnectionOpened()
	defer func() {
		sess.ReleaseIfAuthenticated(store)
		conn.Close()
		collector.ConnectionClosed()
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("context cancelled, closing connection")
			return
		default:
		}

		payload, err := wire.Recv(conn, wire.DefaultMaxPacket)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("client closed connection")
				return
			}
			if errors.Is(err, wire.ErrTooLarge) {
				if handleOversized(conn, sess, logger, collector, limits) {
					return
				}
				continue
			}
			logger.Debug("read error", "error", err)
			return
		}

		if len(payload) > limits.CmdMax {
			if handleOversized(conn, sess, logger, collector, limits) {
				return
			}
			continue
		}

		line := string(payload)
		if line == "" {
			continue
		}

		tokens := Tokenize(line)
		if len(tokens) == 0 {
			sendResponse(conn, logger, NewErrorResponse(-1, "invalid command; type help ..."))
			continue
		}

		name, args := tokens[0], tokens[1:]
		resp := dispatch(ctx, reg, sess, name, args, collector)

		if err := sendResponse(conn, logger, resp); err != nil {
			logger.Debug("write error", "error", err)
			return
		}

		if name == "quit" {
			return
		}
	}
}

func dispatch(ctx context.Context, reg *Registry, sess *Session, name string, args []string, collector metrics.Collector) Response {
	collector.CommandProcessed(name)

	cmd, ok := reg.Get(name)
	if !ok {
		return NewErrorResponse(-1, "invalid command; type help ...")
	}

	if !arityOK(cmd.Arity(), len(args)) {
		return NewErrorResponse(-1, "invalid number of arguments")
	}

	if cmd.RequiresAuth() && !sess.IsLoggedIn() {
		if r, ok := cmd.(notLoggedInResponder); ok {
			return r.NotLoggedInResponse()
		}
		return NewErrorResponse(-1, "not logged in")
	}

	resp := cmd.Execute(ctx, sess, sess, args)
	recordDomainMetrics(collector, name, resp)
	return resp
}

// recordDomainMetrics fires the domain-specific counters (§2.3) that
// depend on a command's outcome, not just its name.
func recordDomainMetrics(collector metrics.Collector, name string, resp Response) {
	switch name {
	case "register", "login":
		collector.AuthAttempt(name, resp.Code == 0)
	case "cip":
		if resp.Code == 0 {
			collector.CipPublished()
		}
	case "follow", "unfollow":
		for _, line := range resp.Lines {
			var email string
			var code int
			if _, err := fmt.Sscanf(line, "%s %d", &email, &code); err == nil {
				collector.FollowChanged(name, code)
			}
		}
	}
}

func arityOK(want, got int) bool {
	if want == -1 {
		return got >= 1
	}
	return got == want
}

func handleOversized(conn net.Conn, sess *Session, logger *slog.Logger, collector metrics.Collector, limits Limits) (terminate bool) {
	collector.OversizedCommandDropped()
	terminate = sess.RegisterOversized(limits.OversizedThreshold)
	sendResponse(conn, logger, NewErrorResponse(-1, "command string exceeds maximum length"))
	return terminate
}

func sendResponse(conn net.Conn, logger *slog.Logger, resp Response) error {
	for _, packet := range resp.Packets() {
		if err := wire.Send(conn, []byte(packet)); err != nil {
			return fmt.Errorf("send packet: %w", err)
		}
	}
	return nil
}
