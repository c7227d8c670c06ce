package cips

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/lzulberti/cipsd/internal/metrics"
	"github.com/lzulberti/cipsd/internal/wire"
)

func newHandlerTestStore(t *testing.T) *UserStore {
	t.Helper()
	store := NewUserStore()
	if err := store.Load(filepath.Join(t.TempDir(), "users.txt")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return store
}

// pipeClient issues requests against the server-side end of a net.Pipe
// handed to HandleConnection running in a background goroutine.
type pipeClient struct {
	t     *testing.T
	conn  net.Conn
	limit int
}

func newPipeClient(t *testing.T, reg *Registry, store *UserStore, log *CipLog) *pipeClient {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		HandleConnection(ctx, serverConn, reg, store, &metrics.NoopCollector{}, DefaultLimits())
		close(done)
	}()

	t.Cleanup(func() {
		cancel()
		clientConn.Close()
		<-done
	})

	return &pipeClient{t: t, conn: clientConn, limit: wire.DefaultMaxPacket}
}

func (c *pipeClient) send(line string) {
	c.t.Helper()
	if err := wire.Send(c.conn, []byte(line)); err != nil {
		c.t.Fatalf("send %q: %v", line, err)
	}
}

func (c *pipeClient) recv() string {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	payload, err := wire.Recv(c.conn, c.limit)
	if err != nil {
		c.t.Fatalf("recv: %v", err)
	}
	return string(payload)
}

func TestHandleConnection_UnknownCommand(t *testing.T) {
	store := newHandlerTestStore(t)
	log := NewCipLog()
	reg := NewRegistry()
	RegisterAuthCommands(reg, store)
	RegisterSocialCommands(reg, store)
	RegisterCipCommands(reg, log, store)
	RegisterHelpAndQuit(reg)

	c := newPipeClient(t, reg, store, log)
	c.send("not-a-real-command")
	if got := c.recv(); got != "-1 invalid command; type help ..." {
		t.Errorf("recv = %q, want the invalid-command error", got)
	}
}

func TestHandleConnection_CommandRequiresAuth(t *testing.T) {
	store := newHandlerTestStore(t)
	log := NewCipLog()
	reg := NewRegistry()
	RegisterAuthCommands(reg, store)
	RegisterSocialCommands(reg, store)
	RegisterCipCommands(reg, log, store)
	RegisterHelpAndQuit(reg)

	c := newPipeClient(t, reg, store, log)
	c.send(`cip "not logged in yet"`)
	if got := c.recv(); got != "-2 not logged in" {
		t.Errorf("recv = %q, want cip's own -2 not-logged-in code", got)
	}
}

func TestHandleConnection_WrongArityIsRejected(t *testing.T) {
	store := newHandlerTestStore(t)
	log := NewCipLog()
	reg := NewRegistry()
	RegisterAuthCommands(reg, store)
	RegisterSocialCommands(reg, store)
	RegisterCipCommands(reg, log, store)
	RegisterHelpAndQuit(reg)

	c := newPipeClient(t, reg, store, log)
	c.send("register only-one-arg")
	if got := c.recv(); got != "-1 invalid number of arguments" {
		t.Errorf("recv = %q, want the arity error", got)
	}
}

func TestHandleConnection_QuitEndsTheLoop(t *testing.T) {
	store := newHandlerTestStore(t)
	log := NewCipLog()
	reg := NewRegistry()
	RegisterAuthCommands(reg, store)
	RegisterSocialCommands(reg, store)
	RegisterCipCommands(reg, log, store)
	RegisterHelpAndQuit(reg)

	c := newPipeClient(t, reg, store, log)
	c.send("quit")
	if got := c.recv(); got != "0 bye bye!" {
		t.Errorf("recv = %q, want the quit acknowledgement", got)
	}

	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := wire.Recv(c.conn, c.limit); err == nil {
		t.Error("expected the connection to be closed after quit")
	}
}
