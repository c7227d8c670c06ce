package cips

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ConnectionLogger exposes the per-connection logger to command
// implementations, mirroring the teacher's pattern of passing a
// narrow interface rather than the full connection.
type ConnectionLogger interface {
	Logger() *slog.Logger
}

// Command is one entry in the wire-visible dispatch table (§4.6).
type Command interface {
	// Name returns the wire command name, e.g. "register", "follow".
	Name() string

	// RequiresAuth reports whether the session must be logged in.
	RequiresAuth() bool

	// Arity returns the required argument count, or -1 to mean "one or
	// more" (used by follow/unfollow's variadic email list).
	Arity() int

	// Execute runs the command and returns the reply to send. It must
	// never panic across the dispatch boundary; internal failures are
	// returned as an errored Response via NewErrorResponse.
	Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) Response
}

// Response is a reply to a command: a signed count/status prefix
// followed by that many data lines, framed one packet per line (§4.6).
// Code < 0 is failure (Message carries the human-readable error and no
// Lines follow); Code >= 0 is success, Code is the number of
// additional data packets in Lines.
type Response struct {
	Code    int
	Message string
	Lines   []string
}

// NewErrorResponse builds a negative-code failure reply.
func NewErrorResponse(code int, message string) Response {
	if code >= 0 {
		code = -1
	}
	return Response{Code: code, Message: message}
}

// NewOKResponse builds a zero-code success reply with a human message
// and no additional data lines.
func NewOKResponse(message string) Response {
	return Response{Code: 0, Message: message}
}

// NewDataResponse builds a success reply whose Code is len(lines).
func NewDataResponse(lines []string) Response {
	return Response{Code: len(lines), Lines: lines}
}

// Packets renders the response as the sequence of payload strings to
// send, one per frame: the status line first, then each data line.
func (r Response) Packets() []string {
	packets := make([]string, 0, 1+len(r.Lines))
	packets = append(packets, fmt.Sprintf("%d %s", r.Code, r.Message))
	packets = append(packets, r.Lines...)
	return packets
}

// notLoggedInResponder is implemented by commands whose not-logged-in
// reply code differs from dispatch's generic -1 gate — §4.6 mandates
// -2 for cip and logout specifically. Commands that don't implement
// this get the generic -1.
type notLoggedInResponder interface {
	NotLoggedInResponse() Response
}

// Registry is the wire-visible dispatch table (§4.6): an
// instance-scoped set of registered commands, keyed by lower-case
// name, rather than a package-level global, so a process (or a test)
// can build its own independent command set instead of sharing
// mutable state across every caller.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry returns an empty Registry ready for Register calls.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd to the dispatch table.
func (r *Registry) Register(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[strings.ToLower(cmd.Name())] = cmd
}

// Get looks up a command by name (case-insensitive).
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[strings.ToLower(name)]
	return cmd, ok
}
