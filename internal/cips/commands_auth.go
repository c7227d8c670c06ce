package cips

import (
	"context"
	"errors"
)

// RegisterAuthCommands registers register/login/logout against store.
func RegisterAuthCommands(reg *Registry, store *UserStore) {
	reg.Register(registerCommand{store: store})
	reg.Register(loginCommand{store: store})
	reg.Register(logoutCommand{store: store})
}

type registerCommand struct{ store *UserStore }

func (registerCommand) Name() string      { return "register" }
func (registerCommand) RequiresAuth() bool { return false }
func (registerCommand) Arity() int        { return 2 }

// Execute implements register's contract: 0 ok; -1 server error; -2
// bad format; -3 already registered.
func (c registerCommand) Execute(_ context.Context, _ *Session, _ ConnectionLogger, args []string) Response {
	email, password := args[0], args[1]

	err := c.store.Add(email, password)
	switch {
	case err == nil:
		return NewOKResponse("registered")
	case errors.Is(err, ErrBadFormat):
		return NewErrorResponse(-2, "bad format")
	case errors.Is(err, ErrAlreadyExists):
		return NewErrorResponse(-3, "already registered")
	default:
		return NewErrorResponse(-1, "server error")
	}
}

type loginCommand struct{ store *UserStore }

func (loginCommand) Name() string      { return "login" }
func (loginCommand) RequiresAuth() bool { return false }
func (loginCommand) Arity() int        { return 2 }

// Execute implements login's contract: 0 ok; -1 server error; -2
// already signed-in (this connection); -3 user already logged in
// elsewhere; -4 invalid email; -5 invalid password.
func (c loginCommand) Execute(_ context.Context, sess *Session, _ ConnectionLogger, args []string) Response {
	if sess.IsLoggedIn() {
		return NewErrorResponse(-2, "already signed in")
	}

	email, password := args[0], args[1]
	uid, token, err := c.store.Acquire(email, password)
	switch {
	case err == nil:
		sess.setAuthenticated(uid, token)
		return NewOKResponse("logged in")
	case errors.Is(err, ErrNoSuchEmail):
		return NewErrorResponse(-4, "invalid email")
	case errors.Is(err, ErrBadPassword):
		return NewErrorResponse(-5, "invalid password")
	case errors.Is(err, ErrBusy):
		return NewErrorResponse(-3, "user already logged in elsewhere")
	default:
		return NewErrorResponse(-1, "server error")
	}
}

type logoutCommand struct{ store *UserStore }

func (logoutCommand) Name() string      { return "logout" }
func (logoutCommand) RequiresAuth() bool { return true }
func (logoutCommand) Arity() int        { return 0 }

// NotLoggedInResponse overrides dispatch's generic -1 gate: §4.6 and
// the original's rc_cmd_logout (robin_conn.c:376) both use -2 here.
func (logoutCommand) NotLoggedInResponse() Response {
	return NewErrorResponse(-2, "not logged in")
}

// Execute implements logout's contract: 0 ok; -1 server error; -2 not
// logged in.
func (c logoutCommand) Execute(_ context.Context, sess *Session, _ ConnectionLogger, _ []string) Response {
	if !sess.IsLoggedIn() {
		return NewErrorResponse(-2, "not logged in")
	}
	sess.ReleaseIfAuthenticated(c.store)
	return NewOKResponse("logged out")
}
