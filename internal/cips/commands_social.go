package cips

import (
	"context"
	"errors"
	"fmt"
)

// RegisterSocialCommands registers follow/unfollow/following/followers
// against store.
func RegisterSocialCommands(reg *Registry, store *UserStore) {
	reg.Register(followCommand{store: store})
	reg.Register(unfollowCommand{store: store})
	reg.Register(followingCommand{store: store})
	reg.Register(followersCommand{store: store})
}

type followCommand struct{ store *UserStore }

func (followCommand) Name() string      { return "follow" }
func (followCommand) RequiresAuth() bool { return true }
func (followCommand) Arity() int        { return -1 }

func (c followCommand) Execute(_ context.Context, sess *Session, _ ConnectionLogger, args []string) Response {
	return runPerUserEdit(func(email string) error {
		return c.store.Follow(sess.UID(), sess.token, email)
	}, args)
}

type unfollowCommand struct{ store *UserStore }

func (unfollowCommand) Name() string      { return "unfollow" }
func (unfollowCommand) RequiresAuth() bool { return true }
func (unfollowCommand) Arity() int        { return -1 }

func (c unfollowCommand) Execute(_ context.Context, sess *Session, _ ConnectionLogger, args []string) Response {
	return runPerUserEdit(func(email string) error {
		return c.store.Unfollow(sess.UID(), sess.token, email)
	}, args)
}

// runPerUserEdit applies edit to each email in args, building one
// "<email> <code> <text>" result line per email, per §4.6's
// follow/unfollow reply shape. If no user could be processed (every
// edit failed with something other than already/ok), the original
// design still reports each individually — the "-1 could not ..."
// fallback applies only when args is empty, which arity already
// prevents, so every call here returns a positive-or-zero data reply.
func runPerUserEdit(edit func(email string) error, emails []string) Response {
	lines := make([]string, 0, len(emails))
	for _, email := range emails {
		code, text := 0, "ok"
		err := edit(email)
		switch {
		case err == nil:
			code, text = 0, "ok"
		case errors.Is(err, ErrNoSuchEmail):
			code, text = 1, "nonexistent"
		case errors.Is(err, ErrAlreadyFollowing):
			code, text = 2, "already followed"
		case errors.Is(err, ErrNotFollowing):
			code, text = 2, "not followed"
		default:
			code, text = 1, "nonexistent"
		}
		lines = append(lines, fmt.Sprintf("%s %d %s", email, code, text))
	}
	return NewDataResponse(lines)
}

type followingCommand struct{ store *UserStore }

func (followingCommand) Name() string      { return "following" }
func (followingCommand) RequiresAuth() bool { return true }
func (followingCommand) Arity() int        { return 0 }

func (c followingCommand) Execute(_ context.Context, sess *Session, _ ConnectionLogger, _ []string) Response {
	emails, err := c.store.FollowingOf(sess.UID(), sess.token)
	if err != nil {
		return NewErrorResponse(-1, "server error")
	}
	return NewDataResponse(emails)
}

type followersCommand struct{ store *UserStore }

func (followersCommand) Name() string      { return "followers" }
func (followersCommand) RequiresAuth() bool { return true }
func (followersCommand) Arity() int        { return 0 }

func (c followersCommand) Execute(_ context.Context, sess *Session, _ ConnectionLogger, _ []string) Response {
	emails, err := c.store.FollowersOf(sess.UID(), sess.token)
	if err != nil {
		return NewErrorResponse(-1, "server error")
	}
	return NewDataResponse(emails)
}
