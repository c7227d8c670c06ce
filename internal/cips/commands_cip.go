package cips

import (
	"context"
	"fmt"
	"strconv"
)

// RegisterCipCommands registers cip/cips_since/hashtags_since against
// log and store.
func RegisterCipCommands(reg *Registry, log *CipLog, store *UserStore) {
	reg.Register(cipCommand{log: log, store: store})
	reg.Register(cipsSinceCommand{log: log, store: store})
	reg.Register(hashtagsSinceCommand{log: log})
}

type cipCommand struct {
	log   *CipLog
	store *UserStore
}

func (cipCommand) Name() string      { return "cip" }
func (cipCommand) RequiresAuth() bool { return true }
func (cipCommand) Arity() int        { return 1 }

// NotLoggedInResponse overrides dispatch's generic -1 gate: §4.6 and
// the original's rc_cmd_cip (robin_conn.c:402) both use -2 here.
func (cipCommand) NotLoggedInResponse() Response {
	return NewErrorResponse(-2, "not logged in")
}

// Execute implements cip's contract: 0 ok; -1 server error; -2 not
// logged in (the same code NotLoggedInResponse returns via dispatch;
// kept here too since Execute can be called directly, bypassing
// dispatch's gate).
func (c cipCommand) Execute(_ context.Context, sess *Session, _ ConnectionLogger, args []string) Response {
	if !sess.IsLoggedIn() {
		return NewErrorResponse(-2, "not logged in")
	}

	author, err := c.store.EmailOf(sess.UID(), sess.token)
	if err != nil {
		return NewErrorResponse(-1, "server error")
	}

	if err := c.log.Append(author, args[0]); err != nil {
		return NewErrorResponse(-1, "server error")
	}
	return NewOKResponse("ok")
}

type cipsSinceCommand struct {
	log   *CipLog
	store *UserStore
}

func (cipsSinceCommand) Name() string      { return "cips_since" }
func (cipsSinceCommand) RequiresAuth() bool { return true }
func (cipsSinceCommand) Arity() int        { return 1 }

func (c cipsSinceCommand) Execute(_ context.Context, sess *Session, _ ConnectionLogger, args []string) Response {
	since, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return NewErrorResponse(-1, "invalid timestamp")
	}

	following, err := c.store.FollowingOf(sess.UID(), sess.token)
	if err != nil {
		return NewErrorResponse(-1, "server error")
	}

	filter := make(map[string]struct{}, len(following))
	for _, email := range following {
		filter[email] = struct{}{}
	}

	cips := c.log.CipsSince(since, filter)
	lines := make([]string, 0, len(cips))
	for _, cip := range cips {
		lines = append(lines, fmt.Sprintf("%d %s %q", cip.TS, cip.Author, cip.Text))
	}
	return NewDataResponse(lines)
}

type hashtagsSinceCommand struct{ log *CipLog }

func (hashtagsSinceCommand) Name() string      { return "hashtags_since" }
func (hashtagsSinceCommand) RequiresAuth() bool { return true }
func (hashtagsSinceCommand) Arity() int        { return 1 }

func (c hashtagsSinceCommand) Execute(_ context.Context, _ *Session, _ ConnectionLogger, args []string) Response {
	since, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return NewErrorResponse(-1, "invalid timestamp")
	}

	counts := c.log.HashtagsSince(since)
	lines := make([]string, 0, len(counts))
	for _, hc := range counts {
		lines = append(lines, fmt.Sprintf("%s %d", hc.Tag, hc.Count))
	}
	return NewDataResponse(lines)
}
