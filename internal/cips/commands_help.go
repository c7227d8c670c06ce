package cips

import "context"

// commandHelp is the usage/description table shown by help, grounded
// directly on the original implementation's robin_cmds[] table
// (spec.md's distillation only gestures at "reply with command list").
var commandHelp = []string{
	`help - show this list`,
	`register <email> <password> - create an account`,
	`login <email> <password> - authenticate this connection`,
	`logout - end authentication on this connection`,
	`follow <email> [email...] - follow one or more users`,
	`unfollow <email> [email...] - unfollow one or more users`,
	`following - list the accounts you follow`,
	`followers - list the accounts following you`,
	`cip "<message>" - publish a message`,
	`cips_since <ts> - list cips from followed accounts newer than ts`,
	`hashtags_since <ts> - list hashtag counts newer than ts`,
	`quit - close the connection`,
}

// RegisterHelpAndQuit registers help and quit, the two commands with
// no store dependency.
func RegisterHelpAndQuit(reg *Registry) {
	reg.Register(helpCommand{})
	reg.Register(quitCommand{})
}

type helpCommand struct{}

func (helpCommand) Name() string      { return "help" }
func (helpCommand) RequiresAuth() bool { return false }
func (helpCommand) Arity() int        { return 0 }

func (helpCommand) Execute(_ context.Context, _ *Session, _ ConnectionLogger, _ []string) Response {
	return NewDataResponse(commandHelp)
}

type quitCommand struct{}

func (quitCommand) Name() string      { return "quit" }
func (quitCommand) RequiresAuth() bool { return false }
func (quitCommand) Arity() int        { return 0 }

func (quitCommand) Execute(_ context.Context, _ *Session, _ ConnectionLogger, _ []string) Response {
	return NewOKResponse("bye bye!")
}
