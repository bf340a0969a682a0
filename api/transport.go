package api

import "context"

// Handler receives decoded commands on the consuming side of the mailbox and may
// return a command to send back in the same turn. A nil reply sends nothing.
type Handler interface {
	Handle(ctx context.Context, cmd Command) (Command, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, cmd Command) (Command, error)

func (f HandlerFunc) Handle(ctx context.Context, cmd Command) (Command, error) {
	return f(ctx, cmd)
}

// Ticker is implemented by handlers that have per-tick work besides the mailbox.
type Ticker interface {
	Tick(ctx context.Context) error
}

// Sender stages a command for the next turn this side holds.
type Sender interface {
	Send(cmd Command) error
}
