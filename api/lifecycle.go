package api

import "context"

// Lifecycle defines explicit process-level init and teardown of a mailbox host.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
