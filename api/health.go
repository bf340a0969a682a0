package api

import "time"

// Health defines the liveness view of a mailbox endpoint.
type Health interface {
	// Err returns the fatal error that stopped the endpoint, if any.
	Err() error
	// LastTurn returns when this side last completed a turn.
	LastTurn() time.Time
}
