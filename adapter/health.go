package adapter

import (
	"errors"
	"fmt"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/editor-mailbox/api"
)

// ErrNoTurnYet is reported by the readiness check before the first exchanged turn.
var ErrNoTurnYet = errors.New("mailbox: no turn exchanged yet")

// NewHealthHandler returns /live and /ready endpoints for h. Liveness fails once the
// endpoint hit a storage error. Readiness fails until a turn was released and, when
// staleAfter is positive, when the last turn is older than staleAfter. A nil reg
// disables the check status metrics.
func NewHealthHandler(reg prometheus.Registerer, h api.Health, staleAfter time.Duration) healthcheck.Handler {
	var handler healthcheck.Handler
	if reg != nil {
		handler = healthcheck.NewMetricsHandler(reg, "mailbox")
	} else {
		handler = healthcheck.NewHandler()
	}
	handler.AddLivenessCheck("storage", h.Err)
	handler.AddReadinessCheck("turn", TurnAgeCheck(h, staleAfter))
	return handler
}

// TurnAgeCheck fails while no turn has been released or the last one is older than
// maxAge. maxAge <= 0 only requires a first turn.
func TurnAgeCheck(h api.Health, maxAge time.Duration) healthcheck.Check {
	return func() error {
		last := h.LastTurn()
		if last.IsZero() {
			return ErrNoTurnYet
		}
		if age := time.Since(last); maxAge > 0 && age > maxAge {
			return fmt.Errorf("mailbox: last turn %s ago, limit %s", age.Truncate(time.Millisecond), maxAge)
		}
		return nil
	}
}
