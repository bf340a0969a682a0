/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/editor-mailbox/api"
	"github.com/srediag/editor-mailbox/internal/logging"
)

// Storage is the mapped memory an endpoint works on. *shm.Region implements it.
type Storage interface {
	Bytes() []byte
	Size() int
	ReadSlice(off, end int) ([]byte, error)
	Zero(off, end int) error
	Flush() error
}

// Endpoint is one process's side of the mailbox. The owning loop calls Poll once per
// tick; Poll never blocks. Send may be called from any goroutine.
type Endpoint struct {
	region  Storage
	flag    OwnershipFlag
	codec   Codec
	role    Role
	name    string
	handler api.Handler
	inst    *instruments
	logger  *logging.Logger

	// guard keeps two goroutines of this process off the mapping at the same time.
	// It says nothing about the peer process; the flag does that.
	guard sync.Mutex
	state atomic.Int32

	staged   atomic.Pointer[stagedCommand]
	closed   atomic.Bool
	errMu    sync.Mutex
	err      error
	lastTurn atomic.Int64

	counters counters
}

type stagedCommand struct {
	cmd api.Command
}

type counters struct {
	polls         atomic.Uint64
	claimed       atomic.Uint64
	notMyTurn     atomic.Uint64
	busy          atomic.Uint64
	received      atomic.Uint64
	sent          atomic.Uint64
	decodeErrors  atomic.Uint64
	encodeErrors  atomic.Uint64
	handlerErrors atomic.Uint64
	superseded    atomic.Uint64
}

// Stats is a snapshot of an endpoint's counters.
type Stats struct {
	Polls         uint64
	Claimed       uint64
	NotMyTurn     uint64
	Busy          uint64
	Received      uint64
	Sent          uint64
	DecodeErrors  uint64
	EncodeErrors  uint64
	HandlerErrors uint64
	Superseded    uint64
	LastTurn      time.Time
}

// PollResult describes what one Poll did.
type PollResult struct {
	Claim ClaimResult
	// Received is the decoded incoming command, nil when there was none.
	Received api.Command
	// Sent is the command written for the peer, nil when the payload was left empty.
	Sent api.Command
	// Dropped holds a local error absorbed during the turn (decode, encode or handler).
	Dropped error
}

// NewEndpoint binds an endpoint to region. handler receives incoming commands and may
// be nil for a side that only sends. The region must stay mapped until the endpoint
// is closed.
func NewEndpoint(region Storage, config *Config, handler api.Handler) (*Endpoint, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := VerifyConfig(config); err != nil {
		return nil, err
	}
	mem := region.Bytes()
	if len(mem) < MinCapacity {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrRegionTooSmall, len(mem), MinCapacity)
	}
	inst, err := newInstruments(config)
	if err != nil {
		return nil, fmt.Errorf("mailbox: instruments: %w", err)
	}
	name := config.Name
	if name == "" {
		name = "mailbox"
	}
	return &Endpoint{
		region:  region,
		flag:    newOwnershipFlag(mem),
		codec:   NewCodec(config.Delimiter),
		role:    config.Role,
		name:    name,
		handler: handler,
		inst:    inst,
		logger:  logging.New(name, config.LogOutput),
	}, nil
}

// Role returns the endpoint's role.
func (e *Endpoint) Role() Role { return e.role }

// Codec returns the frame codec in use.
func (e *Endpoint) Codec() Codec { return e.codec }

// Flag returns the ownership flag of the underlying region.
func (e *Endpoint) Flag() OwnershipFlag { return e.flag }

// State returns where the endpoint is in its current turn.
func (e *Endpoint) State() TickState { return TickState(e.state.Load()) }

// PayloadCapacity is the largest frame the region can carry.
func (e *Endpoint) PayloadCapacity() int { return e.region.Size() - 1 }

// TryClaim makes one non-blocking attempt to take the turn. On Claimed the caller owns
// the payload until it calls Release on the returned Turn.
func (e *Endpoint) TryClaim() (*Turn, ClaimResult) {
	if !e.guard.TryLock() {
		return nil, Busy
	}
	if e.closed.Load() || e.Err() != nil {
		e.guard.Unlock()
		return nil, NotMyTurn
	}
	if !e.flag.TryClaimForRead(e.role) {
		e.guard.Unlock()
		return nil, NotMyTurn
	}
	e.state.Store(int32(StateClaimed))
	return &Turn{e: e, state: StateClaimed, start: time.Now()}, Claimed
}

// Poll runs one tick of the mailbox: claim, decode, dispatch, respond, release.
// Local failures are absorbed and reported in PollResult.Dropped; the returned error
// is either ErrClosed or a storage failure, after which the endpoint stays failed.
func (e *Endpoint) Poll(ctx context.Context) (PollResult, error) {
	if e.closed.Load() {
		return PollResult{Claim: NotMyTurn}, ErrClosed
	}
	if err := e.Err(); err != nil {
		return PollResult{Claim: NotMyTurn}, err
	}
	turn, res := e.TryClaim()
	e.countPoll(ctx, res)
	result := PollResult{Claim: res}
	if res != Claimed {
		return result, nil
	}

	var out api.Command
	cmd, err := turn.Receive()
	switch {
	case err == nil:
		result.Received = cmd
		e.counters.received.Add(1)
		e.inst.command(ctx, "in", commandLabel(cmd))
		reply, herr := e.dispatch(ctx, cmd)
		if herr != nil {
			result.Dropped = herr
		}
		out = reply
	case errors.Is(err, ErrEmptyFrame):
	case isDecodeError(err):
		result.Dropped = err
		e.counters.decodeErrors.Add(1)
		e.inst.drop(ctx, dropReason(err))
		e.logger.Warnf("discarding malformed frame: %v", err)
	default:
		turn.abort()
		e.fail(err)
		return result, err
	}

	// a reply answers this turn; anything staged waits for the next one
	if out == nil {
		if s := e.staged.Swap(nil); s != nil {
			out = s.cmd
		}
	}
	sent, err := turn.Release(ctx, out)
	if err != nil {
		return result, err
	}
	if result.Dropped == nil {
		result.Dropped = turn.encodeErr
	}
	result.Sent = sent
	return result, nil
}

func (e *Endpoint) dispatch(ctx context.Context, cmd api.Command) (api.Command, error) {
	if _, unknown := cmd.(api.Unknown); unknown {
		e.logger.Debugf("ignoring unknown command %q", cmd.Name())
		return nil, nil
	}
	if e.handler == nil {
		return nil, nil
	}
	ctx, span := e.inst.tracer.Start(ctx, "mailbox.dispatch", trace.WithAttributes(
		attribute.String("mailbox.endpoint", e.name),
		attribute.String("mailbox.command", cmd.Name()),
	))
	defer span.End()
	reply, err := e.handler.Handle(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.counters.handlerErrors.Add(1)
		e.inst.drop(ctx, dropHandler)
		e.logger.Warnf("handler for %s failed: %v", cmd.Name(), err)
		return nil, err
	}
	return reply, nil
}

// Send stages cmd for the next turn this side holds. A command staged earlier and not
// yet sent is replaced. Frames that can never fit the region are rejected here.
func (e *Endpoint) Send(cmd api.Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", ErrInvalidField)
	}
	if e.closed.Load() {
		return ErrClosed
	}
	frame, err := e.codec.Marshal(cmd)
	if err == nil && len(frame) > e.PayloadCapacity() {
		err = &EncodeError{Command: cmd.Name(), Size: len(frame), Limit: e.PayloadCapacity()}
	}
	if err != nil {
		e.counters.encodeErrors.Add(1)
		e.inst.drop(context.Background(), dropReason(err))
		e.logger.Warnf("rejecting outgoing %s: %v", cmd.Name(), err)
		return err
	}
	if prev := e.staged.Swap(&stagedCommand{cmd: cmd}); prev != nil {
		e.counters.superseded.Add(1)
		e.inst.drop(context.Background(), dropSuperseded)
		e.logger.Debugf("%s superseded by %s before it was sent", prev.cmd.Name(), cmd.Name())
	}
	return nil
}

// Pending reports whether a staged command is waiting for a turn.
func (e *Endpoint) Pending() bool {
	return e.staged.Load() != nil
}

// Err returns the storage error that stopped the endpoint, if any.
func (e *Endpoint) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *Endpoint) fail(err error) {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	if e.err == nil {
		e.err = err
		e.logger.Errorf("mailbox stopped: %v", err)
	}
}

// LastTurn returns when this side last released a turn. Zero if it never did.
func (e *Endpoint) LastTurn() time.Time {
	n := e.lastTurn.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Stats returns a snapshot of the endpoint counters.
func (e *Endpoint) Stats() Stats {
	c := &e.counters
	return Stats{
		Polls:         c.polls.Load(),
		Claimed:       c.claimed.Load(),
		NotMyTurn:     c.notMyTurn.Load(),
		Busy:          c.busy.Load(),
		Received:      c.received.Load(),
		Sent:          c.sent.Load(),
		DecodeErrors:  c.decodeErrors.Load(),
		EncodeErrors:  c.encodeErrors.Load(),
		HandlerErrors: c.handlerErrors.Load(),
		Superseded:    c.superseded.Load(),
		LastTurn:      e.LastTurn(),
	}
}

// Close stops the endpoint. It waits for a turn in progress to be released and
// drops any staged command. The region is not closed; close it after the endpoint.
func (e *Endpoint) Close() error {
	e.guard.Lock()
	defer e.guard.Unlock()
	if e.closed.Swap(true) {
		return nil
	}
	if s := e.staged.Swap(nil); s != nil {
		e.logger.Infof("dropping unsent %s on close", s.cmd.Name())
	}
	return nil
}

func (e *Endpoint) countPoll(ctx context.Context, res ClaimResult) {
	e.counters.polls.Add(1)
	switch res {
	case Claimed:
		e.counters.claimed.Add(1)
	case NotMyTurn:
		e.counters.notMyTurn.Add(1)
	case Busy:
		e.counters.busy.Add(1)
	}
	e.inst.poll(ctx, res)
}

func isDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidEncoding):
		return dropInvalidEncoding
	case errors.Is(err, ErrMissingField):
		return dropMissingField
	case errors.Is(err, ErrFrameTooLarge):
		return dropTooLarge
	default:
		return dropInvalidField
	}
}
