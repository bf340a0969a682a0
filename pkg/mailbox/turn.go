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
	"time"

	"github.com/srediag/editor-mailbox/api"
)

// Turn is the exclusive window between a successful claim and the flag flip that hands
// the mailbox back to the peer. Receive may be called once, before Release.
type Turn struct {
	e         *Endpoint
	state     TickState
	start     time.Time
	encodeErr error
}

// State returns the turn's progress.
func (t *Turn) State() TickState { return t.state }

// Receive decodes the frame the peer left in the payload. It returns ErrEmptyFrame
// when the peer had nothing to say and a *DecodeError for a malformed frame.
func (t *Turn) Receive() (api.Command, error) {
	if t.state != StateClaimed {
		return nil, ErrTurnState
	}
	t.state = StateDispatched
	t.e.state.Store(int32(StateDispatched))
	payload, err := t.e.region.ReadSlice(1, t.e.region.Size())
	if err != nil {
		return nil, err
	}
	return t.e.codec.Decode(payload)
}

// Release clears the payload, writes out (if not nil), flushes and flips the flag to
// the peer. It returns the command actually written: nil when out was nil or could
// not be encoded, in which case the peer receives an empty frame. A storage failure
// leaves the flag untouched and marks the endpoint failed.
func (t *Turn) Release(ctx context.Context, out api.Command) (api.Command, error) {
	if t.state == StateReleased || t.state == StateIdle {
		return nil, ErrTurnState
	}
	e := t.e
	defer t.finish()

	size := e.region.Size()
	if err := e.region.Zero(1, size); err != nil {
		e.fail(err)
		return nil, err
	}
	var sent api.Command
	if out != nil {
		payload, err := e.region.ReadSlice(1, size)
		if err != nil {
			e.fail(err)
			return nil, err
		}
		if _, err := e.codec.Encode(payload, out); err != nil {
			t.encodeErr = err
			e.counters.encodeErrors.Add(1)
			e.inst.drop(ctx, dropReason(err))
			e.logger.Warnf("dropping outgoing %s: %v", out.Name(), err)
		} else {
			sent = out
		}
	}
	if err := e.region.Flush(); err != nil {
		e.fail(err)
		return nil, err
	}
	e.flag.ReleaseAfterWrite(e.role.releases())
	if err := e.region.Flush(); err != nil {
		e.fail(err)
		return nil, err
	}

	t.state = StateReleased
	e.lastTurn.Store(time.Now().UnixNano())
	e.inst.turn(ctx, time.Since(t.start))
	if sent != nil {
		e.counters.sent.Add(1)
		e.inst.command(ctx, "out", commandLabel(sent))
		e.logger.Debugf("sent %s", sent.Name())
	}
	return sent, nil
}

// abort gives the guard back without touching the flag. The peer keeps waiting.
func (t *Turn) abort() {
	if t.state == StateReleased || t.state == StateIdle {
		return
	}
	t.finish()
}

func (t *Turn) finish() {
	if t.state != StateReleased {
		t.state = StateIdle
	}
	t.e.state.Store(int32(StateIdle))
	t.e.guard.Unlock()
}
