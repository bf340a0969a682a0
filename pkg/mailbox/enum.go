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

//go:generate go tool stringer -type=Role,FlagState,ClaimResult,TickState -output=enum_string.go

// Role selects which flag value means "a message is waiting for me".
type Role int

const (
	// RoleInitiator (the editor) consumes on Idle and hands over with ReadyToConsume.
	// A freshly created, zero-filled backing file gives the first turn to this side.
	RoleInitiator Role = iota
	// RoleResponder (the engine) consumes on ReadyToConsume and hands back with Idle.
	RoleResponder
)

func (r Role) consumes() FlagState {
	if r == RoleResponder {
		return ReadyToConsume
	}
	return Idle
}

func (r Role) releases() FlagState {
	if r == RoleResponder {
		return Idle
	}
	return ReadyToConsume
}

// FlagState is the value of the ownership byte.
type FlagState uint8

const (
	Idle FlagState = iota
	ReadyToConsume
)

// ClaimResult is the outcome of one non-blocking attempt to take the turn.
type ClaimResult int

const (
	// Claimed: the turn is ours; the payload may be read and rewritten.
	Claimed ClaimResult = iota
	// NotMyTurn: the flag does not signal this side, or the endpoint is closed or
	// failed. Try again next tick.
	NotMyTurn
	// Busy: another goroutine of this process holds the mapping. Try again next tick.
	Busy
)

// TickState tracks an endpoint through one turn.
type TickState int

const (
	StateIdle TickState = iota
	StateClaimed
	StateDispatched
	StateReleased
)
