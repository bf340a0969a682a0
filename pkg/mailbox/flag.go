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
	"unsafe"

	internalshm "github.com/srediag/editor-mailbox/internal/shm"
)

// header is the fixed layout at the start of the mapping. Only the flag belongs to it;
// the payload starts at the next byte.
type header struct {
	flag uint8
}

// OwnershipFlag is the single coordination byte shared by both processes.
type OwnershipFlag struct {
	hdr *header
}

// newOwnershipFlag overlays the header on mem, which must be the start of a mapping
// (page aligned, at least MinCapacity bytes).
func newOwnershipFlag(mem []byte) OwnershipFlag {
	return OwnershipFlag{hdr: (*header)(unsafe.Pointer(&mem[0]))}
}

// Load reads the flag with acquire semantics. Any non-zero byte reads as ReadyToConsume.
func (f OwnershipFlag) Load() FlagState {
	if internalshm.AtomicLoadUint8(unsafe.Pointer(&f.hdr.flag)) == 0 {
		return Idle
	}
	return ReadyToConsume
}

// TryClaimForRead reports whether the flag signals a message waiting for role.
func (f OwnershipFlag) TryClaimForRead(role Role) bool {
	return f.Load() == role.consumes()
}

// ReleaseAfterWrite stores next with release semantics: every payload write made
// before the call is visible to a peer that observes next.
func (f OwnershipFlag) ReleaseAfterWrite(next FlagState) {
	internalshm.AtomicStoreUint8(unsafe.Pointer(&f.hdr.flag), uint8(next))
}
