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

// Package mailbox implements a single-slot, turn-taking mailbox over a memory-mapped
// file shared by two processes.
//
// Byte 0 of the region is the ownership flag, the rest is the payload holding one
// NUL-padded text frame. Each process polls its Endpoint once per tick. When the
// flag signals this side, the endpoint decodes the peer's frame, dispatches it,
// writes its own frame (or an empty one), flushes and flips the flag back. Nothing
// blocks: a tick that cannot claim the turn simply returns.
package mailbox
