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
	"errors"
	"fmt"
)

var (
	// ErrFrameTooLarge is returned when an encoded frame does not fit the payload.
	ErrFrameTooLarge = errors.New("mailbox: frame exceeds payload capacity")
	// ErrInvalidField is returned for names or fields that cannot be framed unambiguously.
	ErrInvalidField = errors.New("mailbox: field contains the delimiter, NUL or invalid UTF-8")
	// ErrInvalidEncoding is returned when the payload is not valid UTF-8.
	ErrInvalidEncoding = errors.New("mailbox: payload is not valid UTF-8")
	// ErrMissingField is returned when a known command carries too few fields.
	ErrMissingField = errors.New("mailbox: missing field")
	// ErrEmptyFrame means the payload holds no message. It is not a failure.
	ErrEmptyFrame = errors.New("mailbox: empty frame")
	// ErrClosed is returned by a closed endpoint.
	ErrClosed = errors.New("mailbox: endpoint closed")
	// ErrTurnState is returned when Turn methods are called out of order.
	ErrTurnState = errors.New("mailbox: turn used out of order")
	// ErrRegionTooSmall is returned when the region cannot hold a header and a payload.
	ErrRegionTooSmall = errors.New("mailbox: region too small")
)

// EncodeError reports an outgoing frame that does not fit the payload.
type EncodeError struct {
	Command string
	Size    int
	Limit   int
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("mailbox: encode %s: frame of %d bytes exceeds %d", e.Command, e.Size, e.Limit)
}

func (e *EncodeError) Unwrap() error { return ErrFrameTooLarge }

// DecodeError reports an incoming frame that could not be turned into a command.
type DecodeError struct {
	Command string
	Want    int
	Got     int
	Err     error
}

func (e *DecodeError) Error() string {
	if errors.Is(e.Err, ErrMissingField) {
		return fmt.Sprintf("mailbox: decode %q: want %d fields, got %d: %v", e.Command, e.Want, e.Got, e.Err)
	}
	return fmt.Sprintf("mailbox: decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
