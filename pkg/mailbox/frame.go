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
	"bytes"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/valyala/bytebufferpool"

	"github.com/srediag/editor-mailbox/api"
)

// Codec frames commands as "name<DELIM>field1<DELIM>field2..." text.
type Codec struct {
	delim string
}

// NewCodec returns a codec using delim. An empty delim selects DefaultDelimiter.
func NewCodec(delim string) Codec {
	if delim == "" {
		delim = DefaultDelimiter
	}
	return Codec{delim: delim}
}

// Delimiter returns the token separating fields.
func (c Codec) Delimiter() string {
	if c.delim == "" {
		return DefaultDelimiter
	}
	return c.delim
}

func validText(s string) bool {
	return utf8.ValidString(s) && strings.IndexByte(s, 0) < 0
}

func (c Codec) appendFrame(buf *bytebufferpool.ByteBuffer, cmd api.Command) error {
	delim := c.Delimiter()
	name := cmd.Name()
	if name == "" || !validText(name) || strings.Contains(name, delim) {
		return fmt.Errorf("%w: command name %q", ErrInvalidField, name)
	}
	fields := cmd.Fields()
	_, _ = buf.WriteString(name)
	for i, f := range fields {
		if !validText(f) || strings.Contains(f, delim) {
			return fmt.Errorf("%w: %s field %d", ErrInvalidField, name, i)
		}
		_, _ = buf.WriteString(delim)
		_, _ = buf.WriteString(f)
	}
	// a field ending in a prefix of the delimiter can still shift the split points
	parts := strings.Split(string(buf.B), delim)
	if parts[0] != name || !slices.Equal(parts[1:], fields) {
		return fmt.Errorf("%w: %s fields are ambiguous", ErrInvalidField, name)
	}
	return nil
}

// Marshal returns the frame for cmd without NUL padding.
func (c Codec) Marshal(cmd api.Command) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := c.appendFrame(buf, cmd); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.B), nil
}

// Encode writes the frame for cmd at the start of dst and zero-fills the rest.
// dst is left untouched on error.
func (c Codec) Encode(dst []byte, cmd api.Command) (int, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := c.appendFrame(buf, cmd); err != nil {
		return 0, err
	}
	if buf.Len() > len(dst) {
		return 0, &EncodeError{Command: cmd.Name(), Size: buf.Len(), Limit: len(dst)}
	}
	n := copy(dst, buf.B)
	clear(dst[n:])
	return n, nil
}

// Decode parses the frame at the start of payload. The frame ends at the first NUL
// or at the end of payload. Bytes after the NUL are ignored, so stale tails left by
// a peer do not matter. Extra trailing fields are ignored.
func (c Codec) Decode(payload []byte) (api.Command, error) {
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	if len(payload) == 0 {
		return nil, ErrEmptyFrame
	}
	if !utf8.Valid(payload) {
		return nil, &DecodeError{Err: ErrInvalidEncoding}
	}
	parts := strings.Split(string(payload), c.Delimiter())
	name, fields := parts[0], parts[1:]
	need := func(n int) error {
		if len(fields) < n {
			return &DecodeError{Command: name, Want: n, Got: len(fields), Err: ErrMissingField}
		}
		return nil
	}

	switch name {
	case "":
		return nil, &DecodeError{Want: 1, Err: ErrMissingField}
	case api.NameLoadTexture:
		if err := need(1); err != nil {
			return nil, err
		}
		return api.LoadTexture{Path: fields[0]}, nil
	case api.NameCompile:
		if err := need(4); err != nil {
			return nil, err
		}
		return api.Compile{
			UniformTypes:    fields[0],
			TextureDescs:    fields[1],
			WorldOffsetExpr: fields[2],
			FragColorExpr:   fields[3],
		}, nil
	case api.NameUpdateUniform:
		if err := need(2); err != nil {
			return nil, err
		}
		return api.UpdateUniform{Uniform: fields[0], Value: api.ParseVec4(fields[1])}, nil
	case api.NameLoadMaterialFile:
		if err := need(1); err != nil {
			return nil, err
		}
		return api.LoadMaterialFile{Path: fields[0]}, nil
	case api.NameMaterialSource:
		if err := need(2); err != nil {
			return nil, err
		}
		return api.MaterialSource{WorldOffsetExpr: fields[0], FragColorExpr: fields[1]}, nil
	default:
		if len(fields) == 0 {
			fields = nil
		}
		return api.Unknown{Command: name, Args: fields}, nil
	}
}
