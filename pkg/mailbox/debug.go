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
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DebugRegionDetail prints the flag and pending frame of the backing file at path.
func DebugRegionDetail(path string) {
	if err := WriteRegionDetail(os.Stdout, path, NewCodec("")); err != nil {
		fmt.Println(err)
	}
}

// WriteRegionDetail writes a human readable dump of the backing file at path. The file
// is read, not mapped, so it is safe to call while both processes are running; the
// result may be torn if a peer writes concurrently.
func WriteRegionDetail(w io.Writer, path string, codec Codec) error {
	mem, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(mem) == 0 {
		return fmt.Errorf("%s: empty backing file", path)
	}
	raw := mem[0]
	state := Idle
	if raw != 0 {
		state = ReadyToConsume
	}
	payload := mem[1:]
	frameLen := bytes.IndexByte(payload, 0)
	if frameLen < 0 {
		frameLen = len(payload)
	}
	fmt.Fprintf(w, "path:%s size:%d flag:%d(%s) frame:%d bytes\n", path, len(mem), raw, state, frameLen)
	cmd, err := codec.Decode(payload)
	switch {
	case errors.Is(err, ErrEmptyFrame):
		fmt.Fprintln(w, "frame: empty")
	case err != nil:
		fmt.Fprintf(w, "frame: undecodable: %v\n", err)
	default:
		fmt.Fprintf(w, "command:%s fields:%d\n", cmd.Name(), len(cmd.Fields()))
		for i, f := range cmd.Fields() {
			fmt.Fprintf(w, "  [%d] %s\n", i, strings.ReplaceAll(f, "\n", `\n`))
		}
	}
	return nil
}
