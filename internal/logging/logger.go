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

// Package logging is the leveled, coloured logger shared by the mailbox packages.
//
// The level is process-wide. It defaults to Warn and can be set through the
// MAILBOX_LOG_LEVEL environment variable (0 Trace .. 5 NoPrint) or SetLevel.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

// Level is a logger verbosity threshold.
type Level int32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelNoPrint
)

var (
	level   atomic.Int32
	noColor = false

	magenta = string([]byte{27, 91, 57, 53, 109}) // Trace
	green   = string([]byte{27, 91, 57, 50, 109}) // Debug
	blue    = string([]byte{27, 91, 57, 52, 109}) // Info
	yellow  = string([]byte{27, 91, 57, 51, 109}) // Warn
	red     = string([]byte{27, 91, 57, 49, 109}) // Error
	reset   = string([]byte{27, 91, 48, 109})

	colors = []string{
		magenta,
		green,
		blue,
		yellow,
		red,
	}

	levelName = []string{
		"Trace",
		"Debug",
		"Info",
		"Warn",
		"Error",
	}
)

func init() {
	level.Store(int32(LevelWarn))
	if v := os.Getenv("MAILBOX_LOG_LEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			SetLevel(Level(n))
		}
	}
	if os.Getenv("MAILBOX_LOG_NO_COLOR") != "" {
		noColor = true
	}
}

// SetLevel changes the process-wide log level. Out-of-range values are ignored.
func SetLevel(l Level) {
	if l >= LevelTrace && l <= LevelNoPrint {
		level.Store(int32(l))
	}
}

// CurrentLevel returns the process-wide log level.
func CurrentLevel() Level {
	return Level(level.Load())
}

// Logger writes prefixed, leveled lines to an io.Writer.
type Logger struct {
	name      string
	out       io.Writer
	callDepth int
}

// New returns a logger tagged with name. A nil out writes to stdout.
func New(name string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{
		name:      name,
		out:       out,
		callDepth: 4,
	}
}

// Named returns a copy of l writing to the same output under a different tag.
func (l *Logger) Named(name string) *Logger {
	return &Logger{name: name, out: l.out, callDepth: l.callDepth}
}

func enabled(at Level) bool {
	return Level(level.Load()) <= at
}

func (l *Logger) Errorf(format string, a ...interface{}) {
	l.printf(LevelError, format, a...)
}

func (l *Logger) Error(v interface{}) {
	l.println(LevelError, v)
}

func (l *Logger) Warnf(format string, a ...interface{}) {
	l.printf(LevelWarn, format, a...)
}

func (l *Logger) Infof(format string, a ...interface{}) {
	l.printf(LevelInfo, format, a...)
}

func (l *Logger) Info(v interface{}) {
	l.println(LevelInfo, v)
}

func (l *Logger) Debugf(format string, a ...interface{}) {
	l.printf(LevelDebug, format, a...)
}

func (l *Logger) Tracef(format string, a ...interface{}) {
	l.printf(LevelTrace, format, a...)
}

func (l *Logger) printf(at Level, format string, a ...interface{}) {
	if l == nil || !enabled(at) {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(at)+format+l.suffix()+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger %s failed: %v\n", levelName[at], err)
	}
}

func (l *Logger) println(at Level, v interface{}) {
	if l == nil || !enabled(at) {
		return
	}
	if _, err := fmt.Fprintln(l.out, l.prefix(at), v, l.suffix()); err != nil {
		fmt.Fprintf(os.Stderr, "logger %s failed: %v\n", levelName[at], err)
	}
}

func (l *Logger) suffix() string {
	if noColor {
		return ""
	}
	return reset
}

func (l *Logger) prefix(at Level) string {
	var buffer [64]byte
	buf := bytes.NewBuffer(buffer[:0])
	if !noColor {
		_, _ = buf.WriteString(colors[at])
	}
	_, _ = buf.WriteString(levelName[at])
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(time.Now().Format("2006-01-02 15:04:05.999999"))
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.location())
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.name)
	_ = buf.WriteByte(' ')
	return buf.String()
}

func (l *Logger) location() string {
	_, file, line, ok := runtime.Caller(l.callDepth)
	if !ok {
		file = "???"
		line = 0
	}
	file = filepath.Base(file)
	return file + ":" + strconv.Itoa(line)
}
