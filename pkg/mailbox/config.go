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
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultDelimiter separates the command name and fields on the wire.
	DefaultDelimiter = "##DELIM##"
	// LegacyDelimiter belongs to an earlier, incompatible protocol revision. Both
	// processes must agree on one delimiter; it is accepted only when configured.
	LegacyDelimiter = "##delimiter##"

	// SmallCapacity and LargeCapacity are the region sizes used in practice.
	SmallCapacity = 4096
	LargeCapacity = 128 << 10

	// MinCapacity leaves room for the flag word and a minimal frame.
	MinCapacity = 16
)

// Config is used to tune an Endpoint.
type Config struct {
	// Role decides which flag value hands the turn to this side.
	Role Role
	// Delimiter must be identical on both sides.
	Delimiter string
	// Name tags log lines and telemetry, e.g. "engine" or "editor".
	Name string
	// LogOutput receives the endpoint's log lines. Defaults to stdout.
	LogOutput io.Writer
	// Meter and Tracer default to the global OpenTelemetry providers.
	Meter  metric.Meter
	Tracer trace.Tracer
}

// DefaultConfig returns a responder configuration with the canonical delimiter.
func DefaultConfig() *Config {
	return &Config{
		Role:      RoleResponder,
		Delimiter: DefaultDelimiter,
		Name:      "mailbox",
		LogOutput: os.Stdout,
	}
}

// VerifyConfig is used to verify the sanity of configuration.
func VerifyConfig(config *Config) error {
	if config == nil {
		return errors.New("mailbox: nil config")
	}
	if config.Role != RoleInitiator && config.Role != RoleResponder {
		return fmt.Errorf("mailbox: unknown role %d", config.Role)
	}
	if config.Delimiter == "" {
		return errors.New("mailbox: delimiter must not be empty")
	}
	if !utf8.ValidString(config.Delimiter) || strings.IndexByte(config.Delimiter, 0) >= 0 {
		return errors.New("mailbox: delimiter must be valid UTF-8 without NUL")
	}
	if strings.Contains(config.Delimiter, ",") {
		// uniform values are comma separated inside one field
		return errors.New("mailbox: delimiter must not contain ','")
	}
	return nil
}
