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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/editor-mailbox/api"
)

const instrumentationName = "github.com/srediag/editor-mailbox/pkg/mailbox"

// Reasons attached to dropped frames.
const (
	dropInvalidEncoding = "invalid_encoding"
	dropMissingField    = "missing_field"
	dropTooLarge        = "too_large"
	dropInvalidField    = "invalid_field"
	dropSuperseded      = "superseded"
	dropHandler         = "handler_error"
)

type instruments struct {
	polls    metric.Int64Counter
	commands metric.Int64Counter
	dropped  metric.Int64Counter
	turnTime metric.Float64Histogram
	tracer   trace.Tracer
	base     attribute.KeyValue
}

func newInstruments(config *Config) (*instruments, error) {
	meter := config.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	polls, err := meter.Int64Counter("mailbox.polls",
		metric.WithDescription("Mailbox poll attempts by outcome."),
		metric.WithUnit("{poll}"))
	if err != nil {
		return nil, err
	}
	commands, err := meter.Int64Counter("mailbox.commands",
		metric.WithDescription("Commands received and sent by name."),
		metric.WithUnit("{command}"))
	if err != nil {
		return nil, err
	}
	dropped, err := meter.Int64Counter("mailbox.frames.dropped",
		metric.WithDescription("Frames discarded by reason."),
		metric.WithUnit("{frame}"))
	if err != nil {
		return nil, err
	}
	turnTime, err := meter.Float64Histogram("mailbox.turn.duration",
		metric.WithDescription("Time from claim to release of a turn."),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &instruments{
		polls:    polls,
		commands: commands,
		dropped:  dropped,
		turnTime: turnTime,
		tracer:   tracer,
		base:     attribute.String("mailbox.endpoint", config.Name),
	}, nil
}

func (in *instruments) poll(ctx context.Context, res ClaimResult) {
	in.polls.Add(ctx, 1, metric.WithAttributes(in.base, attribute.String("outcome", res.String())))
}

// unknownCommand labels names outside the vocabulary; the peer picks those freely.
const unknownCommand = "unknown"

func commandLabel(cmd api.Command) string {
	if _, ok := cmd.(api.Unknown); ok {
		return unknownCommand
	}
	return cmd.Name()
}

func (in *instruments) command(ctx context.Context, direction, name string) {
	in.commands.Add(ctx, 1, metric.WithAttributes(in.base,
		attribute.String("direction", direction), attribute.String("command", name)))
}

func (in *instruments) drop(ctx context.Context, reason string) {
	in.dropped.Add(ctx, 1, metric.WithAttributes(in.base, attribute.String("reason", reason)))
}

func (in *instruments) turn(ctx context.Context, d time.Duration) {
	in.turnTime.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(in.base))
}
