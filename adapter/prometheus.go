// Package adapter connects a mailbox endpoint to external monitoring systems.
package adapter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/editor-mailbox/pkg/mailbox"
)

// StatsSource is anything that can report mailbox counters, usually *mailbox.Endpoint.
type StatsSource interface {
	Stats() mailbox.Stats
}

// Collector exposes endpoint counters as Prometheus metrics. Values are read from the
// source at scrape time.
type Collector struct {
	src      StatsSource
	polls    *prometheus.Desc
	commands *prometheus.Desc
	dropped  *prometheus.Desc
	lastTurn *prometheus.Desc
}

// NewCollector returns a collector for src. endpoint becomes a constant label so an
// engine and an editor can share one registry.
func NewCollector(endpoint string, src StatsSource) *Collector {
	labels := prometheus.Labels{"endpoint": endpoint}
	return &Collector{
		src: src,
		polls: prometheus.NewDesc("mailbox_polls_total",
			"Mailbox poll attempts by outcome.", []string{"outcome"}, labels),
		commands: prometheus.NewDesc("mailbox_commands_total",
			"Commands received from and sent to the peer.", []string{"direction"}, labels),
		dropped: prometheus.NewDesc("mailbox_frames_dropped_total",
			"Frames discarded locally by reason.", []string{"reason"}, labels),
		lastTurn: prometheus.NewDesc("mailbox_last_turn_timestamp_seconds",
			"Unix time of the last released turn, 0 if none.", nil, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.polls
	ch <- c.commands
	ch <- c.dropped
	ch <- c.lastTurn
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	counter := func(desc *prometheus.Desc, v uint64, label string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), label)
	}
	counter(c.polls, s.Claimed, mailbox.Claimed.String())
	counter(c.polls, s.NotMyTurn, mailbox.NotMyTurn.String())
	counter(c.polls, s.Busy, mailbox.Busy.String())
	counter(c.commands, s.Received, "in")
	counter(c.commands, s.Sent, "out")
	counter(c.dropped, s.DecodeErrors, "decode")
	counter(c.dropped, s.EncodeErrors, "encode")
	counter(c.dropped, s.HandlerErrors, "handler")
	counter(c.dropped, s.Superseded, "superseded")

	var last float64
	if !s.LastTurn.IsZero() {
		last = float64(s.LastTurn.UnixNano()) / 1e9
	}
	ch <- prometheus.MustNewConstMetric(c.lastTurn, prometheus.GaugeValue, last)
}
