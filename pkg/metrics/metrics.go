// Package metrics exports protocol diagnostics as prometheus metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	l0 "github.com/robotalks/cmdlink.go/pkg/l0/comm"
)

const namespace = "cmdlink"

// Diagnostics implements l0 comm.Diagnostics with prometheus counters.
type Diagnostics struct {
	Rejections      *prometheus.CounterVec
	SeqMismatches   prometheus.Counter
	Commands        *prometheus.CounterVec
	PacketsSent     prometheus.Counter
	BytesSent       prometheus.Counter
	QueueSaturation *prometheus.CounterVec
}

// New creates Diagnostics and registers the collectors.
func New(reg prometheus.Registerer) (*Diagnostics, error) {
	d := &Diagnostics{
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "assembler",
				Name:      "rejected_packets_total",
				Help:      "Total number of packets rejected by the assembler",
			},
			[]string{"reason"},
		),
		SeqMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assembler",
			Name:      "seq_mismatches_total",
			Help:      "Total number of packets received with unexpected sequence number",
		}),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "commands_total",
				Help:      "Total number of reassembled commands dispatched",
			},
			[]string{"status"},
		),
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "sent_packets_total",
			Help:      "Total number of packets handed to the transport queue",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "sent_bytes_total",
			Help:      "Total number of packet bytes handed to the transport queue",
		}),
		QueueSaturation: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "queue_full_total",
				Help:      "Total number of packets refused by a full transport queue",
			},
			[]string{"direction"},
		),
	}
	for _, c := range []prometheus.Collector{
		d.Rejections, d.SeqMismatches, d.Commands,
		d.PacketsSent, d.BytesSent, d.QueueSaturation,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Reason classifies a rejection error into a metric label.
func Reason(err error) string {
	switch {
	case errors.Is(err, l0.ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, l0.ErrInconsistentSize):
		return "inconsistent_size"
	case errors.Is(err, l0.ErrUnexpectedPacket):
		return "unexpected_packet"
	case errors.Is(err, l0.ErrOverflow):
		return "overflow"
	case errors.Is(err, l0.ErrStalled):
		return "stalled"
	}
	return "other"
}

// Rejected implements Diagnostics.
func (d *Diagnostics) Rejected(err error) {
	d.Rejections.WithLabelValues(Reason(err)).Inc()
}

// SeqMismatch implements Diagnostics.
func (d *Diagnostics) SeqMismatch(expected, received l0.PacketSeq) {
	d.SeqMismatches.Inc()
}

// Dispatched implements Diagnostics.
func (d *Diagnostics) Dispatched(cmd l0.CommandID, size int, err error) {
	status := "ok"
	if errors.Is(err, l0.ErrUnknownCommand) {
		status = "unknown"
	} else if err != nil {
		status = "error"
	}
	d.Commands.WithLabelValues(status).Inc()
}

// Sent implements Diagnostics.
func (d *Diagnostics) Sent(c *l0.Container) {
	d.PacketsSent.Inc()
	d.BytesSent.Add(float64(c.Size()))
}

// Saturated implements Diagnostics.
func (d *Diagnostics) Saturated(dir l0.Direction) {
	d.QueueSaturation.WithLabelValues(dir.String()).Inc()
}

// Handler serves the metrics gathered from g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
