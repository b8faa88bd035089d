// Package metrics exposes Prometheus instrumentation for HQFBP senders and
// receivers. Collectors register on the default registry; binaries that do
// not scrape them pay only a counter increment.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PDUsGenerated counts PDUs emitted by generators, announcements
	// included.
	PDUsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hqfbp",
		Subsystem: "generator",
		Name:      "pdus_generated_total",
		Help:      "Number of PDUs emitted by generators.",
	})

	// MessagesGenerated counts Generate calls that completed.
	MessagesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hqfbp",
		Subsystem: "generator",
		Name:      "messages_generated_total",
		Help:      "Number of messages folded into PDUs.",
	})

	// PDUsReceived counts raw byte strings handed to deframers.
	PDUsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hqfbp",
		Subsystem: "deframer",
		Name:      "pdus_received_total",
		Help:      "Number of packets handed to ReceiveBytes.",
	})

	// PDUsDecoded counts packets that produced a PDU event.
	PDUsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hqfbp",
		Subsystem: "deframer",
		Name:      "pdus_decoded_total",
		Help:      "Number of packets decoded into PDU events.",
	})

	// PDUsHeld counts packets demoted to the holding buffer.
	PDUsHeld = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hqfbp",
		Subsystem: "deframer",
		Name:      "pdus_held_total",
		Help:      "Number of packets stashed for later heuristic retries.",
	})

	// MessagesReassembled counts completed sessions that emitted a message.
	MessagesReassembled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hqfbp",
		Subsystem: "deframer",
		Name:      "messages_reassembled_total",
		Help:      "Number of messages reassembled from sessions.",
	})

	// SessionsActive tracks receiver-side sessions currently open.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hqfbp",
		Subsystem: "deframer",
		Name:      "sessions_active",
		Help:      "Receiver-side sessions currently collecting fragments.",
	})
)
