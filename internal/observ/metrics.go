package observ

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesSent counts persisted messages by class.
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chathub_messages_sent_total",
			Help: "Total chat messages persisted",
		},
		[]string{"class"}, // "global" or "private"
	)

	// SendsRejected counts sends refused before or during persistence.
	SendsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chathub_sends_rejected_total",
			Help: "Total chat sends rejected",
		},
		[]string{"code"},
	)

	DispatchDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chathub_dispatch_dropped_total",
			Help: "Events not delivered because the target connection was gone or full",
		},
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chathub_active_connections",
			Help: "Currently registered WebSocket connections",
		},
	)

	PresenceEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chathub_presence_events_total",
			Help: "Total presence notifications broadcast",
		},
		[]string{"kind"}, // "joined" or "left"
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chathub_rate_limit_hits_total",
			Help: "Total chat commands discarded by the per-user rate limit",
		},
	)
)

// Message classes used as the MessagesSent label.
const (
	ClassGlobal  = "global"
	ClassPrivate = "private"
)
