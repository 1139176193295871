package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectedParticipants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostelchat_connected_participants",
			Help: "Participants currently connected across all rooms",
		},
	)

	EventsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostelchat_events_broadcast_total",
			Help: "Room events fanned out to participants",
		},
		[]string{"type"},
	)

	MessagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hostelchat_messages_persisted_total",
			Help: "Messages written to the durable store",
		},
	)

	HistoryPagesServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hostelchat_history_pages_served_total",
			Help: "History pages served over HTTP",
		},
	)
)
