package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connected_clients",
		Help: "Number of live realtime connections.",
	})

	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_ws_frames_total",
		Help: "Incoming realtime frames by event name.",
	}, []string{"event"})
)
