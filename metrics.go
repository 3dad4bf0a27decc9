package depthbook

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultApplied = "applied"
	resultIgnored = "ignored"
	resultDropped = "dropped"
)

var (
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depthbook_messages_total",
			Help: "Feed frames by symbol and outcome (applied, ignored, dropped)",
		},
		[]string{"symbol", "result"},
	)

	reconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depthbook_reconnects_total",
			Help: "Websocket reconnect attempts by symbol",
		},
		[]string{"symbol"},
	)

	forwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depthbook_snapshots_forwarded_total",
			Help: "Snapshots that passed the presentation throttle",
		},
		[]string{"symbol"},
	)

	historyFrames = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "depthbook_history_frames",
			Help: "Frames currently held in the replay history",
		},
		[]string{"symbol"},
	)

	connectedGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "depthbook_connected",
			Help: "1 while the feed for the symbol has a live websocket",
		},
		[]string{"symbol"},
	)
)

// RegisterMetrics registers the depthbook collectors with reg.
// Registering twice with the same registerer is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		messagesTotal,
		reconnectsTotal,
		forwardedTotal,
		historyFrames,
		connectedGauge,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// forgetMetrics drops the gauges of a symbol that is no longer subscribed.
// Counters are kept so rates stay continuous across resubscribes.
func forgetMetrics(symbol string) {
	historyFrames.DeleteLabelValues(symbol)
	connectedGauge.DeleteLabelValues(symbol)
}
