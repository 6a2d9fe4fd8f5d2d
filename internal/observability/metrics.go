package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	linkPackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "battleship",
			Subsystem: "link",
			Name:      "packets_total",
			Help:      "Packets moved over the link by direction and kind.",
		},
		[]string{"direction", "kind"},
	)
	linkRetransmissions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "battleship",
			Subsystem: "link",
			Name:      "retransmissions_total",
			Help:      "Requests sent again after noise or a response timeout.",
		},
	)
	linkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "battleship",
			Subsystem: "link",
			Name:      "failures_total",
			Help:      "Blocking exchanges that ended with a link error.",
		},
		[]string{"code"},
	)
	gamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "battleship",
			Subsystem: "game",
			Name:      "finished_total",
			Help:      "Games that reached a terminal state.",
		},
		[]string{"outcome"},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "battleship",
			Subsystem: "game",
			Name:      "transitions_total",
			Help:      "Turn state transitions by source and target state.",
		},
		[]string{"from", "to"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(linkPackets, linkRetransmissions, linkFailures, gamesFinished, stateTransitions)
	})
}

func RecordPacketSent(kind string) {
	RegisterMetrics()
	linkPackets.WithLabelValues("sent", kind).Inc()
}

func RecordPacketReceived(kind string) {
	RegisterMetrics()
	linkPackets.WithLabelValues("received", kind).Inc()
}

func RecordRetransmission() {
	RegisterMetrics()
	linkRetransmissions.Inc()
}

func RecordLinkFailure(code string) {
	RegisterMetrics()
	linkFailures.WithLabelValues(code).Inc()
}

func RecordGameFinished(outcome string) {
	RegisterMetrics()
	gamesFinished.WithLabelValues(outcome).Inc()
}

func RecordTransition(from, to string) {
	RegisterMetrics()
	stateTransitions.WithLabelValues(from, to).Inc()
}

// Handler registers the collectors and serves them in the Prometheus text
// format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}
