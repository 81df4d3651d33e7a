package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relay"

// Relay groups the relay's collectors.
type Relay struct {
	PlayersConnected    prometheus.Gauge
	ConnectionsRejected prometheus.Counter
	Moves               *prometheus.CounterVec
	GamesDecided        *prometheus.CounterVec
	Disconnects         *prometheus.CounterVec
}

// New - creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Relay {
	that := &Relay{
		PlayersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players_connected",
			Help:      "Connections currently holding a seat.",
		}),
		ConnectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Connections turned away because both seats were taken.",
		}),
		Moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Move requests by result.",
		}, []string{"result"}),
		GamesDecided: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_decided_total",
			Help:      "Finished games by outcome.",
		}, []string{"outcome"}),
		Disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Seated connections that left, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(that.PlayersConnected, that.ConnectionsRejected, that.Moves, that.GamesDecided, that.Disconnects)

	return that
}

// Discard - collectors registered nowhere, for tests and tools.
func Discard() *Relay {
	return New(prometheus.NewRegistry())
}
