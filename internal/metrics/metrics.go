package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoomsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pong",
		Name:      "rooms_active",
		Help:      "Rooms currently held in the registry, by kind.",
	}, []string{"kind"})

	MatchmakingWaiting = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pong",
		Name:      "matchmaking_waiting",
		Help:      "Identities waiting for a pvp opponent.",
	})

	Connections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pong",
		Name:      "ws_connections",
		Help:      "Open websocket connections, by stream.",
	}, []string{"stream"})

	MatchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pong",
		Name:      "matches_finished_total",
		Help:      "Finished matches, by room kind and reason.",
	}, []string{"kind", "reason"})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pong",
		Name:      "tick_duration_seconds",
		Help:      "Wall time of one game loop tick over all rooms.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02},
	})

	PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pong",
		Name:      "persist_failures_total",
		Help:      "Best-effort persistence writes that failed, by operation.",
	}, []string{"op"})

	Tournaments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pong",
		Name:      "tournaments_total",
		Help:      "Tournament lifecycle events.",
	}, []string{"event"})
)
