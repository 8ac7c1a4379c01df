package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rankboard", Name: "events_received_total", Help: "Number of inbound realtime events by event name."},
		[]string{"event"},
	)
	EventsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rankboard", Name: "events_failed_total", Help: "Number of realtime events whose handler returned an error."},
		[]string{"event"},
	)
	Broadcasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rankboard", Name: "broadcasts_total", Help: "Number of outbound broadcasts by scope (all, others)."},
		[]string{"scope"},
	)
	ConnectedSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "rankboard", Name: "connected_sessions", Help: "Number of currently registered realtime sessions."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rankboard", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rankboard", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(EventsReceived)
	reg.MustRegister(EventsFailed)
	reg.MustRegister(Broadcasts)
	reg.MustRegister(ConnectedSessions)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
