package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NegotiationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "negotiations_created_total",
		Help: "Total number of negotiations created",
	}, []string{"type"})

	NegotiationsDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "negotiations_delivered_total",
		Help: "Total number of negotiations delivered",
	})

	NegotiationsArchivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "negotiations_archived_total",
		Help: "Total number of archived negotiations",
	}, []string{"released"})

	NegotiationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "negotiations_failed_total",
		Help: "Total number of failed negotiation operations",
	}, []string{"operation", "reason"})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "negotiations_idempotent_replays_total",
		Help: "Total number of negotiation creations answered from an idempotency key",
	})

	UnitReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "unit_reserve_latency_seconds",
		Help:    "Latency of unit reservation operations",
		Buckets: prometheus.DefBuckets,
	})

	UnitReservationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unit_reservations_failed_total",
		Help: "Total number of failed unit reservations",
	}, []string{"reason"})

	UnitsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "units_released_total",
		Help: "Total number of units made available again",
	})

	NegotiationEventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "negotiation_events_recorded_total",
		Help: "Total number of negotiation events written to the history ledger",
	}, []string{"type", "duplicate"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	})
)
