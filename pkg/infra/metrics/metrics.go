package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for LookupsTotal.
const (
	OutcomeSuccess   = "success"
	OutcomeNotFound  = "not_found"
	OutcomeTransport = "transport_error"
	OutcomeRejected  = "quota_rejected"
	OutcomeInvalid   = "invalid_input"
	OutcomeBanned    = "banned"
)

var (
	LookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numgate_lookups_total",
		Help: "Lookup requests by terminal outcome.",
	}, []string{"outcome"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numgate_cache_hits_total",
		Help: "Lookups answered from the result cache.",
	})

	ReferralCreditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numgate_referral_credits_total",
		Help: "Referral bonuses credited.",
	})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "numgate_upstream_latency_seconds",
		Help:    "Latency of calls to the lookup sources.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
)
