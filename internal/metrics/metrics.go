// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailgate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailgate_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Send pipeline metrics
var (
	SendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailgate_send_requests_total",
			Help: "Total number of send requests by dialect and outcome code",
		},
		[]string{"dialect", "outcome"}, // outcome: sent or an error code
	)

	AuthorizationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailgate_authorization_failures_total",
			Help: "Total number of rejected or failed API key lookups",
		},
		[]string{"reason"}, // denied, unavailable
	)

	AttachmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailgate_attachments_total",
			Help: "Total number of attachments accepted for dispatch",
		},
	)
)

// Provider metrics
var (
	ProviderSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailgate_provider_sends_total",
			Help: "Total number of provider dispatch attempts",
		},
		[]string{"provider", "result"}, // success, rejected, failure
	)

	ProviderSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailgate_provider_send_duration_seconds",
			Help:    "Duration of provider dispatch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)
