// Package metrics holds Prometheus instruments that are used across the
// skeleton.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConfigLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "config_load_total",
			Help: "Cumulative number of successful configuration loads.",
		})

	ConfigLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "config_load_errors_total",
			Help: "Cumulative number of configuration loads that failed.",
		})

	ConfigFieldErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "config_field_errors_total",
			Help: "Cumulative number of individual field validation errors.",
		})

	ReadinessChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_checks_total",
			Help: "Readiness probe results by check name and outcome.",
		},
		[]string{"check", "outcome"})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, by method and status class.",
		},
		[]string{"method", "class"})
)

func init() {
	prometheus.MustRegister(
		ConfigLoadTotal,
		ConfigLoadErrorsTotal,
		ConfigFieldErrorsTotal,
		ReadinessChecksTotal,
		HTTPRequestsTotal,
	)
}
