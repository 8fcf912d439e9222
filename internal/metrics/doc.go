// Package metrics implements the Performance Metrics surface (C9): the same
// derived figures internal/progress computes, additionally exported as
// github.com/prometheus/client_golang instruments on a private (non-global)
// prometheus.Registry owned by the caller.
//
// Wiring follows the teacher pack's divinesense ai/metrics.PrometheusExporter
// (88lin-divinesense/ai/metrics/prometheus.go): a struct of pre-built
// Gauge/Counter/Histogram instruments registered once at construction, with
// Record*/Set* methods doing nothing but updating them. Unlike that
// exporter, this package starts no HTTP listener of its own — exposing
// /metrics remains the embedding application's job, since the core has no
// wire protocol of its own.
package metrics
