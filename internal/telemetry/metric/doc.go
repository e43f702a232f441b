// Package metric provides Prometheus metrics for pointerd.
//
//   - prometheus.go: the metrics registry and HTTP handler
//   - collector.go: a scrape-time collector for live session counts
//
// Metrics are exposed at /metrics in Prometheus text format. A nil
// *Registry is valid and records nothing.
package metric
