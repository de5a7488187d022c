// Package prometheus adapts fangauth engine metrics to client_golang.
//
// [NewCollector] wraps a [fangauth.Engine] in a prometheus.Collector that
// reads [fangauth.Engine.MetricsSnapshot] on every scrape. Counter names are
// prefixed fangauth_ and end in _total; the latency histograms end in _seconds.
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry; callers register the Collector.
//   - Mutate engine state.
package prometheus
